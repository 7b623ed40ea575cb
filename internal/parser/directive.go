package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Marker starts a test directive comment.
const Marker = "//testmgr:test"

// Directive holds the attributes of a test directive.
//
//	//testmgr:test path=Physics/Gravity name="Falls down" timeout=5s resource=Crate
type Directive struct {
	Path     string
	Name     string
	Timeout  time.Duration
	Resource string
	Line     int // 1-based line of the directive within the comment
}

var attrPattern = regexp.MustCompile(`(\w+)=("(?:[^"\\]|\\.)*"|\S+)`)

// DirectiveParser parses //testmgr:test directives
type DirectiveParser struct{}

// NewDirectiveParser creates a new DirectiveParser
func NewDirectiveParser() *DirectiveParser {
	return &DirectiveParser{}
}

// Parse finds the directive line in comment and parses its attributes. Unknown attributes are
// an error so typos do not silently change where a test shows up.
func (p *DirectiveParser) Parse(comment string) (Directive, bool, error) {
	lines := strings.Split(comment, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, Marker) {
			continue
		}
		rest := strings.TrimPrefix(line, Marker)
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			// e.g. //testmgr:testing
			continue
		}
		d, err := p.parseAttributes(strings.TrimSpace(rest))
		d.Line = i + 1
		return d, true, err
	}
	return Directive{}, false, nil
}

func (p *DirectiveParser) parseAttributes(s string) (Directive, error) {
	var d Directive
	if s == "" {
		return d, nil
	}

	matches := attrPattern.FindAllStringSubmatchIndex(s, -1)
	covered := 0
	for _, m := range matches {
		if gap := strings.TrimSpace(s[covered:m[0]]); gap != "" {
			return d, fmt.Errorf("unexpected %q in directive", gap)
		}
		covered = m[1]

		key, raw := s[m[2]:m[3]], s[m[4]:m[5]]
		value, err := unquote(raw)
		if err != nil {
			return d, fmt.Errorf("attribute %s: %w", key, err)
		}

		switch key {
		case "path":
			d.Path = value
		case "name":
			d.Name = value
		case "resource":
			d.Resource = value
		case "timeout":
			timeout, err := time.ParseDuration(value)
			if err != nil {
				return d, fmt.Errorf("attribute timeout: %w", err)
			}
			if timeout < 0 {
				return d, fmt.Errorf("attribute timeout: negative duration %s", value)
			}
			d.Timeout = timeout
		default:
			return d, fmt.Errorf("unknown attribute %q", key)
		}
	}
	if gap := strings.TrimSpace(s[covered:]); gap != "" {
		return d, fmt.Errorf("unexpected %q in directive", gap)
	}
	return d, nil
}

func unquote(raw string) (string, error) {
	if strings.HasPrefix(raw, `"`) {
		return strconv.Unquote(raw)
	}
	return raw, nil
}
