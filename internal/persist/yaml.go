package persist

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"testmgr/internal/execution"
	"testmgr/internal/foldout"
)

const (
	keyVersion     = "version"
	keyShowWelcome = "show_welcome"
	keyDebug       = "debug"
	keyQueue       = "queue"
	keyFoldouts    = "foldouts"
)

type yamlDocument struct {
	Version     int                     `yaml:"version"`
	ShowWelcome bool                    `yaml:"show_welcome"`
	Debug       bool                    `yaml:"debug"`
	Queue       execution.QueueSnapshot `yaml:"queue"`
	Foldouts    []foldout.Record        `yaml:"foldouts"`
}

func encodeYAML(doc Document) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	err := enc.Encode(yamlDocument{
		Version:     Version,
		ShowWelcome: doc.ShowWelcome,
		Debug:       doc.Debug,
		Queue:       doc.Queue,
		Foldouts:    doc.Foldouts,
	})
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	return buf.String(), nil
}


// chunk is one top-level key of the document with the lines that belong to it.
type chunk struct {
	key  string
	text string
}

// splitTopLevel cuts a YAML mapping into its top-level entries without parsing it, so a syntax
// error in one entry cannot take the others down with it. Lines that belong to no entry are
// returned as stray.
func splitTopLevel(data string) (chunks []chunk, stray []string) {
	var (
		cur   *chunk
		lines []string
	)
	flush := func() {
		if cur != nil {
			cur.text = strings.Join(lines, "\n")
			chunks = append(chunks, *cur)
		}
		lines = nil
	}
	for _, line := range strings.Split(data, "\n") {
		if line == "---" || line == "..." {
			continue
		}
		startsEntry := line != "" && line[0] != ' ' && line[0] != '\t' && line[0] != '#' && line[0] != '-'
		if startsEntry {
			if key, _, ok := strings.Cut(line, ":"); ok {
				flush()
				cur = &chunk{key: strings.TrimSpace(key)}
			}
		}
		if cur != nil {
			lines = append(lines, line)
		} else if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			stray = append(stray, line)
		}
	}
	flush()
	return chunks, stray
}

func decodeYAML(data string, base Document) (Document, []error) {
	doc := base
	var errs []error

	chunks, stray := splitTopLevel(data)
	for _, line := range stray {
		errs = append(errs, &FieldError{Field: "document", Err: fmt.Errorf("unreadable line %q", line)})
	}
	for _, c := range chunks {
		var entry map[string]yaml.Node
		if err := yaml.Unmarshal([]byte(c.text), &entry); err != nil {
			if c.key == keyFoldouts {
				records, recErrs := decodeFoldoutItems(c.text)
				if records != nil {
					doc.Foldouts = records
				}
				errs = append(errs, recErrs...)
				continue
			}
			errs = append(errs, &FieldError{Field: c.key, Err: err})
			continue
		}
		node, ok := entry[c.key]
		if !ok {
			continue
		}

		var err error
		switch c.key {
		case keyVersion:
			var v int
			if err = node.Decode(&v); err == nil && v > Version {
				err = fmt.Errorf("written by a newer version (%d)", v)
			}
		case keyShowWelcome:
			err = decodeInto(&node, &doc.ShowWelcome)
		case keyDebug:
			err = decodeInto(&node, &doc.Debug)
		case keyQueue:
			err = decodeInto(&node, &doc.Queue)
		case keyFoldouts:
			var recErrs []error
			doc.Foldouts, recErrs = decodeFoldoutNodes(&node, doc.Foldouts)
			errs = append(errs, recErrs...)
		}
		if err != nil {
			errs = append(errs, &FieldError{Field: c.key, Err: err})
		}
	}
	return doc, errs
}

// decodeInto decodes node into dst, leaving dst unchanged on failure.
func decodeInto[T any](node *yaml.Node, dst *T) error {
	var v T
	if err := node.Decode(&v); err != nil {
		return err
	}
	*dst = v
	return nil
}

func decodeFoldoutNodes(node *yaml.Node, prior []foldout.Record) ([]foldout.Record, []error) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return prior, []error{&FieldError{Field: keyFoldouts, Err: errors.New("not a list")}}
	}

	var (
		records []foldout.Record
		errs    []error
	)
	for i, item := range node.Content {
		var rec foldout.Record
		if err := item.Decode(&rec); err != nil {
			errs = append(errs, &FieldError{Field: fmt.Sprintf("%s[%d]", keyFoldouts, i), Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, errs
}

// decodeFoldoutItems is the fallback when the foldouts entry is not valid YAML as a whole: every
// list item is parsed on its own.
func decodeFoldoutItems(text string) ([]foldout.Record, []error) {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return nil, []error{&FieldError{Field: keyFoldouts, Err: errors.New("malformed list")}}
	}

	var (
		items  [][]string
		indent = -1
	)
	for _, line := range lines[1:] {
		trimmed := strings.TrimLeft(line, " ")
		depth := len(line) - len(trimmed)
		if strings.HasPrefix(trimmed, "- ") || trimmed == "-" {
			if indent < 0 {
				indent = depth
			}
			if depth == indent {
				items = append(items, nil)
			}
		}
		if len(items) == 0 {
			continue
		}
		if indent >= 0 && len(line) >= indent {
			line = line[indent:]
		}
		items[len(items)-1] = append(items[len(items)-1], line)
	}

	var (
		records []foldout.Record
		errs    []error
	)
	for i, item := range items {
		var recs []foldout.Record
		if err := yaml.Unmarshal([]byte(strings.Join(item, "\n")), &recs); err != nil || len(recs) != 1 {
			if err == nil {
				err = errors.New("not a single record")
			}
			errs = append(errs, &FieldError{Field: fmt.Sprintf("%s[%d]", keyFoldouts, i), Err: err})
			continue
		}
		records = append(records, recs[0])
	}
	return records, errs
}
