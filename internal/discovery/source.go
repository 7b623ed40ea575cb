package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"golang.org/x/sync/errgroup"

	"testmgr/internal/domain"
	"testmgr/internal/parser"
	"testmgr/internal/paths"
	"testmgr/internal/sim"
)

const (
	nodeComment             = "comment"
	nodeFunctionDeclaration = "function_declaration"
	nodeMethodDeclaration   = "method_declaration"
	nodePackageClause       = "package_clause"
	nodePackageIdentifier   = "package_identifier"
	nodeParameterDecl       = "parameter_declaration"
)

// SourceScanner discovers tests declared in Go source files with a //testmgr:test directive.
// Tests found this way have no body; merge them with a Registry to make them runnable.
type SourceScanner struct {
	roots    []paths.Root
	scanner  *Scanner
	parser   parser.Parser
	resolver *paths.Resolver
	workers  int
	log      logrus.FieldLogger
}

// NewSourceScanner creates a SourceScanner over roots. The default group path of a test is the
// directory of its file relative to the root containing it, prefixed with the root's name.
func NewSourceScanner(roots []paths.Root, scanner *Scanner, log logrus.FieldLogger) *SourceScanner {
	return &SourceScanner{
		roots:    roots,
		scanner:  scanner,
		parser:   parser.NewDirectiveParser(),
		resolver: paths.NewResolver(roots...),
		workers:  runtime.GOMAXPROCS(0),
		log:      log,
	}
}

// SetWorkers limits the number of files parsed concurrently.
func (s *SourceScanner) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// Discover implements Provider. Files that fail to parse and malformed directives are logged and
// skipped. A file outside every root is reported as a *paths.InvalidPathError.
func (s *SourceScanner) Discover(ctx context.Context) ([]Descriptor, error) {
	var files []string
	for _, root := range s.roots {
		found, err := s.scanner.Scan(root.Dir)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root.Name, err)
		}
		files = append(files, found...)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var (
		mu      sync.Mutex
		results []Descriptor
	)
	for _, file := range files {
		g.Go(func() error {
			src, err := os.ReadFile(file)
			if err != nil {
				s.log.WithError(err).WithField("path", file).Warn("could not read source file")
				return nil
			}
			found, err := s.ParseFile(gCtx, file, src)
			if err != nil {
				var invalid *paths.InvalidPathError
				if errors.As(err, &invalid) || errors.Is(err, context.Canceled) {
					return err
				}
				s.log.WithError(err).WithField("path", file).Warn("could not parse source file")
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			results = append(results, found...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return sourceLess(results[i].Source, results[j].Source)
	})
	return results, nil
}

// ParseFile returns the tests declared in src, which was read from file.
func (s *SourceScanner) ParseFile(ctx context.Context, file string, src []byte) ([]Descriptor, error) {
	rel, err := s.resolver.Relative(file)
	if err != nil {
		return nil, err
	}
	defaultPath := paths.Parent(rel)

	p := newGoParser()
	defer p.Close()
	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	defer tree.Close()
	root := tree.RootNode()

	pkg := packageName(root, src)
	var out []Descriptor
	for i := 0; i < int(root.NamedChildCount()); i++ {
		decl := root.NamedChild(i)
		if decl.Type() != nodeFunctionDeclaration && decl.Type() != nodeMethodDeclaration {
			continue
		}

		d, ok, err := s.parser.Parse(docComment(decl, src))
		if !ok {
			continue
		}
		line := int(decl.StartPoint().Row) + 1
		if err != nil {
			s.log.WithError(err).WithField("path", fmt.Sprintf("%s:%d", file, line)).Warn("skipping malformed test directive")
			continue
		}

		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		typ := pkg
		if decl.Type() == nodeMethodDeclaration {
			typ = receiverType(decl, src)
		}
		if typ == "" {
			continue
		}

		group := d.Path
		if group == "" {
			group = defaultPath
		}
		out = append(out, Descriptor{
			ID:       domain.TestID{Type: typ, Method: nameNode.Content(src)},
			Path:     paths.Clean(group),
			Name:     d.Name,
			Timeout:  d.Timeout,
			Resource: sim.Resource{Ref: d.Resource},
			Source:   fmt.Sprintf("%s:%d", file, line),
		})
	}
	return out, nil
}

var (
	goLang     *sitter.Language
	goLangOnce sync.Once
)

// newGoParser returns a fresh parser for Go source. The caller closes it. Parsers are not reused:
// a parse cancelled through its context leaves the parser unusable.
func newGoParser() *sitter.Parser {
	goLangOnce.Do(func() { goLang = golang.GetLanguage() })
	p := sitter.NewParser()
	p.SetLanguage(goLang)
	return p
}

func packageName(root *sitter.Node, src []byte) string {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != nodePackageClause {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			if id := child.NamedChild(j); id.Type() == nodePackageIdentifier {
				return id.Content(src)
			}
		}
	}
	return ""
}

// docComment returns the comment lines directly above decl.
func docComment(decl *sitter.Node, src []byte) string {
	var lines []string
	row := decl.StartPoint().Row
	for prev := decl.PrevNamedSibling(); prev != nil && prev.Type() == nodeComment; prev = prev.PrevNamedSibling() {
		if prev.EndPoint().Row+1 < row {
			break
		}
		lines = append([]string{prev.Content(src)}, lines...)
		row = prev.StartPoint().Row
	}
	return strings.Join(lines, "\n")
}

// receiverType returns the bare type name of a method's receiver: "*Suite[T]" becomes "Suite".
func receiverType(decl *sitter.Node, src []byte) string {
	recv := decl.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		param := recv.NamedChild(i)
		if param.Type() != nodeParameterDecl {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		if typeNode == nil {
			return ""
		}
		name := strings.TrimSpace(strings.TrimPrefix(typeNode.Content(src), "*"))
		if i := strings.Index(name, "["); i >= 0 {
			name = name[:i]
		}
		return name
	}
	return ""
}

// sourceLess orders "file:line" locations by file, then numerically by line.
func sourceLess(a, b string) bool {
	fa, la := splitSource(a)
	fb, lb := splitSource(b)
	if fa != fb {
		return fa < fb
	}
	return la < lb
}

func splitSource(s string) (string, int) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	var line int
	fmt.Sscanf(s[i+1:], "%d", &line)
	return s[:i], line
}
