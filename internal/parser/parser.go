package parser

// Parser parses the test directive found in a declaration's doc comment.
type Parser interface {
	// Parse returns the directive in comment. ok is false when comment carries no directive.
	Parse(comment string) (d Directive, ok bool, err error)
}
