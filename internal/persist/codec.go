// Package persist converts the volatile state of the manager (global flags, run queue and tree
// records) to a single string and back. Decoding never fails as a whole: every field, and every
// tree record, is decoded on its own and a broken one keeps its prior value.
package persist

import (
	"fmt"
	"strings"

	"testmgr/internal/execution"
	"testmgr/internal/foldout"
)

// Format selects the encoding written by Encode.
type Format string

const (
	// FormatYAML is the versioned structured format.
	FormatYAML Format = "yaml"
	// FormatLegacy is the delimited format of older releases. It does not carry per-test state.
	FormatLegacy Format = "legacy"
)

// Version of the structured format.
const Version = 2

// Document is everything that is persisted.
type Document struct {
	ShowWelcome bool
	Debug       bool
	Queue       execution.QueueSnapshot
	Foldouts    []foldout.Record
}

// DefaultDocument returns the state of a fresh install.
func DefaultDocument() Document {
	return Document{ShowWelcome: true}
}

// FieldError reports a field or record that could not be decoded.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatYAML:
		return FormatYAML, nil
	case FormatLegacy:
		return FormatLegacy, nil
	default:
		return "", fmt.Errorf("unknown state format %q", s)
	}
}

// Encode serializes doc in the given format.
func Encode(doc Document, format Format) (string, error) {
	switch format {
	case FormatLegacy:
		return encodeLegacy(doc), nil
	case FormatYAML, "":
		return encodeYAML(doc)
	default:
		return "", fmt.Errorf("unknown state format %q", format)
	}
}

// Decode parses data written in either format on top of base. Fields that are missing or cannot
// be decoded keep the value they have in base; the problems are returned for logging.
func Decode(data string, base Document) (Document, []error) {
	if strings.TrimSpace(data) == "" {
		return base, nil
	}
	if strings.Contains(data, legacyHeader) || looksLikeLegacy(data) {
		return decodeLegacy(data, base)
	}
	return decodeYAML(data, base)
}
