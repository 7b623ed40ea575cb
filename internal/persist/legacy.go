package persist

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"testmgr/internal/foldout"
)

// Delimiters of the legacy format. They never occur in legitimate data.
const (
	legacyHeader  = "\n===|TestManagerUIHeader|===\n"
	legacyFoldout = "\n===|TestManagerUIFoldout|===\n"
	legacyField   = "\n===|TestManagerUIField|===\n"
	legacyQueue   = "\n"
)

func encodeLegacy(doc Document) string {
	records := make([]string, 0, len(doc.Foldouts))
	for _, rec := range doc.Foldouts {
		records = append(records, rec.Path+legacyField+formatBool(rec.Expanded))
	}
	return strings.Join([]string{
		formatBool(doc.ShowWelcome),
		formatBool(doc.Debug),
		strings.Join(doc.Queue.Pending, legacyQueue),
		strings.Join(records, legacyFoldout),
	}, legacyHeader)
}

// formatBool writes booleans the way older releases did.
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// looksLikeLegacy reports whether data is a legacy document without any delimiter, which older
// releases wrote as a lone welcome flag.
func looksLikeLegacy(data string) bool {
	for _, line := range strings.Split(data, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			_, err := strconv.ParseBool(trimmed)
			return err == nil
		}
	}
	return false
}

func decodeLegacy(data string, base Document) (Document, []error) {
	doc := base
	var errs []error
	fields := strings.Split(data, legacyHeader)
	field := func(i int, name string) (string, bool) {
		if i >= len(fields) {
			errs = append(errs, &FieldError{Field: name, Err: errors.New("missing")})
			return "", false
		}
		return fields[i], true
	}

	if s, ok := field(0, keyShowWelcome); ok {
		if v, err := strconv.ParseBool(strings.TrimSpace(s)); err != nil {
			errs = append(errs, &FieldError{Field: keyShowWelcome, Err: err})
		} else {
			doc.ShowWelcome = v
		}
	}
	if s, ok := field(1, keyDebug); ok {
		if v, err := strconv.ParseBool(strings.TrimSpace(s)); err != nil {
			errs = append(errs, &FieldError{Field: keyDebug, Err: err})
		} else {
			doc.Debug = v
		}
	}
	if s, ok := field(2, keyQueue); ok {
		doc.Queue.Pending = nil
		doc.Queue.Finished = nil
		for _, id := range strings.Split(s, legacyQueue) {
			if id = strings.TrimSpace(id); id != "" {
				doc.Queue.Pending = append(doc.Queue.Pending, id)
			}
		}
	}
	if s, ok := field(3, keyFoldouts); ok {
		doc.Foldouts = nil
		for i, raw := range strings.Split(s, legacyFoldout) {
			if raw == "" {
				continue
			}
			rec, err := decodeLegacyFoldout(raw)
			if err != nil {
				errs = append(errs, &FieldError{Field: fmt.Sprintf("%s[%d]", keyFoldouts, i), Err: err})
				continue
			}
			doc.Foldouts = append(doc.Foldouts, rec)
		}
	}
	return doc, errs
}

func decodeLegacyFoldout(raw string) (foldout.Record, error) {
	parts := strings.Split(raw, legacyField)
	if len(parts) < 2 {
		return foldout.Record{}, errors.New("missing expanded field")
	}
	expanded, err := strconv.ParseBool(strings.TrimSpace(parts[1]))
	if err != nil {
		return foldout.Record{}, err
	}
	return foldout.Record{Path: parts[0], Expanded: expanded}, nil
}
