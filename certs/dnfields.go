package certs

import (
	"fmt"
	"strings"

	"github.com/jmcleod/tokencert/authorities"
	"github.com/jmcleod/tokencert/internal/util"
)

// DnFieldValue is one resolved subject distinguished-name field.
type DnFieldValue struct {
	ID    string
	Value string
}

// processDnParameters validates user-submitted subject field values against
// a CA profile and resolves the final field values. Read-only fields always
// take the profile default; submitted values are NFC-normalized. A missing
// required value or a field the profile does not know fails with
// ErrInvalidDnParameter naming the offending field.
func processDnParameters(profile authorities.Profile, submitted map[string]string) ([]DnFieldValue, error) {
	known := make(map[string]bool, len(profile.SubjectFields))
	values := make([]DnFieldValue, 0, len(profile.SubjectFields))

	for _, f := range profile.SubjectFields {
		known[f.ID] = true
		value := f.Default
		if !f.ReadOnly {
			if v, ok := submitted[f.ID]; ok {
				value = util.NormalizeDnValue(strings.TrimSpace(v))
			}
		}
		if f.Required && value == "" {
			return nil, fmt.Errorf("%w: missing required field %q", ErrInvalidDnParameter, f.ID)
		}
		if value != "" {
			values = append(values, DnFieldValue{ID: f.ID, Value: value})
		}
	}

	for id := range submitted {
		if !known[id] {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidDnParameter, id)
		}
	}
	return values, nil
}

// subjectName renders resolved DN field values as a subject string, e.g.
// "C=FI, O=GOV, CN=1234".
func subjectName(values []DnFieldValue) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, v.ID+"="+v.Value)
	}
	return strings.Join(parts, ", ")
}
