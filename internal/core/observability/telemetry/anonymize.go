package telemetry

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Anonymizer maps raw identifiers onto salted, stable, non-reversible tokens.
type Anonymizer struct {
	salt string
}

func NewAnonymizer(salt string) Anonymizer {
	return Anonymizer{salt: salt}
}

// Token returns a 16 hex digit digest of id, or "" for an empty id.
func (a Anonymizer) Token(id string) string {
	if id == "" {
		return ""
	}
	d := xxhash.New()
	_, _ = d.WriteString(a.salt)
	_, _ = d.WriteString(":")
	_, _ = d.WriteString(id)
	s := strconv.FormatUint(d.Sum64(), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}
