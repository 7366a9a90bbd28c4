package pntfs

import (
	"bytes"

	"github.com/lmika/pntfs/internal/codepage"
)

// nameFromBytes decodes a NUL-padded fixed-size name field, matching
// the C-string convention of spec.md's "11-byte name + terminator".
func nameFromBytes(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// validateName checks a proposed file/directory name against the 8.3
// length and OEM-charset constraints (spec.md §1: "names are 8.3-style,
// <=11 bytes + terminator").
func validateName(name string) bool {
	return codepage.Valid(name, maxNameLen)
}
