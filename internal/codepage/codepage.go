// Package codepage validates 8.3-style names against the OEM code page,
// the way a real FAT/NTFS driver constrains short names to a specific
// single-byte charset. It gives the teacher's unused codepage/exCvt
// fields (soypat/fat's FS struct) an actual call site.
package codepage

import (
	"golang.org/x/text/encoding/charmap"
)

// OEM is the single-byte code page short names are validated against.
var OEM = charmap.CodePage437

// Valid reports whether name encodes losslessly as OEM and fits within
// maxLen bytes (not counting a terminator the caller may add).
func Valid(name string, maxLen int) bool {
	if name == "" || len(name) > maxLen {
		return false
	}
	encoded, err := OEM.NewEncoder().String(name)
	if err != nil {
		return false
	}
	decoded, err := OEM.NewDecoder().String(encoded)
	if err != nil {
		return false
	}
	return decoded == name
}
