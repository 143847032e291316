// Package symbol converts Cursor-on-Target type strings into MIL-STD-2525B
// symbol identification codes and human-readable descriptions.
//
// CoT types are dash-separated paths such as "a-f-G-U-C" (a friendly ground
// combat unit). The first segment selects the branch of the type tree:
//
//	a    atoms (units, equipment, installations)
//	b-g  tactical graphics
//	b-r  intelligence and stability operations
//	r    CBRN
//
// Every symbol code produced here is exactly SymbolCodeLength uppercase
// characters, whatever the input.
package symbol

import (
	"strings"
	"unicode/utf8"
)

// SymbolCodeLength is the fixed length of a 2525B symbol identification code.
const SymbolCodeLength = 15

// Symbol code templates. Dashes are unspecified positions, asterisks are
// positions the renderer fills in.
const (
	atomTemplate             = "S--P-----------"
	tacticalGraphicsTemplate = "G--P------****X"
	intelligenceTemplate     = "*--P--------***"

	// CBRNSymbolCode is returned for every type in the "r" branch.
	CBRNSymbolCode = "EUIPD-----*****"

	// UnknownSymbolCode is returned for types outside the supported branches.
	UnknownSymbolCode = "SUZA-----------"
)

// modifierOffset is where the function ID starts in every template.
const modifierOffset = 4

const wildcard = '.'

// Symbolizer pairs the symbol code algorithm with a description catalog.
type Symbolizer struct {
	catalog *Catalog
}

// New creates a Symbolizer. A nil catalog selects DefaultCatalog.
func New(catalog *Catalog) *Symbolizer {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Symbolizer{catalog: catalog}
}

// Catalog returns the catalog used for descriptions.
func (s *Symbolizer) Catalog() *Catalog {
	return s.catalog
}

// SymbolCode returns the 2525B code for cotType. See the package-level
// SymbolCode.
func (s *Symbolizer) SymbolCode(cotType string) string {
	return SymbolCode(cotType)
}

// Description returns the catalog description for cotType after replacing
// its affiliation position with a wildcard.
func (s *Symbolizer) Description(cotType string) string {
	return s.catalog.Description(WildcardType(cotType))
}

// SymbolCode converts a CoT type into a 15-character 2525B symbol code.
//
// The dispatch depends only on the type's prefix. Positions that the type is
// too short to supply keep their template character. Positions are byte
// offsets; bytes outside ASCII are never copied, so the code is always 15
// ASCII characters.
func SymbolCode(cotType string) string {
	stripped := strings.ReplaceAll(cotType, "-", "")

	switch {
	case strings.HasPrefix(cotType, "a"):
		code := []byte(atomTemplate)
		setFrom(code, 1, stripped, 1)
		setFrom(code, 2, stripped, 2)
		if len(stripped) > 3 {
			if mod := stripped[3:]; len(mod) < SymbolCodeLength-3 {
				splice(code, modifierOffset, mod)
			}
		}
		return upper(code)

	case strings.HasPrefix(cotType, "b-g"):
		code := []byte(tacticalGraphicsTemplate)
		if len(stripped) > 3 {
			setFrom(code, 1, stripped, 2)
			setFrom(code, 2, stripped, 3)
			if len(stripped) > 4 && len(stripped) < SymbolCodeLength+1 {
				splice(code, modifierOffset, stripped[4:])
			}
		}
		return upper(code)

	case strings.HasPrefix(cotType, "b-r"):
		code := []byte(intelligenceTemplate)
		if len(stripped) > 3 {
			setFrom(code, 0, stripped, 3)
			setFrom(code, 1, stripped, 2)
			setFrom(code, 2, stripped, 4)
			if len(stripped) > 4 && len(stripped) < SymbolCodeLength+1 {
				splice(code, modifierOffset, stripped[5:])
			}
		}
		return upper(code)

	case strings.HasPrefix(cotType, "r"):
		return CBRNSymbolCode

	default:
		return UnknownSymbolCode
	}
}

// WildcardType replaces the affiliation position of cotType with '.', the
// form used as a catalog key. Index 2 is replaced for atoms and index 4 for
// tactical graphics and intelligence types. Other types, and types too short
// to hold the position, are returned unchanged.
func WildcardType(cotType string) string {
	var idx int
	switch {
	case strings.HasPrefix(cotType, "a"):
		idx = 2
	case strings.HasPrefix(cotType, "b-g"), strings.HasPrefix(cotType, "b-r"):
		idx = 4
	default:
		return cotType
	}

	if idx >= len(cotType) {
		return cotType
	}
	b := []byte(cotType)
	b[idx] = wildcard
	return string(b)
}

// setFrom copies src[from] into code[at] when src is long enough and the
// byte is ASCII.
func setFrom(code []byte, at int, src string, from int) {
	if from < len(src) && at < len(code) && src[from] < utf8.RuneSelf {
		code[at] = src[from]
	}
}

// splice overwrites code starting at offset, clipped to the code length.
// Non-ASCII bytes leave the template character in place.
func splice(code []byte, offset int, s string) {
	for i := 0; i < len(s) && offset+i < len(code); i++ {
		if s[i] < utf8.RuneSelf {
			code[offset+i] = s[i]
		}
	}
}

// upper uppercases ASCII letters byte by byte so the code length never
// changes.
func upper(code []byte) string {
	for i, c := range code {
		if c >= 'a' && c <= 'z' {
			code[i] = c - ('a' - 'A')
		}
	}
	return string(code)
}
