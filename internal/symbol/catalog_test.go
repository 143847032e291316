package symbol

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	cat := DefaultCatalog()
	if cat.Len() < 100 {
		t.Errorf("embedded catalog has %d entries, expected a full table", cat.Len())
	}
	if DefaultCatalog() != cat {
		t.Error("DefaultCatalog() should return the same instance")
	}
}

func TestDefaultCatalogKeysAreWildcarded(t *testing.T) {
	cat := DefaultCatalog()
	for key := range cat.entries {
		if WildcardType(key) != key {
			t.Errorf("catalog key %q is not in wildcard form (%q)", key, WildcardType(key))
		}
	}
}

func TestCatalogLookupIsExact(t *testing.T) {
	cat := DefaultCatalog()

	if desc, ok := cat.Lookup("a-.-G-U-C"); !ok || desc != "Combat" {
		t.Errorf("Lookup(a-.-G-U-C) = %q, %v", desc, ok)
	}
	if _, ok := cat.Lookup("a-.-G-U-C-"); ok {
		t.Error("Lookup should not match with trailing characters")
	}
	if _, ok := cat.Lookup("a-.-G-U"); !ok {
		t.Error("Lookup(a-.-G-U) should be present")
	}
	if got := cat.Description("a-f-G-U-C"); got != UnknownDescription {
		t.Errorf("Description of a non-wildcarded key = %q, want unknown", got)
	}
}

func TestParseCatalogErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{"invalid yaml", "types: [", ""},
		{"missing desc", `types: [{cot: "a-.-G"}]`, "cot and desc are required"},
		{"missing cot", `types: [{desc: "Ground"}]`, "cot and desc are required"},
		{"duplicate", `types: [{cot: "a", desc: "x"}, {cot: "a", desc: "y"}]`, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalidCatalog) {
				t.Fatalf("ParseCatalog() error = %v, want ErrInvalidCatalog", err)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}
