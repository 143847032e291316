package symbol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const friendlyUnit = `<event version="2.0" uid="U1" type="a-f-G-U-C" how="m-g" time="2024-01-01T00:00:00Z" start="2024-01-01T00:00:00Z" stale="2024-01-01T00:05:00Z">
  <point lat="51.5" lon="-0.12" hae="10" ce="5" le="5"/>
  <detail><contact callsign="ALPHA"/></detail>
</event>`

func decodeAugmented(t *testing.T, out string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}
	return doc
}

func detailOf(t *testing.T, doc map[string]any) map[string]any {
	t.Helper()
	event, ok := doc["event"].(map[string]any)
	if !ok {
		t.Fatalf("event missing: %v", doc)
	}
	detail, ok := event["detail"].(map[string]any)
	if !ok {
		t.Fatalf("detail missing or not an object: %v", event["detail"])
	}
	return detail
}

func TestAugmentToTreeExistingDetail(t *testing.T) {
	s := New(nil)

	out, err := s.AugmentToTree(friendlyUnit, 3)
	if err != nil {
		t.Fatalf("AugmentToTree() error = %v", err)
	}

	detail := detailOf(t, decodeAugmented(t, out))
	if detail[SymbolCodeKey] != "SFGPUC---------" {
		t.Errorf("symbolCode = %v", detail[SymbolCodeKey])
	}
	if detail[DescriptionKey] != "Combat" {
		t.Errorf("description = %v", detail[DescriptionKey])
	}
	contact, ok := detail["contact"].(map[string]any)
	if !ok || contact["callsign"] != "ALPHA" {
		t.Errorf("existing detail children not preserved: %v", detail)
	}
	if !strings.Contains(out, "\n   \"event\"") {
		t.Errorf("expected 3-space indent:\n%s", out)
	}
}

func TestAugmentToTreeCreatesDetail(t *testing.T) {
	s := New(nil)

	out, err := s.AugmentToTree(`<event version="2.0" uid="X" type="z-unknown"><point lat="0" lon="0"/></event>`, 0)
	if err != nil {
		t.Fatalf("AugmentToTree() error = %v", err)
	}

	doc := decodeAugmented(t, out)
	detail := detailOf(t, doc)
	if len(detail) != 2 {
		t.Errorf("created detail should hold exactly two keys, got %v", detail)
	}
	if detail[SymbolCodeKey] != UnknownSymbolCode {
		t.Errorf("symbolCode = %v, want %s", detail[SymbolCodeKey], UnknownSymbolCode)
	}
	if detail[DescriptionKey] != UnknownDescription {
		t.Errorf("description = %v", detail[DescriptionKey])
	}

	event := doc["event"].(map[string]any)
	if _, ok := event["point"]; !ok {
		t.Error("point should be preserved")
	}
}

func TestAugmentDetailVariants(t *testing.T) {
	tests := []struct {
		name        string
		xml         string
		wantContent any
		wantKeys    int
	}{
		{
			name:     "empty detail element",
			xml:      `<event type="a-f-G"><detail/></event>`,
			wantKeys: 2,
		},
		{
			name:        "text only detail",
			xml:         `<event type="a-f-G"><detail>note</detail></event>`,
			wantContent: "note",
			wantKeys:    3,
		},
		{
			name:     "repeated detail uses first",
			xml:      `<event type="a-f-G"><detail a="1"/><detail b="2"/></event>`,
			wantKeys: 3,
		},
	}

	s := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := s.Augment(tt.xml)
			if err != nil {
				t.Fatalf("Augment() error = %v", err)
			}
			event, _ := tree.Object("event")
			detail := detailObject(event)
			if len(detail) != tt.wantKeys {
				t.Errorf("detail = %v, want %d keys", detail, tt.wantKeys)
			}
			if detail[SymbolCodeKey] != "SFGP-----------" {
				t.Errorf("symbolCode = %v", detail[SymbolCodeKey])
			}
			if tt.wantContent != nil && detail["content"] != tt.wantContent {
				t.Errorf("content = %v, want %v", detail["content"], tt.wantContent)
			}
		})
	}
}

func TestAugmentToTreeNegativeIndent(t *testing.T) {
	s := New(nil)

	neg, err := s.AugmentToTree(friendlyUnit, -7)
	if err != nil {
		t.Fatalf("AugmentToTree() error = %v", err)
	}
	def, err := s.AugmentToTree(friendlyUnit, DefaultIndent)
	if err != nil {
		t.Fatalf("AugmentToTree() error = %v", err)
	}
	if neg != def {
		t.Error("negative indent should match the default indent")
	}
}

func TestAugmentErrors(t *testing.T) {
	tests := []struct {
		name    string
		xml     string
		wantErr error
	}{
		{"malformed", `<event type="a-f-G">`, nil},
		{"not an event", `<foo type="a-f-G"/>`, ErrNoEvent},
		{"no type", `<event uid="x"/>`, ErrNoType},
		{"empty type", `<event type=""/>`, ErrNoType},
	}

	s := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AugmentToTree(tt.xml, 3)
			if err == nil {
				t.Fatal("AugmentToTree() should fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
