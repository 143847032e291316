package xmltree

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want string
	}{
		{
			name: "attributes become keys",
			xml:  `<event uid="x" type="a-f-G"/>`,
			want: `{"event":{"type":"a-f-G","uid":"x"}}`,
		},
		{
			name: "empty element",
			xml:  `<event><detail/></event>`,
			want: `{"event":{"detail":""}}`,
		},
		{
			name: "text only element",
			xml:  `<remarks>hello world</remarks>`,
			want: `{"remarks":"hello world"}`,
		},
		{
			name: "text with attributes goes under content",
			xml:  `<remarks source="me">hello</remarks>`,
			want: `{"remarks":{"content":"hello","source":"me"}}`,
		},
		{
			name: "repeated children become arrays",
			xml:  `<shape><vertex lat="1"/><vertex lat="2"/><vertex lat="3"/></shape>`,
			want: `{"shape":{"vertex":[{"lat":1},{"lat":2},{"lat":3}]}}`,
		},
		{
			name: "numbers booleans and null",
			xml:  `<p a="1.5" b="-3" c="true" d="null" e="007" f="1e3"/>`,
			want: `{"p":{"a":1.5,"b":-3,"c":true,"d":null,"e":"007","f":1e3}}`,
		},
		{
			name: "whitespace between elements ignored",
			xml:  "<event>\n  <point lat=\"0\"/>\n</event>\n",
			want: `{"event":{"point":{"lat":0}}}`,
		},
		{
			name: "markup characters not escaped",
			xml:  `<r>a &lt; b &amp; c</r>`,
			want: `{"r":"a < b & c"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse(tt.xml)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			got, err := tree.Serialize(0)
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"empty", ""},
		{"whitespace", "   \n"},
		{"unclosed", "<event><point>"},
		{"mismatched", "<event></point>"},
		{"garbage", "not xml at all <"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.xml); err == nil {
				t.Error("Parse() should fail")
			}
		})
	}
}

func TestParseEmptyDocument(t *testing.T) {
	_, err := Parse("<?xml version=\"1.0\"?>")
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("Parse() error = %v, want ErrEmptyDocument", err)
	}
}

func TestSerializeIndent(t *testing.T) {
	tree := Tree{"event": Tree{"uid": "x"}}

	got, err := tree.Serialize(3)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	want := "{\n   \"event\": {\n      \"uid\": \"x\"\n   }\n}"
	if got != want {
		t.Errorf("Serialize(3) = %q, want %q", got, want)
	}
}

func TestAccessors(t *testing.T) {
	tree, err := Parse(`<event version="2.0" type="a-f-G" ok="true"><detail x="1"/></event>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	event, ok := tree.Object("event")
	if !ok {
		t.Fatal("Object(event) not found")
	}
	if got, _ := event.String("type"); got != "a-f-G" {
		t.Errorf("String(type) = %q", got)
	}
	if got, _ := event.String("version"); got != "2.0" {
		t.Errorf("String(version) = %q", got)
	}
	if got, _ := event.String("ok"); got != "true" {
		t.Errorf("String(ok) = %q", got)
	}
	if _, ok := event.String("detail"); ok {
		t.Error("String(detail) should not match an object")
	}
	if _, ok := event.Object("type"); ok {
		t.Error("Object(type) should not match a string")
	}
}

func TestSerializeRoundTripsThroughJSON(t *testing.T) {
	tree, err := Parse(`<event uid="abc"><point lat="51.5" lon="-0.12"/></event>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	out, err := tree.Serialize(2)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	var decoded map[string]any
	dec := json.NewDecoder(strings.NewReader(out))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	point := decoded["event"].(map[string]any)["point"].(map[string]any)
	want := map[string]any{"lat": json.Number("51.5"), "lon": json.Number("-0.12")}
	if !reflect.DeepEqual(point, want) {
		t.Errorf("point = %v, want %v", point, want)
	}
}
