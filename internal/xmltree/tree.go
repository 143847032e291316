// Package xmltree converts XML documents into a generic JSON-compatible tree.
//
// The mapping follows the widely used "badgerfish-lite" convention:
//
//   - attributes become keys of the element's object
//   - child elements become keys; repeated children become arrays
//   - an element with only text becomes that text
//   - an element with attributes or children keeps its text under "content"
//   - an empty element becomes ""
//
// Scalar text and attribute values that look like JSON literals (true,
// false, null, numbers) are converted to the corresponding JSON type.
package xmltree

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ContentKey holds element text when the element also has attributes or
// children.
const ContentKey = "content"

// ErrEmptyDocument is returned when the input contains no element.
var ErrEmptyDocument = errors.New("xmltree: document has no elements")

// Tree is a JSON object node.
type Tree map[string]any

// number matches the JSON number grammar.
var number = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

type frame struct {
	name string
	obj  Tree
	text strings.Builder
}

// Parse converts an XML document into a Tree keyed by the root element name.
func Parse(text string) (Tree, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = true

	root := Tree{}
	var stack []*frame
	seen := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xmltree: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			f := &frame{name: t.Name.Local, obj: Tree{}}
			for _, attr := range t.Attr {
				if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
					continue
				}
				f.obj.accumulate(attr.Name.Local, Scalar(attr.Value))
			}
			stack = append(stack, f)
			seen = true

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}

		case xml.EndElement:
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			value := f.value()
			if len(stack) == 0 {
				root.accumulate(f.name, value)
			} else {
				stack[len(stack)-1].obj.accumulate(f.name, value)
			}
		}
	}

	if !seen {
		return nil, ErrEmptyDocument
	}
	return root, nil
}

func (f *frame) value() any {
	text := strings.TrimSpace(f.text.String())
	if len(f.obj) == 0 {
		if text == "" {
			return ""
		}
		return Scalar(text)
	}
	if text != "" {
		f.obj.accumulate(ContentKey, Scalar(text))
	}
	return f.obj
}

// accumulate sets key, turning repeated keys into arrays.
func (t Tree) accumulate(key string, value any) {
	existing, ok := t[key]
	if !ok {
		t[key] = value
		return
	}
	if arr, isArr := existing.([]any); isArr {
		t[key] = append(arr, value)
		return
	}
	t[key] = []any{existing, value}
}

// Scalar converts XML text into a JSON value: booleans, null and numbers
// are recognised, everything else stays a string.
func Scalar(s string) any {
	switch {
	case strings.EqualFold(s, "true"):
		return true
	case strings.EqualFold(s, "false"):
		return false
	case strings.EqualFold(s, "null"):
		return nil
	case number.MatchString(s):
		return json.Number(s)
	}
	return s
}

// Object returns the child object stored under key.
func (t Tree) Object(key string) (Tree, bool) {
	switch v := t[key].(type) {
	case Tree:
		return v, true
	case map[string]any:
		return Tree(v), true
	}
	return nil, false
}

// String returns the scalar stored under key rendered as text.
func (t Tree) String(key string) (string, bool) {
	switch v := t[key].(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return fmt.Sprint(v), true
	}
	return "", false
}

// Serialize renders the tree as JSON. An indent of zero produces compact
// output; a positive indent is the number of spaces per nesting level.
// Characters such as '<' and '&' are not HTML-escaped.
func (t Tree) Serialize(indent int) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	if err := enc.Encode(t); err != nil {
		return "", fmt.Errorf("xmltree: encoding tree: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
