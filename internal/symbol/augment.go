package symbol

import (
	"fmt"

	"github.com/nerrad567/cotbridge/internal/xmltree"
)

// DefaultIndent is the JSON indent used when a negative indent is requested.
const DefaultIndent = 3

// Keys injected into the event's detail object.
const (
	SymbolCodeKey  = "symbolCode"
	DescriptionKey = "description"
)

// Augment converts a CoT XML document into a tree and injects the symbol
// code and description derived from event.type into event.detail.
//
// An existing detail object is extended in place. A detail element that
// holds only text is promoted to an object with the text under "content".
// When the event has no detail element, one is created.
func (s *Symbolizer) Augment(xmlText string) (xmltree.Tree, error) {
	tree, err := xmltree.Parse(xmlText)
	if err != nil {
		return nil, err
	}

	event, ok := tree.Object("event")
	if !ok {
		return nil, ErrNoEvent
	}
	cotType, ok := event.String("type")
	if !ok || cotType == "" {
		return nil, ErrNoType
	}

	detail := detailObject(event)
	detail[SymbolCodeKey] = SymbolCode(cotType)
	detail[DescriptionKey] = s.Description(cotType)

	return tree, nil
}

// AugmentToTree is Augment followed by serialization with indent spaces per
// level. A negative indent selects DefaultIndent; zero produces compact JSON.
func (s *Symbolizer) AugmentToTree(xmlText string, indent int) (string, error) {
	if indent < 0 {
		indent = DefaultIndent
	}

	tree, err := s.Augment(xmlText)
	if err != nil {
		return "", err
	}

	out, err := tree.Serialize(indent)
	if err != nil {
		return "", fmt.Errorf("symbol: %w", err)
	}
	return out, nil
}

// detailObject returns the event's detail object, creating or promoting it
// as needed. Repeated detail elements use the first one.
func detailObject(event xmltree.Tree) xmltree.Tree {
	raw, exists := event["detail"]
	if !exists {
		detail := xmltree.Tree{}
		event["detail"] = detail
		return detail
	}

	if arr, ok := raw.([]any); ok && len(arr) > 0 {
		if first, ok := asTree(arr[0]); ok {
			return first
		}
		detail := promote(arr[0])
		arr[0] = detail
		return detail
	}

	if detail, ok := asTree(raw); ok {
		return detail
	}
	detail := promote(raw)
	event["detail"] = detail
	return detail
}

func asTree(v any) (xmltree.Tree, bool) {
	switch t := v.(type) {
	case xmltree.Tree:
		return t, true
	case map[string]any:
		return xmltree.Tree(t), true
	}
	return nil, false
}

func promote(v any) xmltree.Tree {
	detail := xmltree.Tree{}
	if s, ok := v.(string); ok && s == "" {
		return detail
	}
	if v != nil {
		detail[xmltree.ContentKey] = v
	}
	return detail
}
