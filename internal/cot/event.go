// Package cot decodes Cursor-on-Target event documents.
//
// A CoT event is a small XML document:
//
//	<event version="2.0" uid="..." type="a-f-G-U-C" how="m-g"
//	       time="..." start="..." stale="...">
//	  <point lat="..." lon="..." hae="..." ce="..." le="..."/>
//	  <detail>...</detail>
//	</event>
//
// Parse validates the envelope. Detail sub-elements are kept raw and can be
// decoded individually with DecodeDetail.
package cot

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// SupportedVersion is the CoT schema major version accepted by Parse.
const SupportedVersion = "2"

// Event is a decoded CoT event envelope.
type Event struct {
	XMLName xml.Name  `xml:"event"`
	Version string    `xml:"version,attr"`
	UID     string    `xml:"uid,attr"`
	Type    string    `xml:"type,attr"`
	How     string    `xml:"how,attr"`
	Time    Timestamp `xml:"time,attr"`
	Start   Timestamp `xml:"start,attr"`
	Stale   Timestamp `xml:"stale,attr"`
	Access  string    `xml:"access,attr"`
	QoS     string    `xml:"qos,attr"`
	Opex    string    `xml:"opex,attr"`
	Point   *Point    `xml:"point"`
	Detail  *Detail   `xml:"detail"`
}

// Point is the event's location. Errors are in metres.
type Point struct {
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
	HAE float64 `xml:"hae,attr"`
	CE  float64 `xml:"ce,attr"`
	LE  float64 `xml:"le,attr"`
}

// Detail holds the raw sub-elements of <detail>.
type Detail struct {
	Elements []Element `xml:",any"`
}

// Element is one raw detail sub-element.
type Element struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// Name returns the element's local name.
func (e Element) Name() string {
	return e.XMLName.Local
}

// XML re-renders the element as a standalone document.
func (e Element) XML() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(e.XMLName.Local)
	for _, a := range e.Attrs {
		b.WriteString(" ")
		b.WriteString(a.Name.Local)
		b.WriteString(`="`)
		_ = xml.EscapeText(&b, []byte(a.Value))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	b.WriteString(e.Inner)
	b.WriteString("</")
	b.WriteString(e.XMLName.Local)
	b.WriteString(">")
	return b.String()
}

// Timestamp is an RFC 3339 attribute value. An empty attribute decodes to
// the zero time.
type Timestamp struct {
	time.Time
}

// UnmarshalXMLAttr implements xml.UnmarshalerAttr.
func (t *Timestamp) UnmarshalXMLAttr(attr xml.Attr) error {
	if attr.Value == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, attr.Value)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidTime, attr.Name.Local, attr.Value)
	}
	t.Time = parsed
	return nil
}

// String renders the timestamp in CoT form, or "" for the zero time.
func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// TrimTrailing drops everything after the last '>' of text. Datagram
// payloads may carry padding after the document.
func TrimTrailing(text string) string {
	if i := strings.LastIndexByte(text, '>'); i >= 0 {
		return text[:i+1]
	}
	return text
}

// Parse decodes and validates a CoT event document.
func Parse(text string) (*Event, error) {
	text = strings.TrimSpace(TrimTrailing(text))
	if text == "" {
		return nil, ErrEmptyMessage
	}

	var ev Event
	if err := xml.Unmarshal([]byte(text), &ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Validate checks the fields every CoT event must carry.
func (e *Event) Validate() error {
	if e.Version == "" {
		return fmt.Errorf("%w: missing version", ErrUnsupportedVersion)
	}
	if major, _, _ := strings.Cut(e.Version, "."); major != SupportedVersion {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, e.Version)
	}
	if e.UID == "" {
		return fmt.Errorf("%w: uid", ErrMissingField)
	}
	if e.Type == "" {
		return fmt.Errorf("%w: type", ErrMissingField)
	}
	if e.Point == nil {
		return fmt.Errorf("%w: point", ErrMissingField)
	}
	return nil
}

// Elements returns the detail sub-elements, or nil when the event has no
// detail.
func (e *Event) Elements() []Element {
	if e.Detail == nil {
		return nil
	}
	return e.Detail.Elements
}
