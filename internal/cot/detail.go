package cot

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

// Field is one named value in a diagnostic rendering of an event.
type Field struct {
	Key   string
	Value any
}

// Fielder is implemented by decoded detail kinds.
type Fielder interface {
	Fields() []Field
}

// Contact identifies the producer of an event.
type Contact struct {
	Callsign   string `xml:"callsign,attr"`
	DSN        string `xml:"dsn,attr"`
	Email      string `xml:"email,attr"`
	Endpoint   string `xml:"endpoint,attr"`
	Freq       string `xml:"freq,attr"`
	Hostname   string `xml:"hostname,attr"`
	Modulation string `xml:"modulation,attr"`
	Phone      string `xml:"phone,attr"`
	Version    string `xml:"version,attr"`
}

// Fields implements Fielder.
func (c *Contact) Fields() []Field {
	return []Field{
		{"callsign", c.Callsign},
		{"dsn", c.DSN},
		{"email", c.Email},
		{"endpoint", c.Endpoint},
		{"freq", c.Freq},
		{"hostname", c.Hostname},
		{"modulation", c.Modulation},
		{"phone", c.Phone},
		{"version", c.Version},
	}
}

// UID carries alternate identifiers for the event's subject. Each attribute
// names an identifier system.
type UID struct {
	Version string     `xml:"version,attr"`
	Attrs   []xml.Attr `xml:",any,attr"`
}

// Fields implements Fielder.
func (u *UID) Fields() []Field {
	fields := []Field{{"version", u.Version}}
	for _, a := range u.Attrs {
		fields = append(fields, Field{a.Name.Local, a.Value})
	}
	return fields
}

// Track is the subject's velocity vector.
type Track struct {
	Course  float64 `xml:"course,attr"`
	ECourse float64 `xml:"eCourse,attr"`
	Slope   float64 `xml:"slope,attr"`
	ESlope  float64 `xml:"eSlope,attr"`
	Speed   float64 `xml:"speed,attr"`
	ESpeed  float64 `xml:"eSpeed,attr"`
	Version string  `xml:"version,attr"`
}

// Fields implements Fielder.
func (t *Track) Fields() []Field {
	return []Field{
		{"course", t.Course},
		{"eCourse", t.ECourse},
		{"slope", t.Slope},
		{"eSlope", t.ESlope},
		{"speed", t.Speed},
		{"eSpeed", t.ESpeed},
		{"version", t.Version},
	}
}

// Spatial is the subject's attitude and rate of rotation.
type Spatial struct {
	Version  string    `xml:"version,attr"`
	Attitude *Attitude `xml:"attitude"`
	Spin     *Spin     `xml:"spin"`
}

// Attitude is orientation in degrees with errors.
type Attitude struct {
	Roll   float64 `xml:"roll,attr"`
	Pitch  float64 `xml:"pitch,attr"`
	Yaw    float64 `xml:"yaw,attr"`
	ERoll  float64 `xml:"eRoll,attr"`
	EPitch float64 `xml:"ePitch,attr"`
	EYaw   float64 `xml:"eYaw,attr"`
}

// Spin is rate of rotation in degrees per second with errors.
type Spin struct {
	Roll   float64 `xml:"roll,attr"`
	Pitch  float64 `xml:"pitch,attr"`
	Yaw    float64 `xml:"yaw,attr"`
	ERoll  float64 `xml:"eRoll,attr"`
	EPitch float64 `xml:"ePitch,attr"`
	EYaw   float64 `xml:"eYaw,attr"`
}

// Fields implements Fielder.
func (s *Spatial) Fields() []Field {
	fields := []Field{{"version", s.Version}}
	if a := s.Attitude; a != nil {
		fields = append(fields,
			Field{"attitude.roll", a.Roll},
			Field{"attitude.pitch", a.Pitch},
			Field{"attitude.yaw", a.Yaw},
			Field{"attitude.eRoll", a.ERoll},
			Field{"attitude.ePitch", a.EPitch},
			Field{"attitude.eYaw", a.EYaw},
		)
	}
	if sp := s.Spin; sp != nil {
		fields = append(fields,
			Field{"spin.roll", sp.Roll},
			Field{"spin.pitch", sp.Pitch},
			Field{"spin.yaw", sp.Yaw},
			Field{"spin.eRoll", sp.ERoll},
			Field{"spin.ePitch", sp.EPitch},
			Field{"spin.eYaw", sp.EYaw},
		)
	}
	return fields
}

// Shape describes the subject's extent as an ellipse and/or polyline.
type Shape struct {
	Version  string    `xml:"version,attr"`
	Ellipse  *Ellipse  `xml:"ellipse"`
	Polyline *Polyline `xml:"polyline"`
}

// Ellipse axes are in metres, angle in degrees from north.
type Ellipse struct {
	Major float64 `xml:"major,attr"`
	Minor float64 `xml:"minor,attr"`
	Angle float64 `xml:"angle,attr"`
}

// Polyline is an open or closed list of vertices.
type Polyline struct {
	Closed   bool     `xml:"closed,attr"`
	Vertices []Vertex `xml:"vertex"`
}

// Vertex is one polyline point.
type Vertex struct {
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
	HAE float64 `xml:"hae,attr"`
}

// Fields implements Fielder.
func (s *Shape) Fields() []Field {
	fields := []Field{{"version", s.Version}}
	if e := s.Ellipse; e != nil {
		fields = append(fields,
			Field{"ellipse.major", e.Major},
			Field{"ellipse.minor", e.Minor},
			Field{"ellipse.angle", e.Angle},
		)
	}
	if p := s.Polyline; p != nil {
		fields = append(fields, Field{"polyline.closed", p.Closed})
		for i, v := range p.Vertices {
			prefix := "polyline.vertex." + strconv.Itoa(i)
			fields = append(fields,
				Field{prefix + ".lat", v.Lat},
				Field{prefix + ".lon", v.Lon},
				Field{prefix + ".hae", v.HAE},
			)
		}
	}
	return fields
}

// Sensor describes a sensor's pointing and field of view.
type Sensor struct {
	Azimuth   float64 `xml:"azimuth,attr"`
	Elevation float64 `xml:"elevation,attr"`
	FOV       float64 `xml:"fov,attr"`
	VFOV      float64 `xml:"vfov,attr"`
	North     float64 `xml:"north,attr"`
	Range     float64 `xml:"range,attr"`
	Roll      float64 `xml:"roll,attr"`
	Model     string  `xml:"model,attr"`
	Type      string  `xml:"type,attr"`
	Version   string  `xml:"version,attr"`
}

// Fields implements Fielder.
func (s *Sensor) Fields() []Field {
	return []Field{
		{"azimuth", s.Azimuth},
		{"elevation", s.Elevation},
		{"fov", s.FOV},
		{"vfov", s.VFOV},
		{"north", s.North},
		{"range", s.Range},
		{"roll", s.Roll},
		{"model", s.Model},
		{"type", s.Type},
		{"version", s.Version},
	}
}

// Remarks is free text attached to the event.
type Remarks struct {
	Source   string `xml:"source,attr"`
	Time     string `xml:"time,attr"`
	To       string `xml:"to,attr"`
	Keywords string `xml:"keywords,attr"`
	Version  string `xml:"version,attr"`
	Text     string `xml:",chardata"`
}

// Fields implements Fielder.
func (r *Remarks) Fields() []Field {
	return []Field{
		{"source", r.Source},
		{"time", r.Time},
		{"to", r.To},
		{"keywords", r.Keywords},
		{"version", r.Version},
		{"text", r.Text},
	}
}

// Link relates the event to another object.
type Link struct {
	UID            string `xml:"uid,attr"`
	Type           string `xml:"type,attr"`
	Relation       string `xml:"relation,attr"`
	ParentCallsign string `xml:"parent_callsign,attr"`
	Production     string `xml:"production_time,attr"`
	Remarks        string `xml:"remarks,attr"`
	Mime           string `xml:"mime,attr"`
	URL            string `xml:"url,attr"`
	Version        string `xml:"version,attr"`
}

// Fields implements Fielder.
func (l *Link) Fields() []Field {
	return []Field{
		{"uid", l.UID},
		{"type", l.Type},
		{"relation", l.Relation},
		{"parent_callsign", l.ParentCallsign},
		{"production_time", l.Production},
		{"remarks", l.Remarks},
		{"mime", l.Mime},
		{"url", l.URL},
		{"version", l.Version},
	}
}

// Image is an inline or referenced image. The payload itself is not part of
// the diagnostic fields.
type Image struct {
	Mime       string  `xml:"mime,attr"`
	Type       string  `xml:"type,attr"`
	Source     string  `xml:"source,attr"`
	Reason     string  `xml:"reason,attr"`
	URL        string  `xml:"url,attr"`
	Quality    string  `xml:"quality,attr"`
	Bands      int     `xml:"bands,attr"`
	Height     int     `xml:"height,attr"`
	Width      int     `xml:"width,attr"`
	Size       int     `xml:"size,attr"`
	FOV        float64 `xml:"fov,attr"`
	North      float64 `xml:"north,attr"`
	Resolution float64 `xml:"resolution,attr"`
	Version    string  `xml:"version,attr"`
	Data       string  `xml:",chardata"`
}

// Fields implements Fielder.
func (i *Image) Fields() []Field {
	return []Field{
		{"mime", i.Mime},
		{"type", i.Type},
		{"source", i.Source},
		{"reason", i.Reason},
		{"url", i.URL},
		{"quality", i.Quality},
		{"bands", i.Bands},
		{"height", i.Height},
		{"width", i.Width},
		{"size", i.Size},
		{"fov", i.FOV},
		{"north", i.North},
		{"resolution", i.Resolution},
		{"version", i.Version},
		{"data_length", len(i.Data)},
	}
}

// FlowTags records the systems an event passed through. Each attribute
// names a system and holds the time it handled the event.
type FlowTags struct {
	Version string     `xml:"version,attr"`
	Attrs   []xml.Attr `xml:",any,attr"`
}

// Fields implements Fielder.
func (f *FlowTags) Fields() []Field {
	fields := []Field{{"version", f.Version}}
	for _, a := range f.Attrs {
		fields = append(fields, Field{a.Name.Local, a.Value})
	}
	return fields
}

// Detail element names with a typed decoder.
const (
	KindContact  = "contact"
	KindUID      = "uid"
	KindTrack    = "track"
	KindSpatial  = "spatial"
	KindShape    = "shape"
	KindSensor   = "sensor"
	KindRemarks  = "remarks"
	KindLink     = "link"
	KindImage    = "image"
	KindFlowTags = "_flow-tags_"
)

// DecodeDetail decodes a detail sub-element into its typed form.
//
// Elements without a typed decoder return (nil, nil).
func DecodeDetail(el Element) (Fielder, error) {
	raw := el.XML()
	switch el.Name() {
	case KindContact:
		return decode[Contact](raw)
	case KindUID:
		return decode[UID](raw)
	case KindTrack:
		return decode[Track](raw)
	case KindSpatial:
		return decode[Spatial](raw)
	case KindShape:
		return decode[Shape](raw)
	case KindSensor:
		return decode[Sensor](raw)
	case KindRemarks:
		return decode[Remarks](raw)
	case KindLink:
		return decode[Link](raw)
	case KindImage:
		return decode[Image](raw)
	case KindFlowTags:
		return decode[FlowTags](raw)
	}
	return nil, nil
}

type fielderPtr[T any] interface {
	*T
	Fielder
}

func decode[T any, P fielderPtr[T]](raw string) (Fielder, error) {
	var v T
	if err := xml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return P(&v), nil
}

// Fields renders the event envelope and point as diagnostic fields.
func (e *Event) Fields() []Field {
	fields := []Field{
		{"access", e.Access},
		{"how", e.How},
		{"opex", e.Opex},
		{"type", e.Type},
		{"uid", e.UID},
		{"stale", e.Stale.String()},
		{"start", e.Start.String()},
		{"time", e.Time.String()},
		{"version", e.Version},
		{"qos", e.QoS},
	}
	if p := e.Point; p != nil {
		fields = append(fields,
			Field{"point.lat", p.Lat},
			Field{"point.lon", p.Lon},
			Field{"point.hae", p.HAE},
			Field{"point.ce", p.CE},
			Field{"point.le", p.LE},
		)
	}
	return fields
}

// DetailFields renders every detail sub-element as diagnostic fields keyed
// "detail.<name>.<field>". Elements without a typed decoder contribute
// their name only; elements that fail to decode contribute the error.
func (e *Event) DetailFields() []Field {
	var fields []Field
	for _, el := range e.Elements() {
		prefix := "detail." + el.Name()
		decoded, err := DecodeDetail(el)
		switch {
		case err != nil:
			fields = append(fields, Field{prefix + ".error", err.Error()})
		case decoded == nil:
			fields = append(fields, Field{prefix, el.Inner})
		default:
			for _, f := range decoded.Fields() {
				fields = append(fields, Field{prefix + "." + f.Key, f.Value})
			}
		}
	}
	return fields
}
