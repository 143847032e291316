package cot

import (
	"errors"
	"testing"
)

func detailByName(t *testing.T, ev *Event, name string) Element {
	t.Helper()
	for _, el := range ev.Elements() {
		if el.Name() == name {
			return el
		}
	}
	t.Fatalf("detail %q not found", name)
	return Element{}
}

func TestDecodeDetail(t *testing.T) {
	ev, err := Parse(sampleEvent)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	t.Run("contact", func(t *testing.T) {
		d, err := DecodeDetail(detailByName(t, ev, KindContact))
		if err != nil {
			t.Fatalf("DecodeDetail() error = %v", err)
		}
		c := d.(*Contact)
		if c.Callsign != "ALPHA-1" || c.Endpoint != "192.168.1.10:4242:tcp" || c.Phone != "555" {
			t.Errorf("Contact = %+v", c)
		}
	})

	t.Run("uid", func(t *testing.T) {
		d, err := DecodeDetail(detailByName(t, ev, KindUID))
		if err != nil {
			t.Fatalf("DecodeDetail() error = %v", err)
		}
		u := d.(*UID)
		if len(u.Attrs) != 1 || u.Attrs[0].Name.Local != "Droid" || u.Attrs[0].Value != "ALPHA-1" {
			t.Errorf("UID = %+v", u)
		}
	})

	t.Run("track", func(t *testing.T) {
		d, err := DecodeDetail(detailByName(t, ev, KindTrack))
		if err != nil {
			t.Fatalf("DecodeDetail() error = %v", err)
		}
		tr := d.(*Track)
		if tr.Course != 270.5 || tr.Speed != 3.2 {
			t.Errorf("Track = %+v", tr)
		}
	})

	t.Run("spatial", func(t *testing.T) {
		d, err := DecodeDetail(detailByName(t, ev, KindSpatial))
		if err != nil {
			t.Fatalf("DecodeDetail() error = %v", err)
		}
		s := d.(*Spatial)
		if s.Attitude == nil || s.Attitude.Yaw != 3 || s.Spin == nil || s.Spin.Yaw != 0.5 {
			t.Errorf("Spatial = %+v", s)
		}
	})

	t.Run("shape", func(t *testing.T) {
		d, err := DecodeDetail(detailByName(t, ev, KindShape))
		if err != nil {
			t.Fatalf("DecodeDetail() error = %v", err)
		}
		s := d.(*Shape)
		if s.Ellipse == nil || s.Ellipse.Major != 100 {
			t.Errorf("Ellipse = %+v", s.Ellipse)
		}
		if s.Polyline == nil || !s.Polyline.Closed || len(s.Polyline.Vertices) != 2 {
			t.Errorf("Polyline = %+v", s.Polyline)
		}
	})

	t.Run("sensor", func(t *testing.T) {
		d, err := DecodeDetail(detailByName(t, ev, KindSensor))
		if err != nil {
			t.Fatalf("DecodeDetail() error = %v", err)
		}
		s := d.(*Sensor)
		if s.Azimuth != 90 || s.FOV != 30 || s.Model != "EO" {
			t.Errorf("Sensor = %+v", s)
		}
	})

	t.Run("remarks", func(t *testing.T) {
		d, err := DecodeDetail(detailByName(t, ev, KindRemarks))
		if err != nil {
			t.Fatalf("DecodeDetail() error = %v", err)
		}
		r := d.(*Remarks)
		if r.Text != "Moving & observing" || r.Source != "BAO.F.ATAK" {
			t.Errorf("Remarks = %+v", r)
		}
	})

	t.Run("link", func(t *testing.T) {
		d, err := DecodeDetail(detailByName(t, ev, KindLink))
		if err != nil {
			t.Fatalf("DecodeDetail() error = %v", err)
		}
		l := d.(*Link)
		if l.UID != "PARENT-1" || l.Relation != "p-p" {
			t.Errorf("Link = %+v", l)
		}
	})

	t.Run("image", func(t *testing.T) {
		d, err := DecodeDetail(detailByName(t, ev, KindImage))
		if err != nil {
			t.Fatalf("DecodeDetail() error = %v", err)
		}
		img := d.(*Image)
		if img.Width != 640 || img.Height != 480 || img.Data != "QUJD" {
			t.Errorf("Image = %+v", img)
		}
	})

	t.Run("flow tags", func(t *testing.T) {
		d, err := DecodeDetail(detailByName(t, ev, KindFlowTags))
		if err != nil {
			t.Fatalf("DecodeDetail() error = %v", err)
		}
		f := d.(*FlowTags)
		if len(f.Attrs) != 1 || f.Attrs[0].Name.Local != "TAK-Server" {
			t.Errorf("FlowTags = %+v", f)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		d, err := DecodeDetail(detailByName(t, ev, "__group"))
		if d != nil || err != nil {
			t.Errorf("DecodeDetail() = %v, %v; want nil, nil", d, err)
		}
	})
}

func TestDecodeDetailError(t *testing.T) {
	ev, err := Parse(`<event version="2.0" uid="u" type="t"><point/><detail><track speed="fast"/></detail></event>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	_, err = DecodeDetail(ev.Elements()[0])
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("DecodeDetail() error = %v, want ErrMalformed", err)
	}

	fields := ev.DetailFields()
	if len(fields) != 1 || fields[0].Key != "detail.track.error" {
		t.Errorf("DetailFields() = %+v", fields)
	}
}

func TestEventFields(t *testing.T) {
	ev, err := Parse(sampleEvent)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	got := map[string]any{}
	for _, f := range ev.Fields() {
		got[f.Key] = f.Value
	}
	for _, f := range ev.DetailFields() {
		got[f.Key] = f.Value
	}

	checks := map[string]any{
		"type":                               "a-f-G-U-C",
		"time":                               "2024-03-01T12:00:00.000Z",
		"point.lat":                          51.5007,
		"detail.contact.callsign":            "ALPHA-1",
		"detail.track.course":                270.5,
		"detail.shape.polyline.closed":       true,
		"detail.shape.polyline.vertex.1.lat": 3.0,
		"detail.image.data_length":           4,
		"detail.__group":                     "",
	}
	for key, want := range checks {
		if got[key] != want {
			t.Errorf("field %q = %v (%T), want %v (%T)", key, got[key], got[key], want, want)
		}
	}
}

func TestEventWithoutDetail(t *testing.T) {
	ev, err := Parse(`<event version="2.0" uid="u" type="t"><point/></event>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ev.Elements() != nil || ev.DetailFields() != nil {
		t.Error("event without detail should have no elements")
	}
}
