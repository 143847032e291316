package cot

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const sampleEvent = `<?xml version="1.0" encoding="UTF-8"?>
<event version="2.0" uid="ANDROID-1" type="a-f-G-U-C" how="m-g" time="2024-03-01T12:00:00.000Z" start="2024-03-01T12:00:00Z" stale="2024-03-01T12:05:00Z" access="Unrestricted" qos="1-r-c" opex="e-exercise">
  <point lat="51.5007" lon="-0.1246" hae="35.2" ce="9.9" le="4.5"/>
  <detail>
    <contact callsign="ALPHA-1" endpoint="192.168.1.10:4242:tcp" phone="555"/>
    <uid Droid="ALPHA-1"/>
    <track course="270.5" speed="3.2"/>
    <spatial version="1"><attitude roll="1" pitch="2" yaw="3"/><spin yaw="0.5"/></spatial>
    <shape><ellipse major="100" minor="50" angle="45"/><polyline closed="true"><vertex lat="1" lon="2"/><vertex lat="3" lon="4"/></polyline></shape>
    <sensor azimuth="90" fov="30" model="EO" type="camera"/>
    <remarks source="BAO.F.ATAK" to="all">Moving &amp; observing</remarks>
    <link uid="PARENT-1" type="a-f-G-U-C" relation="p-p"/>
    <image mime="image/jpeg" width="640" height="480">QUJD</image>
    <_flow-tags_ TAK-Server="2024-03-01T12:00:01Z"/>
    <__group name="Cyan" role="Team Member"/>
  </detail>
</event>
`

func TestParse(t *testing.T) {
	ev, err := Parse(sampleEvent)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if ev.UID != "ANDROID-1" || ev.Type != "a-f-G-U-C" || ev.How != "m-g" {
		t.Errorf("envelope = %+v", ev)
	}
	if ev.Access != "Unrestricted" || ev.QoS != "1-r-c" || ev.Opex != "e-exercise" {
		t.Errorf("optional attributes = %q %q %q", ev.Access, ev.QoS, ev.Opex)
	}
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if !ev.Time.Equal(want) {
		t.Errorf("Time = %v, want %v", ev.Time, want)
	}
	if got := ev.Stale.Sub(ev.Start.Time); got != 5*time.Minute {
		t.Errorf("stale - start = %v", got)
	}
	if ev.Point == nil || ev.Point.Lat != 51.5007 || ev.Point.LE != 4.5 {
		t.Errorf("Point = %+v", ev.Point)
	}
	if n := len(ev.Elements()); n != 11 {
		t.Errorf("len(Elements()) = %d, want 11", n)
	}
}

func TestParseTrailingPadding(t *testing.T) {
	padded := `<event version="2.0" uid="u" type="a-f-G"><point lat="0" lon="0"/></event>` + "\x00\x00\x00junk"
	ev, err := Parse(padded)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if ev.UID != "u" {
		t.Errorf("UID = %q", ev.UID)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"empty", "", ErrEmptyMessage},
		{"whitespace", "  \n ", ErrEmptyMessage},
		{"not xml", "hello", ErrMalformed},
		{"wrong root", `<foo version="2.0"/>`, ErrMalformed},
		{"unclosed", `<event version="2.0" uid="u" type="t"><point/>`, ErrMalformed},
		{"no version", `<event uid="u" type="t"><point/></event>`, ErrUnsupportedVersion},
		{"old version", `<event version="1.1" uid="u" type="t"><point/></event>`, ErrUnsupportedVersion},
		{"no uid", `<event version="2.0" type="t"><point/></event>`, ErrMissingField},
		{"no type", `<event version="2.0" uid="u"><point/></event>`, ErrMissingField},
		{"no point", `<event version="2.0" uid="u" type="t"/>`, ErrMissingField},
		{"bad time", `<event version="2.0" uid="u" type="t" time="yesterday"><point/></event>`, ErrInvalidTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTrimTrailing(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<a/>", "<a/>"},
		{"<a/>\x00\x00", "<a/>"},
		{"<a/>\n", "<a/>"},
		{"no markup", "no markup"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := TrimTrailing(tt.in); got != tt.want {
			t.Errorf("TrimTrailing(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTimestampString(t *testing.T) {
	var zero Timestamp
	if zero.String() != "" {
		t.Errorf("zero Timestamp.String() = %q", zero.String())
	}
	ts := Timestamp{time.Date(2024, 3, 1, 12, 0, 0, 500e6, time.UTC)}
	if got := ts.String(); got != "2024-03-01T12:00:00.500Z" {
		t.Errorf("String() = %q", got)
	}
}

func TestElementXML(t *testing.T) {
	ev, err := Parse(sampleEvent)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	for _, el := range ev.Elements() {
		if el.Name() != KindRemarks {
			continue
		}
		got := el.XML()
		if !strings.HasPrefix(got, "<remarks ") || !strings.HasSuffix(got, "</remarks>") {
			t.Errorf("XML() = %q", got)
		}
		if !strings.Contains(got, "Moving &amp; observing") {
			t.Errorf("XML() lost escaped text: %q", got)
		}
		return
	}
	t.Fatal("remarks element not found")
}
