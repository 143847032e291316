package influxdb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

func TestMessagePoint_LineProtocol(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   MessagePoint
		want string
	}{
		{
			name: "enriched event",
			in: MessagePoint{
				Port: 9999, Protocol: "udp", SymbolCode: "SFGPUCI--------",
				Affiliation: "f", Bytes: 412, Valid: true, ReceivedAt: at,
			},
			want: "cot_messages,affiliation=f,port=9999,protocol=udp,symbol_code=SFGPUCI-------- bytes=412i,count=1i,valid=1i",
		},
		{
			name: "undecodable message omits symbol tags",
			in:   MessagePoint{Port: 9998, Protocol: "tcp", Bytes: 7, ReceivedAt: at},
			want: "cot_messages,port=9998,protocol=tcp bytes=7i,count=1i,valid=0i",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := write.PointToLineProtocol(messagePoint(tt.in), time.Second)
			if !strings.HasPrefix(line, tt.want+" ") {
				t.Errorf("line protocol = %q, want prefix %q", line, tt.want)
			}
		})
	}
}

func TestTransitionPoint(t *testing.T) {
	p := transitionPoint(TransitionPoint{
		Port: 9999, Protocol: "udp", From: "RUNNING", To: "STOPPED", Reason: "fault",
	})

	if p.Name() != MeasurementTransitions {
		t.Errorf("Name() = %q", p.Name())
	}
	line := write.PointToLineProtocol(p, time.Second)
	for _, want := range []string{"to=STOPPED", `from="RUNNING"`, `reason="fault"`} {
		if !strings.Contains(line, want) {
			t.Errorf("line protocol %q missing %q", line, want)
		}
	}
	if p.Time().IsZero() {
		t.Error("zero timestamp should default to now")
	}
}

func TestWrite_UnopenedClientDropsPoints(t *testing.T) {
	c := &Client{}
	c.WriteMessagePoint(MessagePoint{Port: 1})
	c.WriteTransitionPoint(TransitionPoint{Port: 1})
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("HealthCheck() error = %v, want ErrClosed", err)
	}
}
