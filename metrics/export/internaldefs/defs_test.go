package internaldefs

import (
	"strings"
	"testing"

	"github.com/pgcportal/portal"
)

func TestDefinitionsUnique(t *testing.T) {
	names := map[string]bool{}
	ids := map[portal.MetricID]bool{}
	for _, d := range CounterDefs {
		if names[d.Name] || ids[d.ID] {
			t.Fatalf("duplicate counter definition %+v", d)
		}
		if !strings.HasPrefix(d.Name, "portal_") || !strings.HasSuffix(d.Name, "_total") {
			t.Fatalf("counter %q breaks naming convention", d.Name)
		}
		names[d.Name] = true
		ids[d.ID] = true
	}
	for _, d := range HistogramDefs {
		if ids[d.ID] {
			t.Fatalf("histogram %q reuses a counter id", d.Name)
		}
	}
	for _, d := range GaugeDefs {
		if names[d.Name] || strings.HasSuffix(d.Name, "_total") {
			t.Fatalf("gauge %q collides with counter naming", d.Name)
		}
		names[d.Name] = true
	}
	if ids[portal.MetricRequestLatency] {
		t.Fatal("request latency must only be exported as a histogram")
	}
	if len(HistogramBounds) != 8 || len(HistogramBoundSuffix) != 8 {
		t.Fatal("expected eight histogram bounds")
	}
}

func TestBuckets(t *testing.T) {
	n := NormalizeBuckets([]uint64{1, 2, 3})
	if n != [8]uint64{1, 2, 3} {
		t.Fatalf("normalize = %v", n)
	}
	c := CumulativeBuckets([8]uint64{1, 1, 0, 2, 0, 0, 0, 1})
	if c != [8]uint64{1, 2, 2, 4, 4, 4, 4, 5} {
		t.Fatalf("cumulative = %v", c)
	}
}

func TestGaugeValues(t *testing.T) {
	g := portal.Gauges{Authenticated: true, CartLines: 2, CartQuantity: 9}
	want := map[string]int64{
		"portal_session_authenticated": 1,
		"portal_cart_lines":            2,
		"portal_cart_quantity":         9,
	}
	for _, d := range GaugeDefs {
		if got := d.Value(g); got != want[d.Name] {
			t.Fatalf("%s = %d, want %d", d.Name, got, want[d.Name])
		}
	}
	if got := GaugeDefs[0].Value(portal.Gauges{}); got != 0 {
		t.Fatalf("signed-out gauge = %d", got)
	}
}
