package internaldefs

import (
	"strings"
	"testing"

	goIAM "github.com/MrEthical07/goIAM"
)

func TestCounterDefsCoverEverySnapshotCounter(t *testing.T) {
	m := goIAM.NewMetrics(goIAM.MetricsConfig{Enabled: true})
	snap := m.Snapshot()

	seenID := make(map[goIAM.MetricID]bool, len(CounterDefs))
	seenName := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		if seenID[def.ID] || seenName[def.Name] {
			t.Fatalf("duplicate counter def %+v", def)
		}
		seenID[def.ID] = true
		seenName[def.Name] = true
		if !strings.HasPrefix(def.Name, "goiam_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %q does not follow goiam_*_total", def.Name)
		}
	}

	for id := range snap.Counters {
		if !seenID[id] {
			t.Fatalf("metric id %d has no exporter definition", id)
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
	if len(HistogramBounds) != 8 || len(HistogramBoundSuffix) != 8 {
		t.Fatalf("bucket tables out of sync")
	}
}
