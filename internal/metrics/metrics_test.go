package metrics_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/loadgen/mcbot/internal/metrics"
)

func TestSampleWritesOneLineAndCountsPhases(t *testing.T) {
	m := metrics.New()
	conns := []metrics.ConnState{
		{Phase: "Play", ChunkCount: 4, RTTMin: 10 * time.Millisecond, RTTMax: 30 * time.Millisecond, RTTSum: 40 * time.Millisecond, RTTCount: 2},
		{Phase: "Play", ChunkCount: 2},
		{Phase: "Config"},
		{Phase: "Login"},
	}
	var buf bytes.Buffer
	now := time.Unix(1700000000, 0)
	row := m.Sample(now, conns, 15*time.Millisecond, &buf)

	if row.Play != 2 || row.Config != 1 || row.Login != 1 {
		t.Errorf("phase counts = %+v", row)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("expected exactly one stderr line, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "conns=4") {
		t.Errorf("summary line missing connection count: %q", buf.String())
	}
	if row.RTTMeanMillis != 20 {
		t.Errorf("RTTMeanMillis = %v, want 20", row.RTTMeanMillis)
	}
}

func TestWriteCSVRendersHeaderAndRow(t *testing.T) {
	rows := []metrics.Row{{Time: "t", Connections: 3, Play: 3}}
	var buf bytes.Buffer
	if err := metrics.WriteCSV(rows, &buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "connections") || !strings.Contains(out, "3") {
		t.Errorf("unexpected CSV output: %q", out)
	}
}
