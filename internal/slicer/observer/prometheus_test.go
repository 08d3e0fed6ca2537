package observer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorderSlices(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("NewPrometheusRecorder() error = %v", err)
	}
	ctx := context.Background()

	rec.SliceStarted(ctx)
	rec.SliceStarted(ctx)
	if got := testutil.ToFloat64(rec.inFlight); got != 2 {
		t.Fatalf("in flight = %v, want 2", got)
	}

	rec.SliceFinished(ctx, OutcomeSuccess, 2*time.Second)
	rec.SliceFinished(ctx, OutcomeTimeout, 10*time.Second)
	if got := testutil.ToFloat64(rec.inFlight); got != 0 {
		t.Fatalf("in flight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(rec.outcomes.WithLabelValues(OutcomeSuccess)); got != 1 {
		t.Fatalf("success count = %v", got)
	}
	if got := testutil.ToFloat64(rec.outcomes.WithLabelValues(OutcomeTimeout)); got != 1 {
		t.Fatalf("timeout count = %v", got)
	}

	expected := `
# HELP printum_slices_total Engine runs by outcome.
# TYPE printum_slices_total counter
printum_slices_total{outcome="success"} 1
printum_slices_total{outcome="timeout"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "printum_slices_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestPrometheusRecorderRejectedDoesNotTouchInFlight(t *testing.T) {
	rec, err := NewPrometheusRecorder(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	rec.SliceFinished(context.Background(), OutcomeRejected, 0)
	if got := testutil.ToFloat64(rec.inFlight); got != 0 {
		t.Fatalf("in flight = %v, want 0", got)
	}
}

func TestPrometheusRecorderUploads(t *testing.T) {
	rec, err := NewPrometheusRecorder(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	rec.ObserveUpload(ctx, "stl", 1024, true)
	rec.ObserveUpload(ctx, "", 10, false)

	if got := testutil.ToFloat64(rec.uploads.WithLabelValues("stl", "true")); got != 1 {
		t.Fatalf("accepted stl uploads = %v", got)
	}
	if got := testutil.ToFloat64(rec.uploads.WithLabelValues("none", "false")); got != 1 {
		t.Fatalf("rejected uploads = %v", got)
	}
	if got := testutil.CollectAndCount(rec.uploadBytes); got != 1 {
		t.Fatalf("upload size series = %d, want 1", got)
	}
}

func TestNewPrometheusRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusRecorder(reg); err != nil {
		t.Fatal(err)
	}
	if _, err := NewPrometheusRecorder(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}
