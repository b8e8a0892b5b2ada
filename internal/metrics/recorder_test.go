package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderObserveGeneration(t *testing.T) {
	r := NewRecorder()
	r.ObserveGeneration(10, 0.8, 0.4, 20*time.Millisecond)
	r.ObserveGeneration(10, 0.9, 0.5, 30*time.Millisecond)

	if got := testutil.ToFloat64(r.generations); got != 2 {
		t.Fatalf("expected 2 generations, got %f", got)
	}
	if got := testutil.ToFloat64(r.trials); got != 20 {
		t.Fatalf("expected 20 trials, got %f", got)
	}
	if got := testutil.ToFloat64(r.best); got != 0.9 {
		t.Fatalf("expected best gauge 0.9, got %f", got)
	}
	if got := testutil.ToFloat64(r.mean); got != 0.5 {
		t.Fatalf("expected mean gauge 0.5, got %f", got)
	}
	if got := testutil.CollectAndCount(r.evalSeconds); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveGeneration(1, 1, 1, time.Second)
	if r.Registry() != nil {
		t.Fatal("expected nil registry from nil recorder")
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	r := NewRecorder()
	r.ObserveGeneration(4, 0.25, 0.1, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "canbot_best_fitness 0.25") {
		t.Fatalf("expected best fitness in scrape output, got:\n%s", body)
	}
}
