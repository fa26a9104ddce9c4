package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeStore struct {
	saved []Notification
	err   error
}

func (f *fakeStore) Save(_ context.Context, n Notification) error {
	f.saved = append(f.saved, n)
	return f.err
}

type fakeFanout struct {
	delivered []Notification
}

func (f *fakeFanout) Deliver(_ context.Context, n Notification) {
	f.delivered = append(f.delivered, n)
}

type fakeEvaluator struct {
	metrics map[string]float64
	err     error
}

func (f *fakeEvaluator) Evaluate(_ context.Context, metric string, value float64) error {
	if f.metrics == nil {
		f.metrics = map[string]float64{}
	}
	f.metrics[metric] = value
	return f.err
}

func newPipeline() (*Pipeline, *fakeStore, *fakeFanout) {
	st := &fakeStore{}
	fo := &fakeFanout{}
	return &Pipeline{Store: st, Fanout: fo, Logger: zerolog.Nop()}, st, fo
}

func TestPipelineBuildsAndDelivers(t *testing.T) {
	p, st, fo := newPipeline()

	err := p.Handle(context.Background(), "orders.created",
		[]byte(`{"orderId":"O1","userId":"U1","totalAmount":42}`), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(st.saved) != 1 {
		t.Fatalf("saved %d notifications, expected 1", len(st.saved))
	}
	if len(fo.delivered) != 1 {
		t.Fatalf("delivered %d notifications, expected 1", len(fo.delivered))
	}
	if fo.delivered[0].ID != st.saved[0].ID {
		t.Fatalf("store and fan-out saw different notifications")
	}
}

func TestPipelineDropsUnmatchedRoutingKey(t *testing.T) {
	p, st, fo := newPipeline()

	err := p.Handle(context.Background(), "orders.deleted", []byte(`{"orderId":"O1"}`), time.Now())
	if err != nil {
		t.Fatalf("rule miss must not be an error, got %v", err)
	}
	if len(st.saved) != 0 || len(fo.delivered) != 0 {
		t.Fatalf("rule miss must build nothing, saved=%d delivered=%d", len(st.saved), len(fo.delivered))
	}
}

func TestPipelineReturnsDecodeError(t *testing.T) {
	p, st, fo := newPipeline()

	err := p.Handle(context.Background(), "orders.created", []byte(`not json`), time.Now())
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if len(st.saved) != 0 || len(fo.delivered) != 0 {
		t.Fatalf("malformed message must have no side effects")
	}
}

func TestPipelineStoreFailureDoesNotBlockDelivery(t *testing.T) {
	p, st, fo := newPipeline()
	st.err = errors.New("redis down")

	err := p.Handle(context.Background(), "orders.created", []byte(`{"orderId":"O1"}`), time.Now())
	if err != nil {
		t.Fatalf("store failure must be best effort, got %v", err)
	}
	if len(fo.delivered) != 1 {
		t.Fatalf("delivery must proceed despite store failure")
	}
}

func TestAnalyticsPipelineEvaluatesMetric(t *testing.T) {
	p, _, _ := newPipeline()
	eval := &fakeEvaluator{}
	a := &AnalyticsPipeline{Pipeline: p, Detector: eval, Logger: zerolog.Nop()}

	err := a.Handle(context.Background(), "analytics.updated.revenue",
		[]byte(`{"data":{"revenue":1500}}`), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := eval.metrics["revenue"]; got != 1500 {
		t.Fatalf("evaluated revenue=%v, expected 1500", got)
	}
}

func TestAnalyticsPipelineSingleEntryDataNamesMetricImplicitly(t *testing.T) {
	p, _, _ := newPipeline()
	eval := &fakeEvaluator{}
	a := &AnalyticsPipeline{Pipeline: p, Detector: eval, Logger: zerolog.Nop()}

	err := a.Handle(context.Background(), "analytics.updated.revenue",
		[]byte(`{"data":{"dailyRevenue":1500}}`), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := eval.metrics["revenue"]; got != 1500 {
		t.Fatalf("evaluated revenue=%v, expected 1500", got)
	}
}

func TestAnalyticsPipelineDetectorFailureDoesNotDeadLetter(t *testing.T) {
	p, _, _ := newPipeline()
	eval := &fakeEvaluator{err: errors.New("store down")}
	a := &AnalyticsPipeline{Pipeline: p, Detector: eval, Logger: zerolog.Nop()}

	err := a.Handle(context.Background(), "analytics.updated.revenue",
		[]byte(`{"data":{"revenue":1500}}`), time.Now())
	if err != nil {
		t.Fatalf("detector failure must not fail the handler, got %v", err)
	}
}

func TestAnalyticsPipelineIgnoresNonMetricEvents(t *testing.T) {
	p, _, _ := newPipeline()
	eval := &fakeEvaluator{}
	a := &AnalyticsPipeline{Pipeline: p, Detector: eval, Logger: zerolog.Nop()}

	err := a.Handle(context.Background(), "revenue.milestone.achieved",
		[]byte(`{"type":"milestone","threshold":1000}`), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(eval.metrics) != 0 {
		t.Fatalf("milestone events must not re-enter detection, got %v", eval.metrics)
	}
}
