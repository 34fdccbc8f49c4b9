package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pantry-recipes/internal/infrastructure/config"
	"pantry-recipes/internal/pkg/common"
)

type recordingAlerter struct {
	mu      sync.Mutex
	jobs    []Job
	ctxErrs []error
}

func (a *recordingAlerter) Alert(ctx context.Context, job Job, err error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.jobs = append(a.jobs, job)
	a.ctxErrs = append(a.ctxErrs, ctx.Err())
	return nil
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.jobs)
}

func TestDispatcherRetriesThenSucceeds(t *testing.T) {
	alerter := &recordingAlerter{}
	d := NewDispatcher(3, 0, alerter)

	calls := 0
	d.Register(TypeMatchIngredient, func(ctx context.Context, job Job) error {
		calls++
		if calls < 3 {
			return errors.New("datastore unavailable")
		}
		return nil
	})

	if err := d.Dispatch(context.Background(), NewMatchIngredientJob(1, 1, false)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if alerter.count() != 0 {
		t.Errorf("alert sent for a job that recovered")
	}
	if processed, failed := d.Counts(); processed != 1 || failed != 0 {
		t.Errorf("counts = %d/%d, want 1/0", processed, failed)
	}
}

func TestDispatcherExhaustsRetries(t *testing.T) {
	alerter := &recordingAlerter{}
	d := NewDispatcher(3, 0, alerter)

	calls := 0
	boom := errors.New("boom")
	d.Register(TypeLinkGrocery, func(ctx context.Context, job Job) error {
		calls++
		return boom
	})

	job := NewLinkGroceryJob(7, 1)
	if err := d.Dispatch(context.Background(), job); !errors.Is(err, boom) {
		t.Fatalf("Dispatch err = %v, want boom", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4 (1 + 3 retries)", calls)
	}
	if alerter.count() != 1 || alerter.jobs[0].GroceryID != 7 {
		t.Errorf("alerts = %+v", alerter.jobs)
	}
}

func TestDispatcherUnknownType(t *testing.T) {
	d := NewDispatcher(3, 0, &recordingAlerter{})
	if err := d.Dispatch(context.Background(), Job{Type: "nope"}); err == nil {
		t.Fatal("expected error for unknown job type")
	}
}

func TestDispatcherStopsOnCancel(t *testing.T) {
	d := NewDispatcher(5, time.Hour, &recordingAlerter{})
	d.Register(TypeMatchIngredient, func(ctx context.Context, job Job) error {
		return errors.New("fail")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := d.Dispatch(ctx, NewMatchIngredientJob(1, 1, false)); err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > time.Second {
		t.Errorf("dispatch waited for backoff after cancellation")
	}
}

func TestManagerProcessesJobs(t *testing.T) {
	d := NewDispatcher(0, 0, &recordingAlerter{})
	var seen int64
	d.Register(TypeMatchIngredient, func(ctx context.Context, job Job) error {
		atomic.AddInt64(&seen, job.IngredientID)
		return nil
	})

	m := NewManager(config.QueueConfig{Workers: 2, MaxSize: 10}, d)
	m.Start()
	for i := int64(1); i <= 4; i++ {
		if err := m.Enqueue(context.Background(), NewMatchIngredientJob(i, 1, false)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := atomic.LoadInt64(&seen); got != 10 {
		t.Errorf("sum of processed ids = %d, want 10", got)
	}
	status := m.Status(context.Background())
	if status.ProcessedCount != 4 || status.QueueLength != 0 || status.Backend != "memory" {
		t.Errorf("status = %+v", status)
	}
	if err := m.Enqueue(context.Background(), NewMatchIngredientJob(5, 1, false)); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Enqueue after close err = %v, want ErrQueueClosed", err)
	}
}

func TestManagerQueueFull(t *testing.T) {
	d := NewDispatcher(0, 0, nil)
	m := NewManager(config.QueueConfig{Workers: 1, MaxSize: 1}, d)
	defer m.Close()

	// 未啟動 worker，第二個工作放不進去
	if err := m.Enqueue(context.Background(), NewLinkGroceryJob(1, 1)); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	if err := m.Enqueue(context.Background(), NewLinkGroceryJob(2, 1)); !errors.Is(err, ErrQueueFull) {
		t.Errorf("second Enqueue err = %v, want ErrQueueFull", err)
	}
}

func TestWebhookAlerter(t *testing.T) {
	var got alertPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := common.DecodeJSON(r.Body, &got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := NewAlerter(config.AlertConfig{WebhookURL: srv.URL, Timeout: time.Second})
	job := NewMatchIngredientJob(42, 9, false)
	if err := a.Alert(context.Background(), job, errors.New("db down")); err != nil {
		t.Fatalf("Alert: %v", err)
	}
	if got.JobID != job.ID || got.EntityID != 42 || got.OwnerID != 9 || got.Error != "db down" {
		t.Errorf("payload = %+v", got)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	if err := NewWebhookAlerter(failing.URL, time.Second).Alert(context.Background(), job, errors.New("x")); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestNewAlerterWithoutWebhook(t *testing.T) {
	if _, ok := NewAlerter(config.AlertConfig{}).(LogAlerter); !ok {
		t.Error("empty webhook url should use LogAlerter")
	}
}

func TestJobEntityID(t *testing.T) {
	if id := NewMatchIngredientJob(3, 1, false).EntityID(); id != 3 {
		t.Errorf("match job entity = %d, want 3", id)
	}
	if id := NewLinkGroceryJob(8, 1).EntityID(); id != 8 {
		t.Errorf("link job entity = %d, want 8", id)
	}
	a, b := NewLinkGroceryJob(1, 1), NewLinkGroceryJob(1, 1)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("job ids should be unique: %q %q", a.ID, b.ID)
	}
}

func TestRedisQueueFinishesPoppedJobAfterClose(t *testing.T) {
	alerter := &recordingAlerter{}
	d := NewDispatcher(2, 10*time.Millisecond, alerter)

	var calls int32
	d.Register(TypeMatchIngredient, func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("datastore unavailable")
		}
		return nil
	})
	d.Register(TypeLinkGrocery, func(ctx context.Context, job Job) error {
		return errors.New("boom")
	})

	// 模擬關閉中：輪詢用的 context 已取消
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q := &RedisQueue{dispatcher: d, ctx: ctx, cancel: cancel}

	payload, err := common.ToJSON(NewMatchIngredientJob(3, 1, false))
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	q.handle(payload)
	if calls != 2 {
		t.Errorf("calls = %d, want retry to run after shutdown began", calls)
	}
	if processed, _ := d.Counts(); processed != 1 {
		t.Errorf("processed = %d, want 1", processed)
	}

	payload, _ = common.ToJSON(NewLinkGroceryJob(9, 1))
	q.handle(payload)
	if alerter.count() != 1 {
		t.Fatalf("alerts = %d, want 1", alerter.count())
	}
	if alerter.ctxErrs[0] != nil {
		t.Errorf("alert context err = %v, want live context", alerter.ctxErrs[0])
	}

	q.handle("{not json")
	if _, failed := d.Counts(); failed != 1 {
		t.Errorf("failed = %d, malformed payload should be dropped without dispatch", failed)
	}
}
