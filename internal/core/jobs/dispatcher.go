package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"pantry-recipes/internal/pkg/common"
)

// Dispatcher 依工作類型呼叫處理器，失敗時線性退避重試，耗盡後通知 Alerter
type Dispatcher struct {
	mu         sync.RWMutex
	handlers   map[Type]Handler
	maxRetries int
	backoff    time.Duration
	alerter    Alerter
	processed  int64
	failed     int64
}

// NewDispatcher 建立派送器；maxRetries 為第一次失敗後的重試次數
func NewDispatcher(maxRetries int, backoff time.Duration, alerter Alerter) *Dispatcher {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if alerter == nil {
		alerter = LogAlerter{}
	}
	return &Dispatcher{
		handlers:   make(map[Type]Handler),
		maxRetries: maxRetries,
		backoff:    backoff,
		alerter:    alerter,
	}
}

// Register 註冊工作處理器
func (d *Dispatcher) Register(t Type, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = h
}

// Dispatch 執行工作直到成功或重試耗盡
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) error {
	d.mu.RLock()
	h, ok := d.handlers[job.Type]
	d.mu.RUnlock()
	if !ok {
		err := fmt.Errorf("no handler for job type %q", job.Type)
		atomic.AddInt64(&d.failed, 1)
		common.LogError("Unknown job type", zap.String("job_id", job.ID), zap.String("job_type", string(job.Type)))
		return err
	}

	var err error
	attempts := d.maxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = h(ctx, job); err == nil {
			atomic.AddInt64(&d.processed, 1)
			common.LogDebug("Job completed",
				zap.String("job_id", job.ID),
				zap.String("job_type", string(job.Type)),
				zap.Int("attempt", attempt),
			)
			return nil
		}

		common.LogJobFailure(string(job.Type), job.EntityID(), attempt, err)
		if attempt == attempts {
			break
		}
		if werr := wait(ctx, time.Duration(attempt)*d.backoff); werr != nil {
			err = fmt.Errorf("%w (retry aborted: %v)", err, werr)
			break
		}
	}

	atomic.AddInt64(&d.failed, 1)
	if aerr := d.alerter.Alert(ctx, job, err); aerr != nil {
		common.LogError("Failed to send job alert", zap.String("job_id", job.ID), zap.Error(aerr))
	}
	return err
}

// Counts 回傳成功與失敗的工作數
func (d *Dispatcher) Counts() (processed, failed int64) {
	return atomic.LoadInt64(&d.processed), atomic.LoadInt64(&d.failed)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
