package jobs

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"pantry-recipes/internal/infrastructure/config"
	"pantry-recipes/internal/pkg/common"
)

var (
	// ErrQueueFull 隊列已滿
	ErrQueueFull = errors.New("queue is full")
	// ErrQueueClosed 隊列已關閉
	ErrQueueClosed = errors.New("queue manager is closed")
)

// Backend 可啟動、可查詢狀態的隊列
type Backend interface {
	Queue
	Start()
	Status(ctx context.Context) Status
	Close() error
}

// Manager 行程內隊列，固定數量的 worker 從 channel 取出工作
type Manager struct {
	config     config.QueueConfig
	dispatcher *Dispatcher
	queue      chan Job
	mu         sync.RWMutex
	closed     bool
	started    bool
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

var _ Backend = (*Manager)(nil)

// NewManager 創建新的隊列管理器
func NewManager(cfg config.QueueConfig, dispatcher *Dispatcher) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		config:     cfg,
		dispatcher: dispatcher,
		queue:      make(chan Job, cfg.MaxSize),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start 啟動 worker，重複呼叫不會多開
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.closed {
		return
	}
	m.started = true

	workers := m.config.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}

	common.LogInfo("Job workers started",
		zap.Int("workers", workers),
		zap.Int("max_queue_size", m.config.MaxSize),
	)
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for job := range m.queue {
		if err := m.dispatcher.Dispatch(m.ctx, job); err != nil {
			common.LogDebug("Job gave up",
				zap.Int("worker", id),
				zap.String("job_id", job.ID),
				zap.Error(err),
			)
		}
	}
}

// Enqueue 將工作加入隊列，隊列已滿時立即回傳錯誤
func (m *Manager) Enqueue(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrQueueClosed
	}

	select {
	case m.queue <- job:
		common.LogDebug("Job enqueued",
			zap.String("job_id", job.ID),
			zap.String("job_type", string(job.Type)),
			zap.Int("queue_length", len(m.queue)),
		)
		return nil
	default:
		common.LogWarn("Job queue full",
			zap.String("job_type", string(job.Type)),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
		return ErrQueueFull
	}
}

// Status 獲取隊列狀態
func (m *Manager) Status(ctx context.Context) Status {
	processed, failed := m.dispatcher.Counts()
	return Status{
		Backend:        "memory",
		QueueLength:    len(m.queue),
		ProcessedCount: processed,
		FailedCount:    failed,
		MaxQueueSize:   m.config.MaxSize,
		Workers:        m.config.Workers,
	}
}

// Close 停止接受新工作，等待 worker 處理完剩餘工作
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	started := m.started
	m.mu.Unlock()

	if started {
		m.wg.Wait()
	}
	m.cancel()
	return nil
}

// InlineQueue 在呼叫端 goroutine 直接執行工作，供測試與單次執行的工具使用
type InlineQueue struct {
	Dispatcher *Dispatcher
}

// Enqueue 立即執行；失敗已由 Dispatcher 記錄與通知，不回傳給呼叫端
func (q InlineQueue) Enqueue(ctx context.Context, job Job) error {
	_ = q.Dispatcher.Dispatch(ctx, job)
	return nil
}
