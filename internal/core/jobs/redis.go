package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"pantry-recipes/internal/infrastructure/config"
	"pantry-recipes/internal/pkg/common"
)

const redisPollTimeout = 2 * time.Second

// RedisQueue 以 Redis list 保存工作，多個行程可共用同一個隊列
type RedisQueue struct {
	client     *redis.Client
	key        string
	config     config.QueueConfig
	dispatcher *Dispatcher
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	once       sync.Once
}

var _ Backend = (*RedisQueue)(nil)

// NewRedisQueue 連線並確認 Redis 可用
func NewRedisQueue(rcfg config.RedisConfig, qcfg config.QueueConfig, dispatcher *Dispatcher) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     rcfg.Addr,
		Password: rcfg.Password,
		DB:       rcfg.DB,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RedisQueue{
		client:     client,
		key:        qcfg.Key,
		config:     qcfg,
		dispatcher: dispatcher,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Enqueue 序列化後推入 list 左端
func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	if q.ctx.Err() != nil {
		return ErrQueueClosed
	}

	if q.config.MaxSize > 0 {
		n, err := q.client.LLen(ctx, q.key).Result()
		if err != nil {
			return fmt.Errorf("failed to read queue length: %w", err)
		}
		if int(n) >= q.config.MaxSize {
			return ErrQueueFull
		}
	}

	data, err := common.ToJSON(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	common.LogDebug("Job enqueued",
		zap.String("job_id", job.ID),
		zap.String("job_type", string(job.Type)),
		zap.String("backend", "redis"),
	)
	return nil
}

// Start 啟動 worker，以 BRPOP 從右端取出
func (q *RedisQueue) Start() {
	workers := q.config.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	common.LogInfo("Redis job workers started",
		zap.Int("workers", workers),
		zap.String("key", q.key),
	)
}

func (q *RedisQueue) worker(id int) {
	defer q.wg.Done()
	for {
		if q.ctx.Err() != nil {
			return
		}

		res, err := q.client.BRPop(q.ctx, redisPollTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if q.ctx.Err() != nil {
				return
			}
			common.LogWarn("Failed to pop job", zap.Int("worker", id), zap.Error(err))
			if wait(q.ctx, time.Second) != nil {
				return
			}
			continue
		}

		// res[0] 為 key，res[1] 為內容
		q.handle(res[1])
	}
}

// handle 執行取出的工作；已取出的工作在關閉期間仍會跑完重試與通知
func (q *RedisQueue) handle(payload string) {
	var job Job
	if err := common.ParseJSONBytes([]byte(payload), &job); err != nil {
		common.LogError("Dropping malformed job", zap.String("payload", payload), zap.Error(err))
		return
	}
	_ = q.dispatcher.Dispatch(context.WithoutCancel(q.ctx), job)
}

// Status 獲取隊列狀態
func (q *RedisQueue) Status(ctx context.Context) Status {
	processed, failed := q.dispatcher.Counts()
	length, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		common.LogWarn("Failed to read queue length", zap.Error(err))
	}
	return Status{
		Backend:        "redis",
		QueueLength:    int(length),
		ProcessedCount: processed,
		FailedCount:    failed,
		MaxQueueSize:   q.config.MaxSize,
		Workers:        q.config.Workers,
	}
}

// Close 停止取出新工作，等待進行中的工作完成後關閉連線
func (q *RedisQueue) Close() error {
	var err error
	q.once.Do(func() {
		q.cancel()
		q.wg.Wait()
		err = q.client.Close()
	})
	return err
}
