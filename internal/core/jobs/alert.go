package jobs

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"pantry-recipes/internal/infrastructure/config"
	"pantry-recipes/internal/pkg/common"
)

// Alerter 重試耗盡時的營運通知
type Alerter interface {
	Alert(ctx context.Context, job Job, err error) error
}

// LogAlerter 只寫入錯誤日誌
type LogAlerter struct{}

// Alert 記錄錯誤
func (LogAlerter) Alert(ctx context.Context, job Job, err error) error {
	common.LogError("Job retries exhausted",
		zap.String("job_id", job.ID),
		zap.String("job_type", string(job.Type)),
		zap.Int64("entity_id", job.EntityID()),
		zap.Int64("owner_id", job.OwnerID),
		zap.Error(err),
	)
	return nil
}

// WebhookAlerter 以 HTTP POST 送出通知
type WebhookAlerter struct {
	client *resty.Client
	url    string
}

// alertPayload 通知內容
type alertPayload struct {
	JobID    string    `json:"job_id"`
	JobType  Type      `json:"job_type"`
	EntityID int64     `json:"entity_id"`
	OwnerID  int64     `json:"owner_id"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// NewAlerter 有設定 webhook 時使用 WebhookAlerter，否則只寫日誌
func NewAlerter(cfg config.AlertConfig) Alerter {
	if cfg.WebhookURL == "" {
		return LogAlerter{}
	}
	return NewWebhookAlerter(cfg.WebhookURL, cfg.Timeout)
}

// NewWebhookAlerter 建立 webhook 通知
func NewWebhookAlerter(url string, timeout time.Duration) *WebhookAlerter {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "pantry-recipes-jobs")

	return &WebhookAlerter{client: client, url: url}
}

// Alert 送出通知，同時寫入日誌
func (a *WebhookAlerter) Alert(ctx context.Context, job Job, jobErr error) error {
	LogAlerter{}.Alert(ctx, job, jobErr)

	payload := alertPayload{
		JobID:    job.ID,
		JobType:  job.Type,
		EntityID: job.EntityID(),
		OwnerID:  job.OwnerID,
		Error:    jobErr.Error(),
		FailedAt: time.Now(),
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(a.url)
	if err != nil {
		return fmt.Errorf("failed to send alert webhook: %w", err)
	}
	if resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("alert webhook returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
