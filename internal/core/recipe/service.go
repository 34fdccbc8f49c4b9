package recipe

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"pantry-recipes/internal/core/cache"
	"pantry-recipes/internal/core/jobs"
	"pantry-recipes/internal/core/parser"
	"pantry-recipes/internal/infrastructure/store"
	"pantry-recipes/internal/pkg/common"
)

// Service 食譜與食材庫存服務共用的基礎結構
type Service struct {
	store        store.Store
	queue        jobs.Queue
	parser       *parser.Parser
	cacheManager *cache.Manager
}

// NewService 創建新的基礎服務；cacheManager 可為 nil
func NewService(st store.Store, queue jobs.Queue, p *parser.Parser, cacheManager *cache.Manager) *Service {
	if p == nil {
		p = parser.New(nil)
	}
	return &Service{
		store:        st,
		queue:        queue,
		parser:       p,
		cacheManager: cacheManager,
	}
}

// ParseIngredients 解析食材文字，結果依原文快取
func (s *Service) ParseIngredients(raw string) common.ParseResult {
	if cached, ok := s.getFromCache(raw); ok {
		return cached
	}
	result := s.parser.Parse(raw)
	s.setToCache(raw, result)
	return result
}

// getFromCache 從緩存獲取解析結果
func (s *Service) getFromCache(raw string) (common.ParseResult, bool) {
	result, err := s.cacheManager.Get(raw)
	if err != nil {
		if errors.Is(err, common.ErrCacheMiss) {
			common.LogCacheMiss("parse")
		}
		return common.ParseResult{}, false
	}
	common.LogCacheHit("parse")
	return result, true
}

// setToCache 將解析結果存入緩存
func (s *Service) setToCache(raw string, result common.ParseResult) {
	if err := s.cacheManager.Set(raw, result); err != nil && !errors.Is(err, common.ErrCacheDisabled) {
		common.LogWarn("Failed to cache parse result", zap.Error(err))
	}
}

// enqueue 送出背景工作，失敗只記錄不回傳
func (s *Service) enqueue(ctx context.Context, job jobs.Job) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		common.LogWarn("Failed to enqueue job",
			zap.String("job_type", string(job.Type)),
			zap.Int64("entity_id", job.EntityID()),
			zap.Int64("owner_id", job.OwnerID),
			zap.Error(err),
		)
	}
}
