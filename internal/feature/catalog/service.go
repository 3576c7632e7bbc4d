// Package catalog 分类列表（带缓存）。分类的增删改走管理端通用 CRUD，
// 写入后调用 Invalidate。
package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"eco-haat/internal/core/cache"
	"eco-haat/internal/domain"
)

const (
	categoriesKey = "categories:all"
	DefaultTTL    = 10 * time.Minute
)

type Service struct {
	repo     domain.CategoryRepository
	products domain.ProductRepository
	cache    *cache.Cache
	ttl      time.Duration
	log      *zap.Logger
}

// NewService c 可为 nil
func NewService(repo domain.CategoryRepository, products domain.ProductRepository, c *cache.Cache, ttl time.Duration, l *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{repo: repo, products: products, cache: c, ttl: ttl, log: l}
}

func (s *Service) List(ctx context.Context) ([]domain.Category, error) {
	out, err := cache.GetOrLoadJSON(s.cache, ctx, categoriesKey, s.ttl, func(ctx context.Context) (*[]domain.Category, error) {
		items, err := s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []domain.Category{}
		}
		return &items, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return []domain.Category{}, nil
	}
	return *out, nil
}

// Invalidate 缓存失效失败只记日志，TTL 到期后自愈
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Del(ctx, categoriesKey); err != nil {
		s.log.Warn("category cache invalidate failed", zap.Error(err))
	}
}

// CheckDeletable 仍有商品引用的分类不可删除
func (s *Service) CheckDeletable(ctx context.Context, id string) error {
	n, err := s.products.Count(ctx, domain.ProductQuery{CategoryID: id})
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.ErrInvalidState
	}
	return nil
}
