// Package product 商品审核生命周期：提交 → pending → approved / rejected。
//
// 这里是商品写操作唯一的存储调用方；所有状态迁移都用条件更新
// （WHERE status = 'pending'）落库，并发审核时后到者得到 ErrInvalidState。
package product

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"eco-haat/internal/domain"
	"eco-haat/internal/feature/input"
	"eco-haat/pkg/utils"
)

type Service struct {
	repo       domain.ProductRepository
	categories domain.CategoryRepository
	log        *zap.Logger
	newID      func() string
}

type Option func(*Service)

// WithCategories 提交时校验 category_id 是否存在
func WithCategories(c domain.CategoryRepository) Option {
	return func(s *Service) { s.categories = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithIDGen(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

func NewService(repo domain.ProductRepository, opts ...Option) *Service {
	s := &Service{repo: repo, log: zap.NewNop(), newID: utils.NewID}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ClampEcoRating 环保评分落在 [0,100]
func ClampEcoRating(v int) int {
	if v < domain.MinEcoRating {
		return domain.MinEcoRating
	}
	if v > domain.MaxEcoRating {
		return domain.MaxEcoRating
	}
	return v
}

func (s *Service) checkCategory(ctx context.Context, f domain.ProductFields) error {
	if f.CategoryID == nil || s.categories == nil {
		return nil
	}
	ok, err := s.categories.Exists(ctx, *f.CategoryID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Invalid("category_id", "unknown category")
	}
	return nil
}

// Submit 新商品一律 pending，评分与驳回原因为空
func (s *Service) Submit(ctx context.Context, actor *domain.Session, in Input) (*domain.Product, error) {
	if !actor.Authenticated() || !actor.Role.CanSell() {
		return nil, domain.ErrPermission
	}
	f, err := in.fields()
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, f); err != nil {
		return nil, err
	}
	p := &domain.Product{
		ID:            s.newID(),
		SellerID:      actor.UserID,
		CategoryID:    f.CategoryID,
		Name:          f.Name,
		Description:   f.Description,
		Price:         f.Price,
		Material:      f.Material,
		Images:        f.Images,
		StockQuantity: f.StockQuantity,
		Status:        domain.StatusPending,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("product submitted",
		zap.String("product_id", p.ID),
		zap.String("seller_id", p.SellerID),
	)
	return p, nil
}

// Update 卖家仅能在 pending 期间修改自己的商品
func (s *Service) Update(ctx context.Context, actor *domain.Session, id string, in Input) (*domain.Product, error) {
	if !actor.Authenticated() || !actor.Role.CanSell() {
		return nil, domain.ErrPermission
	}
	f, err := in.fields()
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, f); err != nil {
		return nil, err
	}
	ok, err := s.repo.UpdateFields(ctx, id, actor.UserID, domain.StatusPending, f)
	if err != nil {
		return nil, err
	}
	if !ok {
		p, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.SellerID != actor.UserID {
			return nil, domain.ErrPermission
		}
		return nil, domain.ErrInvalidState
	}
	return s.repo.FindByID(ctx, id)
}

func (s *Service) Approve(ctx context.Context, actor *domain.Session, id string, ecoRating int) (*domain.Product, error) {
	if !actor.Is(domain.RoleAdmin) {
		observe(eventApprove, domain.ErrPermission)
		return nil, domain.ErrPermission
	}
	rating := ClampEcoRating(ecoRating)
	p, err := s.transition(ctx, id, domain.Moderation{
		Status:    domain.StatusApproved,
		EcoRating: &rating,
	})
	observe(eventApprove, err)
	if err != nil {
		return nil, err
	}
	s.log.Info("product approved",
		zap.String("product_id", id),
		zap.String("admin_id", actor.UserID),
		zap.Int("eco_rating", rating),
	)
	return p, nil
}

// Reject 空原因也接受（沿用旧行为）
func (s *Service) Reject(ctx context.Context, actor *domain.Session, id, reason string) (*domain.Product, error) {
	if !actor.Is(domain.RoleAdmin) {
		observe(eventReject, domain.ErrPermission)
		return nil, domain.ErrPermission
	}
	r := input.Text(reason)
	p, err := s.transition(ctx, id, domain.Moderation{
		Status:          domain.StatusRejected,
		RejectionReason: &r,
	})
	observe(eventReject, err)
	if err != nil {
		return nil, err
	}
	s.log.Info("product rejected",
		zap.String("product_id", id),
		zap.String("admin_id", actor.UserID),
		zap.Bool("empty_reason", r == ""),
	)
	return p, nil
}

// UpdateEcoRating 仅对 approved 商品调整评分，不改变状态
func (s *Service) UpdateEcoRating(ctx context.Context, actor *domain.Session, id string, ecoRating int) (*domain.Product, error) {
	if !actor.Is(domain.RoleAdmin) {
		observe(eventRerate, domain.ErrPermission)
		return nil, domain.ErrPermission
	}
	rating := ClampEcoRating(ecoRating)
	ok, err := s.repo.SetEcoRating(ctx, id, domain.StatusApproved, rating)
	if err == nil && !ok {
		err = s.why(ctx, id)
	}
	observe(eventRerate, err)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// transition 条件更新 pending → 目标状态
func (s *Service) transition(ctx context.Context, id string, m domain.Moderation) (*domain.Product, error) {
	ok, err := s.repo.Transition(ctx, id, domain.StatusPending, m)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.why(ctx, id)
	}
	return s.repo.FindByID(ctx, id)
}

// why 条件更新未命中：区分不存在与状态不符
func (s *Service) why(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrInvalidState
}

// Delete 所有者或 admin 可删，与审核状态无关
func (s *Service) Delete(ctx context.Context, actor *domain.Session, id string) error {
	if !actor.Authenticated() {
		return domain.ErrPermission
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Role.IsAdmin() && p.SellerID != actor.UserID {
		return domain.ErrPermission
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("product deleted",
		zap.String("product_id", id),
		zap.String("by", actor.UserID),
		zap.String("status", string(p.Status)),
	)
	return nil
}

// Get 买家详情：非 approved 一律视为不存在
func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.StatusApproved {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// GetOwned 卖家/管理员查看任意状态；他人商品同样返回 ErrNotFound
func (s *Service) GetOwned(ctx context.Context, actor *domain.Session, id string) (*domain.Product, error) {
	if !actor.Authenticated() {
		return nil, domain.ErrPermission
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsAdmin() && p.SellerID != actor.UserID {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

type Page struct {
	Items []domain.Product `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
}

type BuyerFilter struct {
	Material     string `form:"material"`
	CategoryID   string `form:"category_id"`
	Search       string `form:"search"`
	MinEcoRating *int   `form:"min_eco_rating"`
	Sort         string `form:"sort"`
	Page         int    `form:"page"`
	Size         int    `form:"size"`
}

const (
	buyerPageSize    = 12
	buyerMaxPageSize = 50
	adminPageSize    = 20
	adminMaxPageSize = 100
)

func paging(page, size, def, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > limit {
		size = def
	}
	return page, size
}

// ListForBuyer 只返回 approved；过滤条件无法放宽这一点
func (s *Service) ListForBuyer(ctx context.Context, f BuyerFilter) (Page, error) {
	page, size := paging(f.Page, f.Size, buyerPageSize, buyerMaxPageSize)
	q := domain.ProductQuery{
		CategoryID: strings.TrimSpace(f.CategoryID),
		Material:   strings.TrimSpace(f.Material),
		Search:     strings.TrimSpace(f.Search),
		Sort:       parseSort(f.Sort),
		Offset:     (page - 1) * size,
		Limit:      size,
	}
	if f.MinEcoRating != nil {
		r := ClampEcoRating(*f.MinEcoRating)
		q.MinEcoRating = &r
	}
	q.Statuses = []domain.ProductStatus{domain.StatusApproved}
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: nonNil(items), Total: total, Page: page, Size: size}, nil
}

func parseSort(s string) domain.BuyerSort {
	switch domain.BuyerSort(strings.ToLower(strings.TrimSpace(s))) {
	case domain.SortPriceLow:
		return domain.SortPriceLow
	case domain.SortPriceHigh:
		return domain.SortPriceHigh
	case domain.SortEcoRating:
		return domain.SortEcoRating
	}
	return domain.SortNewest
}

// ListForSeller 卖家自己的全部商品（可按状态过滤），新的在前；size 为 0 时不分页
func (s *Service) ListForSeller(ctx context.Context, actor *domain.Session, status string, page, size int) (Page, error) {
	if !actor.Authenticated() || !actor.Role.CanSell() {
		return Page{}, domain.ErrPermission
	}
	q := domain.ProductQuery{SellerID: actor.UserID, Sort: domain.SortNewest}
	if st := strings.TrimSpace(status); st != "" && st != "all" {
		ps := domain.ProductStatus(st)
		if !ps.Valid() {
			return Page{}, domain.Invalid("status", "unknown status")
		}
		q.Statuses = []domain.ProductStatus{ps}
	}
	if size > 0 {
		page, size = paging(page, size, adminPageSize, adminMaxPageSize)
		q.Offset, q.Limit = (page-1)*size, size
	} else {
		page = 1
	}
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: nonNil(items), Total: total, Page: page, Size: size}, nil
}

// ListForAdmin 默认展示待审核队列；status=all 展示全部
func (s *Service) ListForAdmin(ctx context.Context, actor *domain.Session, status string, page, size int) (Page, error) {
	if !actor.Is(domain.RoleAdmin) {
		return Page{}, domain.ErrPermission
	}
	page, size = paging(page, size, adminPageSize, adminMaxPageSize)
	q := domain.ProductQuery{Sort: domain.SortNewest, Offset: (page - 1) * size, Limit: size}
	switch st := strings.TrimSpace(status); st {
	case "":
		q.Statuses = []domain.ProductStatus{domain.StatusPending}
	case "all":
	default:
		ps := domain.ProductStatus(st)
		if !ps.Valid() {
			return Page{}, domain.Invalid("status", "unknown status")
		}
		q.Statuses = []domain.ProductStatus{ps}
	}
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: nonNil(items), Total: total, Page: page, Size: size}, nil
}

func nonNil(in []domain.Product) []domain.Product {
	if in == nil {
		return []domain.Product{}
	}
	return in
}

// outcome 指标标签
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrPermission):
		return "denied"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	}
	return "error"
}
