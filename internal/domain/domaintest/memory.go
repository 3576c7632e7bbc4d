// Package domaintest 提供内存版仓储，供各 feature 与路由测试使用
package domaintest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"eco-haat/internal/domain"
)

// Store 一份共享的内存数据，多个仓储视图共用，行为尽量贴近 gorm 实现
type Store struct {
	mu         sync.Mutex
	profiles   map[string]domain.Profile
	products   map[string]domain.Product
	categories map[string]domain.Category
	cart       map[string]domain.CartItem
	orders     map[string]domain.Order

	// Fail 非空时所有调用都返回该错误（模拟存储不可用）
	Fail error
	seq  int
	now  time.Time
}

func NewStore() *Store {
	return &Store{
		profiles:   map[string]domain.Profile{},
		products:   map[string]domain.Product{},
		categories: map[string]domain.Category{},
		cart:       map[string]domain.CartItem{},
		orders:     map[string]domain.Order{},
		now:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick 单调递增的时间戳，保证 newest-first 排序稳定
func (s *Store) tick() time.Time {
	s.seq++
	return s.now.Add(time.Duration(s.seq) * time.Second)
}

func (s *Store) failed() error {
	if s.Fail != nil {
		return domain.Upstream("memory", s.Fail)
	}
	return nil
}

func (s *Store) Users() *Users           { return &Users{s} }
func (s *Store) Products() *Products     { return &Products{s} }
func (s *Store) Categories() *Categories { return &Categories{s} }
func (s *Store) Cart() *Cart             { return &Cart{s} }
func (s *Store) Orders() *Orders         { return &Orders{s} }

// ---------- profiles ----------

type Users struct{ s *Store }

func (u *Users) Create(_ context.Context, p *domain.Profile) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.failed(); err != nil {
		return err
	}
	for _, x := range u.s.profiles {
		if strings.EqualFold(x.Email, p.Email) {
			return domain.ErrDuplicate
		}
	}
	p.CreatedAt = u.s.tick()
	p.UpdatedAt = p.CreatedAt
	u.s.profiles[p.ID] = *p
	return nil
}

func (u *Users) FindByID(_ context.Context, id string) (*domain.Profile, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.failed(); err != nil {
		return nil, err
	}
	p, ok := u.s.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (u *Users) FindByEmail(_ context.Context, email string) (*domain.Profile, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.failed(); err != nil {
		return nil, err
	}
	for _, p := range u.s.profiles {
		if strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (u *Users) List(_ context.Context, q domain.UserQuery) ([]domain.Profile, int64, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.failed(); err != nil {
		return nil, 0, err
	}
	var out []domain.Profile
	for _, p := range u.s.profiles {
		if q.Role != "" && p.Role != q.Role {
			continue
		}
		if q.Search != "" && !containsFold(p.Email, q.Search) && !containsFold(p.FullName, q.Search) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, q.Offset, q.Limit), int64(len(out)), nil
}

func (u *Users) Update(_ context.Context, id string, patch domain.ProfilePatch) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.failed(); err != nil {
		return err
	}
	p, ok := u.s.profiles[id]
	if !ok {
		return domain.ErrNotFound
	}
	if patch.FullName != nil {
		p.FullName = *patch.FullName
	}
	if patch.Phone != nil {
		p.Phone = *patch.Phone
	}
	if patch.Address != nil {
		p.Address = *patch.Address
	}
	u.s.profiles[id] = p
	return nil
}

func (u *Users) SetRole(_ context.Context, id string, role domain.Role) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.failed(); err != nil {
		return err
	}
	p, ok := u.s.profiles[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Role = role
	u.s.profiles[id] = p
	return nil
}

func (u *Users) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.failed(); err != nil {
		return 0, err
	}
	var n int64
	for _, p := range u.s.profiles {
		if role == "" || p.Role == role {
			n++
		}
	}
	return n, nil
}

// ---------- products ----------

type Products struct{ s *Store }

func (r *Products) Create(_ context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return err
	}
	p.CreatedAt = r.s.tick()
	p.UpdatedAt = p.CreatedAt
	r.s.products[p.ID] = cloneProduct(*p)
	return nil
}

func (r *Products) FindByID(_ context.Context, id string) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return nil, err
	}
	p, ok := r.s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p = r.s.named(cloneProduct(p))
	return &p, nil
}

func (r *Products) match(q domain.ProductQuery) []domain.Product {
	var out []domain.Product
	for _, p := range r.s.products {
		if len(q.Statuses) > 0 && !hasStatus(q.Statuses, p.Status) {
			continue
		}
		if q.SellerID != "" && p.SellerID != q.SellerID {
			continue
		}
		if q.CategoryID != "" && (p.CategoryID == nil || *p.CategoryID != q.CategoryID) {
			continue
		}
		if q.Material != "" && !containsFold(p.Material, q.Material) {
			continue
		}
		if q.Search != "" && !containsFold(p.Name, q.Search) && !containsFold(p.Description, q.Search) {
			continue
		}
		if q.MinEcoRating != nil && (p.EcoRating == nil || *p.EcoRating < *q.MinEcoRating) {
			continue
		}
		out = append(out, r.s.named(cloneProduct(p)))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch q.Sort {
		case domain.SortPriceLow:
			return a.Price < b.Price
		case domain.SortPriceHigh:
			return a.Price > b.Price
		case domain.SortEcoRating:
			return deref(a.EcoRating) > deref(b.EcoRating)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out
}

func (r *Products) List(_ context.Context, q domain.ProductQuery) ([]domain.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return nil, 0, err
	}
	all := r.match(q)
	return page(all, q.Offset, q.Limit), int64(len(all)), nil
}

func (r *Products) Count(_ context.Context, q domain.ProductQuery) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return 0, err
	}
	return int64(len(r.match(q))), nil
}

func (r *Products) UpdateFields(_ context.Context, id, sellerID string, when domain.ProductStatus, f domain.ProductFields) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return false, err
	}
	p, ok := r.s.products[id]
	if !ok || p.SellerID != sellerID || p.Status != when {
		return false, nil
	}
	p.Name, p.Description, p.Price, p.Material = f.Name, f.Description, f.Price, f.Material
	p.CategoryID, p.Images, p.StockQuantity = f.CategoryID, append([]string(nil), f.Images...), f.StockQuantity
	p.UpdatedAt = r.s.tick()
	r.s.products[id] = p
	return true, nil
}

func (r *Products) Transition(_ context.Context, id string, from domain.ProductStatus, m domain.Moderation) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return false, err
	}
	p, ok := r.s.products[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status, p.EcoRating, p.RejectionReason = m.Status, m.EcoRating, m.RejectionReason
	p.UpdatedAt = r.s.tick()
	r.s.products[id] = p
	return true, nil
}

func (r *Products) SetEcoRating(_ context.Context, id string, when domain.ProductStatus, rating int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return false, err
	}
	p, ok := r.s.products[id]
	if !ok || p.Status != when {
		return false, nil
	}
	p.EcoRating = &rating
	r.s.products[id] = p
	return true, nil
}

func (r *Products) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failed(); err != nil {
		return err
	}
	delete(r.s.products, id)
	for k, it := range r.s.cart {
		if it.ProductID == id {
			delete(r.s.cart, k)
		}
	}
	return nil
}

// Put 直接写入任意状态的商品（测试造数用）
func (r *Products) Put(p domain.Product) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.s.tick()
	}
	r.s.products[p.ID] = cloneProduct(p)
}

// ---------- categories ----------

type Categories struct{ s *Store }

func (c *Categories) List(_ context.Context) ([]domain.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.failed(); err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(c.s.categories))
	for _, x := range c.s.categories {
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Categories) Exists(_ context.Context, id string) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.failed(); err != nil {
		return false, err
	}
	_, ok := c.s.categories[id]
	return ok, nil
}

func (c *Categories) Put(x domain.Category) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.categories[x.ID] = x
}

// ---------- cart ----------

type Cart struct{ s *Store }

func (c *Cart) withProduct(it domain.CartItem) domain.CartItem {
	if p, ok := c.s.products[it.ProductID]; ok {
		p = cloneProduct(p)
		it.Product = &p
	}
	return it
}

func (c *Cart) ListByBuyer(_ context.Context, buyerID string) ([]domain.CartItem, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.failed(); err != nil {
		return nil, err
	}
	var out []domain.CartItem
	for _, it := range c.s.cart {
		if it.BuyerID == buyerID {
			out = append(out, c.withProduct(it))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (c *Cart) FindByID(_ context.Context, id string) (*domain.CartItem, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.failed(); err != nil {
		return nil, err
	}
	it, ok := c.s.cart[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	it = c.withProduct(it)
	return &it, nil
}

func (c *Cart) FindByBuyerProduct(_ context.Context, buyerID, productID string) (*domain.CartItem, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.failed(); err != nil {
		return nil, err
	}
	for _, it := range c.s.cart {
		if it.BuyerID == buyerID && it.ProductID == productID {
			it = c.withProduct(it)
			return &it, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (c *Cart) Create(_ context.Context, it *domain.CartItem) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.failed(); err != nil {
		return err
	}
	it.CreatedAt = c.s.tick()
	it.UpdatedAt = it.CreatedAt
	cp := *it
	cp.Product = nil
	c.s.cart[it.ID] = cp
	return nil
}

func (c *Cart) SetQuantity(_ context.Context, id string, qty int) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.failed(); err != nil {
		return err
	}
	it, ok := c.s.cart[id]
	if !ok {
		return domain.ErrNotFound
	}
	it.Quantity = qty
	c.s.cart[id] = it
	return nil
}

func (c *Cart) Delete(_ context.Context, id string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.failed(); err != nil {
		return err
	}
	delete(c.s.cart, id)
	return nil
}

func (c *Cart) DeleteByBuyer(_ context.Context, buyerID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.failed(); err != nil {
		return err
	}
	for k, it := range c.s.cart {
		if it.BuyerID == buyerID {
			delete(c.s.cart, k)
		}
	}
	return nil
}

// ---------- orders ----------

type Orders struct{ s *Store }

func (o *Orders) Put(x domain.Order) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if x.CreatedAt.IsZero() {
		x.CreatedAt = o.s.tick()
	}
	o.s.orders[x.ID] = x
}

func (o *Orders) match(q domain.OrderQuery) []domain.Order {
	var out []domain.Order
	for _, x := range o.s.orders {
		if q.BuyerID != "" && x.BuyerID != q.BuyerID {
			continue
		}
		if q.Status != "" && x.Status != q.Status {
			continue
		}
		if q.SellerID != "" {
			var mine []domain.OrderItem
			for _, it := range x.Items {
				if p, ok := o.s.products[it.ProductID]; ok && p.SellerID == q.SellerID {
					p = cloneProduct(p)
					it.Product = &p
					mine = append(mine, it)
				}
			}
			if len(mine) == 0 {
				continue
			}
			x.Items = mine
		}
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (o *Orders) List(_ context.Context, q domain.OrderQuery) ([]domain.Order, int64, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if err := o.s.failed(); err != nil {
		return nil, 0, err
	}
	all := o.match(q)
	return page(all, q.Offset, q.Limit), int64(len(all)), nil
}

func (o *Orders) FindByID(_ context.Context, id string) (*domain.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if err := o.s.failed(); err != nil {
		return nil, err
	}
	x, ok := o.s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	x.Items = append([]domain.OrderItem(nil), x.Items...)
	for i, it := range x.Items {
		if p, ok := o.s.products[it.ProductID]; ok {
			p = cloneProduct(p)
			x.Items[i].Product = &p
		}
	}
	return &x, nil
}

func (o *Orders) Place(_ context.Context, x *domain.Order) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if err := o.s.failed(); err != nil {
		return err
	}
	for _, it := range x.Items {
		p, ok := o.s.products[it.ProductID]
		if !ok || p.Status != domain.StatusApproved || p.StockQuantity < it.Quantity {
			return domain.ErrInvalidState
		}
	}
	for _, it := range x.Items {
		p := o.s.products[it.ProductID]
		p.StockQuantity -= it.Quantity
		o.s.products[it.ProductID] = p
	}
	for k, it := range o.s.cart {
		if it.BuyerID == x.BuyerID {
			delete(o.s.cart, k)
		}
	}
	x.CreatedAt = o.s.tick()
	x.UpdatedAt = x.CreatedAt
	cp := *x
	cp.Items = append([]domain.OrderItem(nil), x.Items...)
	o.s.orders[x.ID] = cp
	return nil
}

func (o *Orders) SetStatus(_ context.Context, id string, st domain.OrderStatus) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if err := o.s.failed(); err != nil {
		return err
	}
	x, ok := o.s.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	x.Status = st
	x.UpdatedAt = o.s.tick()
	o.s.orders[id] = x
	return nil
}

func (o *Orders) CountAll(_ context.Context) (int64, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if err := o.s.failed(); err != nil {
		return 0, err
	}
	return int64(len(o.s.orders)), nil
}

func (o *Orders) CountForSeller(_ context.Context, sellerID string) (int64, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if err := o.s.failed(); err != nil {
		return 0, err
	}
	var n int64
	for _, x := range o.s.orders {
		for _, it := range x.Items {
			if p, ok := o.s.products[it.ProductID]; ok && p.SellerID == sellerID {
				n++
				break
			}
		}
	}
	return n, nil
}

// ---------- helpers ----------

// named 与 gorm 仓储一致：只带出卖家名与分类名
func (s *Store) named(p domain.Product) domain.Product {
	if u, ok := s.profiles[p.SellerID]; ok {
		p.SellerName = u.FullName
	}
	if p.CategoryID != nil {
		if c, ok := s.categories[*p.CategoryID]; ok {
			p.CategoryName = c.Name
		}
	}
	return p
}

func cloneProduct(p domain.Product) domain.Product {
	if p.Images != nil {
		p.Images = append([]string(nil), p.Images...)
	}
	if p.EcoRating != nil {
		v := *p.EcoRating
		p.EcoRating = &v
	}
	if p.RejectionReason != nil {
		v := *p.RejectionReason
		p.RejectionReason = &v
	}
	return p
}

func hasStatus(ss []domain.ProductStatus, s domain.ProductStatus) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func deref(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func page[T any](in []T, offset, limit int) []T {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
