package repo

import (
	"context"

	"gorm.io/gorm"

	"eco-haat/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, p *domain.Profile) error {
	return wrap("create profile", r.db.WithContext(ctx).Create(p).Error)
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	var p domain.Profile
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, wrap("find profile", err)
	}
	return &p, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	var p domain.Profile
	if err := r.db.WithContext(ctx).First(&p, "email = ?", email).Error; err != nil {
		return nil, wrap("find profile", err)
	}
	return &p, nil
}

func (r *UserRepo) List(ctx context.Context, q domain.UserQuery) ([]domain.Profile, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Profile{})
	if q.Role != "" {
		tx = tx.Where("role = ?", q.Role)
	}
	if q.Search != "" {
		like := contains(q.Search)
		tx = tx.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, wrap("count profiles", err)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit).Offset(q.Offset)
	}
	var out []domain.Profile
	if err := tx.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, 0, wrap("list profiles", err)
	}
	return out, total, nil
}

func (r *UserRepo) Update(ctx context.Context, id string, patch domain.ProfilePatch) error {
	cols := map[string]any{}
	if patch.FullName != nil {
		cols["full_name"] = *patch.FullName
	}
	if patch.Phone != nil {
		cols["phone"] = *patch.Phone
	}
	if patch.Address != nil {
		cols["address"] = *patch.Address
	}
	if len(cols) == 0 {
		_, err := r.FindByID(ctx, id)
		return err
	}
	return r.updates(ctx, "update profile", id, cols)
}

func (r *UserRepo) SetRole(ctx context.Context, id string, role domain.Role) error {
	return r.updates(ctx, "set role", id, map[string]any{"role": role})
}

func (r *UserRepo) updates(ctx context.Context, op, id string, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&domain.Profile{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return wrap(op, res.Error)
	}
	if res.RowsAffected == 0 {
		// MySQL 对值未变化的行返回 0，再查一次区分不存在
		_, err := r.FindByID(ctx, id)
		return err
	}
	return nil
}

func (r *UserRepo) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Profile{})
	if role != "" {
		tx = tx.Where("role = ?", role)
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, wrap("count profiles", err)
	}
	return n, nil
}
