package domain

import (
	"context"
	"time"
)

type Profile struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	FullName     string    `gorm:"size:128" json:"full_name"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	Role         Role      `gorm:"size:16;not null;default:buyer;index" json:"role"`
	Phone        string    `gorm:"size:32" json:"phone,omitempty"`
	Address      string    `gorm:"size:512" json:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

// ProfilePatch nil 字段不更新
type ProfilePatch struct {
	FullName *string
	Phone    *string
	Address  *string
}

type UserQuery struct {
	Role   Role // 空表示全部
	Search string
	Offset int
	Limit  int
}

type UserRepository interface {
	Create(ctx context.Context, p *Profile) error
	FindByID(ctx context.Context, id string) (*Profile, error)
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	List(ctx context.Context, q UserQuery) ([]Profile, int64, error)
	Update(ctx context.Context, id string, patch ProfilePatch) error
	SetRole(ctx context.Context, id string, role Role) error
	CountByRole(ctx context.Context, role Role) (int64, error)
}
