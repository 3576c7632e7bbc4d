package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"eco-haat/internal/domain"
)

// Models 参与 AutoMigrate 的全部表
func Models() []any {
	return []any{
		&domain.Profile{},
		&domain.Category{},
		&domain.Product{},
		&domain.CartItem{},
		&domain.Order{},
		&domain.OrderItem{},
	}
}

func AutoMigrate(db *gorm.DB) error { return db.AutoMigrate(Models()...) }

// wrap 统一驱动错误：未找到 → ErrNotFound，唯一冲突 → ErrDuplicate，其余 → ErrUpstream
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case isDupKey(err):
		return domain.ErrDuplicate
	}
	return domain.Upstream(op, err)
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// contains 小写 + 转义后的 %s% 模式，配合 LOWER(col) LIKE ?
func contains(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}
