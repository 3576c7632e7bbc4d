package repo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"eco-haat/internal/domain"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, wrap("op", nil))
	assert.ErrorIs(t, wrap("op", gorm.ErrRecordNotFound), domain.ErrNotFound)
	assert.ErrorIs(t, wrap("op", fmt.Errorf("x: %w", gorm.ErrRecordNotFound)), domain.ErrNotFound)
	assert.ErrorIs(t, wrap("op", gorm.ErrDuplicatedKey), domain.ErrDuplicate)
	assert.ErrorIs(t, wrap("op", errors.New(`ERROR: duplicate key value violates unique constraint "idx_profiles_email"`)), domain.ErrDuplicate)
	assert.ErrorIs(t, wrap("op", errors.New("Error 1062 (23000): Duplicate entry 'a@b' for key 'email'")), domain.ErrDuplicate)

	raw := errors.New("dial tcp: connection refused")
	err := wrap("list products", raw)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.ErrorIs(t, err, raw)
	assert.Contains(t, err.Error(), "list products")
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%bamboo%", contains("  Bamboo "))
	assert.Equal(t, `%50\%\_off%`, contains("50%_off"))
	assert.Equal(t, `%a\\b%`, contains(`a\b`))
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "created_at DESC", orderBy(""))
	assert.Equal(t, "created_at DESC", orderBy(domain.SortNewest))
	assert.Equal(t, "price ASC, created_at DESC", orderBy(domain.SortPriceLow))
	assert.Equal(t, "price DESC, created_at DESC", orderBy(domain.SortPriceHigh))
	assert.Equal(t, "eco_rating DESC, created_at DESC", orderBy(domain.SortEcoRating))
}

func TestModelsCoverEveryTable(t *testing.T) {
	names := map[string]bool{}
	for _, m := range Models() {
		if tn, ok := m.(interface{ TableName() string }); ok {
			names[tn.TableName()] = true
		}
	}
	for _, want := range []string{"profiles", "categories", "products", "cart_items", "orders", "order_items"} {
		assert.True(t, names[want], want)
	}
}
