package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eco-haat/internal/domain"
	"eco-haat/internal/domain/domaintest"
	"eco-haat/internal/feature/account"
)

func TestGrantAdmin(t *testing.T) {
	store := domaintest.NewStore()
	users := store.Users()
	ctx := context.Background()
	require.NoError(t, users.Create(ctx, &domain.Profile{ID: "u1", Email: "ops@eco.test", Role: domain.RoleSeller}))
	accounts := account.NewService(users, nil, nil)

	var out bytes.Buffer
	require.NoError(t, grantAdmin(ctx, accounts, "OPS@eco.test", &out))
	assert.Contains(t, out.String(), "ops@eco.test is now admin")
	p, err := users.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, p.Role)

	// 失败必须返回错误，main 据此以非零状态退出
	out.Reset()
	err = grantAdmin(ctx, accounts, "missing@eco.test", &out)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, out.String())

	store.Fail = assert.AnError
	assert.ErrorIs(t, grantAdmin(ctx, accounts, "ops@eco.test", &out), domain.ErrUpstream)
}
