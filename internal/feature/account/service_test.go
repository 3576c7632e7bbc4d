package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eco-haat/internal/core/auth"
	"eco-haat/internal/domain"
	"eco-haat/internal/domain/domaintest"
)

func newService(t *testing.T) (*Service, *domaintest.Store) {
	t.Helper()
	store := domaintest.NewStore()
	j := &auth.JWTer{Secret: []byte("k"), Issuer: "eco-haat", TTL: time.Hour}
	return NewService(store.Users(), j, nil), store
}

func TestRegisterDefaultsToBuyer(t *testing.T) {
	svc, _ := newService(t)
	p, err := svc.Register(context.Background(), RegisterInput{Email: " Asha@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBuyer, p.Role)
	assert.Equal(t, "asha@example.com", p.Email)
	assert.Equal(t, "asha", p.FullName)
	assert.NotEqual(t, "secret1", p.PasswordHash)
}

func TestRegisterRoles(t *testing.T) {
	svc, _ := newService(t)
	p, err := svc.Register(context.Background(), RegisterInput{Email: "s@x.io", Password: "secret1", Role: "Seller"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSeller, p.Role)

	_, err = svc.Register(context.Background(), RegisterInput{Email: "a@x.io", Password: "secret1", Role: "admin"})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "role", ve.Field)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	cases := map[string]RegisterInput{
		"email":    {Email: "not-an-email", Password: "secret1"},
		"password": {Email: "a@x.io", Password: "123"},
	}
	for field, in := range cases {
		_, err := svc.Register(ctx, in)
		var ve *domain.ValidationError
		if assert.True(t, errors.As(err, &ve), field) {
			assert.Equal(t, field, ve.Field)
		}
	}

	_, err := svc.Register(ctx, RegisterInput{Email: "dup@x.io", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Email: "DUP@x.io", Password: "secret2"})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "email", ve.Field)
}

func TestLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Email: "b@x.io", Password: "secret1", FullName: "<b>Bina</b>"})
	require.NoError(t, err)

	res, err := svc.Login(ctx, Credentials{Email: "B@x.io", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "Bina", res.Profile.FullName)

	claims, err := svc.jwt.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Profile.ID, claims.UID)

	_, err = svc.Login(ctx, Credentials{Email: "b@x.io", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = svc.Login(ctx, Credentials{Email: "nobody@x.io", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestMeAndUpdateProfile(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p, err := svc.Register(ctx, RegisterInput{Email: "c@x.io", Password: "secret1"})
	require.NoError(t, err)
	actor := &domain.Session{UserID: p.ID, Role: p.Role}

	_, err = svc.Me(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	phone := " 98765 "
	got, err := svc.UpdateProfile(ctx, actor, ProfileInput{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "98765", got.Phone)
	assert.Equal(t, "c", got.FullName)

	empty := "  "
	_, err = svc.UpdateProfile(ctx, actor, ProfileInput{FullName: &empty})
	assert.True(t, domain.IsValidation(err))

	me, err := svc.Me(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, "98765", me.Phone)
}

func TestListUsers(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for _, in := range []RegisterInput{
		{Email: "b1@x.io", Password: "secret1"},
		{Email: "b2@x.io", Password: "secret1"},
		{Email: "s1@x.io", Password: "secret1", Role: "seller"},
	} {
		_, err := svc.Register(ctx, in)
		require.NoError(t, err)
	}
	admin := &domain.Session{UserID: "root", Role: domain.RoleAdmin}

	page, err := svc.ListUsers(ctx, admin, "", "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	page, err = svc.ListUsers(ctx, admin, "seller", "", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "s1@x.io", page.Items[0].Email)

	page, err = svc.ListUsers(ctx, admin, "", "b2", 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	_, err = svc.ListUsers(ctx, admin, "wizard", "", 1, 10)
	assert.True(t, domain.IsValidation(err))
	_, err = svc.ListUsers(ctx, &domain.Session{UserID: "s", Role: domain.RoleSeller}, "", "", 1, 10)
	assert.ErrorIs(t, err, domain.ErrPermission)
}

func TestGrantRole(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	p, err := svc.Register(ctx, RegisterInput{Email: "ops@x.io", Password: "secret1"})
	require.NoError(t, err)

	got, err := svc.GrantRole(ctx, "OPS@x.io", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)

	stored, err := store.Users().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, stored.Role)

	_, err = svc.GrantRole(ctx, "missing@x.io", domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GrantRole(ctx, "ops@x.io", domain.Role("root"))
	assert.True(t, domain.IsValidation(err))
}
