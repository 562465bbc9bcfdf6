package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/shishobooks/locallibrary/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceAuthenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	svc := NewService(db, "test-jwt-secret")

	librarian := testutils.CreateUser(t, db, "Librarian", models.RoleLibrarian)

	user, err := svc.Authenticate(ctx, "librarian", testutils.Password)
	require.NoError(t, err)
	assert.Equal(t, librarian.ID, user.ID)
	assert.True(t, user.HasPermission(models.ResourceLoans, models.OperationMarkReturned))

	_, err = svc.Authenticate(ctx, "librarian", "wrong-password")
	assert.True(t, errcodes.HasCode(err, "authentication_required"), err)

	_, err = svc.Authenticate(ctx, "nobody", testutils.Password)
	assert.True(t, errcodes.HasCode(err, "authentication_required"), err)

	_, err = db.NewUpdate().Model(librarian).Set("is_active = ?", false).WherePK().Exec(ctx)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "librarian", testutils.Password)
	assert.True(t, errcodes.HasCode(err, "authentication_required"), err)
}

func TestServiceTokens(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	svc := NewService(db, "test-jwt-secret")
	member := testutils.CreateUser(t, db, "member", models.RoleMember)

	token, err := svc.GenerateToken(member)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, member.ID, claims.UserID)
	assert.Equal(t, "member", claims.Username)
	assert.Equal(t, models.RoleMember, claims.Role)
	assert.Equal(t, TokenIssuer, claims.Issuer)

	_, err = NewService(db, "another-secret").ValidateToken(token)
	assert.Error(t, err)

	now := time.Now()
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		UserID: member.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	signed, err := foreign.SignedString([]byte("test-jwt-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		UserID: member.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	})
	signed, err = expired.SignedString([]byte("test-jwt-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.Error(t, err)
}

func TestServiceCreateFirstAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewDB(t)
	svc := NewService(db, "test-jwt-secret")

	admin, err := svc.CreateFirstAdmin(ctx, "admin", nil, "securepassword123")
	require.NoError(t, err)
	require.NotNil(t, admin.Role)
	assert.Equal(t, models.RoleAdmin, admin.Role.Name)
	assert.True(t, admin.HasPermission(models.ResourceUsers, models.OperationWrite))

	_, err = svc.CreateFirstAdmin(ctx, "second", nil, "securepassword123")
	assert.True(t, errcodes.HasCode(err, "forbidden"), err)

	count, err := svc.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
