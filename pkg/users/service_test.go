package users

import (
	"context"
	"testing"

	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/shishobooks/locallibrary/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func getRoleIDByName(ctx context.Context, t *testing.T, db *bun.DB, roleName string) int {
	t.Helper()

	role := new(models.Role)
	err := db.NewSelect().
		Model(role).
		Where("name = ?", roleName).
		Scan(ctx)
	require.NoError(t, err)

	return role.ID
}

func TestServiceCreate_LoadsRolePermissions(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserOptions{
		Username: "librarian",
		Password: "password123",
		RoleID:   getRoleIDByName(ctx, t, db, models.RoleLibrarian),
	})
	require.NoError(t, err)

	assert.True(t, user.IsActive)
	assert.True(t, user.HasPermission(models.ResourceLoans, models.OperationMarkReturned))
	assert.False(t, user.HasPermission(models.ResourceUsers, models.OperationWrite))
}

func TestServiceCreate_RejectsDuplicateUsername(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()
	roleID := getRoleIDByName(ctx, t, db, models.RoleMember)

	_, err := svc.Create(ctx, CreateUserOptions{Username: "reader", Password: "password123", RoleID: roleID})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateUserOptions{Username: "READER", Password: "password123", RoleID: roleID})
	assert.True(t, errcodes.HasCode(err, "constraint_violation"))
}

func TestServiceCreate_RejectsUnknownRole(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	svc := NewService(db)

	_, err := svc.Create(context.Background(), CreateUserOptions{Username: "reader", Password: "password123", RoleID: 9999})
	var codeErr *errcodes.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, "role_id", codeErr.Field)
}

func TestServiceResetPassword(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()

	user := testutils.CreateUser(t, db, "reader", models.RoleMember)

	err := svc.ResetPassword(ctx, user.ID, "newpassword123")
	require.NoError(t, err)

	valid, err := svc.VerifyPassword(ctx, user.ID, "newpassword123")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = svc.VerifyPassword(ctx, user.ID, testutils.Password)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestServiceList_ActiveOnly(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()

	active := testutils.CreateUser(t, db, "active", models.RoleMember)
	inactive := testutils.CreateUser(t, db, "inactive", models.RoleMember)
	require.NoError(t, svc.Deactivate(ctx, inactive.ID))

	users, total, err := svc.List(ctx, ListOptions{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, active.ID, users[0].ID)

	users, total, err = svc.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 2, total)
}

func TestServiceDeactivate_UnknownUser(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	err := NewService(db).Deactivate(context.Background(), 4242)
	assert.True(t, errcodes.HasCode(err, "not_found"))
}

func TestServiceRetrieve_NotFound(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	_, err := NewService(db).Retrieve(context.Background(), 4242)
	assert.True(t, errcodes.HasCode(err, "not_found"))
}

func TestServiceDeactivate_RefusesWhileBorrowing(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()

	member := testutils.CreateUser(t, db, "reader", models.RoleMember)
	author := testutils.CreateAuthor(t, db, "Ben", "Bova")
	book := testutils.CreateBook(t, db, author, "Death Wave", "9780765379504")
	instance := testutils.CreateInstance(t, db, book, testutils.OnLoanTo(member, testutils.Date(2026, 11, 2)))

	err := svc.Deactivate(ctx, member.ID)
	assert.True(t, errcodes.HasCode(err, "constraint_violation"), err)

	member.IsActive = false
	err = svc.Update(ctx, member, UpdateOptions{Columns: []string{"is_active"}})
	assert.True(t, errcodes.HasCode(err, "constraint_violation"), err)

	_, err = db.NewUpdate().
		Model(instance).
		Set("status = ?", models.LoanStatusAvailable).
		Set("borrower_id = NULL").
		Set("due_back = NULL").
		WherePK().
		Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, member.ID))
	user, err := svc.Retrieve(ctx, member.ID)
	require.NoError(t, err)
	assert.False(t, user.IsActive)
}

func TestServiceList_Borrowing(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()

	borrower := testutils.CreateUser(t, db, "borrower", models.RoleMember)
	testutils.CreateUser(t, db, "browser", models.RoleMember)
	author := testutils.CreateAuthor(t, db, "Ben", "Bova")
	book := testutils.CreateBook(t, db, author, "Death Wave", "9780765379504")
	testutils.CreateInstance(t, db, book, testutils.OnLoanTo(borrower, testutils.Date(2026, 11, 2)))
	testutils.CreateInstance(t, db, book, testutils.OnLoanTo(borrower, testutils.Date(2026, 11, 9)))
	testutils.CreateInstance(t, db, book, testutils.WithStatus(models.LoanStatusAvailable))

	users, total, err := svc.List(ctx, ListOptions{Borrowing: true})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, borrower.ID, users[0].ID)
	assert.Equal(t, 2, users[0].LoanCount)

	user, err := svc.Retrieve(ctx, borrower.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, user.LoanCount)
	require.NotNil(t, user.Role)
}

func TestServiceList_SearchEscapesWildcards(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()

	testutils.CreateUser(t, db, "ann_lee", models.RoleMember)
	testutils.CreateUser(t, db, "annxlee", models.RoleMember)

	search := "n_l"
	users, total, err := svc.List(ctx, ListOptions{Search: &search})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "ann_lee", users[0].Username)
}

func TestServiceUpdate_RejectsTakenUsername(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	svc := NewService(db)
	ctx := context.Background()

	testutils.CreateUser(t, db, "first", models.RoleMember)
	second := testutils.CreateUser(t, db, "second", models.RoleMember)

	second.Username = "FIRST"
	err := svc.Update(ctx, second, UpdateOptions{Columns: []string{"username"}})
	assert.True(t, errcodes.HasCode(err, "constraint_violation"), err)

	second.Username = "second"
	require.NoError(t, svc.Update(ctx, second, UpdateOptions{Columns: []string{"username"}}))
}
