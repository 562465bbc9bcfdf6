package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanStatus(t *testing.T) {
	t.Parallel()

	assert.True(t, LoanStatusMaintenance.Valid())
	assert.True(t, LoanStatusOnLoan.Valid())
	assert.True(t, LoanStatusAvailable.Valid())
	assert.True(t, LoanStatusReserved.Valid())
	assert.False(t, LoanStatus("x").Valid())

	assert.Equal(t, "On loan", LoanStatusOnLoan.Label())
	assert.Equal(t, "Maintenance", LoanStatusMaintenance.Label())
	assert.Equal(t, "x", LoanStatus("x").Label())
}

func TestBookInstance_IsOverdue(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, time.October, 19, 15, 30, 0, 0, time.UTC)
	yesterday := time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC)
	midnight := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	tomorrow := time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		dueBack *time.Time
		overdue bool
	}{
		{"no due date", nil, false},
		{"due yesterday", &yesterday, true},
		{"due today", &midnight, false},
		{"due tomorrow", &tomorrow, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(tt *testing.T) {
			bi := &BookInstance{DueBack: tc.dueBack}
			assert.Equal(tt, tc.overdue, bi.IsOverdue(today))
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2026-11-09")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.November, 9, 0, 0, 0, 0, time.UTC), d)
	assert.Equal(t, "2026-11-09", FormatDate(&d))
	assert.Empty(t, FormatDate(nil))

	_, err = ParseDate("09/11/2026")
	assert.Error(t, err)

	optional, err := ParseOptionalDate("")
	require.NoError(t, err)
	assert.Nil(t, optional)
}

func TestUser_NilSafe(t *testing.T) {
	t.Parallel()

	var u *User
	assert.False(t, u.IsAuthenticated())
	assert.False(t, u.HasPermission(ResourceLoans, OperationMarkReturned))
	assert.Empty(t, u.Permissions())

	u = &User{
		ID:       1,
		IsActive: true,
		Role: &Role{Permissions: []*Permission{
			{Resource: ResourceLoans, Operation: OperationMarkReturned},
		}},
	}
	assert.True(t, u.IsAuthenticated())
	assert.True(t, u.HasPermission(ResourceLoans, OperationMarkReturned))
	assert.Equal(t, []string{"loans:can_mark_returned"}, u.Permissions())

	u.IsActive = false
	assert.False(t, u.IsAuthenticated())
}

func TestAuthor_DisplayName(t *testing.T) {
	t.Parallel()

	a := &Author{FirstName: "Ursula", LastName: "Le Guin"}
	assert.Equal(t, "Le Guin, Ursula", a.DisplayName())
}
