package loans

import (
	"time"

	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
)

const (
	// MaxRenewalWeeks bounds how far ahead a due date may be set.
	MaxRenewalWeeks = 4
	// DefaultLoanDays is both the suggested renewal period and the default
	// length of a new loan.
	DefaultLoanDays = 21
)

const (
	reasonRenewalInPast   = "Invalid date - renewal in past"
	reasonRenewalTooLate  = "Invalid date - renewal more than 4 weeks ahead"
	renewalDateField      = "renewal_date"
	dueBackField          = "due_back"
	statusField           = "status"
	markReturnedForbidden = "You don't have permission to manage loans."
)

// transitions lists the statuses each status may move to through SetStatus
// or LoanOut. Leaving On loan only happens through MarkReturned.
var transitions = map[models.LoanStatus][]models.LoanStatus{
	models.LoanStatusMaintenance: {models.LoanStatusAvailable},
	models.LoanStatusAvailable:   {models.LoanStatusMaintenance, models.LoanStatusReserved, models.LoanStatusOnLoan},
	models.LoanStatusReserved:    {models.LoanStatusMaintenance, models.LoanStatusAvailable, models.LoanStatusOnLoan},
	models.LoanStatusOnLoan:      {},
}

// CanTransition reports whether a copy may move from one status to another.
func CanTransition(from, to models.LoanStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsOverdue reports whether the copy's due date is strictly before today.
func IsOverdue(instance *models.BookInstance, today time.Time) bool {
	return instance.IsOverdue(today)
}

// ProposedRenewalDate is the date a renewal form starts with. It is only a
// suggestion; any date ValidateRenewalDate accepts can be saved.
func ProposedRenewalDate(today time.Time) time.Time {
	return models.DateOf(today).AddDate(0, 0, DefaultLoanDays)
}

// ValidateRenewalDate rejects dates before today and dates more than four
// weeks after it. Today and today + 4 weeks are both accepted.
func ValidateRenewalDate(date, today time.Time) error {
	return validateDueDate(renewalDateField, date, today)
}

func validateDueDate(field string, date, today time.Time) error {
	date = models.DateOf(date)
	today = models.DateOf(today)

	if date.Before(today) {
		return errcodes.FieldValidationError(field, reasonRenewalInPast)
	}
	if date.After(today.AddDate(0, 0, 7*MaxRenewalWeeks)) {
		return errcodes.FieldValidationError(field, reasonRenewalTooLate)
	}
	return nil
}
