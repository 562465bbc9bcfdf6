package loans

import (
	"time"

	"github.com/shishobooks/locallibrary/pkg/models"
)

type RenewPayload struct {
	RenewalDate string `json:"renewal_date" form:"renewal_date" validate:"required,date"`
}

type LoanOutPayload struct {
	BorrowerID int    `json:"borrower_id" form:"borrower_id" validate:"required,min=1"`
	DueBack    string `json:"due_back,omitempty" form:"due_back" validate:"omitempty,date"`
}

type SetStatusPayload struct {
	Status string `json:"status" form:"status" validate:"required,loan_status"`
}

type RenewalProposal struct {
	Instance            *models.BookInstance `json:"instance"`
	ProposedRenewalDate string               `json:"proposed_renewal_date"`
	MaxRenewalDate      string               `json:"max_renewal_date"`
}

func newRenewalProposal(instance *models.BookInstance, proposed, today time.Time) RenewalProposal {
	return RenewalProposal{
		Instance:            instance,
		ProposedRenewalDate: proposed.Format(models.DateLayout),
		MaxRenewalDate:      today.AddDate(0, 0, 7*MaxRenewalWeeks).Format(models.DateLayout),
	}
}
