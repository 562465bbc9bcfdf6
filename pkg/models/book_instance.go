package models

import (
	"time"

	"github.com/uptrace/bun"
)

const MaxImprintLength = 200

// LoanStatus is the availability state of a single copy. The values are the
// one-letter codes stored in book_instances.status.
type LoanStatus string

const (
	LoanStatusMaintenance LoanStatus = "m"
	LoanStatusOnLoan      LoanStatus = "o"
	LoanStatusAvailable   LoanStatus = "a"
	LoanStatusReserved    LoanStatus = "r"
)

var loanStatusLabels = map[LoanStatus]string{
	LoanStatusMaintenance: "Maintenance",
	LoanStatusOnLoan:      "On loan",
	LoanStatusAvailable:   "Available",
	LoanStatusReserved:    "Reserved",
}

// Valid reports whether s is one of the four known statuses.
func (s LoanStatus) Valid() bool {
	_, ok := loanStatusLabels[s]
	return ok
}

// Label is the human readable name of the status.
func (s LoanStatus) Label() string {
	if label, ok := loanStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

type BookInstance struct {
	bun.BaseModel `bun:"table:book_instances,alias:bi"`

	ID         string     `bun:",pk" json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	BookID     int        `bun:",nullzero" json:"book_id"`
	Book       *Book      `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	Imprint    string     `bun:",notnull" json:"imprint"`
	DueBack    *time.Time `json:"due_back"`
	BorrowerID *int       `json:"borrower_id"`
	Borrower   *User      `bun:"rel:belongs-to,join:borrower_id=id" json:"borrower,omitempty"`
	Status     LoanStatus `bun:",notnull" json:"status"`
}

// IsOverdue reports whether the copy has a due date strictly before today.
// Copies that are not on loan have no due date and are never overdue.
func (bi *BookInstance) IsOverdue(today time.Time) bool {
	if bi.DueBack == nil {
		return false
	}
	return DateOf(*bi.DueBack).Before(DateOf(today))
}

func (bi *BookInstance) String() string {
	if bi.Book != nil {
		return bi.ID + " (" + bi.Book.Title + ")"
	}
	return bi.ID
}
