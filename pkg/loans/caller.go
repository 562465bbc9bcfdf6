package loans

import (
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
)

// Caller is whoever is asking for a loan change. *models.User satisfies it,
// and a nil Caller is an anonymous visitor.
type Caller interface {
	IsAuthenticated() bool
	HasPermission(resource, operation string) bool
}

// authorize is the guard every mutation runs first: identity, then the
// can_mark_returned capability.
func authorize(caller Caller) error {
	if caller == nil || !caller.IsAuthenticated() {
		return errcodes.Unauthorized("Authentication required")
	}
	if !caller.HasPermission(models.ResourceLoans, models.OperationMarkReturned) {
		return errcodes.Forbidden(markReturnedForbidden)
	}
	return nil
}
