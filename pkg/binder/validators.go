package binder

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shishobooks/locallibrary/pkg/identifiers"
	"github.com/shishobooks/locallibrary/pkg/models"
)

// dateValidator accepts a real calendar date written YYYY-MM-DD, so
// 2026-02-30 fails. The empty string passes; pair it with required when the
// date must be present.
func dateValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.Parse(time.DateOnly, value)
	return err == nil
}

// isbnValidator accepts anything identifiers.CatalogISBN can turn into a 13
// character ISBN. The empty string passes.
func isbnValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, ok := identifiers.CatalogISBN(value)
	return ok
}

// loanStatusValidator accepts the one-letter status codes.
func loanStatusValidator(fl validator.FieldLevel) bool {
	return models.LoanStatus(fl.Field().String()).Valid()
}
