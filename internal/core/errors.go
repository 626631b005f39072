package core

import "errors"

var (
	// ErrInvalidCategoryAssignment is returned when a transaction would be
	// assigned an inactive or unknown category. The transaction is left as is.
	ErrInvalidCategoryAssignment = errors.New("invalid category assignment")

	// ErrCurrencyMismatch is returned by Money arithmetic across currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrCapabilityUnavailable marks a timed out or failing external AI capability.
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrCategorizationFailed is returned when neither rules nor AI produced a category.
	ErrCategorizationFailed = errors.New("categorization failed")

	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryCycle    = errors.New("category tree contains a cycle")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidBudget    = errors.New("invalid budget")
)
