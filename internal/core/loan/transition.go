package loan

import "vehicle-financing/internal/models"

// TransitionPolicy decides whether a loan may move from one status to another.
type TransitionPolicy func(from, to models.LoanStatus) bool

// Unrestricted allows any status to overwrite any other, including
// reopening a decided application.
func Unrestricted(_, _ models.LoanStatus) bool {
	return true
}

// Strict allows pending → approved | rejected only. Decided applications are
// immutable, but rewriting the current status is accepted so repeated
// reviews stay idempotent.
func Strict(from, to models.LoanStatus) bool {
	if from == to {
		return true
	}
	return from == models.LoanStatusPending && to.Terminal()
}

// PolicyFor returns Strict when strict is set, otherwise Unrestricted.
func PolicyFor(strict bool) TransitionPolicy {
	if strict {
		return Strict
	}
	return Unrestricted
}
