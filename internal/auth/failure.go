package auth

import "fmt"

// FailureReason is a stable numeric code identifying why authentication was
// rejected. Codes are part of the external contract and must not be renumbered.
type FailureReason int

const (
	// ReasonMissingHeader: the session token header was absent or blank.
	ReasonMissingHeader FailureReason = 1000
	// ReasonValidationFailed: the token did not resolve to a live session.
	ReasonValidationFailed FailureReason = 1001
	// ReasonInternalInconsistency: the session resolved but its account or
	// client reference is dangling. Signals store corruption.
	ReasonInternalInconsistency FailureReason = 1002
)

// genericMessage is what production callers see regardless of the reason.
const genericMessage = "authentication failed"

// Failure is a typed authentication rejection. It never carries a stack trace
// and is returned, not thrown, across the gate boundary.
type Failure struct {
	Reason FailureReason
	Detail string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("authentication failure %d: %s", f.Reason, f.Detail)
}

// Message returns the user-visible text: generic in production, diagnostic in
// development. The mode is a process-wide flag, not per-request.
func (f *Failure) Message(production bool) string {
	if production {
		return genericMessage
	}
	return fmt.Sprintf("%s (code %d): %s", genericMessage, f.Reason, f.Detail)
}

func newFailure(reason FailureReason, detail string) *Failure {
	return &Failure{Reason: reason, Detail: detail}
}
