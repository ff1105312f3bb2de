package domain

// Verdict is the outcome of classifying a (command, args) pair against the
// safety policy.
type Verdict struct {
	Allowed bool
	Reason  string
}

// Allow builds a passing verdict.
func Allow() Verdict {
	return Verdict{Allowed: true, Reason: "Command is safe"}
}

// Deny builds a failing verdict carrying the rejection reason.
func Deny(reason string) Verdict {
	return Verdict{Allowed: false, Reason: reason}
}
