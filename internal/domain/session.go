package domain

// SessionConfig carries the mutable per-session settings. The control loop
// holds it by pointer so the user can flip the approval policy mid-session
// from the continuation prompt.
type SessionConfig struct {
	RequireApproval bool
}

// ToggleApproval flips the interactive-approval policy and returns the new
// state.
func (c *SessionConfig) ToggleApproval() bool {
	c.RequireApproval = !c.RequireApproval
	return c.RequireApproval
}
