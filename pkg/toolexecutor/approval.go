package toolexecutor

import "context"

// Decision is the outcome of an approval request for one tool call
type Decision int

const (
	// Deny refuses the call and terminates the whole batch
	Deny Decision = iota
	// Approve permits this call only
	Approve
	// ApproveSession permits this call and pre-approves the tool for the
	// remainder of the session
	ApproveSession
)

// ApprovalFunc is asked before every call to a tool that requires approval
// and is not already session-approved. A nil ApprovalFunc auto-denies.
type ApprovalFunc func(ctx context.Context, tool string, args map[string]interface{}) Decision

// SessionApprovals tracks tools pre-approved for the rest of the session.
// It is owned by a single session and mutated only between batches, so no
// locking is needed.
type SessionApprovals struct {
	approved map[string]bool
}

// NewSessionApprovals creates an empty approval set
func NewSessionApprovals() *SessionApprovals {
	return &SessionApprovals{approved: make(map[string]bool)}
}

// IsApproved reports whether the tool was pre-approved earlier in the session
func (s *SessionApprovals) IsApproved(tool string) bool {
	if s == nil {
		return false
	}
	return s.approved[tool]
}

// Grant pre-approves a tool for the remainder of the session
func (s *SessionApprovals) Grant(tool string) {
	if s == nil {
		return
	}
	s.approved[tool] = true
}
