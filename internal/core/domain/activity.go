package domain

import "time"

// Activity actions recorded in the audit log.
const (
	ActionImpersonationStart = "impersonation.start"
	ActionImpersonationStop  = "impersonation.stop"
	ActionRecordCreate       = "record.create"
	ActionRecordUpdate       = "record.update"
	ActionRecordDelete       = "record.delete"
	ActionProfileUpdate      = "profile.update"
	ActionRolePromote        = "role.promote"
	ActionRoleDemote         = "role.demote"
	ActionUserCreate         = "user.create"
	ActionUserUpdate         = "user.update"
	ActionUserDelete         = "user.delete"
	ActionPasswordReset      = "user.password_reset"
)

// ActivityEvent is an audit entry written whenever a principal acts on data
// owned by someone else, or changes an account's role.
type ActivityEvent struct {
	ActorUserID   string    `json:"actor_user_id"`
	SubjectUserID string    `json:"subject_user_id"`
	Action        string    `json:"action"`
	ResourceID    string    `json:"resource_id,omitempty"`
	Impersonated  bool      `json:"impersonated"`
	OccurredAt    time.Time `json:"occurred_at"`
}
