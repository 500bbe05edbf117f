package model

import (
	"fmt"
	"time"
)

// Target kinds an assignment can grant access to.
const (
	TargetProject = "PROJECT"
	TargetSection = "SECTION"
	TargetTask    = "TASK"
)

func IsValidTargetType(t string) bool {
	switch t {
	case TargetProject, TargetSection, TargetTask:
		return true
	default:
		return false
	}
}

// Assignment statuses. PENDING rows are email invitations without a bound
// account; all other statuses are terminal for the row.
const (
	AssignmentPending   = "PENDING"
	AssignmentActive    = "ACTIVE"
	AssignmentExpired   = "EXPIRED"
	AssignmentCancelled = "CANCELLED"
)

// Advisory assignment roles. Only checked at the PROJECT level, where
// COLLABORATOR unlocks edit/create capabilities.
const (
	AssignmentRoleCollaborator = "COLLABORATOR"
	AssignmentRoleMember       = "MEMBER"
)

// Assignment is the unified grant record: exactly one of UserID/Email is set.
// UserID rows are concrete grants; Email rows are pending invitations that an
// accept materializes into a concrete grant.
type Assignment struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TargetType string     `gorm:"type:varchar(10);not null;index:idx_assignment_target,priority:1" json:"target_type"`
	TargetID   uint       `gorm:"not null;index:idx_assignment_target,priority:2" json:"target_id"`
	UserID     *uint      `gorm:"index:idx_assignment_user" json:"user_id,omitempty"`
	Email      *string    `gorm:"type:varchar(128);index:idx_assignment_email" json:"email,omitempty"`
	AssignedBy uint       `gorm:"not null" json:"assigned_by"`
	Role       string     `gorm:"type:varchar(16);not null" json:"role"`
	Status     string     `gorm:"type:varchar(10);not null;index:idx_assignment_status" json:"status"`
	Message    string     `gorm:"type:text" json:"message,omitempty"`
	Token      string     `gorm:"type:varchar(64);index:idx_assignment_token" json:"-"`
	AssignedAt time.Time  `gorm:"autoCreateTime" json:"assigned_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`

	// DedupeKey is non-null only while the row is PENDING or ACTIVE; the
	// unique index on it is what makes duplicate grants and double task
	// assignees impossible under concurrent requests.
	DedupeKey *string `gorm:"type:varchar(191);uniqueIndex:uk_dedupe_key" json:"-"`

	User     *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Assigner *User `gorm:"foreignKey:AssignedBy" json:"assigner,omitempty"`
}

func (Assignment) TableName() string { return "assignments" }

func (a *Assignment) IsTerminal() bool {
	return a.Status == AssignmentActive || a.Status == AssignmentExpired || a.Status == AssignmentCancelled
}

// IsExpired reports whether a PENDING row is past its deadline. Terminal rows
// never expire retroactively.
func (a *Assignment) IsExpired(now time.Time) bool {
	return a.Status == AssignmentPending && a.ExpiresAt != nil && a.ExpiresAt.Before(now)
}

// ActiveDedupeKey builds the uniqueness key for a concrete ACTIVE grant. Task
// keys deliberately omit the user so the index itself enforces the
// single-assignee rule.
func ActiveDedupeKey(targetType string, targetID, userID uint) string {
	if targetType == TargetTask {
		return fmt.Sprintf("task-active:%d", targetID)
	}
	return fmt.Sprintf("active:%s:%d:u%d", targetType, targetID, userID)
}

// PendingDedupeKey builds the uniqueness key for a PENDING email invitation.
func PendingDedupeKey(targetType string, targetID uint, email string) string {
	return fmt.Sprintf("pending:%s:%d:%s", targetType, targetID, email)
}
