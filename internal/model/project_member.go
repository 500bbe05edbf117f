package model

import "time"

// Membership roles. The project owner never appears as a member row; the
// access resolver treats the owner as an implicit OWNER.
const (
	MemberRoleOwner  = "OWNER"
	MemberRoleMember = "MEMBER"
	MemberRoleViewer = "VIEWER"
)

func IsValidMemberRole(role string) bool {
	switch role {
	case MemberRoleOwner, MemberRoleMember, MemberRoleViewer:
		return true
	default:
		return false
	}
}

type ProjectMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;uniqueIndex:uk_project_user" json:"project_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uk_project_user;index:idx_member_user" json:"user_id"`
	Role      string    `gorm:"type:varchar(10);not null" json:"role"`
	AddedBy   uint      `gorm:"not null" json:"added_by"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ProjectMember) TableName() string { return "project_members" }
