package model

import (
	"time"

	"gorm.io/gorm"
)

type Project struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(128);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	OwnerID     uint           `gorm:"not null;index:idx_project_owner" json:"owner_id"`
	Color       string         `gorm:"type:varchar(16)" json:"color"`
	Status      string         `gorm:"type:varchar(10);default:active;index:idx_project_status" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Owner    *User           `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members  []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
	Sections []Section       `gorm:"foreignKey:ProjectID" json:"sections,omitempty"`
}

func (Project) TableName() string { return "projects" }
