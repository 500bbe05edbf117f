package model

import (
	"time"

	"gorm.io/gorm"
)

type Task struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ProjectID    uint           `gorm:"not null;index:idx_task_project" json:"project_id"`
	SectionID    *uint          `gorm:"index:idx_task_section" json:"section_id"`
	ParentTaskID *uint          `gorm:"index:idx_task_parent" json:"parent_task_id"`
	Title        string         `gorm:"type:varchar(256);not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	Status       string         `gorm:"type:varchar(10);default:open;index:idx_task_status" json:"status"`
	Priority     string         `gorm:"type:varchar(10);default:normal" json:"priority"`
	DueAt        *time.Time     `json:"due_at"`
	CreatorID    uint           `gorm:"not null;index:idx_task_creator" json:"creator_id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Project  *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Section  *Section `gorm:"foreignKey:SectionID" json:"section,omitempty"`
	Creator  *User    `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Subtasks []Task   `gorm:"foreignKey:ParentTaskID" json:"subtasks,omitempty"`
}

func (Task) TableName() string { return "tasks" }
