package model

import (
	"time"

	"gorm.io/gorm"
)

type Section struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ProjectID uint           `gorm:"not null;index:idx_section_project" json:"project_id"`
	Name      string         `gorm:"type:varchar(128);not null" json:"name"`
	Position  int            `gorm:"default:0" json:"position"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Tasks   []Task   `gorm:"foreignKey:SectionID" json:"tasks,omitempty"`
}

func (Section) TableName() string { return "sections" }
