package service

import (
	"fmt"

	"github.com/taskMaster/backend/internal/model"
	"gorm.io/gorm"
)

type SectionService struct {
	db *gorm.DB
}

func NewSectionService(db *gorm.DB) *SectionService {
	return &SectionService{db: db}
}

func (s *SectionService) Create(projectID uint, name string) (*model.Section, error) {
	var maxPos int
	s.db.Model(&model.Section{}).Where("project_id = ?", projectID).
		Select("COALESCE(MAX(position), -1)").Scan(&maxPos)

	section := &model.Section{
		ProjectID: projectID,
		Name:      name,
		Position:  maxPos + 1,
	}
	if err := s.db.Create(section).Error; err != nil {
		return nil, err
	}
	return section, nil
}

func (s *SectionService) List(projectID uint) ([]model.Section, error) {
	var sections []model.Section
	if err := s.db.Where("project_id = ?", projectID).Order("position asc").Find(&sections).Error; err != nil {
		return nil, err
	}
	return sections, nil
}

func (s *SectionService) GetByID(id uint) (*model.Section, error) {
	var section model.Section
	if err := s.db.First(&section, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("40403:分组不存在")
		}
		return nil, err
	}
	return &section, nil
}

func (s *SectionService) Update(id uint, updates map[string]interface{}) (*model.Section, error) {
	if err := s.db.Model(&model.Section{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *SectionService) Delete(id uint) error {
	return s.db.Delete(&model.Section{}, id).Error
}
