package service

import (
	"fmt"
	"time"

	"github.com/taskMaster/backend/internal/model"
	"gorm.io/gorm"
)

type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

func (s *TaskService) Create(projectID uint, sectionID, parentTaskID *uint, title, description, priority string, dueAt *time.Time, creatorID uint) (*model.Task, error) {
	if sectionID != nil {
		var count int64
		s.db.Model(&model.Section{}).Where("id = ? AND project_id = ?", *sectionID, projectID).Count(&count)
		if count == 0 {
			return nil, fmt.Errorf("40002:section_id 必须属于该项目")
		}
	}
	if parentTaskID != nil {
		var count int64
		s.db.Model(&model.Task{}).Where("id = ? AND project_id = ?", *parentTaskID, projectID).Count(&count)
		if count == 0 {
			return nil, fmt.Errorf("40002:parent_task_id 必须属于该项目")
		}
	}
	if priority == "" {
		priority = "normal"
	}

	task := &model.Task{
		ProjectID:    projectID,
		SectionID:    sectionID,
		ParentTaskID: parentTaskID,
		Title:        title,
		Description:  description,
		Status:       "open",
		Priority:     priority,
		DueAt:        dueAt,
		CreatorID:    creatorID,
	}
	if err := s.db.Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) List(projectID uint, sectionID *uint, status, keyword string, page, pageSize int) ([]model.Task, int64, error) {
	query := s.db.Model(&model.Task{}).Where("project_id = ?", projectID)
	if sectionID != nil {
		query = query.Where("section_id = ?", *sectionID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword != "" {
		query = query.Where("title LIKE ?", "%"+keyword+"%")
	}

	var total int64
	query.Count(&total)

	var tasks []model.Task
	if err := query.Preload("Creator").Order("created_at desc").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (s *TaskService) GetByID(id uint) (*model.Task, error) {
	var task model.Task
	if err := s.db.Preload("Creator").Preload("Section").First(&task, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("40403:任务不存在")
		}
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) Update(id uint, updates map[string]interface{}) (*model.Task, error) {
	if err := s.db.Model(&model.Task{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Delete removes the task together with its assignment rows, so no orphaned
// grants survive.
func (s *TaskService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("target_type = ? AND target_id = ?", model.TargetTask, id).
			Delete(&model.Assignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Task{}, id).Error
	})
}
