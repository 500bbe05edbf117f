package service

import (
	"log"

	"github.com/taskMaster/backend/internal/model"
	"gorm.io/gorm"
)

type ActivityService struct {
	db *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{db: db}
}

// Log records an activity entry. Recording is best-effort: a failed write is
// logged and never fails the operation that triggered it.
func (s *ActivityService) Log(entry *model.OperationLog) {
	if err := s.db.Create(entry).Error; err != nil {
		log.Printf("activity: record %s %s/%d failed: %v", entry.Action, entry.ResourceType, entry.ResourceID, err)
	}
}

// logTx records an activity entry inside an existing transaction, so the
// entry commits or rolls back together with the mutation it describes.
func logTx(tx *gorm.DB, entry *model.OperationLog) {
	if err := tx.Create(entry).Error; err != nil {
		log.Printf("activity: record %s %s/%d failed: %v", entry.Action, entry.ResourceType, entry.ResourceID, err)
	}
}

func (s *ActivityService) List(projectID, userID *uint, action, resourceType string, page, pageSize int) ([]model.OperationLog, int64, error) {
	query := s.db.Model(&model.OperationLog{}).Preload("User")
	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if resourceType != "" {
		query = query.Where("resource_type = ?", resourceType)
	}

	var total int64
	query.Count(&total)

	var logs []model.OperationLog
	if err := query.Order("created_at desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
