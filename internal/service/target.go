package service

import (
	"fmt"

	"github.com/taskMaster/backend/internal/model"
	"gorm.io/gorm"
)

// ownerProjectOf resolves the project that owns an assignment target. This is
// the single place PROJECT/SECTION/TASK dispatch happens; everything else
// works off the returned project id.
func ownerProjectOf(db *gorm.DB, targetType string, targetID uint) (uint, error) {
	switch targetType {
	case model.TargetProject:
		var project model.Project
		if err := db.Select("id").First(&project, targetID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return 0, fmt.Errorf("40402:项目不存在")
			}
			return 0, err
		}
		return project.ID, nil
	case model.TargetSection:
		var section model.Section
		if err := db.Select("id, project_id").First(&section, targetID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return 0, fmt.Errorf("40403:分组不存在")
			}
			return 0, err
		}
		return section.ProjectID, nil
	case model.TargetTask:
		var task model.Task
		if err := db.Select("id, project_id").First(&task, targetID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return 0, fmt.Errorf("40403:任务不存在")
			}
			return 0, err
		}
		return task.ProjectID, nil
	default:
		return 0, fmt.Errorf("40002:无效的目标类型: %s", targetType)
	}
}

// targetDisplayName looks up the human-readable name of a target for
// invitation mail and activity descriptions. Best-effort: a missing row
// yields an empty string, never an error.
func targetDisplayName(db *gorm.DB, targetType string, targetID uint) string {
	switch targetType {
	case model.TargetProject:
		var project model.Project
		if err := db.Select("name").First(&project, targetID).Error; err != nil {
			return ""
		}
		return project.Name
	case model.TargetSection:
		var section model.Section
		if err := db.Select("name").First(&section, targetID).Error; err != nil {
			return ""
		}
		return section.Name
	case model.TargetTask:
		var task model.Task
		if err := db.Select("title").First(&task, targetID).Error; err != nil {
			return ""
		}
		return task.Title
	default:
		return ""
	}
}

func projectDisplayName(db *gorm.DB, projectID uint) string {
	var project model.Project
	if err := db.Select("name").First(&project, projectID).Error; err != nil {
		return ""
	}
	return project.Name
}
