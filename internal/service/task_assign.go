package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskMaster/backend/internal/model"
	"github.com/taskMaster/backend/internal/notify"
	"github.com/taskMaster/backend/internal/sse"
	"gorm.io/gorm"
)

// TaskAssignService enforces the single-assignee rule: assigning a task is
// always a replace (delete every existing row, insert one), never an insert
// alongside.
type TaskAssignService struct {
	db       *gorm.DB
	access   *AccessService
	notifier notify.Notifier
	hub      *sse.Hub
}

func NewTaskAssignService(db *gorm.DB, access *AccessService) *TaskAssignService {
	return &TaskAssignService{db: db, access: access}
}

func (s *TaskAssignService) SetNotifier(n notify.Notifier) {
	s.notifier = n
}

func (s *TaskAssignService) SetHub(h *sse.Hub) {
	s.hub = h
}

func (s *TaskAssignService) Assign(actorID, taskID, assigneeID uint) (*model.Assignment, error) {
	var task model.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("40403:任务不存在")
		}
		return nil, err
	}

	access, err := s.access.Resolve(actorID, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if !access.Permissions.AssignTasks {
		return nil, fmt.Errorf("40301:无权指派该任务")
	}

	var assignee model.User
	if err := s.db.First(&assignee, assigneeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("40401:用户不存在: id=%d", assigneeID)
		}
		return nil, err
	}

	created := &model.Assignment{}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		row, err := replaceTaskAssignee(tx, taskID, task.ProjectID, assigneeID, actorID, "")
		if err != nil {
			return err
		}
		*created = *row
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyAssigned(actorID, &task, &assignee, created)
	return created, nil
}

// Unassign removes every assignment row on the task. Idempotent: unassigning
// an unassigned task is an ack, not an error.
func (s *TaskAssignService) Unassign(actorID, taskID uint) error {
	var task model.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("40403:任务不存在")
		}
		return err
	}

	access, err := s.access.Resolve(actorID, task.ProjectID)
	if err != nil {
		return err
	}
	if !access.Permissions.AssignTasks {
		return fmt.Errorf("40301:无权取消指派")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		prevID, prevName := currentAssigneeInfo(tx, taskID)
		if err := tx.Unscoped().
			Where("target_type = ? AND target_id = ?", model.TargetTask, taskID).
			Delete(&model.Assignment{}).Error; err != nil {
			return err
		}
		if prevID != 0 {
			logTx(tx, &model.OperationLog{
				UserID:       actorID,
				Action:       model.ActionUnassigned,
				ResourceType: model.TargetTask,
				ResourceID:   taskID,
				ProjectID:    task.ProjectID,
				Detail:       model.JSONMap{"old_assignee_id": prevID, "old_assignee_name": prevName},
			})
		}
		return nil
	})
}

// CurrentAssignee returns the task's single ACTIVE assignment, or nil.
func (s *TaskAssignService) CurrentAssignee(taskID uint) (*model.Assignment, error) {
	var row model.Assignment
	err := s.db.Preload("User").
		Where("target_type = ? AND target_id = ? AND status = ?", model.TargetTask, taskID, model.AssignmentActive).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// replaceTaskAssignee is the delete-then-insert core shared by direct task
// assignment and batch assignment creation. Runs inside the caller's
// transaction and records ASSIGNED or REASSIGNED with old/new names. If the
// new assignee has no connection to the project yet, a minimal membership is
// granted so the task is reachable at all.
func replaceTaskAssignee(tx *gorm.DB, taskID, projectID, assigneeID, actorID uint, message string) (*model.Assignment, error) {
	prevID, prevName := currentAssigneeInfo(tx, taskID)

	if err := tx.Unscoped().
		Where("target_type = ? AND target_id = ?", model.TargetTask, taskID).
		Delete(&model.Assignment{}).Error; err != nil {
		return nil, err
	}

	key := model.ActiveDedupeKey(model.TargetTask, taskID, assigneeID)
	row := &model.Assignment{
		TargetType: model.TargetTask,
		TargetID:   taskID,
		UserID:     &assigneeID,
		AssignedBy: actorID,
		Role:       model.AssignmentRoleMember,
		Status:     model.AssignmentActive,
		Message:    message,
		DedupeKey:  &key,
	}
	if err := tx.Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("40901:该任务正在被并发指派，请重试")
		}
		return nil, err
	}

	var assignee model.User
	if err := tx.First(&assignee, assigneeID).Error; err != nil {
		return nil, err
	}

	action := model.ActionAssigned
	detail := model.JSONMap{"assignee_id": assigneeID, "assignee_name": assignee.Name}
	if prevID != 0 && prevID != assigneeID {
		action = model.ActionReassigned
		detail["old_assignee_id"] = prevID
		detail["old_assignee_name"] = prevName
	}
	logTx(tx, &model.OperationLog{
		UserID:       actorID,
		Action:       action,
		ResourceType: model.TargetTask,
		ResourceID:   taskID,
		ProjectID:    projectID,
		Detail:       detail,
	})

	if err := ensureProjectReachable(tx, projectID, assigneeID, actorID); err != nil {
		return nil, err
	}
	return row, nil
}

func currentAssigneeInfo(tx *gorm.DB, taskID uint) (uint, string) {
	var prev model.Assignment
	err := tx.Preload("User").
		Where("target_type = ? AND target_id = ? AND status = ?", model.TargetTask, taskID, model.AssignmentActive).
		First(&prev).Error
	if err != nil || prev.UserID == nil {
		return 0, ""
	}
	name := ""
	if prev.User != nil {
		name = prev.User.Name
	}
	return *prev.UserID, name
}

// ensureProjectReachable grants a minimal VIEWER membership when the assignee
// is neither the owner nor already a member. Deliberate side effect of task
// assignment, not a bug.
func ensureProjectReachable(tx *gorm.DB, projectID, userID, actorID uint) error {
	var project model.Project
	if err := tx.First(&project, projectID).Error; err != nil {
		return err
	}
	if project.OwnerID == userID {
		return nil
	}
	var count int64
	tx.Model(&model.ProjectMember{}).Where("project_id = ? AND user_id = ?", projectID, userID).Count(&count)
	if count > 0 {
		return nil
	}
	member := &model.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      model.MemberRoleViewer,
		AddedBy:   actorID,
	}
	if err := tx.Create(member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}
	return nil
}

func (s *TaskAssignService) notifyAssigned(actorID uint, task *model.Task, assignee *model.User, created *model.Assignment) {
	if s.hub != nil {
		s.hub.Broadcast(assignee.ID, sse.Event{
			Type: "task.assigned",
			Data: map[string]interface{}{
				"task_id":    task.ID,
				"project_id": task.ProjectID,
			},
		})
	}
	if s.notifier == nil {
		return
	}
	var assigner model.User
	s.db.First(&assigner, actorID)
	go s.notifier.NotifyTaskAssigned(context.Background(), notify.TaskAssignedEvent{
		AssigneeEmail: assignee.Email,
		AssigneeName:  assignee.Name,
		AssignerName:  assigner.Name,
		TaskTitle:     task.Title,
		ProjectName:   projectDisplayName(s.db, task.ProjectID),
	})
}
