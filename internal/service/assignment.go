package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskMaster/backend/internal/model"
	"github.com/taskMaster/backend/internal/notify"
	"github.com/taskMaster/backend/internal/sse"
	"gorm.io/gorm"
)

type AssignmentService struct {
	db               *gorm.DB
	access           *AccessService
	inviteExpireDays int
	notifier         notify.Notifier
	hub              *sse.Hub
}

func NewAssignmentService(db *gorm.DB, access *AccessService, inviteExpireDays int) *AssignmentService {
	return &AssignmentService{db: db, access: access, inviteExpireDays: inviteExpireDays}
}

func (s *AssignmentService) SetNotifier(n notify.Notifier) {
	s.notifier = n
}

func (s *AssignmentService) SetHub(h *sse.Hub) {
	s.hub = h
}

// BatchError reports one failed candidate of a batch create. The rest of the
// batch is unaffected.
type BatchError struct {
	UserID *uint   `json:"user_id,omitempty"`
	Email  *string `json:"email,omitempty"`
	Code   int     `json:"code"`
	Reason string  `json:"reason"`
}

type BatchResult struct {
	Created []model.Assignment `json:"created"`
	Errors  []BatchError       `json:"errors"`
}

// CreateBatch validates and persists each candidate independently: a rejected
// email does not abort the rest. Only the top-level checks (target exists,
// actor may assign, task single-assignee arity) fail the whole request.
func (s *AssignmentService) CreateBatch(actorID uint, targetType string, targetID uint, userIDs []uint, emails []string, message string) (*BatchResult, error) {
	projectID, err := ownerProjectOf(s.db, targetType, targetID)
	if err != nil {
		return nil, err
	}

	access, err := s.access.Resolve(actorID, projectID)
	if err != nil {
		return nil, err
	}
	if !access.Permissions.AssignTasks {
		return nil, fmt.Errorf("40301:无权在该项目中指派")
	}

	if targetType == model.TargetTask && len(userIDs)+len(emails) > 1 {
		return nil, fmt.Errorf("40003:任务一次只能指派一个负责人")
	}

	result := &BatchResult{Created: []model.Assignment{}, Errors: []BatchError{}}

	for _, uid := range userIDs {
		uid := uid
		created, err := s.createUserAssignment(actorID, targetType, targetID, projectID, uid, message)
		if err != nil {
			code, msg := splitErrorCode(err)
			result.Errors = append(result.Errors, BatchError{UserID: &uid, Code: code, Reason: msg})
			continue
		}
		result.Created = append(result.Created, *created)
	}

	for _, email := range emails {
		email := strings.ToLower(strings.TrimSpace(email))
		created, err := s.createEmailInvitation(actorID, targetType, targetID, projectID, email, message)
		if err != nil {
			code, msg := splitErrorCode(err)
			result.Errors = append(result.Errors, BatchError{Email: &email, Code: code, Reason: msg})
			continue
		}
		result.Created = append(result.Created, *created)
	}

	return result, nil
}

func (s *AssignmentService) createUserAssignment(actorID uint, targetType string, targetID, projectID, userID uint, message string) (*model.Assignment, error) {
	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("40401:用户不存在: id=%d", userID)
		}
		return nil, err
	}

	var count int64
	s.db.Model(&model.Assignment{}).
		Where("target_type = ? AND target_id = ? AND user_id = ? AND status = ?",
			targetType, targetID, userID, model.AssignmentActive).
		Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("40901:该用户已拥有此访问权限")
	}

	created := &model.Assignment{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if targetType == model.TargetTask {
			// Tasks replace rather than accumulate assignees.
			replaced, err := replaceTaskAssignee(tx, targetID, projectID, userID, actorID, message)
			if err != nil {
				return err
			}
			*created = *replaced
			return nil
		}

		key := model.ActiveDedupeKey(targetType, targetID, userID)
		row := &model.Assignment{
			TargetType: targetType,
			TargetID:   targetID,
			UserID:     &userID,
			AssignedBy: actorID,
			Role:       model.AssignmentRoleMember,
			Status:     model.AssignmentActive,
			Message:    message,
			DedupeKey:  &key,
		}
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("40901:该用户已拥有此访问权限")
			}
			return err
		}
		logTx(tx, &model.OperationLog{
			UserID:       actorID,
			Action:       model.ActionAssigned,
			ResourceType: targetType,
			ResourceID:   targetID,
			ProjectID:    projectID,
			Detail:       model.JSONMap{"assignee_id": userID, "assignee_name": user.Name},
		})
		*created = *row
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatchUserGrantNotifications(actorID, targetType, targetID, projectID, &user, created)
	return created, nil
}

func (s *AssignmentService) createEmailInvitation(actorID uint, targetType string, targetID, projectID uint, email, message string) (*model.Assignment, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("40004:邮箱格式不正确: %s", email)
	}

	var accountCount int64
	s.db.Model(&model.User{}).Where("email = ?", email).Count(&accountCount)
	if accountCount > 0 {
		return nil, fmt.Errorf("40903:该邮箱已注册账号，请直接按用户指派")
	}

	var pendingCount int64
	s.db.Model(&model.Assignment{}).
		Where("target_type = ? AND target_id = ? AND email = ? AND status = ?",
			targetType, targetID, email, model.AssignmentPending).
		Count(&pendingCount)
	if pendingCount > 0 {
		return nil, fmt.Errorf("40902:该邮箱已有待处理的邀请")
	}

	expiresAt := time.Now().AddDate(0, 0, s.inviteExpireDays)
	key := model.PendingDedupeKey(targetType, targetID, email)
	row := &model.Assignment{
		TargetType: targetType,
		TargetID:   targetID,
		Email:      &email,
		AssignedBy: actorID,
		Role:       model.AssignmentRoleMember,
		Status:     model.AssignmentPending,
		Message:    message,
		Token:      uuid.NewString(),
		ExpiresAt:  &expiresAt,
		DedupeKey:  &key,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		detail := model.JSONMap{"email": email}
		if targetType == model.TargetTask {
			// Inviting to a task replaces whatever is on it now, the same
			// as a direct assignment would.
			prevID, prevName := currentAssigneeInfo(tx, targetID)
			if err := tx.Unscoped().
				Where("target_type = ? AND target_id = ?", model.TargetTask, targetID).
				Delete(&model.Assignment{}).Error; err != nil {
				return err
			}
			if prevID != 0 {
				detail["old_assignee_id"] = prevID
				detail["old_assignee_name"] = prevName
			}
		}
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("40902:该邮箱已有待处理的邀请")
			}
			return err
		}
		logTx(tx, &model.OperationLog{
			UserID:       actorID,
			Action:       model.ActionInvited,
			ResourceType: targetType,
			ResourceID:   targetID,
			ProjectID:    projectID,
			Detail:       detail,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		var inviter model.User
		s.db.First(&inviter, actorID)
		go s.notifier.NotifyInvitationCreated(context.Background(), notify.InvitationCreatedEvent{
			Email:       email,
			Token:       row.Token,
			InviterName: inviter.Name,
			TargetType:  targetType,
			TargetName:  targetDisplayName(s.db, targetType, targetID),
			ProjectName: projectDisplayName(s.db, projectID),
			Message:     message,
		})
	}
	return row, nil
}

// List returns the active users and pending invitations on a target. Pending
// rows past their deadline flip to EXPIRED before being returned.
func (s *AssignmentService) List(actorID uint, targetType string, targetID uint) ([]model.Assignment, []model.Assignment, error) {
	projectID, err := ownerProjectOf(s.db, targetType, targetID)
	if err != nil {
		return nil, nil, err
	}
	access, err := s.access.Resolve(actorID, projectID)
	if err != nil {
		return nil, nil, err
	}
	if !access.Permissions.View {
		return nil, nil, fmt.Errorf("40301:无权查看该项目")
	}

	s.expirePending(targetType, targetID)

	var active []model.Assignment
	if err := s.db.Preload("User").Preload("Assigner").
		Where("target_type = ? AND target_id = ? AND status = ?", targetType, targetID, model.AssignmentActive).
		Order("assigned_at asc").
		Find(&active).Error; err != nil {
		return nil, nil, err
	}

	var pending []model.Assignment
	if err := s.db.Preload("Assigner").
		Where("target_type = ? AND target_id = ? AND status = ?", targetType, targetID, model.AssignmentPending).
		Order("assigned_at asc").
		Find(&pending).Error; err != nil {
		return nil, nil, err
	}
	return active, pending, nil
}

// Remove revokes a grant. User-backed rows are hard-deleted; email rows keep
// their history and flip to CANCELLED.
func (s *AssignmentService) Remove(actorID, assignmentID uint, kind string) error {
	var row model.Assignment
	if err := s.db.First(&row, assignmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("40405:分配记录不存在")
		}
		return err
	}

	projectID, err := ownerProjectOf(s.db, row.TargetType, row.TargetID)
	if err != nil {
		return err
	}
	if row.AssignedBy != actorID {
		access, err := s.access.Resolve(actorID, projectID)
		if err != nil {
			return err
		}
		if !access.Permissions.AssignTasks {
			return fmt.Errorf("40301:无权移除该分配")
		}
	}

	switch kind {
	case "user":
		if row.UserID == nil {
			return fmt.Errorf("40002:该记录不是用户分配")
		}
		return s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Unscoped().Delete(&model.Assignment{}, row.ID).Error; err != nil {
				return err
			}
			logTx(tx, &model.OperationLog{
				UserID:       actorID,
				Action:       model.ActionAssignmentRemoved,
				ResourceType: row.TargetType,
				ResourceID:   row.TargetID,
				ProjectID:    projectID,
				Detail:       model.JSONMap{"assignee_id": *row.UserID},
			})
			return nil
		})
	case "email":
		if row.Email == nil {
			return fmt.Errorf("40002:该记录不是邮箱邀请")
		}
		if row.Status != model.AssignmentPending {
			return fmt.Errorf("40003:邀请已处理，无法取消")
		}
		return s.db.Transaction(func(tx *gorm.DB) error {
			updates := map[string]interface{}{"status": model.AssignmentCancelled, "dedupe_key": nil}
			if err := tx.Model(&model.Assignment{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
				return err
			}
			logTx(tx, &model.OperationLog{
				UserID:       actorID,
				Action:       model.ActionInviteCancelled,
				ResourceType: row.TargetType,
				ResourceID:   row.TargetID,
				ProjectID:    projectID,
				Detail:       model.JSONMap{"email": *row.Email},
			})
			return nil
		})
	default:
		return fmt.Errorf("40002:无效的移除类型: %s", kind)
	}
}

// expirePending lazily flips overdue PENDING rows on a target to EXPIRED.
// This is a normal read-time side effect, not an error.
func (s *AssignmentService) expirePending(targetType string, targetID uint) {
	s.db.Model(&model.Assignment{}).
		Where("target_type = ? AND target_id = ? AND status = ? AND expires_at < ?",
			targetType, targetID, model.AssignmentPending, time.Now()).
		Updates(map[string]interface{}{"status": model.AssignmentExpired, "dedupe_key": nil})
}

func (s *AssignmentService) dispatchUserGrantNotifications(actorID uint, targetType string, targetID, projectID uint, assignee *model.User, created *model.Assignment) {
	if s.hub != nil {
		s.hub.Broadcast(assignee.ID, sse.Event{
			Type: "assignment.created",
			Data: map[string]interface{}{
				"assignment_id": created.ID,
				"target_type":   targetType,
				"target_id":     targetID,
				"project_id":    projectID,
			},
		})
	}
	if s.notifier == nil {
		return
	}
	var assigner model.User
	s.db.First(&assigner, actorID)
	if targetType == model.TargetTask {
		go s.notifier.NotifyTaskAssigned(context.Background(), notify.TaskAssignedEvent{
			AssigneeEmail: assignee.Email,
			AssigneeName:  assignee.Name,
			AssignerName:  assigner.Name,
			TaskTitle:     targetDisplayName(s.db, targetType, targetID),
			ProjectName:   projectDisplayName(s.db, projectID),
		})
		return
	}
	go s.notifier.NotifyAssignmentCreated(context.Background(), notify.AssignmentCreatedEvent{
		AssigneeEmail: assignee.Email,
		AssigneeName:  assignee.Name,
		AssignerName:  assigner.Name,
		TargetType:    targetType,
		TargetName:    targetDisplayName(s.db, targetType, targetID),
		ProjectName:   projectDisplayName(s.db, projectID),
	})
}
