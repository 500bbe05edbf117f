package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskMaster/backend/internal/model"
	"github.com/taskMaster/backend/internal/notify"
	"github.com/taskMaster/backend/internal/sse"
	"gorm.io/gorm"
)

// InvitationService owns the PENDING → {ACTIVE, EXPIRED, CANCELLED} state
// machine for email-based assignments. Transitions are one-directional; a new
// grant always means a new row.
type InvitationService struct {
	db       *gorm.DB
	notifier notify.Notifier
	hub      *sse.Hub
}

func NewInvitationService(db *gorm.DB) *InvitationService {
	return &InvitationService{db: db}
}

func (s *InvitationService) SetNotifier(n notify.Notifier) {
	s.notifier = n
}

func (s *InvitationService) SetHub(h *sse.Hub) {
	s.hub = h
}

// GetByID loads an invitation for the accept/reject screen. An overdue
// PENDING row is persisted as EXPIRED before being returned, so the caller
// never sees stale PENDING state.
func (s *InvitationService) GetByID(id uint) (*model.Assignment, error) {
	var row model.Assignment
	err := s.db.Preload("Assigner").Where("email IS NOT NULL").First(&row, id).Error
	return s.afterLoad(&row, err)
}

// GetByToken resolves the token embedded in the emailed accept link.
func (s *InvitationService) GetByToken(token string) (*model.Assignment, error) {
	var row model.Assignment
	err := s.db.Preload("Assigner").Where("token = ? AND email IS NOT NULL", token).First(&row).Error
	return s.afterLoad(&row, err)
}

func (s *InvitationService) afterLoad(row *model.Assignment, err error) (*model.Assignment, error) {
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("40404:邀请不存在")
		}
		return nil, err
	}
	if row.IsExpired(time.Now()) {
		s.markExpired(row)
	}
	return row, nil
}

// Accept flips the invitation to ACTIVE and materializes the concrete grant
// in one transaction, so a crash can never leave an accepted invitation
// without the access it promised.
func (s *InvitationService) Accept(invitationID, userID uint) (*model.Assignment, error) {
	var row model.Assignment
	if err := s.db.First(&row, invitationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("40404:邀请不存在")
		}
		return nil, err
	}
	if row.Email == nil {
		return nil, fmt.Errorf("40002:该记录不是邮箱邀请")
	}
	if row.Status != model.AssignmentPending {
		return nil, fmt.Errorf("40003:邀请已处理")
	}
	if row.IsExpired(time.Now()) {
		s.markExpired(&row)
		return nil, fmt.Errorf("41001:邀请已过期")
	}

	var user model.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("40401:用户不存在")
	}
	if !strings.EqualFold(user.Email, *row.Email) {
		return nil, fmt.Errorf("40302:当前账号邮箱与邀请不匹配")
	}

	projectID, err := ownerProjectOf(s.db, row.TargetType, row.TargetID)
	if err != nil {
		return nil, err
	}

	grant := &model.Assignment{}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		// Flip the invitation first; the WHERE on status makes concurrent
		// accepts of the same row lose the race instead of double-granting.
		res := tx.Model(&model.Assignment{}).
			Where("id = ? AND status = ?", row.ID, model.AssignmentPending).
			Updates(map[string]interface{}{
				"status":      model.AssignmentActive,
				"accepted_at": now,
				"dedupe_key":  nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("40003:邀请已处理")
		}

		materialized, err := materializeGrant(tx, &row, userID)
		if err != nil {
			return err
		}
		*grant = *materialized

		logTx(tx, &model.OperationLog{
			UserID:       userID,
			Action:       model.ActionInviteAccepted,
			ResourceType: row.TargetType,
			ResourceID:   row.TargetID,
			ProjectID:    projectID,
			Detail:       model.JSONMap{"email": *row.Email, "inviter_id": row.AssignedBy},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyAccepted(&row, &user)
	return grant, nil
}

// Reject cancels a pending invitation. Allowed for the invitee (matching
// email) or the original assigner; terminal rows stay untouched.
func (s *InvitationService) Reject(invitationID, userID uint, userEmail string) error {
	var row model.Assignment
	if err := s.db.First(&row, invitationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("40404:邀请不存在")
		}
		return err
	}
	if row.Email == nil {
		return fmt.Errorf("40002:该记录不是邮箱邀请")
	}
	if row.Status != model.AssignmentPending {
		return fmt.Errorf("40003:邀请已处理")
	}
	if row.AssignedBy != userID && !strings.EqualFold(userEmail, *row.Email) {
		return fmt.Errorf("40302:只有被邀请人或邀请人可以拒绝该邀请")
	}

	projectID, err := ownerProjectOf(s.db, row.TargetType, row.TargetID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Assignment{}).
			Where("id = ? AND status = ?", row.ID, model.AssignmentPending).
			Updates(map[string]interface{}{"status": model.AssignmentCancelled, "dedupe_key": nil})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("40003:邀请已处理")
		}
		logTx(tx, &model.OperationLog{
			UserID:       userID,
			Action:       model.ActionInviteRejected,
			ResourceType: row.TargetType,
			ResourceID:   row.TargetID,
			ProjectID:    projectID,
			Detail:       model.JSONMap{"email": *row.Email},
		})
		return nil
	})
}

// materializeGrant converts an accepted invitation into a concrete
// user-backed assignment. Idempotent for project and section targets. Task
// targets clear every other row and then rebind the invitation row itself to
// the user, so the task never carries more than one ACTIVE row.
func materializeGrant(tx *gorm.DB, invitation *model.Assignment, userID uint) (*model.Assignment, error) {
	if invitation.TargetType == model.TargetTask {
		if err := tx.Unscoped().
			Where("target_type = ? AND target_id = ? AND id != ?", model.TargetTask, invitation.TargetID, invitation.ID).
			Delete(&model.Assignment{}).Error; err != nil {
			return nil, err
		}
		key := model.ActiveDedupeKey(model.TargetTask, invitation.TargetID, userID)
		updates := map[string]interface{}{"user_id": userID, "email": nil, "dedupe_key": key}
		if err := tx.Model(&model.Assignment{}).Where("id = ?", invitation.ID).Updates(updates).Error; err != nil {
			return nil, err
		}
		var grant model.Assignment
		if err := tx.First(&grant, invitation.ID).Error; err != nil {
			return nil, err
		}
		return &grant, nil
	}

	var existing model.Assignment
	err := tx.Where("target_type = ? AND target_id = ? AND user_id = ? AND status = ?",
		invitation.TargetType, invitation.TargetID, userID, model.AssignmentActive).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	key := model.ActiveDedupeKey(invitation.TargetType, invitation.TargetID, userID)
	grant := &model.Assignment{
		TargetType: invitation.TargetType,
		TargetID:   invitation.TargetID,
		UserID:     &userID,
		AssignedBy: invitation.AssignedBy,
		Role:       invitation.Role,
		Status:     model.AssignmentActive,
		DedupeKey:  &key,
	}
	if err := tx.Create(grant).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent accept already materialized the grant.
			var existing model.Assignment
			if err := tx.Where("dedupe_key = ?", key).First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}
	return grant, nil
}

func (s *InvitationService) markExpired(row *model.Assignment) {
	s.db.Model(&model.Assignment{}).
		Where("id = ? AND status = ?", row.ID, model.AssignmentPending).
		Updates(map[string]interface{}{"status": model.AssignmentExpired, "dedupe_key": nil})
	row.Status = model.AssignmentExpired
	row.DedupeKey = nil
}

func (s *InvitationService) notifyAccepted(invitation *model.Assignment, invitee *model.User) {
	if s.hub != nil {
		s.hub.Broadcast(invitation.AssignedBy, sse.Event{
			Type: "invitation.accepted",
			Data: map[string]interface{}{
				"invitation_id": invitation.ID,
				"target_type":   invitation.TargetType,
				"target_id":     invitation.TargetID,
				"invitee_id":    invitee.ID,
			},
		})
	}
	if s.notifier == nil {
		return
	}
	var assigner model.User
	if err := s.db.First(&assigner, invitation.AssignedBy).Error; err != nil {
		return
	}
	go s.notifier.NotifyInvitationAccepted(context.Background(), notify.InvitationAcceptedEvent{
		AssignerEmail: assigner.Email,
		InviteeName:   invitee.Name,
		InviteeEmail:  invitee.Email,
		TargetType:    invitation.TargetType,
		TargetName:    targetDisplayName(s.db, invitation.TargetType, invitation.TargetID),
	})
}
