package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/taskMaster/backend/internal/middleware"
	"github.com/taskMaster/backend/internal/model"
	"github.com/taskMaster/backend/internal/service"
)

type InvitationHandler struct {
	invitationService *service.InvitationService
}

func NewInvitationHandler(invitationService *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

// GET /invitations/:id
func (h *InvitationHandler) GetDetail(c *gin.Context) {
	id := parseID(c.Param("id"))
	invitation, err := h.invitationService.GetByID(id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, invitationView(invitation))
}

// GET /invitations/token/:token
// Used by the accept/reject screen rendered from the emailed link.
func (h *InvitationHandler) GetByToken(c *gin.Context) {
	invitation, err := h.invitationService.GetByToken(c.Param("token"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, invitationView(invitation))
}

// POST /invitations/:id/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	grant, err := h.invitationService.Accept(id, userID)
	if err != nil {
		ServiceError(c, err)
		return
	}

	Success(c, gin.H{
		"assignment_id": grant.ID,
		"target_type":   grant.TargetType,
		"target_id":     grant.TargetID,
		"status":        grant.Status,
		"role":          grant.Role,
	})
}

// POST /invitations/:id/reject
func (h *InvitationHandler) Reject(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)
	userEmail := middleware.GetCurrentUserEmail(c)

	if err := h.invitationService.Reject(id, userID, userEmail); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

func invitationView(invitation *model.Assignment) gin.H {
	data := gin.H{
		"id":          invitation.ID,
		"target_type": invitation.TargetType,
		"target_id":   invitation.TargetID,
		"email":       invitation.Email,
		"role":        invitation.Role,
		"status":      invitation.Status,
		"message":     invitation.Message,
		"assigned_at": invitation.AssignedAt,
		"expires_at":  invitation.ExpiresAt,
		"accepted_at": invitation.AcceptedAt,
	}
	if invitation.Assigner != nil {
		data["inviter"] = invitation.Assigner.Brief()
	}
	return data
}
