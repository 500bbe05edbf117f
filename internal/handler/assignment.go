package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/taskMaster/backend/internal/middleware"
	"github.com/taskMaster/backend/internal/model"
	"github.com/taskMaster/backend/internal/service"
)

type AssignmentHandler struct {
	assignmentService *service.AssignmentService
}

func NewAssignmentHandler(assignmentService *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

// GET /assignments?target_type=SECTION&target_id=3
func (h *AssignmentHandler) List(c *gin.Context) {
	targetType := c.Query("target_type")
	targetID := parseID(c.Query("target_id"))
	if !model.IsValidTargetType(targetType) || targetID == 0 {
		BadRequest(c, 40002, "无效的目标类型或目标ID")
		return
	}

	userID := middleware.GetCurrentUserID(c)
	active, pending, err := h.assignmentService.List(userID, targetType, targetID)
	if err != nil {
		ServiceError(c, err)
		return
	}

	activeList := make([]gin.H, 0, len(active))
	for _, a := range active {
		item := gin.H{
			"id":          a.ID,
			"role":        a.Role,
			"assigned_at": a.AssignedAt,
		}
		if a.User != nil {
			item["user"] = a.User.Brief()
		}
		if a.Assigner != nil {
			item["assigner"] = a.Assigner.Brief()
		}
		activeList = append(activeList, item)
	}

	pendingList := make([]gin.H, 0, len(pending))
	for _, p := range pending {
		item := gin.H{
			"id":          p.ID,
			"email":       p.Email,
			"role":        p.Role,
			"assigned_at": p.AssignedAt,
			"expires_at":  p.ExpiresAt,
		}
		if p.Assigner != nil {
			item["assigner"] = p.Assigner.Brief()
		}
		pendingList = append(pendingList, item)
	}

	Success(c, gin.H{
		"active":  activeList,
		"pending": pendingList,
	})
}

// POST /assignments
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req struct {
		TargetType string   `json:"target_type" binding:"required"`
		TargetID   uint     `json:"target_id" binding:"required"`
		UserIDs    []uint   `json:"user_ids"`
		Emails     []string `json:"emails"`
		Message    string   `json:"message" binding:"max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}
	if !model.IsValidTargetType(req.TargetType) {
		BadRequest(c, 40002, "无效的目标类型: "+req.TargetType)
		return
	}
	if len(req.UserIDs)+len(req.Emails) == 0 {
		BadRequest(c, 40001, "user_ids 与 emails 至少提供一个")
		return
	}

	userID := middleware.GetCurrentUserID(c)
	result, err := h.assignmentService.CreateBatch(userID, req.TargetType, req.TargetID, req.UserIDs, req.Emails, req.Message)
	if err != nil {
		ServiceError(c, err)
		return
	}

	created := make([]gin.H, 0, len(result.Created))
	for _, a := range result.Created {
		item := gin.H{
			"id":          a.ID,
			"target_type": a.TargetType,
			"target_id":   a.TargetID,
			"status":      a.Status,
			"role":        a.Role,
		}
		if a.UserID != nil {
			item["user_id"] = *a.UserID
		}
		if a.Email != nil {
			item["email"] = *a.Email
			item["expires_at"] = a.ExpiresAt
		}
		created = append(created, item)
	}

	Success(c, gin.H{
		"created": created,
		"errors":  result.Errors,
	})
}

// DELETE /assignments/:id?kind=user|email
func (h *AssignmentHandler) Remove(c *gin.Context) {
	id := parseID(c.Param("id"))
	kind := c.DefaultQuery("kind", "user")

	userID := middleware.GetCurrentUserID(c)
	if err := h.assignmentService.Remove(userID, id, kind); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}
