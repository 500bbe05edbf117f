package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/taskMaster/backend/internal/middleware"
	"github.com/taskMaster/backend/internal/service"
)

type ActivityHandler struct {
	activityService *service.ActivityService
	accessService   *service.AccessService
}

func NewActivityHandler(activityService *service.ActivityService, accessService *service.AccessService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService, accessService: accessService}
}

// GET /projects/:id/activity
func (h *ActivityHandler) ListByProject(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)
	page, pageSize := parsePage(c)

	access, err := h.accessService.Resolve(userID, projectID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if !access.Permissions.View {
		NotFound(c, 40402, "项目不存在")
		return
	}

	logs, total, err := h.activityService.List(&projectID, nil, c.Query("action"), c.Query("resource_type"), page, pageSize)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	list := make([]gin.H, 0, len(logs))
	for _, l := range logs {
		item := gin.H{
			"id":            l.ID,
			"action":        l.Action,
			"resource_type": l.ResourceType,
			"resource_id":   l.ResourceID,
			"detail":        l.Detail,
			"created_at":    l.CreatedAt,
		}
		if l.User != nil {
			item["user"] = l.User.Brief()
		}
		list = append(list, item)
	}
	SuccessPaged(c, list, total, page, pageSize)
}
