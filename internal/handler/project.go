package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/taskMaster/backend/internal/middleware"
	"github.com/taskMaster/backend/internal/model"
	"github.com/taskMaster/backend/internal/service"
)

type ProjectHandler struct {
	projectService  *service.ProjectService
	accessService   *service.AccessService
	activityService *service.ActivityService
}

func NewProjectHandler(projectService *service.ProjectService, accessService *service.AccessService, activityService *service.ActivityService) *ProjectHandler {
	return &ProjectHandler{
		projectService:  projectService,
		accessService:   accessService,
		activityService: activityService,
	}
}

// POST /projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required,max=128"`
		Description string `json:"description" binding:"max=5000"`
		Color       string `json:"color" binding:"max=16"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	userID := middleware.GetCurrentUserID(c)
	project, err := h.projectService.Create(req.Name, req.Description, req.Color, userID)
	if err != nil {
		ServiceError(c, err)
		return
	}

	data := gin.H{
		"id":          project.ID,
		"name":        project.Name,
		"description": project.Description,
		"color":       project.Color,
		"status":      project.Status,
		"created_at":  project.CreatedAt,
	}
	if project.Owner != nil {
		data["owner"] = project.Owner.Brief()
	}
	Success(c, data)
}

// GET /projects
func (h *ProjectHandler) List(c *gin.Context) {
	page, pageSize := parsePage(c)
	userID := middleware.GetCurrentUserID(c)
	keyword := c.Query("keyword")

	projects, total, err := h.projectService.List(userID, keyword, page, pageSize)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	list := make([]gin.H, 0, len(projects))
	for _, p := range projects {
		item := gin.H{
			"id":           p.ID,
			"name":         p.Name,
			"description":  p.Description,
			"color":        p.Color,
			"status":       p.Status,
			"member_count": h.projectService.GetMemberCount(p.ID),
			"task_count":   h.projectService.GetTaskCount(p.ID),
			"created_at":   p.CreatedAt,
			"updated_at":   p.UpdatedAt,
		}
		if p.Owner != nil {
			item["owner"] = p.Owner.Brief()
		}
		list = append(list, item)
	}
	SuccessPaged(c, list, total, page, pageSize)
}

// GET /projects/:id
func (h *ProjectHandler) GetDetail(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	access, err := h.accessService.Resolve(userID, id)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if !access.Permissions.View {
		NotFound(c, 40402, "项目不存在")
		return
	}

	project, err := h.projectService.GetByID(id)
	if err != nil {
		NotFound(c, 40402, "项目不存在")
		return
	}

	members := make([]gin.H, 0)
	for _, m := range project.Members {
		item := gin.H{
			"id":        m.UserID,
			"role":      m.Role,
			"joined_at": m.JoinedAt,
		}
		if m.User != nil {
			item["name"] = m.User.Name
			item["avatar"] = m.User.Avatar
		}
		members = append(members, item)
	}

	Success(c, gin.H{
		"id":           project.ID,
		"name":         project.Name,
		"description":  project.Description,
		"color":        project.Color,
		"owner":        project.Owner.Brief(),
		"members":      members,
		"status":       project.Status,
		"access_level": access.Level,
		"permissions":  access.Permissions,
		"created_at":   project.CreatedAt,
		"updated_at":   project.UpdatedAt,
	})
}

// GET /projects/:id/access
func (h *ProjectHandler) GetAccess(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	access, err := h.accessService.Resolve(userID, id)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, access)
}

// PUT /projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	access, err := h.accessService.Resolve(userID, id)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if !access.Permissions.EditSettings {
		Forbidden(c, 40301, "无权修改项目设置")
		return
	}

	var req struct {
		Name        *string `json:"name" binding:"omitempty,max=128"`
		Description *string `json:"description" binding:"omitempty,max=5000"`
		Color       *string `json:"color" binding:"omitempty,max=16"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}

	project, err := h.projectService.Update(id, updates)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, project)
}

// DELETE /projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	access, err := h.accessService.Resolve(userID, id)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if !access.Permissions.DeleteProject {
		Forbidden(c, 40301, "只有项目所有者可以删除项目")
		return
	}

	if err := h.projectService.Delete(id); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// POST /projects/:id/members
func (h *ProjectHandler) AddMembers(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	if !h.projectService.CanManageMembers(id, userID) {
		Forbidden(c, 40301, "无权管理项目成员")
		return
	}

	var req struct {
		UserIDs []uint `json:"user_ids" binding:"required,min=1"`
		Role    string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	added, skipped, err := h.projectService.AddMembers(id, req.UserIDs, req.Role, userID)
	if err != nil {
		ServiceError(c, err)
		return
	}

	for _, u := range added {
		h.activityService.Log(&model.OperationLog{
			UserID:       userID,
			Action:       model.ActionMemberAdded,
			ResourceType: model.TargetProject,
			ResourceID:   id,
			ProjectID:    id,
			Detail:       model.JSONMap{"member_id": u.ID, "member_name": u.Name, "role": req.Role},
			IP:           c.ClientIP(),
		})
	}

	Success(c, gin.H{"added": added, "skipped": skipped})
}

// DELETE /projects/:id/members/:user_id
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id := parseID(c.Param("id"))
	memberID := parseID(c.Param("user_id"))
	userID := middleware.GetCurrentUserID(c)

	if !h.projectService.CanManageMembers(id, userID) {
		Forbidden(c, 40301, "无权管理项目成员")
		return
	}

	if err := h.projectService.RemoveMember(id, memberID); err != nil {
		ServiceError(c, err)
		return
	}

	h.activityService.Log(&model.OperationLog{
		UserID:       userID,
		Action:       model.ActionMemberRemoved,
		ResourceType: model.TargetProject,
		ResourceID:   id,
		ProjectID:    id,
		Detail:       model.JSONMap{"member_id": memberID},
		IP:           c.ClientIP(),
	})
	Success(c, nil)
}
