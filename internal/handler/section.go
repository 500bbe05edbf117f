package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/taskMaster/backend/internal/middleware"
	"github.com/taskMaster/backend/internal/service"
)

type SectionHandler struct {
	sectionService *service.SectionService
	accessService  *service.AccessService
}

func NewSectionHandler(sectionService *service.SectionService, accessService *service.AccessService) *SectionHandler {
	return &SectionHandler{sectionService: sectionService, accessService: accessService}
}

// POST /projects/:id/sections
func (h *SectionHandler) Create(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	access, err := h.accessService.Resolve(userID, projectID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if !access.Permissions.CreateSection {
		Forbidden(c, 40301, "无权在该项目中创建分组")
		return
	}

	var req struct {
		Name string `json:"name" binding:"required,max=128"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	section, err := h.sectionService.Create(projectID, req.Name)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, section)
}

// GET /projects/:id/sections
func (h *SectionHandler) List(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	access, err := h.accessService.Resolve(userID, projectID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if !access.Permissions.View {
		NotFound(c, 40402, "项目不存在")
		return
	}

	sections, err := h.sectionService.List(projectID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	// Section/task-level access only sees its own slice of the project.
	if !access.Permissions.ViewAllSections {
		visible := make(map[uint]bool, len(access.Visible.SectionIDs))
		for _, id := range access.Visible.SectionIDs {
			visible[id] = true
		}
		filtered := sections[:0]
		for _, s := range sections {
			if visible[s.ID] {
				filtered = append(filtered, s)
			}
		}
		sections = filtered
	}
	Success(c, sections)
}

// PUT /sections/:id
func (h *SectionHandler) Update(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	section, err := h.sectionService.GetByID(id)
	if err != nil {
		ServiceError(c, err)
		return
	}

	access, err := h.accessService.Resolve(userID, section.ProjectID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if !access.Permissions.Edit {
		Forbidden(c, 40301, "无权编辑该分组")
		return
	}

	var req struct {
		Name     *string `json:"name" binding:"omitempty,max=128"`
		Position *int    `json:"position"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Position != nil {
		updates["position"] = *req.Position
	}

	updated, err := h.sectionService.Update(id, updates)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, updated)
}

// DELETE /sections/:id
func (h *SectionHandler) Delete(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	section, err := h.sectionService.GetByID(id)
	if err != nil {
		ServiceError(c, err)
		return
	}

	access, err := h.accessService.Resolve(userID, section.ProjectID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if !access.Permissions.Edit {
		Forbidden(c, 40301, "无权删除该分组")
		return
	}

	if err := h.sectionService.Delete(id); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}
