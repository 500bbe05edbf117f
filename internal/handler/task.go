package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskMaster/backend/internal/middleware"
	"github.com/taskMaster/backend/internal/service"
)

type TaskHandler struct {
	taskService       *service.TaskService
	taskAssignService *service.TaskAssignService
	accessService     *service.AccessService
}

func NewTaskHandler(taskService *service.TaskService, taskAssignService *service.TaskAssignService, accessService *service.AccessService) *TaskHandler {
	return &TaskHandler{
		taskService:       taskService,
		taskAssignService: taskAssignService,
		accessService:     accessService,
	}
}

// POST /projects/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	projectID := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	access, err := h.accessService.Resolve(userID, projectID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if !access.Permissions.CreateTask {
		Forbidden(c, 40301, "无权在该项目中创建任务")
		return
	}

	var req struct {
		Title        string     `json:"title" binding:"required,max=256"`
		Description  string     `json:"description" binding:"max=10000"`
		SectionID    *uint      `json:"section_id"`
		ParentTaskID *uint      `json:"parent_task_id"`
		Priority     string     `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
		DueAt        *time.Time `json:"due_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	task, err := h.taskService.Create(projectID, req.SectionID, req.ParentTaskID, req.Title, req.Description, req.Priority, req.DueAt, userID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, task)
}

// GET /projects/:id/tasks
func (h *TaskHandler) List(c *gin.Context) {
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

	var sectionID *uint
	if s := c.Query("section_id"); s != "" {
		v := parseID(s)
		sectionID = &v
	}

	tasks, total, err := h.taskService.List(projectID, sectionID, c.Query("status"), c.Query("keyword"), page, pageSize)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	if !access.Permissions.ViewAllTasks {
		visible := make(map[uint]bool, len(access.Visible.TaskIDs))
		for _, id := range access.Visible.TaskIDs {
			visible[id] = true
		}
		filtered := tasks[:0]
		for _, t := range tasks {
			if visible[t.ID] {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	SuccessPaged(c, tasks, total, page, pageSize)
}

// GET /tasks/:id
func (h *TaskHandler) GetDetail(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	task, err := h.taskService.GetByID(id)
	if err != nil {
		ServiceError(c, err)
		return
	}

	access, err := h.accessService.Resolve(userID, task.ProjectID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if !access.Permissions.View {
		NotFound(c, 40403, "任务不存在")
		return
	}
	if !access.Permissions.ViewAllTasks {
		visible := false
		for _, tid := range access.Visible.TaskIDs {
			if tid == id {
				visible = true
				break
			}
		}
		if !visible {
			NotFound(c, 40403, "任务不存在")
			return
		}
	}

	assignment, err := h.taskAssignService.CurrentAssignee(id)
	if err != nil {
		InternalError(c, err.Error())
		return
	}

	data := gin.H{
		"id":             task.ID,
		"project_id":     task.ProjectID,
		"section_id":     task.SectionID,
		"parent_task_id": task.ParentTaskID,
		"title":          task.Title,
		"description":    task.Description,
		"status":         task.Status,
		"priority":       task.Priority,
		"due_at":         task.DueAt,
		"created_at":     task.CreatedAt,
		"updated_at":     task.UpdatedAt,
	}
	if task.Creator != nil {
		data["creator"] = task.Creator.Brief()
	}
	if assignment != nil && assignment.User != nil {
		data["assignee"] = assignment.User.Brief()
	}
	Success(c, data)
}

// PUT /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	task, err := h.taskService.GetByID(id)
	if err != nil {
		ServiceError(c, err)
		return
	}

	access, err := h.accessService.Resolve(userID, task.ProjectID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if !access.Permissions.Edit {
		Forbidden(c, 40301, "无权编辑该任务")
		return
	}

	var req struct {
		Title       *string    `json:"title" binding:"omitempty,max=256"`
		Description *string    `json:"description" binding:"omitempty,max=10000"`
		Status      *string    `json:"status" binding:"omitempty,oneof=open in_progress done"`
		Priority    *string    `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
		SectionID   *uint      `json:"section_id"`
		DueAt       *time.Time `json:"due_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.SectionID != nil {
		updates["section_id"] = *req.SectionID
	}
	if req.DueAt != nil {
		updates["due_at"] = *req.DueAt
	}

	updated, err := h.taskService.Update(id, updates)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, updated)
}

// DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	task, err := h.taskService.GetByID(id)
	if err != nil {
		ServiceError(c, err)
		return
	}

	access, err := h.accessService.Resolve(userID, task.ProjectID)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if !access.Permissions.Edit {
		Forbidden(c, 40301, "无权删除该任务")
		return
	}

	if err := h.taskService.Delete(id); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}

// PUT /tasks/:id/assignee
func (h *TaskHandler) Assign(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	var req struct {
		AssigneeID uint `json:"assignee_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, 40001, "参数校验失败: "+err.Error())
		return
	}

	assignment, err := h.taskAssignService.Assign(userID, id, req.AssigneeID)
	if err != nil {
		ServiceError(c, err)
		return
	}

	data := gin.H{
		"assignment_id": assignment.ID,
		"task_id":       assignment.TargetID,
		"assignee_id":   assignment.UserID,
		"assigned_at":   assignment.AssignedAt,
	}
	Success(c, data)
}

// DELETE /tasks/:id/assignee
func (h *TaskHandler) Unassign(c *gin.Context) {
	id := parseID(c.Param("id"))
	userID := middleware.GetCurrentUserID(c)

	if err := h.taskAssignService.Unassign(userID, id); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, nil)
}
