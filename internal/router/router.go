package router

import (
	"github.com/gin-gonic/gin"
	"github.com/taskMaster/backend/internal/handler"
	"github.com/taskMaster/backend/internal/middleware"
	"gorm.io/gorm"
)

type Deps struct {
	DB                  *gorm.DB
	JWTSecret           string
	AuthHandler         *handler.AuthHandler
	ProjectHandler      *handler.ProjectHandler
	SectionHandler      *handler.SectionHandler
	TaskHandler         *handler.TaskHandler
	AssignmentHandler   *handler.AssignmentHandler
	InvitationHandler   *handler.InvitationHandler
	ActivityHandler     *handler.ActivityHandler
	NotificationHandler *handler.NotificationHandler
}

func Setup(r *gin.Engine, deps Deps) {
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api/v1")

	// Public routes (no auth)
	auth := api.Group("/auth")
	{
		auth.POST("/register", deps.AuthHandler.Register)
		auth.POST("/login", deps.AuthHandler.Login)
	}

	// The accept screen is reachable from the emailed link before login.
	api.GET("/invitations/token/:token", deps.InvitationHandler.GetByToken)

	// Authenticated routes
	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(deps.JWTSecret, deps.DB))
	{
		// Auth
		authed.GET("/auth/me", deps.AuthHandler.GetMe)

		// User search (all authenticated users)
		authed.GET("/users/search", deps.AuthHandler.SearchUsers)

		// Projects
		projects := authed.Group("/projects")
		{
			projects.POST("", deps.ProjectHandler.Create)
			projects.GET("", deps.ProjectHandler.List)
			projects.GET("/:id", deps.ProjectHandler.GetDetail)
			projects.GET("/:id/access", deps.ProjectHandler.GetAccess)
			projects.PUT("/:id", deps.ProjectHandler.Update)
			projects.DELETE("/:id", deps.ProjectHandler.Delete)
			projects.POST("/:id/members", deps.ProjectHandler.AddMembers)
			projects.DELETE("/:id/members/:user_id", deps.ProjectHandler.RemoveMember)

			// Sections and tasks under projects
			projects.POST("/:id/sections", deps.SectionHandler.Create)
			projects.GET("/:id/sections", deps.SectionHandler.List)
			projects.POST("/:id/tasks", deps.TaskHandler.Create)
			projects.GET("/:id/tasks", deps.TaskHandler.List)

			// Activity
			projects.GET("/:id/activity", deps.ActivityHandler.ListByProject)
		}

		// Sections (standalone)
		sections := authed.Group("/sections")
		{
			sections.PUT("/:id", deps.SectionHandler.Update)
			sections.DELETE("/:id", deps.SectionHandler.Delete)
		}

		// Tasks (standalone)
		tasks := authed.Group("/tasks")
		{
			tasks.GET("/:id", deps.TaskHandler.GetDetail)
			tasks.PUT("/:id", deps.TaskHandler.Update)
			tasks.DELETE("/:id", deps.TaskHandler.Delete)

			// Single-assignee endpoints
			tasks.PUT("/:id/assignee", deps.TaskHandler.Assign)
			tasks.DELETE("/:id/assignee", deps.TaskHandler.Unassign)
		}

		// Assignments
		assignments := authed.Group("/assignments")
		{
			assignments.GET("", deps.AssignmentHandler.List)
			assignments.POST("", deps.AssignmentHandler.Create)
			assignments.DELETE("/:id", deps.AssignmentHandler.Remove)
		}

		// Invitations
		invitations := authed.Group("/invitations")
		{
			invitations.GET("/:id", deps.InvitationHandler.GetDetail)
			invitations.POST("/:id/accept", deps.InvitationHandler.Accept)
			invitations.POST("/:id/reject", deps.InvitationHandler.Reject)
		}

		// Notification stream
		if deps.NotificationHandler != nil {
			authed.GET("/notifications/stream", deps.NotificationHandler.Stream)
		}
	}
}
