package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/taskMaster/backend/internal/config"
	"github.com/taskMaster/backend/internal/handler"
	"github.com/taskMaster/backend/internal/model"
	"github.com/taskMaster/backend/internal/notify"
	"github.com/taskMaster/backend/internal/router"
	"github.com/taskMaster/backend/internal/service"
	"github.com/taskMaster/backend/internal/sse"
	"github.com/taskMaster/backend/pkg/mailer"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	// Load config
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.ProjectMember{},
		&model.Section{},
		&model.Task{},
		&model.Assignment{},
		&model.OperationLog{},
	); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Notification hub
	hub := sse.NewHub(rdb)

	// Notifier
	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.SMTP.Enabled {
		m, err := mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
		if err != nil {
			log.Fatalf("smtp client: %v", err)
		}
		notifier = notify.NewEmailNotifier(m, cfg.Server.BaseURL)
	}

	// Services
	authService := service.NewAuthService(db, cfg.JWT.Secret, cfg.JWT.ExpireHours)
	accessService := service.NewAccessService(db, cfg.Assignment.CollaboratorRole)
	activityService := service.NewActivityService(db)
	projectService := service.NewProjectService(db)
	sectionService := service.NewSectionService(db)
	taskService := service.NewTaskService(db)
	assignmentService := service.NewAssignmentService(db, accessService, cfg.Assignment.InviteExpireDays)
	invitationService := service.NewInvitationService(db)
	taskAssignService := service.NewTaskAssignService(db, accessService)

	// Inject notifiers
	assignmentService.SetNotifier(notifier)
	assignmentService.SetHub(hub)
	invitationService.SetNotifier(notifier)
	invitationService.SetHub(hub)
	taskAssignService.SetNotifier(notifier)
	taskAssignService.SetHub(hub)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	projectHandler := handler.NewProjectHandler(projectService, accessService, activityService)
	sectionHandler := handler.NewSectionHandler(sectionService, accessService)
	taskHandler := handler.NewTaskHandler(taskService, taskAssignService, accessService)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService)
	invitationHandler := handler.NewInvitationHandler(invitationService)
	activityHandler := handler.NewActivityHandler(activityService, accessService)
	notificationHandler := handler.NewNotificationHandler(hub)

	// Gin engine
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// Setup routes
	router.Setup(r, router.Deps{
		DB:                  db,
		JWTSecret:           cfg.JWT.Secret,
		AuthHandler:         authHandler,
		ProjectHandler:      projectHandler,
		SectionHandler:      sectionHandler,
		TaskHandler:         taskHandler,
		AssignmentHandler:   assignmentHandler,
		InvitationHandler:   invitationHandler,
		ActivityHandler:     activityHandler,
		NotificationHandler: notificationHandler,
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server run: %v", err)
	}
}
