package service

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/taskMaster/backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// A single connection keeps every query on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.ProjectMember{},
		&model.Section{},
		&model.Task{},
		&model.Assignment{},
		&model.OperationLog{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func newTestAccess(db *gorm.DB) *AccessService {
	return NewAccessService(db, model.AssignmentRoleCollaborator)
}

func seedUser(t *testing.T, db *gorm.DB, email, name string) *model.User {
	t.Helper()
	user := &model.User{Email: email, Name: name, PasswordHash: "x", Status: 1}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return user
}

func seedProject(t *testing.T, db *gorm.DB, owner *model.User, name string) *model.Project {
	t.Helper()
	project := &model.Project{Name: name, OwnerID: owner.ID, Status: "active"}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("seed project %s: %v", name, err)
	}
	return project
}

func seedMember(t *testing.T, db *gorm.DB, project *model.Project, user *model.User, role string) *model.ProjectMember {
	t.Helper()
	member := &model.ProjectMember{ProjectID: project.ID, UserID: user.ID, Role: role, AddedBy: project.OwnerID}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return member
}

func seedSection(t *testing.T, db *gorm.DB, project *model.Project, name string) *model.Section {
	t.Helper()
	section := &model.Section{ProjectID: project.ID, Name: name}
	if err := db.Create(section).Error; err != nil {
		t.Fatalf("seed section %s: %v", name, err)
	}
	return section
}

func seedTask(t *testing.T, db *gorm.DB, project *model.Project, section *model.Section, title string) *model.Task {
	t.Helper()
	task := &model.Task{ProjectID: project.ID, Title: title, Status: "open", Priority: "normal", CreatorID: project.OwnerID}
	if section != nil {
		task.SectionID = &section.ID
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("seed task %s: %v", title, err)
	}
	return task
}

func seedActiveAssignment(t *testing.T, db *gorm.DB, targetType string, targetID uint, user *model.User, assignedBy uint, role string) *model.Assignment {
	t.Helper()
	key := model.ActiveDedupeKey(targetType, targetID, user.ID)
	row := &model.Assignment{
		TargetType: targetType,
		TargetID:   targetID,
		UserID:     &user.ID,
		AssignedBy: assignedBy,
		Role:       role,
		Status:     model.AssignmentActive,
		DedupeKey:  &key,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	return row
}

func errorCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		t.Fatal("expected coded error, got nil")
	}
	code, _ := splitErrorCode(err)
	return code
}

// Every model migrates into one schema here. Index names must be
// table-scoped: sqlite resolves them in a single database-wide namespace,
// unlike mysql's per-table scope.
func TestAutoMigrateAllModels(t *testing.T) {
	newTestDB(t)
}

func countActive(t *testing.T, db *gorm.DB, targetType string, targetID uint) int64 {
	t.Helper()
	var count int64
	db.Model(&model.Assignment{}).
		Where("target_type = ? AND target_id = ? AND status = ?", targetType, targetID, model.AssignmentActive).
		Count(&count)
	return count
}
