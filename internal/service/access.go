package service

import (
	"github.com/taskMaster/backend/internal/model"
	"gorm.io/gorm"
)

// Access levels, most specific first. The resolver returns the first level
// that matches; a user who is both owner and task assignee resolves to OWNER.
const (
	AccessOwner           = "OWNER"
	AccessTaskAssigned    = "TASK_ASSIGNED"
	AccessSectionAssigned = "SECTION_ASSIGNED"
	AccessProjectAssigned = "PROJECT_ASSIGNED"
	AccessProjectMember   = "PROJECT_MEMBER"
	AccessNone            = "NO_ACCESS"
)

type Permissions struct {
	View            bool `json:"view"`
	Edit            bool `json:"edit"`
	ViewAllSections bool `json:"view_all_sections"`
	ViewAllTasks    bool `json:"view_all_tasks"`
	CreateTask      bool `json:"create_task"`
	CreateSection   bool `json:"create_section"`
	AssignTasks     bool `json:"assign_tasks"`
	ManageMembers   bool `json:"manage_members"`
	ViewSettings    bool `json:"view_settings"`
	EditSettings    bool `json:"edit_settings"`
	DeleteProject   bool `json:"delete_project"`
}

// VisibleContent lists what the user may actually see. For section/task level
// access it is restricted to the assigned entities; higher levels see the
// whole project.
type VisibleContent struct {
	SectionIDs []uint `json:"section_ids"`
	TaskIDs    []uint `json:"task_ids"`
}

type Access struct {
	Level       string         `json:"access_level"`
	Permissions Permissions    `json:"permissions"`
	Visible     VisibleContent `json:"visible_content"`
}

type AccessService struct {
	db *gorm.DB

	// collaboratorRole is the advisory role on a project-level assignment
	// that unlocks edit/create capabilities. Injected from config, never a
	// literal at the comparison site.
	collaboratorRole string
}

func NewAccessService(db *gorm.DB, collaboratorRole string) *AccessService {
	return &AccessService{db: db, collaboratorRole: collaboratorRole}
}

// Resolve computes the single most specific relationship between user and
// project. A missing project resolves to NO_ACCESS rather than an error;
// callers decide whether that is a 403 or a 404.
func (s *AccessService) Resolve(userID, projectID uint) (*Access, error) {
	var project model.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return noAccess(), nil
		}
		return nil, err
	}

	if project.OwnerID == userID {
		access := &Access{Level: AccessOwner, Permissions: permissionsForLevel(AccessOwner, "")}
		if err := s.fillFullVisibility(access, projectID); err != nil {
			return nil, err
		}
		return access, nil
	}

	// Task and section assignments are scoped strictly to the queried
	// project; an active assignment in another project never elevates
	// access here.
	taskIDs, err := s.assignedTargetIDs(userID, model.TargetTask,
		"target_id IN (SELECT id FROM tasks WHERE project_id = ? AND deleted_at IS NULL)", projectID)
	if err != nil {
		return nil, err
	}
	if len(taskIDs) > 0 {
		return &Access{
			Level:       AccessTaskAssigned,
			Permissions: permissionsForLevel(AccessTaskAssigned, ""),
			Visible:     VisibleContent{SectionIDs: []uint{}, TaskIDs: taskIDs},
		}, nil
	}

	sectionIDs, err := s.assignedTargetIDs(userID, model.TargetSection,
		"target_id IN (SELECT id FROM sections WHERE project_id = ? AND deleted_at IS NULL)", projectID)
	if err != nil {
		return nil, err
	}
	if len(sectionIDs) > 0 {
		var sectionTaskIDs []uint
		if err := s.db.Model(&model.Task{}).
			Where("project_id = ? AND section_id IN ?", projectID, sectionIDs).
			Pluck("id", &sectionTaskIDs).Error; err != nil {
			return nil, err
		}
		return &Access{
			Level:       AccessSectionAssigned,
			Permissions: permissionsForLevel(AccessSectionAssigned, ""),
			Visible:     VisibleContent{SectionIDs: sectionIDs, TaskIDs: sectionTaskIDs},
		}, nil
	}

	var projectAssignment model.Assignment
	err = s.db.Where("target_type = ? AND target_id = ? AND user_id = ? AND status = ?",
		model.TargetProject, projectID, userID, model.AssignmentActive).
		First(&projectAssignment).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if err == nil {
		// The persisted role on the row decides edit capability, compared
		// against the configured collaborator role.
		access := &Access{
			Level:       AccessProjectAssigned,
			Permissions: s.projectAssignedPermissions(projectAssignment.Role),
		}
		if err := s.fillFullVisibility(access, projectID); err != nil {
			return nil, err
		}
		return access, nil
	}

	var membership model.ProjectMember
	err = s.db.Where("project_id = ? AND user_id = ?", projectID, userID).First(&membership).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if err == nil {
		access := &Access{
			Level:       AccessProjectMember,
			Permissions: permissionsForLevel(AccessProjectMember, membership.Role),
		}
		if err := s.fillFullVisibility(access, projectID); err != nil {
			return nil, err
		}
		return access, nil
	}

	return noAccess(), nil
}

func (s *AccessService) assignedTargetIDs(userID uint, targetType, scope string, projectID uint) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&model.Assignment{}).
		Where("target_type = ? AND user_id = ? AND status = ?", targetType, userID, model.AssignmentActive).
		Where(scope, projectID).
		Pluck("target_id", &ids).Error
	return ids, err
}

func (s *AccessService) fillFullVisibility(access *Access, projectID uint) error {
	sectionIDs := []uint{}
	if err := s.db.Model(&model.Section{}).Where("project_id = ?", projectID).Pluck("id", &sectionIDs).Error; err != nil {
		return err
	}
	taskIDs := []uint{}
	if err := s.db.Model(&model.Task{}).Where("project_id = ?", projectID).Pluck("id", &taskIDs).Error; err != nil {
		return err
	}
	access.Visible = VisibleContent{SectionIDs: sectionIDs, TaskIDs: taskIDs}
	return nil
}

func (s *AccessService) projectAssignedPermissions(role string) Permissions {
	canEdit := role == s.collaboratorRole
	return Permissions{
		View:            true,
		Edit:            canEdit,
		ViewAllSections: true,
		ViewAllTasks:    true,
		CreateTask:      canEdit,
		CreateSection:   canEdit,
	}
}

// permissionsForLevel is the capability table: one row per access level,
// parameterized by the membership role where the matrix depends on it.
func permissionsForLevel(level, memberRole string) Permissions {
	switch level {
	case AccessOwner:
		return Permissions{
			View: true, Edit: true,
			ViewAllSections: true, ViewAllTasks: true,
			CreateTask: true, CreateSection: true,
			AssignTasks: true, ManageMembers: true,
			ViewSettings: true, EditSettings: true,
			DeleteProject: true,
		}
	case AccessProjectMember:
		canWrite := memberRole != model.MemberRoleViewer
		return Permissions{
			View: true, Edit: canWrite,
			ViewAllSections: true, ViewAllTasks: true,
			CreateTask: canWrite, CreateSection: canWrite,
			AssignTasks:  memberRole == model.MemberRoleOwner,
			ViewSettings: true,
		}
	case AccessSectionAssigned, AccessTaskAssigned:
		return Permissions{View: true}
	default:
		return Permissions{}
	}
}

func noAccess() *Access {
	return &Access{
		Level:       AccessNone,
		Permissions: Permissions{},
		Visible:     VisibleContent{SectionIDs: []uint{}, TaskIDs: []uint{}},
	}
}
