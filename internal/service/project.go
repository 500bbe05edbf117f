package service

import (
	"fmt"

	"github.com/taskMaster/backend/internal/model"
	"gorm.io/gorm"
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

// Create persists a project. The owner is never written as a member row; the
// access resolver treats ownership as implicit OWNER.
func (s *ProjectService) Create(name, description, color string, ownerID uint) (*model.Project, error) {
	project := &model.Project{
		Name:        name,
		Description: description,
		Color:       color,
		OwnerID:     ownerID,
		Status:      "active",
	}
	if err := s.db.Create(project).Error; err != nil {
		return nil, err
	}
	s.db.Preload("Owner").First(project, project.ID)
	return project, nil
}

// List returns projects the user can reach: owned, direct membership, or an
// active project-level assignment.
func (s *ProjectService) List(userID uint, keyword string, page, pageSize int) ([]model.Project, int64, error) {
	query := s.db.Model(&model.Project{}).Where(
		"owner_id = ?"+
			" OR id IN (SELECT project_id FROM project_members WHERE user_id = ?)"+
			" OR id IN (SELECT target_id FROM assignments WHERE target_type = ? AND user_id = ? AND status = ?)",
		userID, userID, model.TargetProject, userID, model.AssignmentActive,
	)
	if keyword != "" {
		query = query.Where("name LIKE ?", "%"+keyword+"%")
	}

	var total int64
	query.Count(&total)

	var projects []model.Project
	if err := query.Preload("Owner").Order("updated_at desc").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (s *ProjectService) GetByID(id uint) (*model.Project, error) {
	var project model.Project
	if err := s.db.Preload("Owner").Preload("Members.User").First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *ProjectService) Update(id uint, updates map[string]interface{}) (*model.Project, error) {
	if err := s.db.Model(&model.Project{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *ProjectService) Delete(id uint) error {
	return s.db.Delete(&model.Project{}, id).Error
}

// CanManageMembers reports whether the user may add or remove member rows:
// the project owner or a member holding the OWNER role.
func (s *ProjectService) CanManageMembers(projectID, userID uint) bool {
	var project model.Project
	if err := s.db.Select("id, owner_id").First(&project, projectID).Error; err != nil {
		return false
	}
	if project.OwnerID == userID {
		return true
	}
	var count int64
	s.db.Model(&model.ProjectMember{}).
		Where("project_id = ? AND user_id = ? AND role = ?", projectID, userID, model.MemberRoleOwner).
		Count(&count)
	return count > 0
}

func (s *ProjectService) AddMembers(projectID uint, userIDs []uint, role string, addedBy uint) ([]model.UserBrief, []uint, error) {
	if !model.IsValidMemberRole(role) {
		return nil, nil, fmt.Errorf("40002:无效的成员角色: %s", role)
	}

	var project model.Project
	if err := s.db.Select("id, owner_id").First(&project, projectID).Error; err != nil {
		return nil, nil, fmt.Errorf("40402:项目不存在")
	}

	var added []model.UserBrief
	var skipped []uint

	for _, uid := range userIDs {
		if uid == project.OwnerID {
			skipped = append(skipped, uid)
			continue
		}

		var user model.User
		if err := s.db.First(&user, uid).Error; err != nil {
			return nil, nil, fmt.Errorf("40401:用户不存在: id=%d", uid)
		}

		var count int64
		s.db.Model(&model.ProjectMember{}).Where("project_id = ? AND user_id = ?", projectID, uid).Count(&count)
		if count > 0 {
			skipped = append(skipped, uid)
			continue
		}

		member := &model.ProjectMember{
			ProjectID: projectID,
			UserID:    uid,
			Role:      role,
			AddedBy:   addedBy,
		}
		s.db.Create(member)
		added = append(added, model.UserBrief{ID: user.ID, Name: user.Name, Email: user.Email})
	}
	return added, skipped, nil
}

func (s *ProjectService) RemoveMember(projectID, userID uint) error {
	result := s.db.Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&model.ProjectMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("40401:该用户不是项目成员")
	}
	return nil
}

func (s *ProjectService) GetMemberCount(projectID uint) int64 {
	var count int64
	s.db.Model(&model.ProjectMember{}).Where("project_id = ?", projectID).Count(&count)
	return count
}

func (s *ProjectService) GetTaskCount(projectID uint) int64 {
	var count int64
	s.db.Model(&model.Task{}).Where("project_id = ?", projectID).Count(&count)
	return count
}
