package service

import (
	"testing"

	"github.com/taskMaster/backend/internal/model"
	"gorm.io/gorm"
)

func newTestTaskAssign(db *gorm.DB) *TaskAssignService {
	return NewTaskAssignService(db, newTestAccess(db))
}

func lastLogAction(t *testing.T, db *gorm.DB, taskID uint) *model.OperationLog {
	t.Helper()
	var entry model.OperationLog
	err := db.Where("resource_type = ? AND resource_id = ?", model.TargetTask, taskID).
		Order("id desc").First(&entry).Error
	if err != nil {
		t.Fatalf("load operation log: %v", err)
	}
	return &entry
}

func TestAssignFirstTime(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	dev := seedUser(t, db, "dev@example.com", "Dev")
	project := seedProject(t, db, owner, "Apollo")
	task := seedTask(t, db, project, nil, "Implement login")

	svc := newTestTaskAssign(db)
	row, err := svc.Assign(owner.ID, task.ID, dev.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if row.UserID == nil || *row.UserID != dev.ID {
		t.Fatalf("assignee = %v, want %d", row.UserID, dev.ID)
	}
	if n := countActive(t, db, model.TargetTask, task.ID); n != 1 {
		t.Fatalf("active rows = %d, want 1", n)
	}

	entry := lastLogAction(t, db, task.ID)
	if entry.Action != model.ActionAssigned {
		t.Fatalf("action = %q, want %q", entry.Action, model.ActionAssigned)
	}
	if entry.Detail["assignee_name"] != "Dev" {
		t.Fatalf("detail = %v, want assignee_name Dev", entry.Detail)
	}
}

func TestReassignReplacesAssignee(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	first := seedUser(t, db, "first@example.com", "First")
	second := seedUser(t, db, "second@example.com", "Second")
	project := seedProject(t, db, owner, "Apollo")
	task := seedTask(t, db, project, nil, "Handover")

	svc := newTestTaskAssign(db)
	if _, err := svc.Assign(owner.ID, task.ID, first.ID); err != nil {
		t.Fatalf("assign first: %v", err)
	}
	row, err := svc.Assign(owner.ID, task.ID, second.ID)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if *row.UserID != second.ID {
		t.Fatalf("assignee = %d, want %d", *row.UserID, second.ID)
	}

	// The old row is gone entirely, not just deactivated.
	var total int64
	db.Unscoped().Model(&model.Assignment{}).
		Where("target_type = ? AND target_id = ?", model.TargetTask, task.ID).
		Count(&total)
	if total != 1 {
		t.Fatalf("rows = %d, want 1", total)
	}

	entry := lastLogAction(t, db, task.ID)
	if entry.Action != model.ActionReassigned {
		t.Fatalf("action = %q, want %q", entry.Action, model.ActionReassigned)
	}
	if entry.Detail["old_assignee_name"] != "First" || entry.Detail["assignee_name"] != "Second" {
		t.Fatalf("detail = %v, want old First / new Second", entry.Detail)
	}
}

func TestReassignSameUserLogsAssigned(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	dev := seedUser(t, db, "dev@example.com", "Dev")
	project := seedProject(t, db, owner, "Apollo")
	task := seedTask(t, db, project, nil, "Same hands")

	svc := newTestTaskAssign(db)
	if _, err := svc.Assign(owner.ID, task.ID, dev.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.Assign(owner.ID, task.ID, dev.ID); err != nil {
		t.Fatalf("assign again: %v", err)
	}
	if n := countActive(t, db, model.TargetTask, task.ID); n != 1 {
		t.Fatalf("active rows = %d, want 1", n)
	}
	entry := lastLogAction(t, db, task.ID)
	if entry.Action != model.ActionAssigned {
		t.Fatalf("action = %q, want %q for same-user re-assign", entry.Action, model.ActionAssigned)
	}
}

func TestAssignGrantsMinimalMembership(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	outsider := seedUser(t, db, "outsider@example.com", "Outsider")
	project := seedProject(t, db, owner, "Apollo")
	task := seedTask(t, db, project, nil, "Onboarding")

	if _, err := newTestTaskAssign(db).Assign(owner.ID, task.ID, outsider.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	var member model.ProjectMember
	err := db.Where("project_id = ? AND user_id = ?", project.ID, outsider.ID).First(&member).Error
	if err != nil {
		t.Fatalf("load membership: %v", err)
	}
	if member.Role != model.MemberRoleViewer {
		t.Fatalf("role = %q, want %q", member.Role, model.MemberRoleViewer)
	}
}

func TestAssignRequiresPermission(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	member := seedUser(t, db, "member@example.com", "Member")
	project := seedProject(t, db, owner, "Apollo")
	seedMember(t, db, project, member, model.MemberRoleMember)
	task := seedTask(t, db, project, nil, "Locked")

	_, err := newTestTaskAssign(db).Assign(member.ID, task.ID, member.ID)
	if code := errorCode(t, err); code != 40301 {
		t.Fatalf("code = %d, want 40301", code)
	}
}

func TestAssignUnknownTaskOrUser(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	project := seedProject(t, db, owner, "Apollo")
	task := seedTask(t, db, project, nil, "Real")

	svc := newTestTaskAssign(db)
	if _, err := svc.Assign(owner.ID, 4242, owner.ID); errorCode(t, err) != 40403 {
		t.Fatalf("unknown task: %v, want 40403", err)
	}
	if _, err := svc.Assign(owner.ID, task.ID, 4242); errorCode(t, err) != 40401 {
		t.Fatalf("unknown user: %v, want 40401", err)
	}
}

func TestUnassign(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	dev := seedUser(t, db, "dev@example.com", "Dev")
	project := seedProject(t, db, owner, "Apollo")
	task := seedTask(t, db, project, nil, "Short lived")

	svc := newTestTaskAssign(db)
	if _, err := svc.Assign(owner.ID, task.ID, dev.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := svc.Unassign(owner.ID, task.ID); err != nil {
		t.Fatalf("unassign: %v", err)
	}

	current, err := svc.CurrentAssignee(task.ID)
	if err != nil {
		t.Fatalf("current assignee: %v", err)
	}
	if current != nil {
		t.Fatalf("assignee = %+v, want none", current)
	}

	entry := lastLogAction(t, db, task.ID)
	if entry.Action != model.ActionUnassigned {
		t.Fatalf("action = %q, want %q", entry.Action, model.ActionUnassigned)
	}

	// Unassigning an unassigned task is an ack.
	if err := svc.Unassign(owner.ID, task.ID); err != nil {
		t.Fatalf("second unassign: %v", err)
	}
}

func TestCurrentAssigneeEmpty(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	project := seedProject(t, db, owner, "Apollo")
	task := seedTask(t, db, project, nil, "Nobody yet")

	current, err := newTestTaskAssign(db).CurrentAssignee(task.ID)
	if err != nil {
		t.Fatalf("current assignee: %v", err)
	}
	if current != nil {
		t.Fatalf("assignee = %+v, want none", current)
	}
}
