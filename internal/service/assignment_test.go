package service

import (
	"errors"
	"testing"
	"time"

	"github.com/taskMaster/backend/internal/model"
	"gorm.io/gorm"
)

func newTestAssignment(db *gorm.DB) *AssignmentService {
	return NewAssignmentService(db, newTestAccess(db), 30)
}

func TestCreateBatchPartialSuccess(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	project := seedProject(t, db, owner, "Apollo")
	section := seedSection(t, db, project, "Backlog")
	good := seedUser(t, db, "good@example.com", "Good")
	already := seedUser(t, db, "already@example.com", "Already")
	seedActiveAssignment(t, db, model.TargetSection, section.ID, already, owner.ID, model.AssignmentRoleMember)

	svc := newTestAssignment(db)
	result, err := svc.CreateBatch(owner.ID, model.TargetSection, section.ID,
		[]uint{good.ID, already.ID, 9999},
		[]string{"new@example.com", "not-an-email"},
		"欢迎加入")
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if len(result.Created) != 2 {
		t.Fatalf("created = %d, want 2 (one user grant, one invitation)", len(result.Created))
	}
	if len(result.Errors) != 3 {
		t.Fatalf("errors = %d, want 3: %+v", len(result.Errors), result.Errors)
	}

	codes := map[int]bool{}
	for _, e := range result.Errors {
		codes[e.Code] = true
	}
	if !codes[40901] {
		t.Fatal("missing duplicate-active error 40901")
	}
	if !codes[40401] {
		t.Fatal("missing unknown-user error 40401")
	}
	if !codes[40004] {
		t.Fatal("missing invalid-email error 40004")
	}

	var invitation model.Assignment
	if err := db.Where("email = ?", "new@example.com").First(&invitation).Error; err != nil {
		t.Fatalf("load invitation: %v", err)
	}
	if invitation.Status != model.AssignmentPending {
		t.Fatalf("invitation status = %q, want PENDING", invitation.Status)
	}
	if invitation.Token == "" {
		t.Fatal("invitation must carry a token")
	}
	if invitation.ExpiresAt == nil || !invitation.ExpiresAt.After(time.Now()) {
		t.Fatalf("invitation deadline not in the future: %v", invitation.ExpiresAt)
	}
}

func TestCreateBatchRequiresAssignPermission(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	member := seedUser(t, db, "member@example.com", "Member")
	target := seedUser(t, db, "target@example.com", "Target")
	project := seedProject(t, db, owner, "Apollo")
	seedMember(t, db, project, member, model.MemberRoleMember)

	svc := newTestAssignment(db)
	_, err := svc.CreateBatch(member.ID, model.TargetProject, project.ID, []uint{target.ID}, nil, "")
	if code := errorCode(t, err); code != 40301 {
		t.Fatalf("code = %d, want 40301", code)
	}
	if n := countActive(t, db, model.TargetProject, project.ID); n != 0 {
		t.Fatalf("active rows = %d, want 0: forbidden request must create nothing", n)
	}
}

func TestCreateBatchTaskSingleCandidate(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	a := seedUser(t, db, "a@example.com", "A")
	b := seedUser(t, db, "b@example.com", "B")
	project := seedProject(t, db, owner, "Apollo")
	task := seedTask(t, db, project, nil, "Solo work")

	svc := newTestAssignment(db)
	_, err := svc.CreateBatch(owner.ID, model.TargetTask, task.ID, []uint{a.ID, b.ID}, nil, "")
	if code := errorCode(t, err); code != 40003 {
		t.Fatalf("code = %d, want 40003", code)
	}
	if n := countActive(t, db, model.TargetTask, task.ID); n != 0 {
		t.Fatalf("active rows = %d, want 0", n)
	}
}

func TestCreateBatchEmailHasAccount(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	seedUser(t, db, "existing@example.com", "Existing")
	project := seedProject(t, db, owner, "Apollo")

	svc := newTestAssignment(db)
	result, err := svc.CreateBatch(owner.ID, model.TargetProject, project.ID, nil, []string{"existing@example.com"}, "")
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if len(result.Errors) != 1 || result.Errors[0].Code != 40903 {
		t.Fatalf("errors = %+v, want single 40903", result.Errors)
	}
}

func TestCreateBatchDuplicatePendingInvitation(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	project := seedProject(t, db, owner, "Apollo")

	svc := newTestAssignment(db)
	first, err := svc.CreateBatch(owner.ID, model.TargetProject, project.ID, nil, []string{"invitee@example.com"}, "")
	if err != nil || len(first.Created) != 1 {
		t.Fatalf("first invite: err=%v created=%d", err, len(first.Created))
	}

	second, err := svc.CreateBatch(owner.ID, model.TargetProject, project.ID, nil, []string{"Invitee@Example.com"}, "")
	if err != nil {
		t.Fatalf("second invite: %v", err)
	}
	if len(second.Created) != 0 || len(second.Errors) != 1 || second.Errors[0].Code != 40902 {
		t.Fatalf("second invite result = %+v, want single 40902", second)
	}
}

func TestDedupeKeyBlocksConcurrentDuplicate(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	user := seedUser(t, db, "dev@example.com", "Dev")
	project := seedProject(t, db, owner, "Apollo")
	seedActiveAssignment(t, db, model.TargetProject, project.ID, user, owner.ID, model.AssignmentRoleMember)

	// A racing writer that slipped past the read-time check still hits the
	// unique index on the dedupe key.
	key := model.ActiveDedupeKey(model.TargetProject, project.ID, user.ID)
	racer := &model.Assignment{
		TargetType: model.TargetProject,
		TargetID:   project.ID,
		UserID:     &user.ID,
		AssignedBy: owner.ID,
		Role:       model.AssignmentRoleMember,
		Status:     model.AssignmentActive,
		DedupeKey:  &key,
	}
	err := db.Create(racer).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("err = %v, want gorm.ErrDuplicatedKey", err)
	}
	if n := countActive(t, db, model.TargetProject, project.ID); n != 1 {
		t.Fatalf("active rows = %d, want 1", n)
	}
}

func TestInviteEmailToTaskReplacesAssignee(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	current := seedUser(t, db, "current@example.com", "Current")
	project := seedProject(t, db, owner, "Apollo")
	task := seedTask(t, db, project, nil, "Handover")
	seedActiveAssignment(t, db, model.TargetTask, task.ID, current, owner.ID, model.AssignmentRoleMember)

	svc := newTestAssignment(db)
	result, err := svc.CreateBatch(owner.ID, model.TargetTask, task.ID, nil, []string{"invitee@example.com"}, "")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if len(result.Created) != 1 {
		t.Fatalf("created = %d, want 1: %+v", len(result.Created), result.Errors)
	}

	// The task is swept on invite, not at accept time: the old assignee is
	// gone and only the pending invitation remains.
	if n := countActive(t, db, model.TargetTask, task.ID); n != 0 {
		t.Fatalf("active rows = %d, want 0", n)
	}
	var total int64
	db.Unscoped().Model(&model.Assignment{}).
		Where("target_type = ? AND target_id = ?", model.TargetTask, task.ID).
		Count(&total)
	if total != 1 {
		t.Fatalf("rows = %d, want only the pending invitation", total)
	}

	var entry model.OperationLog
	if err := db.Where("resource_type = ? AND resource_id = ? AND action = ?",
		model.TargetTask, task.ID, model.ActionInvited).First(&entry).Error; err != nil {
		t.Fatalf("load log: %v", err)
	}
	if entry.Detail["old_assignee_name"] != "Current" {
		t.Fatalf("detail = %v, want old assignee Current", entry.Detail)
	}
}

func TestListFlipsExpiredInvitations(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	project := seedProject(t, db, owner, "Apollo")

	email := "late@example.com"
	past := time.Now().Add(-time.Hour)
	key := model.PendingDedupeKey(model.TargetProject, project.ID, email)
	row := &model.Assignment{
		TargetType: model.TargetProject,
		TargetID:   project.ID,
		Email:      &email,
		AssignedBy: owner.ID,
		Role:       model.AssignmentRoleMember,
		Status:     model.AssignmentPending,
		Token:      "tok-late",
		ExpiresAt:  &past,
		DedupeKey:  &key,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("seed overdue invitation: %v", err)
	}

	svc := newTestAssignment(db)
	_, pending, err := svc.List(owner.ID, model.TargetProject, project.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending = %d, want 0 after lazy expiry", len(pending))
	}

	var reloaded model.Assignment
	if err := db.First(&reloaded, row.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != model.AssignmentExpired {
		t.Fatalf("status = %q, want EXPIRED persisted", reloaded.Status)
	}
	if reloaded.DedupeKey != nil {
		t.Fatal("expired row must release its dedupe key")
	}
}

func TestRemoveUserGrantDeletesRow(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	user := seedUser(t, db, "dev@example.com", "Dev")
	project := seedProject(t, db, owner, "Apollo")
	row := seedActiveAssignment(t, db, model.TargetProject, project.ID, user, owner.ID, model.AssignmentRoleMember)

	svc := newTestAssignment(db)
	if err := svc.Remove(owner.ID, row.ID, "user"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	var count int64
	db.Unscoped().Model(&model.Assignment{}).Where("id = ?", row.ID).Count(&count)
	if count != 0 {
		t.Fatal("user grant must be hard deleted")
	}

	access, err := newTestAccess(db).Resolve(user.ID, project.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if access.Level != AccessNone {
		t.Fatalf("level after removal = %q, want %q", access.Level, AccessNone)
	}
}

func TestRemoveEmailInvitationCancels(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	project := seedProject(t, db, owner, "Apollo")

	svc := newTestAssignment(db)
	result, err := svc.CreateBatch(owner.ID, model.TargetProject, project.ID, nil, []string{"invitee@example.com"}, "")
	if err != nil || len(result.Created) != 1 {
		t.Fatalf("invite: err=%v created=%d", err, len(result.Created))
	}
	row := result.Created[0]

	if err := svc.Remove(owner.ID, row.ID, "email"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	var reloaded model.Assignment
	if err := db.First(&reloaded, row.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != model.AssignmentCancelled {
		t.Fatalf("status = %q, want CANCELLED", reloaded.Status)
	}
	if reloaded.DedupeKey != nil {
		t.Fatal("cancelled invitation must release its dedupe key")
	}

	// The slot is free again: a fresh invitation to the same email succeeds.
	again, err := svc.CreateBatch(owner.ID, model.TargetProject, project.ID, nil, []string{"invitee@example.com"}, "")
	if err != nil {
		t.Fatalf("re-invite: %v", err)
	}
	if len(again.Created) != 1 {
		t.Fatalf("re-invite created = %d, want 1: %+v", len(again.Created), again.Errors)
	}
}

func TestRemoveByStrangerForbidden(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	user := seedUser(t, db, "dev@example.com", "Dev")
	stranger := seedUser(t, db, "stranger@example.com", "Stranger")
	project := seedProject(t, db, owner, "Apollo")
	row := seedActiveAssignment(t, db, model.TargetProject, project.ID, user, owner.ID, model.AssignmentRoleMember)

	svc := newTestAssignment(db)
	err := svc.Remove(stranger.ID, row.ID, "user")
	if code := errorCode(t, err); code != 40301 {
		t.Fatalf("code = %d, want 40301", code)
	}
}

func TestCreateBatchUnknownTarget(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")

	svc := newTestAssignment(db)
	_, err := svc.CreateBatch(owner.ID, model.TargetProject, 4242, []uint{owner.ID}, nil, "")
	if code := errorCode(t, err); code != 40402 {
		t.Fatalf("code = %d, want 40402", code)
	}
}
