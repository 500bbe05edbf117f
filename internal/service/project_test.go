package service

import (
	"testing"

	"github.com/taskMaster/backend/internal/model"
)

func TestProjectListIncludesAssignedProjects(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	user := seedUser(t, db, "user@example.com", "User")

	owned := seedProject(t, db, user, "Mine")
	viaMember := seedProject(t, db, owner, "Team")
	seedMember(t, db, viaMember, user, model.MemberRoleMember)
	viaAssignment := seedProject(t, db, owner, "Shared")
	seedActiveAssignment(t, db, model.TargetProject, viaAssignment.ID, user, owner.ID, model.AssignmentRoleCollaborator)
	seedProject(t, db, owner, "Unreachable")

	projects, total, err := NewProjectService(db).List(user.ID, "", 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	got := map[uint]bool{}
	for _, p := range projects {
		got[p.ID] = true
	}
	for _, want := range []uint{owned.ID, viaMember.ID, viaAssignment.ID} {
		if !got[want] {
			t.Fatalf("project %d missing from list %v", want, got)
		}
	}
}

func TestCreateWritesNoOwnerMemberRow(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")

	project, err := NewProjectService(db).Create("Apollo", "", "#ff0000", owner.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var count int64
	db.Model(&model.ProjectMember{}).Where("project_id = ?", project.ID).Count(&count)
	if count != 0 {
		t.Fatalf("member rows = %d, want 0: ownership is implicit", count)
	}

	access, err := newTestAccess(db).Resolve(owner.ID, project.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if access.Level != AccessOwner {
		t.Fatalf("level = %q, want %q", access.Level, AccessOwner)
	}
}

func TestAddMembersSkipsOwnerAndDuplicates(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	existing := seedUser(t, db, "existing@example.com", "Existing")
	fresh := seedUser(t, db, "fresh@example.com", "Fresh")
	project := seedProject(t, db, owner, "Apollo")
	seedMember(t, db, project, existing, model.MemberRoleMember)

	svc := NewProjectService(db)
	added, skipped, err := svc.AddMembers(project.ID, []uint{owner.ID, existing.ID, fresh.ID}, model.MemberRoleMember, owner.ID)
	if err != nil {
		t.Fatalf("add members: %v", err)
	}
	if len(added) != 1 || added[0].ID != fresh.ID {
		t.Fatalf("added = %+v, want only fresh", added)
	}
	if len(skipped) != 2 {
		t.Fatalf("skipped = %v, want owner and existing", skipped)
	}

	if _, _, err := svc.AddMembers(project.ID, []uint{fresh.ID}, "ADMIN", owner.ID); errorCode(t, err) != 40002 {
		t.Fatalf("invalid role: %v, want 40002", err)
	}
}

func TestCanManageMembers(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	coOwner := seedUser(t, db, "co@example.com", "Co")
	member := seedUser(t, db, "member@example.com", "Member")
	project := seedProject(t, db, owner, "Apollo")
	seedMember(t, db, project, coOwner, model.MemberRoleOwner)
	seedMember(t, db, project, member, model.MemberRoleMember)

	svc := NewProjectService(db)
	if !svc.CanManageMembers(project.ID, owner.ID) {
		t.Fatal("project owner must manage members")
	}
	if !svc.CanManageMembers(project.ID, coOwner.ID) {
		t.Fatal("OWNER-role member must manage members")
	}
	if svc.CanManageMembers(project.ID, member.ID) {
		t.Fatal("plain member must not manage members")
	}
}

func TestRemoveMember(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner@example.com", "Owner")
	member := seedUser(t, db, "member@example.com", "Member")
	project := seedProject(t, db, owner, "Apollo")
	seedMember(t, db, project, member, model.MemberRoleMember)

	svc := NewProjectService(db)
	if err := svc.RemoveMember(project.ID, member.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.RemoveMember(project.ID, member.ID); errorCode(t, err) != 40401 {
		t.Fatalf("second remove: %v, want 40401", err)
	}
}
