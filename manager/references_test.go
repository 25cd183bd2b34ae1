package manager_test

import (
	"context"
	"testing"

	"github.com/jacentio/projectideas/model"
)

func TestSavedIdeas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	first := f.idea(t, alice)
	second := f.idea(t, alice)

	for _, idea := range []*model.Idea{first, second, first} {
		if err := f.m.SaveIdeaForUser(ctx, idea.IdeaID, bob.UserID); err != nil {
			t.Fatalf("SaveIdeaForUser failed: %v", err)
		}
	}
	if n := f.count(t, f.store.Registry().QueryByPartitionKey(bob.UserID, model.KindUserSavedIdea)); n != 2 {
		t.Errorf("expected saving twice to keep one reference, got %d references", n)
	}

	saved, err := f.m.GetSavedIdeasForUser(ctx, bob.UserID, 1)
	if err != nil {
		t.Fatalf("GetSavedIdeasForUser failed: %v", err)
	}
	if len(saved.Documents) != 2 || saved.Documents[0].IdeaID != second.IdeaID {
		t.Errorf("expected most recently saved first, got %+v", saved.Documents)
	}
	if ok, _ := f.m.UserHasSavedIdea(ctx, first.IdeaID, bob.UserID); !ok {
		t.Error("expected first to be saved")
	}

	if err := f.m.UnsaveIdeaForUser(ctx, first.IdeaID, bob.UserID); err != nil {
		t.Fatalf("UnsaveIdeaForUser failed: %v", err)
	}
	if ok, _ := f.m.UserHasSavedIdea(ctx, first.IdeaID, bob.UserID); ok {
		t.Error("expected first to be unsaved")
	}
}

func TestUnsaveIdea_MissingReferenceWarns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.user(t, "bob")

	if err := f.m.UnsaveIdeaForUser(ctx, "never-saved", bob.UserID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	logs := f.logs.FilterMessage("back-reference already gone")
	if logs.Len() != 1 {
		t.Fatalf("expected 1 warning, got %d", logs.Len())
	}
	if logs.All()[0].Level.String() != "warn" {
		t.Errorf("expected warn level, got %s", logs.All()[0].Level)
	}
}

func TestSavedIdeas_DropsDanglingReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	ideas := []*model.Idea{f.idea(t, alice), f.idea(t, alice), f.idea(t, alice)}
	for _, idea := range ideas {
		if err := f.m.SaveIdeaForUser(ctx, idea.IdeaID, bob.UserID); err != nil {
			t.Fatalf("SaveIdeaForUser failed: %v", err)
		}
	}

	// Hard-remove the middle idea behind the manager's back.
	if err := f.store.Delete(ctx, model.KindIdea, ideas[1].ID, ideas[1].IdeaID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	saved, err := f.m.GetSavedIdeasForUser(ctx, bob.UserID, 1)
	if err != nil {
		t.Fatalf("expected dangling reference to be dropped, got %v", err)
	}
	if len(saved.Documents) != 2 || saved.Documents[0].IdeaID != ideas[2].IdeaID || saved.Documents[1].IdeaID != ideas[0].IdeaID {
		t.Errorf("expected [third first], got %+v", saved.Documents)
	}
	if n := f.logs.FilterMessage("dropping dangling reference").Len(); n != 1 {
		t.Errorf("expected 1 dangling warning, got %d", n)
	}
}

func TestSavedIdeas_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	size := f.store.PageSize()

	for i := 0; i < size+1; i++ {
		idea := f.idea(t, alice)
		if err := f.m.SaveIdeaForUser(ctx, idea.IdeaID, alice.UserID); err != nil {
			t.Fatalf("SaveIdeaForUser failed: %v", err)
		}
	}

	tests := []struct {
		page     int
		wantLen  int
		wantLast bool
	}{
		{1, size, false},
		{2, 1, true},
		{3, 0, true},
	}
	for _, tt := range tests {
		got, err := f.m.GetSavedIdeasForUser(ctx, alice.UserID, tt.page)
		if err != nil {
			t.Fatalf("page %d failed: %v", tt.page, err)
		}
		if len(got.Documents) != tt.wantLen || got.LastPage != tt.wantLast {
			t.Errorf("page %d: expected %d docs last=%v, got %d last=%v", tt.page, tt.wantLen, tt.wantLast, len(got.Documents), got.LastPage)
		}
	}
}

func TestLeaveProjectForUser_MissingReferenceIgnored(t *testing.T) {
	f := newFixture(t)
	if err := f.m.LeaveProjectForUser(context.Background(), "u", "p"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestJoinedProjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	idea := f.idea(t, alice)
	first := f.project(t, alice, idea.IdeaID)
	second := f.project(t, alice, idea.IdeaID)

	got, err := f.m.GetJoinedProjectsForUser(ctx, alice.UserID, 1)
	if err != nil {
		t.Fatalf("GetJoinedProjectsForUser failed: %v", err)
	}
	if len(got.Documents) != 2 || got.Documents[0].ProjectID != second.ProjectID || !got.LastPage {
		t.Errorf("expected [second first] on the last page, got %+v", got)
	}

	if err := f.m.LeaveProjectForUser(ctx, alice.UserID, first.ProjectID); err != nil {
		t.Fatalf("LeaveProjectForUser failed: %v", err)
	}
	got, _ = f.m.GetJoinedProjectsForUser(ctx, alice.UserID, 1)
	if len(got.Documents) != 1 || got.Documents[0].ProjectID != second.ProjectID {
		t.Errorf("expected only second, got %+v", got.Documents)
	}
}
