package manager_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jacentio/projectideas/manager"
	"github.com/jacentio/projectideas/model"
	"github.com/jacentio/projectideas/store"
)

func TestCreateIdea_DerivedState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	idea := f.idea(t, alice, "go", "cli")

	got, err := f.m.GetIdea(ctx, idea.IdeaID)
	if err != nil {
		t.Fatalf("GetIdea failed: %v", err)
	}
	if got.Upvotes != 1 {
		t.Errorf("expected author upvote, got %d upvotes", got.Upvotes)
	}
	if ok, _ := f.m.UserHasUpvotedIdea(ctx, idea.IdeaID, alice.UserID); !ok {
		t.Error("expected author to have upvoted")
	}
	for _, tag := range []string{"go", "cli"} {
		if n := f.tagUsages(t, model.KindIdeaTag, tag); n != 1 {
			t.Errorf("expected tag %s usage 1, got %d", tag, n)
		}
	}
	if calls := f.index.CallsFor("index", manager.IdeaIndex); len(calls) != 1 || calls[0].ID != idea.IdeaID {
		t.Errorf("expected idea to be indexed, got %v", calls)
	}

	posted, err := f.m.GetPostedIdeasForUser(ctx, alice.UserID, 1)
	if err != nil {
		t.Fatalf("GetPostedIdeasForUser failed: %v", err)
	}
	if len(posted.Documents) != 1 || posted.Documents[0].IdeaID != idea.IdeaID || !posted.LastPage {
		t.Errorf("expected the idea in posted ideas, got %+v", posted)
	}
}

func TestCreateIdea_IndexFailureAbsorbed(t *testing.T) {
	f := newFixture(t)
	f.index.Err = errors.New("cluster red")
	alice := f.user(t, "alice")

	idea := f.idea(t, alice)

	if _, err := f.m.GetIdea(context.Background(), idea.IdeaID); err != nil {
		t.Errorf("expected idea to be stored, got %v", err)
	}
	if got := f.absorbed("search", "index"); got != 1 {
		t.Errorf("expected 1 absorbed index failure, got %v", got)
	}
	if n := f.logs.FilterMessage("search index index failed").Len(); n != 1 {
		t.Errorf("expected 1 error log, got %d", n)
	}
}

func TestIdeaLifecycle_CountersReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	existing := model.NewTag(model.KindIdeaTag, "go")
	existing.Usages = 4
	if err := f.m.CreateTag(ctx, existing); err != nil {
		t.Fatalf("CreateTag failed: %v", err)
	}

	idea := f.idea(t, alice, "go", "c#")
	if n := f.tagUsages(t, model.KindIdeaTag, "go"); n != 5 {
		t.Fatalf("expected go usage 5, got %d", n)
	}

	if err := f.m.DeleteIdea(ctx, idea); err != nil {
		t.Fatalf("DeleteIdea failed: %v", err)
	}
	if n := f.tagUsages(t, model.KindIdeaTag, "go"); n != 4 {
		t.Errorf("expected go usage back to 4, got %d", n)
	}
	if n := f.tagUsages(t, model.KindIdeaTag, "c#"); n != 0 {
		t.Errorf("expected c# usage back to 0, got %d", n)
	}

	posted, _ := f.m.GetPostedIdeasForUser(ctx, alice.UserID, 1)
	if len(posted.Documents) != 0 {
		t.Errorf("expected posted reference removed, got %+v", posted.Documents)
	}
	if n := f.count(t, f.store.Registry().QueryByPartitionKey(alice.UserID, model.KindUserPostedIdea)); n != 0 {
		t.Errorf("expected no posted references, got %d", n)
	}

	// A second delete of the same idea changes nothing.
	if err := f.m.DeleteIdea(ctx, idea); err != nil {
		t.Fatalf("second DeleteIdea failed: %v", err)
	}
	if n := f.tagUsages(t, model.KindIdeaTag, "go"); n != 4 {
		t.Errorf("expected go usage to stay 4, got %d", n)
	}
}

func TestDeleteIdea_KeepsDependents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	idea := f.idea(t, alice)

	comment := model.NewComment(idea.IdeaID, bob, "nice", f.now())
	if err := f.m.CreateComment(ctx, comment); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if err := f.m.UpvoteIdea(ctx, idea.IdeaID, bob.UserID); err != nil {
		t.Fatalf("UpvoteIdea failed: %v", err)
	}

	if err := f.m.DeleteIdea(ctx, idea); err != nil {
		t.Fatalf("DeleteIdea failed: %v", err)
	}

	got, err := f.m.GetIdea(ctx, idea.IdeaID)
	if err != nil {
		t.Fatalf("expected deleted idea to stay readable, got %v", err)
	}
	if !got.Deleted {
		t.Error("expected deleted flag")
	}
	if _, err := f.m.GetCommentOnIdea(ctx, idea.IdeaID, comment.ID); err != nil {
		t.Errorf("expected comment to survive, got %v", err)
	}
	if ok, _ := f.m.UserHasUpvotedIdea(ctx, idea.IdeaID, bob.UserID); !ok {
		t.Error("expected upvote to survive")
	}
	if calls := f.index.CallsFor("delete", manager.IdeaIndex); len(calls) != 1 {
		t.Errorf("expected idea removed from index, got %v", calls)
	}

	all, _ := f.m.GetAllIdeas(ctx)
	if len(all) != 0 {
		t.Errorf("expected deleted idea hidden from listings, got %d", len(all))
	}
}

func TestUpvoteIdea_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	idea := f.idea(t, alice)

	for i := 0; i < 2; i++ {
		if err := f.m.UpvoteIdea(ctx, idea.IdeaID, bob.UserID); err != nil {
			t.Fatalf("UpvoteIdea #%d failed: %v", i+1, err)
		}
	}

	got, _ := f.m.GetIdea(ctx, idea.IdeaID)
	if got.Upvotes != 2 {
		t.Errorf("expected 2 upvotes (author + bob), got %d", got.Upvotes)
	}
	if n := f.count(t, f.store.Registry().QueryByPartitionKey(idea.IdeaID, model.KindIdeaUpvote)); n != 2 {
		t.Errorf("expected 2 upvote documents, got %d", n)
	}
}

func TestUpvoteIdea_UnknownUserIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idea := f.idea(t, f.user(t, "alice"))

	if err := f.m.UpvoteIdea(ctx, idea.IdeaID, "ghost"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got, _ := f.m.GetIdea(ctx, idea.IdeaID)
	if got.Upvotes != 1 {
		t.Errorf("expected 1 upvote, got %d", got.Upvotes)
	}
}

func TestUnupvoteIdea(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	idea := f.idea(t, alice)

	if err := f.m.UnupvoteIdea(ctx, idea.IdeaID, alice.UserID); err != nil {
		t.Fatalf("UnupvoteIdea failed: %v", err)
	}
	got, _ := f.m.GetIdea(ctx, idea.IdeaID)
	if got.Upvotes != 0 {
		t.Errorf("expected 0 upvotes, got %d", got.Upvotes)
	}
	if ok, _ := f.m.UserHasUpvotedIdea(ctx, idea.IdeaID, alice.UserID); ok {
		t.Error("expected upvote to be gone")
	}

	if err := f.m.UnupvoteIdea(ctx, idea.IdeaID, alice.UserID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a missing upvote, got %v", err)
	}
}

func TestUserHasUpvoted_InvalidUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"", "null"} {
		if ok, err := f.m.UserHasUpvotedIdea(ctx, "idea", id); ok || err != nil {
			t.Errorf("expected false for %q, got %v, %v", id, ok, err)
		}
		if ok, err := f.m.UserHasSavedIdea(ctx, "idea", id); ok || err != nil {
			t.Errorf("expected false for %q, got %v, %v", id, ok, err)
		}
		if ok, err := f.m.UserHasUpvotedProject(ctx, "project", id); ok || err != nil {
			t.Errorf("expected false for %q, got %v, %v", id, ok, err)
		}
	}
}

func TestUpdateIdea(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idea := f.idea(t, f.user(t, "alice"), "go")
	before := idea.TimeLastEdited

	idea.Content = "edited"
	idea.Tags = []string{"rust"}
	if err := f.m.UpdateIdea(ctx, idea, []string{"rust"}, []string{"go"}); err != nil {
		t.Fatalf("UpdateIdea failed: %v", err)
	}

	got, _ := f.m.GetIdea(ctx, idea.IdeaID)
	if got.Content != "edited" {
		t.Errorf("expected edited content, got %q", got.Content)
	}
	if got.TimeLastEdited <= before {
		t.Errorf("expected last edited to advance past %d, got %d", before, got.TimeLastEdited)
	}
	if n := f.tagUsages(t, model.KindIdeaTag, "go"); n != 0 {
		t.Errorf("expected go usage 0, got %d", n)
	}
	if n := f.tagUsages(t, model.KindIdeaTag, "rust"); n != 1 {
		t.Errorf("expected rust usage 1, got %d", n)
	}
	if calls := f.index.CallsFor("update", manager.IdeaIndex); len(calls) < 1 {
		t.Error("expected an index update")
	}
}

func TestTagLifecycle_NewTagAddedThenRemoved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idea := f.idea(t, f.user(t, "alice"))

	if err := f.m.UpdateIdea(ctx, idea, []string{"fresh"}, nil); err != nil {
		t.Fatalf("UpdateIdea failed: %v", err)
	}
	if n := f.tagUsages(t, model.KindIdeaTag, "fresh"); n != 1 {
		t.Fatalf("expected usage 1, got %d", n)
	}
	if err := f.m.UpdateIdea(ctx, idea, nil, []string{"fresh"}); err != nil {
		t.Fatalf("UpdateIdea failed: %v", err)
	}

	if ok, _ := f.m.TagExists(ctx, model.KindIdeaTag, "fresh"); !ok {
		t.Fatal("expected tag document to remain")
	}
	if n := f.tagUsages(t, model.KindIdeaTag, "fresh"); n != 0 {
		t.Errorf("expected usage 0, got %d", n)
	}
}

func TestDecrementMissingTag_Absorbed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idea := f.idea(t, f.user(t, "alice"))

	if err := f.m.UpdateIdea(ctx, idea, nil, []string{"never-added"}); err != nil {
		t.Fatalf("expected missing tag to be absorbed, got %v", err)
	}
	if n := f.logs.FilterMessage("decrement_tag: reference already gone").Len(); n != 1 {
		t.Errorf("expected 1 warning, got %d", n)
	}
	if err := f.m.DecrementTagUsages(ctx, model.KindIdeaTag, "never-added"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound from the direct call, got %v", err)
	}
}

func TestTags_Listings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	idea := f.idea(t, alice, "a", "b")
	f.project(t, alice, idea.IdeaID, "c")

	ideaTags, _ := f.m.GetIdeaTags(ctx)
	projectTags, _ := f.m.GetProjectTags(ctx)
	all, _ := f.m.GetAllTags(ctx)
	if len(ideaTags) != 2 || len(projectTags) != 1 || len(all) != 3 {
		t.Errorf("expected 2 idea, 1 project, 3 total tags, got %d, %d, %d", len(ideaTags), len(projectTags), len(all))
	}

	tag, _ := f.m.GetTag(ctx, model.KindProjectTag, "c")
	if err := f.m.DeleteTag(ctx, tag); err != nil {
		t.Fatalf("DeleteTag failed: %v", err)
	}
	if ok, _ := f.m.TagExists(ctx, model.KindProjectTag, "c"); ok {
		t.Error("expected tag to be deleted")
	}
	if calls := f.index.CallsFor("delete", manager.TagIndex); len(calls) != 1 {
		t.Errorf("expected tag removed from index, got %v", calls)
	}
}

func TestIdeaListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	first := f.idea(t, alice, "go")
	second := f.idea(t, alice)
	third := f.idea(t, alice, "go")

	page, err := f.m.GetIdeasByPage(ctx, 1)
	if err != nil {
		t.Fatalf("GetIdeasByPage failed: %v", err)
	}
	want := []string{third.IdeaID, second.IdeaID, first.IdeaID}
	if len(page.Documents) != 3 || !page.LastPage {
		t.Fatalf("expected 3 ideas on the last page, got %+v", page)
	}
	for i, id := range want {
		if page.Documents[i].IdeaID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, page.Documents[i].IdeaID)
		}
	}

	tagged, _ := f.m.GetIdeasByTagAndPage(ctx, "go", 1)
	if len(tagged.Documents) != 2 || tagged.Documents[0].IdeaID != third.IdeaID {
		t.Errorf("expected 2 go ideas newest first, got %+v", tagged.Documents)
	}

	inList, _ := f.m.GetIdeasInList(ctx, []string{first.IdeaID, third.IdeaID, "missing"})
	if len(inList) != 2 || inList[0].IdeaID != third.IdeaID {
		t.Errorf("expected [third first], got %+v", inList)
	}
	empty, err := f.m.GetIdeasInList(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty list, got %v, %v", empty, err)
	}
}

func TestSearchIdeas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	a := f.idea(t, alice)
	b := f.idea(t, alice)
	deleted := f.idea(t, alice)
	if err := f.m.DeleteIdea(ctx, deleted); err != nil {
		t.Fatalf("DeleteIdea failed: %v", err)
	}
	f.index.SetResults(manager.IdeaIndex, b.IdeaID, "gone", deleted.IdeaID, a.IdeaID)

	got, err := f.m.SearchIdeas(ctx, "query")
	if err != nil {
		t.Fatalf("SearchIdeas failed: %v", err)
	}
	if len(got) != 2 || got[0].IdeaID != b.IdeaID || got[1].IdeaID != a.IdeaID {
		t.Errorf("expected [b a] in search order, got %+v", got)
	}
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	idea := f.idea(t, alice)

	older := model.NewComment(idea.IdeaID, alice, "one", f.now())
	newer := model.NewComment(idea.IdeaID, alice, "two", f.now())
	for _, c := range []*model.Comment{older, newer} {
		if err := f.m.CreateComment(ctx, c); err != nil {
			t.Fatalf("CreateComment failed: %v", err)
		}
	}

	all, err := f.m.GetAllCommentsOnIdea(ctx, idea.IdeaID)
	if err != nil {
		t.Fatalf("GetAllCommentsOnIdea failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != newer.ID {
		t.Errorf("expected newest comment first, got %+v", all)
	}

	older.Content = "edited"
	if err := f.m.UpdateComment(ctx, older); err != nil {
		t.Fatalf("UpdateComment failed: %v", err)
	}
	got, _ := f.m.GetCommentOnIdea(ctx, idea.IdeaID, older.ID)
	if got.Content != "edited" {
		t.Errorf("expected edited, got %q", got.Content)
	}

	if err := f.m.DeleteComment(ctx, older.ID, idea.IdeaID); err != nil {
		t.Fatalf("DeleteComment failed: %v", err)
	}
	if _, err := f.m.GetCommentOnIdea(ctx, idea.IdeaID, older.ID); !errors.Is(err, store.ErrEmptyResult) {
		t.Errorf("expected ErrEmptyResult, got %v", err)
	}
}
