package manager

import (
	"context"
	"errors"

	"github.com/jacentio/projectideas/model"
	"github.com/jacentio/projectideas/store"
)

// votable is a document with an upvote counter.
type votable interface {
	store.Document
	AddUpvote()
	RemoveUpvote()
}

// upvoteTarget describes the counter-carrying document an upvote points at.
type upvoteTarget struct {
	kind       store.Kind
	upvoteKind store.Kind
	id         string
	index      string
}

// upvote creates the (target, user) upvote document and, only when it is new,
// increments the target's counter. Unknown users are ignored.
func upvote[T any, PT interface {
	*T
	votable
}](ctx context.Context, m *Manager, target upvoteTarget, marker store.Document, indexed func(PT) bool) error {
	if err := m.store.Create(ctx, marker); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil
		}
		return err
	}

	doc, err := store.Get[T](ctx, m.store, target.kind, target.id, target.id)
	if err != nil {
		return err
	}
	p := PT(doc)
	p.AddUpvote()
	if indexed(p) {
		m.tryUpdateIndex(ctx, target.index, target.id, p)
	}
	return m.store.Replace(ctx, p)
}

// unupvote deletes the upvote document and decrements the target's counter.
// The upvote document must exist.
func unupvote[T any, PT interface {
	*T
	votable
}](ctx context.Context, m *Manager, target upvoteTarget, userID string, indexed func(PT) bool) error {
	if err := m.store.Delete(ctx, target.upvoteKind, userID, target.id); err != nil {
		return err
	}

	doc, err := store.Get[T](ctx, m.store, target.kind, target.id, target.id)
	if err != nil {
		return err
	}
	p := PT(doc)
	p.RemoveUpvote()
	if indexed(p) {
		m.tryUpdateIndex(ctx, target.index, target.id, p)
	}
	return m.store.Replace(ctx, p)
}

func ideaTarget(ideaID string) upvoteTarget {
	return upvoteTarget{kind: model.KindIdea, upvoteKind: model.KindIdeaUpvote, id: ideaID, index: IdeaIndex}
}

func projectTarget(projectID string) upvoteTarget {
	return upvoteTarget{kind: model.KindProject, upvoteKind: model.KindProjectUpvote, id: projectID, index: ProjectIndex}
}

func ideaIndexed(*model.Idea) bool { return true }

func projectIndexed(p *model.Project) bool { return p.PublicProject }

// UpvoteIdea records userID's upvote on ideaID. Upvoting twice counts once,
// and upvotes by unknown users are ignored.
func (m *Manager) UpvoteIdea(ctx context.Context, ideaID, userID string) error {
	if ok, err := m.UserExists(ctx, userID); err != nil || !ok {
		return err
	}
	return upvote[model.Idea](ctx, m, ideaTarget(ideaID), model.NewIdeaUpvote(ideaID, userID), ideaIndexed)
}

// UnupvoteIdea withdraws userID's upvote on ideaID.
func (m *Manager) UnupvoteIdea(ctx context.Context, ideaID, userID string) error {
	return unupvote[model.Idea](ctx, m, ideaTarget(ideaID), userID, ideaIndexed)
}

// UserHasUpvotedIdea reports whether userID upvoted ideaID.
func (m *Manager) UserHasUpvotedIdea(ctx context.Context, ideaID, userID string) (bool, error) {
	if invalidUserID(userID) {
		return false, nil
	}
	return m.store.Exists(ctx, model.KindIdeaUpvote, userID, ideaID)
}

// UpvoteProject records userID's upvote on projectID. Upvoting twice counts
// once, and upvotes by unknown users are ignored.
func (m *Manager) UpvoteProject(ctx context.Context, projectID, userID string) error {
	if ok, err := m.UserExists(ctx, userID); err != nil || !ok {
		return err
	}
	return upvote[model.Project](ctx, m, projectTarget(projectID), model.NewProjectUpvote(projectID, userID), projectIndexed)
}

// UnupvoteProject withdraws userID's upvote on projectID.
func (m *Manager) UnupvoteProject(ctx context.Context, projectID, userID string) error {
	return unupvote[model.Project](ctx, m, projectTarget(projectID), userID, projectIndexed)
}

// UserHasUpvotedProject reports whether userID upvoted projectID.
func (m *Manager) UserHasUpvotedProject(ctx context.Context, projectID, userID string) (bool, error) {
	if invalidUserID(userID) {
		return false, nil
	}
	return m.store.Exists(ctx, model.KindProjectUpvote, userID, projectID)
}
