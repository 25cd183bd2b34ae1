package manager

import (
	"context"

	"go.uber.org/zap"

	"github.com/jacentio/projectideas/model"
	"github.com/jacentio/projectideas/store"
)

// CreateIdea stores a new idea. Its tags are counted, it is indexed, the
// author upvotes it and it is added to the author's posted ideas. Only the
// idea write itself can fail the call.
func (m *Manager) CreateIdea(ctx context.Context, idea *model.Idea) error {
	if err := m.store.Create(ctx, idea); err != nil {
		return err
	}
	m.updateTags(ctx, model.KindIdeaTag, idea.Tags, nil)
	m.tryIndex(ctx, IdeaIndex, idea.IdeaID, idea)

	if err := m.UpvoteIdea(ctx, idea.IdeaID, idea.AuthorID); err != nil {
		m.absorb("author_upvote", err, zap.String("ideaId", idea.IdeaID))
	}
	if err := m.store.Create(ctx, model.NewUserPostedIdea(idea.AuthorID, idea.IdeaID, m.now())); err != nil {
		m.absorb("posted_reference", err, zap.String("ideaId", idea.IdeaID))
	}
	return nil
}

// GetIdea reads an idea, deleted or not.
func (m *Manager) GetIdea(ctx context.Context, ideaID string) (*model.Idea, error) {
	return store.Get[model.Idea](ctx, m.store, model.KindIdea, ideaID, ideaID)
}

func (m *Manager) liveIdeas() *store.Query {
	return m.registry.QueryByType(model.KindIdea).Where("deleted", false).OrderByDesc("timeCreated")
}

// GetAllIdeas returns every live idea, newest first.
func (m *Manager) GetAllIdeas(ctx context.Context) ([]model.Idea, error) {
	return store.FindAll[model.Idea](ctx, m.store, m.liveIdeas())
}

// GetIdeasByPage returns a page of live ideas, newest first.
func (m *Manager) GetIdeasByPage(ctx context.Context, pageNumber int) (store.Page[model.Idea], error) {
	return store.FindPage[model.Idea](ctx, m.store, m.liveIdeas(), pageNumber, m.pageSize())
}

// GetIdeasByTagAndPage returns a page of live ideas tagged tag, newest first.
func (m *Manager) GetIdeasByTagAndPage(ctx context.Context, tag string, pageNumber int) (store.Page[model.Idea], error) {
	return store.FindPage[model.Idea](ctx, m.store, m.liveIdeas().WhereContains("tags", tag), pageNumber, m.pageSize())
}

// GetIdeasInList returns the live ideas among ideaIDs, newest first.
func (m *Manager) GetIdeasInList(ctx context.Context, ideaIDs []string) ([]model.Idea, error) {
	if len(ideaIDs) == 0 {
		return []model.Idea{}, nil
	}
	q := m.registry.QueryByPartitionKeyList(ideaIDs, model.KindIdea).
		Where("deleted", false).
		OrderByDesc("timeCreated")
	return store.FindAll[model.Idea](ctx, m.store, q)
}

// UpdateIdea replaces an edited idea and applies its tag delta.
func (m *Manager) UpdateIdea(ctx context.Context, idea *model.Idea, addedTags, removedTags []string) error {
	idea.TimeLastEdited = m.now().Unix()
	m.tryUpdateIndex(ctx, IdeaIndex, idea.IdeaID, idea)
	m.updateTags(ctx, model.KindIdeaTag, addedTags, removedTags)
	return m.store.Replace(ctx, idea)
}

// DeleteIdea soft-deletes an idea. It leaves the index and the author's
// posted ideas, and stops counting towards its tags. Comments and upvotes
// stay in place.
func (m *Manager) DeleteIdea(ctx context.Context, idea *model.Idea) error {
	if idea.Deleted {
		return nil
	}
	m.tryDeleteIndex(ctx, IdeaIndex, idea.IdeaID)

	q := m.registry.QueryByPartitionKey(idea.AuthorID, model.KindUserPostedIdea).Where("ideaId", idea.IdeaID)
	if err := m.removeReference(ctx, "unpost_idea", q, model.KindUserPostedIdea, idea.AuthorID); err != nil {
		m.absorb("unpost_idea", err, zap.String("ideaId", idea.IdeaID))
	}
	m.updateTags(ctx, model.KindIdeaTag, nil, idea.Tags)

	idea.MarkDeleted()
	return m.store.Replace(ctx, idea)
}

// SearchIdeas returns the live ideas best matching query, best first.
func (m *Manager) SearchIdeas(ctx context.Context, query string) ([]model.Idea, error) {
	ids, err := m.searcher.Search(ctx, IdeaIndex, query, searchLimit)
	if err != nil {
		return nil, err
	}
	ideas, err := store.HydrateList[model.Idea](ctx, m.store, ids, model.KindIdea)
	if err != nil {
		return nil, err
	}
	live := ideas[:0]
	for _, idea := range ideas {
		if !idea.Deleted {
			live = append(live, idea)
		}
	}
	return live, nil
}
