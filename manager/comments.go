package manager

import (
	"context"

	"github.com/jacentio/projectideas/model"
	"github.com/jacentio/projectideas/store"
)

// CreateComment stores a new comment in its idea's partition.
func (m *Manager) CreateComment(ctx context.Context, comment *model.Comment) error {
	return m.store.Create(ctx, comment)
}

// GetAllCommentsOnIdea returns the comments on ideaID, newest first.
func (m *Manager) GetAllCommentsOnIdea(ctx context.Context, ideaID string) ([]model.Comment, error) {
	q := m.registry.QueryByPartitionKey(ideaID, model.KindComment).OrderByDesc("timeCreated")
	return store.FindAll[model.Comment](ctx, m.store, q)
}

// GetCommentOnIdea finds one comment on ideaID.
func (m *Manager) GetCommentOnIdea(ctx context.Context, ideaID, commentID string) (*model.Comment, error) {
	return store.FindOne[model.Comment](ctx, m.store, m.registry.QueryByIDAndPartitionKey(commentID, ideaID, model.KindComment))
}

// UpdateComment replaces an edited comment.
func (m *Manager) UpdateComment(ctx context.Context, comment *model.Comment) error {
	comment.TimeLastEdited = m.now().Unix()
	return m.store.Replace(ctx, comment)
}

// DeleteComment removes a comment.
func (m *Manager) DeleteComment(ctx context.Context, commentID, ideaID string) error {
	return m.store.Delete(ctx, model.KindComment, commentID, ideaID)
}
