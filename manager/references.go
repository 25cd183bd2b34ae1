package manager

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jacentio/projectideas/model"
	"github.com/jacentio/projectideas/store"
)

// SaveIdeaForUser records that userID saved ideaID. Saving twice is a no-op.
func (m *Manager) SaveIdeaForUser(ctx context.Context, ideaID, userID string) error {
	saved, err := m.UserHasSavedIdea(ctx, ideaID, userID)
	if err != nil || saved {
		return err
	}
	return m.store.Create(ctx, model.NewUserSavedIdea(userID, ideaID, m.now()))
}

// UnsaveIdeaForUser removes the saved reference. A missing reference is
// logged and ignored.
func (m *Manager) UnsaveIdeaForUser(ctx context.Context, ideaID, userID string) error {
	q := m.registry.QueryByPartitionKey(userID, model.KindUserSavedIdea).Where("ideaId", ideaID)
	return m.removeReference(ctx, "unsave_idea", q, model.KindUserSavedIdea, userID)
}

// UserHasSavedIdea reports whether userID saved ideaID. Invalid user ids
// have saved nothing.
func (m *Manager) UserHasSavedIdea(ctx context.Context, ideaID, userID string) (bool, error) {
	if invalidUserID(userID) {
		return false, nil
	}
	n, err := m.store.Count(ctx, m.registry.QueryByPartitionKey(userID, model.KindUserSavedIdea).Where("ideaId", ideaID))
	return n > 0, err
}

// GetSavedIdeasForUser returns a page of the ideas userID saved, most
// recently saved first.
func (m *Manager) GetSavedIdeasForUser(ctx context.Context, userID string, pageNumber int) (store.Page[model.Idea], error) {
	q := m.registry.QueryByPartitionKey(userID, model.KindUserSavedIdea).OrderByDesc("timeSaved")
	return m.hydrateIdeas(ctx, q, pageNumber)
}

// GetPostedIdeasForUser returns a page of the ideas userID posted, newest first.
func (m *Manager) GetPostedIdeasForUser(ctx context.Context, userID string, pageNumber int) (store.Page[model.Idea], error) {
	q := m.registry.QueryByPartitionKey(userID, model.KindUserPostedIdea).OrderByDesc("timeCreated")
	return m.hydrateIdeas(ctx, q, pageNumber)
}

func (m *Manager) hydrateIdeas(ctx context.Context, q *store.Query, pageNumber int) (store.Page[model.Idea], error) {
	keys, err := store.ValuePage(ctx, m.store, q, "ideaId", pageNumber, m.pageSize())
	if err != nil {
		return store.Page[model.Idea]{}, err
	}
	return store.Hydrate[model.Idea](ctx, m.store, keys, model.KindIdea)
}

// JoinProjectForUser records that userID joined projectID.
func (m *Manager) JoinProjectForUser(ctx context.Context, userID, projectID string) error {
	return m.store.Create(ctx, model.NewUserJoinedProject(userID, projectID, m.now()))
}

// LeaveProjectForUser removes the joined reference. A missing reference is
// logged and ignored.
func (m *Manager) LeaveProjectForUser(ctx context.Context, userID, projectID string) error {
	q := m.registry.QueryByPartitionKey(userID, model.KindUserJoinedProject).Where("projectId", projectID)
	return m.removeReference(ctx, "leave_project", q, model.KindUserJoinedProject, userID)
}

// GetJoinedProjectsForUser returns a page of the projects userID joined,
// most recently joined first.
func (m *Manager) GetJoinedProjectsForUser(ctx context.Context, userID string, pageNumber int) (store.Page[model.Project], error) {
	q := m.registry.QueryByPartitionKey(userID, model.KindUserJoinedProject).OrderByDesc("timeJoined")
	keys, err := store.ValuePage(ctx, m.store, q, "projectId", pageNumber, m.pageSize())
	if err != nil {
		return store.Page[model.Project]{}, err
	}
	return store.Hydrate[model.Project](ctx, m.store, keys, model.KindProject)
}

// reference decodes the id of any back-reference document.
type reference struct {
	ID string `dynamodbav:"id"`
}

// removeReference deletes the first back-reference matching q.
func (m *Manager) removeReference(ctx context.Context, operation string, q *store.Query, kind store.Kind, userID string) error {
	ref, err := store.FindOne[reference](ctx, m.store, q)
	if err == nil {
		err = m.store.Delete(ctx, kind, ref.ID, userID)
	}
	if errors.Is(err, store.ErrEmptyResult) || errors.Is(err, store.ErrNotFound) {
		m.logger.Warn("back-reference already gone",
			zap.String("operation", operation),
			zap.String("userId", userID),
			zap.Error(err),
		)
		return nil
	}
	return err
}
