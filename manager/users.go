package manager

import (
	"context"

	"go.uber.org/zap"

	"github.com/jacentio/projectideas/model"
	"github.com/jacentio/projectideas/store"
)

// CreateUser stores a new user and sends the welcome email. A failed email
// does not undo the user.
func (m *Manager) CreateUser(ctx context.Context, user *model.User) error {
	if err := m.store.Create(ctx, user); err != nil {
		return err
	}
	if err := m.mailer.SendWelcomeEmail(ctx, user); err != nil {
		m.logger.Error("welcome email failed", zap.String("userId", user.UserID), zap.Error(err))
		m.metrics.AbsorbedFailure("mailer", "welcome_email")
	}
	return nil
}

// UserExists reports whether userID names a user.
func (m *Manager) UserExists(ctx context.Context, userID string) (bool, error) {
	return m.store.Exists(ctx, model.KindUser, userID, userID)
}

// GetUser reads a user.
func (m *Manager) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return store.Get[model.User](ctx, m.store, model.KindUser, userID, userID)
}

// GetUserByEmail finds the user with email.
func (m *Manager) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return store.FindOne[model.User](ctx, m.store, m.registry.QueryByType(model.KindUser).Where("email", email))
}

// GetUserByUsername finds the user with username.
func (m *Manager) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return store.FindOne[model.User](ctx, m.store, m.registry.QueryByType(model.KindUser).Where("username", username))
}

// UserWithUsernameExists reports whether username is taken.
func (m *Manager) UserWithUsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := m.store.Count(ctx, m.registry.QueryByType(model.KindUser).Where("username", username))
	return n > 0, err
}

// IsUserAdmin reports whether userID is an administrator.
func (m *Manager) IsUserAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := m.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.Admin, nil
}

// UpdateUser replaces user. When the username changed, every denormalized
// copy is rewritten first, unless renames are left to the stream handler.
func (m *Manager) UpdateUser(ctx context.Context, user *model.User) error {
	current, err := m.GetUser(ctx, user.UserID)
	if err != nil {
		return err
	}
	if current.Username != user.Username && !m.streamedRenames {
		if err := m.PropagateUsername(ctx, user.UserID, user.Username); err != nil {
			return err
		}
	}
	return m.store.Replace(ctx, user)
}

// UpdateEmailNotificationPreference sets the preference of the user owning
// emailSubscriptionID.
func (m *Manager) UpdateEmailNotificationPreference(ctx context.Context, emailSubscriptionID string, pref model.NotificationPreference) error {
	user, err := store.FindOne[model.User](ctx, m.store,
		m.registry.QueryByType(model.KindUser).Where("emailSubscriptionId", emailSubscriptionID))
	if err != nil {
		return err
	}
	user.NotificationPreference = pref
	return m.store.Replace(ctx, user)
}

// DeleteUser removes the user document. Documents the user owns elsewhere are
// left to the caller.
func (m *Manager) DeleteUser(ctx context.Context, userID string) error {
	return m.store.Delete(ctx, model.KindUser, userID, userID)
}

// PropagateUsername rewrites the username copies held by ideas, comments and
// projects the user authored or belongs to. Each affected partition is
// rewritten by its own procedure; a failed partition is logged and the rest
// are still processed. Rewriting an already renamed partition is a no-op, so
// the whole fan-out can be retried.
func (m *Manager) PropagateUsername(ctx context.Context, userID, username string) error {
	ideaIDs, err := store.Values(ctx, m.store,
		m.registry.QueryByType(model.KindPost).Where("authorId", userID), "ideaId")
	if err != nil {
		return err
	}
	projectIDs, err := store.Values(ctx, m.store,
		m.registry.QueryByType(model.KindProject).WhereAny(
			store.Contains("teamMemberIds", userID),
			store.Contains("joinRequesterIds", userID),
		), "projectId")
	if err != nil {
		return err
	}

	rename := model.UpdateUsername(userID, username)
	for _, pk := range distinct(ideaIDs) {
		m.rewritePartition(ctx, model.KindIdea, pk, rename)
	}
	for _, pk := range distinct(projectIDs) {
		m.rewritePartition(ctx, model.KindProject, pk, rename)
	}
	return nil
}

func (m *Manager) rewritePartition(ctx context.Context, kind store.Kind, partitionKey string, proc store.Procedure) {
	if err := m.store.Execute(ctx, kind, partitionKey, proc); err != nil {
		m.logger.Error("username rewrite failed",
			zap.String("kind", string(kind)),
			zap.String("partitionKey", partitionKey),
			zap.Error(err),
		)
		m.metrics.AbsorbedFailure("manager", "rename_partition")
	}
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
