package manager

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jacentio/projectideas/internal/keys"
	"github.com/jacentio/projectideas/model"
	"github.com/jacentio/projectideas/store"
)

// CreateTag stores a new tag and indexes it.
func (m *Manager) CreateTag(ctx context.Context, tag *model.Tag) error {
	if err := m.store.Create(ctx, tag); err != nil {
		return err
	}
	m.tryIndex(ctx, TagIndex, tagIndexID(tag), tag)
	return nil
}

// TagExists reports whether a tag of kind named name exists.
func (m *Manager) TagExists(ctx context.Context, kind store.Kind, name string) (bool, error) {
	return m.store.Exists(ctx, kind, keys.TagID(name), string(kind))
}

// GetTag reads a tag of kind by name.
func (m *Manager) GetTag(ctx context.Context, kind store.Kind, name string) (*model.Tag, error) {
	return store.Get[model.Tag](ctx, m.store, kind, keys.TagID(name), string(kind))
}

// GetIdeaTags returns every idea tag.
func (m *Manager) GetIdeaTags(ctx context.Context) ([]model.Tag, error) {
	return store.FindAll[model.Tag](ctx, m.store, m.registry.QueryByType(model.KindIdeaTag))
}

// GetProjectTags returns every project tag.
func (m *Manager) GetProjectTags(ctx context.Context) ([]model.Tag, error) {
	return store.FindAll[model.Tag](ctx, m.store, m.registry.QueryByType(model.KindProjectTag))
}

// GetAllTags returns every tag of either kind.
func (m *Manager) GetAllTags(ctx context.Context) ([]model.Tag, error) {
	return store.FindAll[model.Tag](ctx, m.store, m.registry.QueryByType(model.KindTag))
}

// IncrementTagUsages adds one usage to an existing tag.
func (m *Manager) IncrementTagUsages(ctx context.Context, kind store.Kind, name string) error {
	return m.adjustTagUsages(ctx, kind, name, 1)
}

// DecrementTagUsages removes one usage from an existing tag.
func (m *Manager) DecrementTagUsages(ctx context.Context, kind store.Kind, name string) error {
	return m.adjustTagUsages(ctx, kind, name, -1)
}

// adjustTagUsages is read-modify-write; concurrent adjustments of the same
// tag can lose an update.
func (m *Manager) adjustTagUsages(ctx context.Context, kind store.Kind, name string, delta int) error {
	tag, err := m.GetTag(ctx, kind, name)
	if err != nil {
		return err
	}
	tag.Usages += delta
	return m.store.Replace(ctx, tag)
}

// DeleteTag removes a tag and its index entry.
func (m *Manager) DeleteTag(ctx context.Context, tag *model.Tag) error {
	if err := m.store.Delete(ctx, tag.Type, tag.ID, string(tag.Type)); err != nil {
		return err
	}
	m.tryDeleteIndex(ctx, TagIndex, tagIndexID(tag))
	return nil
}

// updateTags applies a tag delta. Added names that have no tag yet get one
// created with zero usages before the increment, so a new tag ends at one.
// Failures are logged and absorbed.
func (m *Manager) updateTags(ctx context.Context, kind store.Kind, added, removed []string) {
	for _, name := range added {
		exists, err := m.TagExists(ctx, kind, name)
		if err == nil && !exists {
			err = m.CreateTag(ctx, model.NewTag(kind, name))
			if errors.Is(err, store.ErrConflict) {
				err = nil
			}
		}
		if err == nil {
			err = m.IncrementTagUsages(ctx, kind, name)
		}
		if err != nil {
			m.absorb("increment_tag", err, zap.String("kind", string(kind)), zap.String("tag", name))
		}
	}
	for _, name := range removed {
		if err := m.DecrementTagUsages(ctx, kind, name); err != nil {
			m.absorb("decrement_tag", err, zap.String("kind", string(kind)), zap.String("tag", name))
		}
	}
}

func tagIndexID(tag *model.Tag) string {
	return string(tag.Type) + ":" + tag.ID
}
