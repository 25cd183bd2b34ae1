package manager

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jacentio/projectideas/model"
	"github.com/jacentio/projectideas/store"
)

// CreateProject validates and stores a new project. Its tags are counted, a
// public project is indexed, the creator upvotes it and it is added to the
// creator's joined projects.
func (m *Manager) CreateProject(ctx context.Context, project *model.Project, creatorID string) error {
	if err := project.Validate(); err != nil {
		return err
	}
	if err := m.store.Create(ctx, project); err != nil {
		return err
	}
	m.updateTags(ctx, model.KindProjectTag, project.Tags, nil)
	if project.PublicProject {
		m.tryIndex(ctx, ProjectIndex, project.ProjectID, project)
	}

	if err := m.UpvoteProject(ctx, project.ProjectID, creatorID); err != nil {
		m.absorb("creator_upvote", err, zap.String("projectId", project.ProjectID))
	}
	if err := m.JoinProjectForUser(ctx, creatorID, project.ProjectID); err != nil {
		m.absorb("joined_reference", err, zap.String("projectId", project.ProjectID))
	}
	return nil
}

// GetProject reads a project.
func (m *Manager) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	return store.Get[model.Project](ctx, m.store, model.KindProject, projectID, projectID)
}

// GetProjectByInviteID finds the project with inviteID.
func (m *Manager) GetProjectByInviteID(ctx context.Context, inviteID string) (*model.Project, error) {
	return store.FindOne[model.Project](ctx, m.store, m.registry.QueryByType(model.KindProject).Where("inviteId", inviteID))
}

// GetProjectsBasedOnIdea returns every project based on ideaID, newest first.
func (m *Manager) GetProjectsBasedOnIdea(ctx context.Context, ideaID string) ([]model.Project, error) {
	q := m.registry.QueryByType(model.KindProject).Where("ideaId", ideaID).OrderByDesc("timeCreated")
	return store.FindAll[model.Project](ctx, m.store, q)
}

// GetPublicProjectsLookingForMembersBasedOnIdea returns the open public
// projects based on ideaID, newest first.
func (m *Manager) GetPublicProjectsLookingForMembersBasedOnIdea(ctx context.Context, ideaID string) ([]model.Project, error) {
	q := m.publicProjects().Where("ideaId", ideaID).Where("lookingForMembers", true)
	return store.FindAll[model.Project](ctx, m.store, q)
}

func (m *Manager) publicProjects() *store.Query {
	return m.registry.QueryByType(model.KindProject).Where("publicProject", true).OrderByDesc("timeCreated")
}

// GetAllPublicProjects returns every public project, newest first.
func (m *Manager) GetAllPublicProjects(ctx context.Context) ([]model.Project, error) {
	return store.FindAll[model.Project](ctx, m.store, m.publicProjects())
}

// GetPublicProjectsByPage returns a page of public projects, newest first.
func (m *Manager) GetPublicProjectsByPage(ctx context.Context, pageNumber int) (store.Page[model.Project], error) {
	return store.FindPage[model.Project](ctx, m.store, m.publicProjects(), pageNumber, m.pageSize())
}

// GetPublicProjectsByTagAndPage returns a page of public projects tagged
// tag, newest first.
func (m *Manager) GetPublicProjectsByTagAndPage(ctx context.Context, tag string, pageNumber int) (store.Page[model.Project], error) {
	return store.FindPage[model.Project](ctx, m.store, m.publicProjects().WhereContains("tags", tag), pageNumber, m.pageSize())
}

// GetProjectsInList returns the projects among projectIDs, newest first.
func (m *Manager) GetProjectsInList(ctx context.Context, projectIDs []string) ([]model.Project, error) {
	if len(projectIDs) == 0 {
		return []model.Project{}, nil
	}
	q := m.registry.QueryByPartitionKeyList(projectIDs, model.KindProject).OrderByDesc("timeCreated")
	return store.FindAll[model.Project](ctx, m.store, q)
}

// UpdateProject validates and replaces a project. toPublic and toPrivate
// report a visibility change since the last write and move the project into
// or out of the index; the tag delta is applied to project tags.
func (m *Manager) UpdateProject(ctx context.Context, project *model.Project, toPublic, toPrivate bool, addedTags, removedTags []string) error {
	if err := project.Validate(); err != nil {
		return err
	}
	switch {
	case toPublic:
		m.tryIndex(ctx, ProjectIndex, project.ProjectID, project)
	case toPrivate:
		m.tryDeleteIndex(ctx, ProjectIndex, project.ProjectID)
	case project.PublicProject:
		m.tryUpdateIndex(ctx, ProjectIndex, project.ProjectID, project)
	}
	m.updateTags(ctx, model.KindProjectTag, addedTags, removedTags)
	return m.store.Replace(ctx, project)
}

// EditProject stamps the edit time and updates the project.
func (m *Manager) EditProject(ctx context.Context, project *model.Project, toPublic, toPrivate bool, addedTags, removedTags []string) error {
	project.TimeLastEdited = m.now().Unix()
	return m.UpdateProject(ctx, project, toPublic, toPrivate, addedTags, removedTags)
}

// DeleteProject removes a project, its index entry and its tag usages.
func (m *Manager) DeleteProject(ctx context.Context, project *model.Project) error {
	if err := m.store.Delete(ctx, model.KindProject, project.ID, project.ProjectID); err != nil {
		return err
	}
	if project.PublicProject {
		m.tryDeleteIndex(ctx, ProjectIndex, project.ProjectID)
	}
	m.updateTags(ctx, model.KindProjectTag, nil, project.Tags)
	return nil
}

// RequestToJoinProject adds userID's join request to projectID and tells the
// team about it.
func (m *Manager) RequestToJoinProject(ctx context.Context, projectID, userID, message string) error {
	project, err := m.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if !project.LookingForMembers {
		return model.ErrNotLookingForMembers
	}
	user, err := m.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if project.IsTeamMember(userID) {
		return model.ErrAlreadyTeamMember
	}
	if project.HasRequestedToJoin(userID) {
		return model.ErrAlreadyRequested
	}

	project.UsersRequestingToJoin = append(project.UsersRequestingToJoin, model.ProjectJoinRequest{
		Username:       user.Username,
		UserID:         user.UserID,
		RequestMessage: message,
	})
	if err := m.UpdateProject(ctx, project, false, false, nil, nil); err != nil {
		return err
	}

	notice := fmt.Sprintf("%s has requested to join your %s project. Visit your project page to accept or decline this request.", user.Username, project.Name)
	if err := m.messages.SendGroupAdminMessage(ctx, projectID, notice); err != nil {
		m.absorb("join_request_message", err, zap.String("projectId", projectID))
	}
	return nil
}

// RespondToJoinRequest lets team member responderID accept or reject the
// pending request of the user named username.
func (m *Manager) RespondToJoinRequest(ctx context.Context, projectID, responderID, username string, accept bool) error {
	applicant, err := m.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	project, err := m.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if !project.IsTeamMember(responderID) {
		return model.ErrNotTeamMember
	}
	if project.IsTeamMember(applicant.UserID) {
		return model.ErrAlreadyTeamMember
	}

	project.RemoveJoinRequest(applicant.UserID)
	if accept {
		project.TeamMembers = append(project.TeamMembers, applicant.Pair())
	}
	if err := m.UpdateProject(ctx, project, false, false, nil, nil); err != nil {
		return err
	}

	notice := fmt.Sprintf("Your request to join %s has been rejected.", project.Name)
	if accept {
		if err := m.JoinProjectForUser(ctx, applicant.UserID, projectID); err != nil {
			m.absorb("joined_reference", err, zap.String("projectId", projectID))
		}
		notice = fmt.Sprintf("Your request to join %s has been accepted.", project.Name)
	}
	if err := m.messages.SendIndividualAdminMessage(ctx, applicant.UserID, notice); err != nil {
		m.absorb("join_response_message", err, zap.String("projectId", projectID))
	}
	return nil
}

// LeaveProject removes userID from the team. The last member leaving
// deletes the project.
func (m *Manager) LeaveProject(ctx context.Context, projectID, userID string) error {
	project, err := m.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if !project.RemoveTeamMember(userID) {
		return model.ErrNotTeamMember
	}

	if len(project.TeamMembers) == 0 {
		err = m.DeleteProject(ctx, project)
	} else {
		err = m.UpdateProject(ctx, project, false, false, nil, nil)
	}
	if err != nil {
		return err
	}
	return m.LeaveProjectForUser(ctx, userID, projectID)
}

// SearchProjects returns the public projects best matching query, best first.
func (m *Manager) SearchProjects(ctx context.Context, query string) ([]model.Project, error) {
	ids, err := m.searcher.Search(ctx, ProjectIndex, query, searchLimit)
	if err != nil {
		return nil, err
	}
	projects, err := store.HydrateList[model.Project](ctx, m.store, ids, model.KindProject)
	if err != nil {
		return nil, err
	}
	public := projects[:0]
	for _, p := range projects {
		if p.PublicProject {
			public = append(public, p)
		}
	}
	return public, nil
}
