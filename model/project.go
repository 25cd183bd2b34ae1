package model

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/projectideas/internal/keys"
	"github.com/jacentio/projectideas/store"
)

// MaxProjectNameLength is the longest accepted project name, in characters.
const MaxProjectNameLength = 175

// ProjectJoinRequest is a pending request to join a project.
type ProjectJoinRequest struct {
	Username       string `dynamodbav:"username" json:"username"`
	UserID         string `dynamodbav:"userId" json:"userId"`
	RequestMessage string `dynamodbav:"requestMessage" json:"requestMessage"`
}

// Project is a team working on an idea. Its id doubles as the partition key
// of the projects container.
//
// TeamMemberIDs and JoinRequesterIDs mirror the user ids inside TeamMembers and
// UsersRequestingToJoin. They are rebuilt on every write so list-contains
// queries can find a user's projects.
type Project struct {
	ID                    string               `dynamodbav:"id" json:"id"`
	ProjectID             string               `dynamodbav:"projectId" json:"projectId"`
	IdeaID                string               `dynamodbav:"ideaId" json:"ideaId"`
	Name                  string               `dynamodbav:"name" json:"name"`
	Description           string               `dynamodbav:"description" json:"description"`
	PublicProject         bool                 `dynamodbav:"publicProject" json:"publicProject"`
	LookingForMembers     bool                 `dynamodbav:"lookingForMembers" json:"lookingForMembers"`
	TeamMembers           []UsernameIDPair     `dynamodbav:"teamMembers" json:"teamMembers"`
	UsersRequestingToJoin []ProjectJoinRequest `dynamodbav:"usersRequestingToJoin" json:"usersRequestingToJoin"`
	TeamMemberIDs         []string             `dynamodbav:"teamMemberIds" json:"-"`
	JoinRequesterIDs      []string             `dynamodbav:"joinRequesterIds" json:"-"`
	Upvotes               int                  `dynamodbav:"upvotes" json:"upvotes"`
	Tags                  []string             `dynamodbav:"tags" json:"tags"`
	InviteID              string               `dynamodbav:"inviteId" json:"-"`
	TimeCreated           int64                `dynamodbav:"timeCreated" json:"timeCreated"`
	TimeLastEdited        int64                `dynamodbav:"timeLastEdited" json:"timeLastEdited"`
}

// NewProject creates a project based on an idea with creator as its only member.
func NewProject(ideaID string, creator *User, name, description string, public, lookingForMembers bool, tags []string, now time.Time) *Project {
	id := keys.NewID()
	if tags == nil {
		tags = []string{}
	}
	return &Project{
		ID:                    id,
		ProjectID:             id,
		IdeaID:                ideaID,
		Name:                  name,
		Description:           description,
		PublicProject:         public,
		LookingForMembers:     lookingForMembers,
		TeamMembers:           []UsernameIDPair{creator.Pair()},
		UsersRequestingToJoin: []ProjectJoinRequest{},
		Tags:                  tags,
		InviteID:              keys.NewID(),
		TimeCreated:           now.Unix(),
		TimeLastEdited:        now.Unix(),
	}
}

func (p *Project) DocumentID() string       { return p.ID }
func (p *Project) PartitionKey() string     { return p.ProjectID }
func (p *Project) DocumentKind() store.Kind { return KindProject }

// AddUpvote increments the upvote counter.
func (p *Project) AddUpvote() { p.Upvotes++ }

// RemoveUpvote decrements the upvote counter.
func (p *Project) RemoveUpvote() { p.Upvotes-- }

// Validate checks the invariants the store does not enforce.
func (p *Project) Validate() error {
	if p.LookingForMembers && !p.PublicProject {
		return fmt.Errorf("%w: a project cannot be looking for members while private", ErrInvalidProject)
	}
	if utf8.RuneCountInString(p.Name) > MaxProjectNameLength {
		return fmt.Errorf("%w: project name %q is longer than %d characters", ErrInvalidProject, p.Name, MaxProjectNameLength)
	}
	return nil
}

// IsTeamMember reports whether userID is on the team.
func (p *Project) IsTeamMember(userID string) bool {
	for _, m := range p.TeamMembers {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// HasRequestedToJoin reports whether userID has a pending join request.
func (p *Project) HasRequestedToJoin(userID string) bool {
	for _, r := range p.UsersRequestingToJoin {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// RemoveTeamMember drops userID from the team and reports whether it was there.
func (p *Project) RemoveTeamMember(userID string) bool {
	for i, m := range p.TeamMembers {
		if m.UserID == userID {
			p.TeamMembers = append(p.TeamMembers[:i], p.TeamMembers[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveJoinRequest drops userID's pending request, if any.
func (p *Project) RemoveJoinRequest(userID string) {
	kept := p.UsersRequestingToJoin[:0]
	for _, r := range p.UsersRequestingToJoin {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	p.UsersRequestingToJoin = kept
}

// MarshalDynamoDBAttributeValue rebuilds the derived id lists before encoding.
func (p Project) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	type plain Project
	out := plain(p)
	out.TeamMemberIDs = make([]string, 0, len(p.TeamMembers))
	for _, m := range p.TeamMembers {
		out.TeamMemberIDs = append(out.TeamMemberIDs, m.UserID)
	}
	out.JoinRequesterIDs = make([]string, 0, len(p.UsersRequestingToJoin))
	for _, r := range p.UsersRequestingToJoin {
		out.JoinRequesterIDs = append(out.JoinRequesterIDs, r.UserID)
	}
	if out.TeamMembers == nil {
		out.TeamMembers = []UsernameIDPair{}
	}
	if out.UsersRequestingToJoin == nil {
		out.UsersRequestingToJoin = []ProjectJoinRequest{}
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return attributevalue.Marshal(out)
}

// ProjectUpvote records that a user upvoted a project. Its id is the user id.
type ProjectUpvote struct {
	ID        string `dynamodbav:"id"`
	ProjectID string `dynamodbav:"projectId"`
}

// NewProjectUpvote creates the upvote document for (project, user).
func NewProjectUpvote(projectID, userID string) *ProjectUpvote {
	return &ProjectUpvote{ID: userID, ProjectID: projectID}
}

func (u *ProjectUpvote) DocumentID() string       { return u.ID }
func (u *ProjectUpvote) PartitionKey() string     { return u.ProjectID }
func (u *ProjectUpvote) DocumentKind() store.Kind { return KindProjectUpvote }
