package model

import (
	"time"

	"github.com/jacentio/projectideas/internal/keys"
	"github.com/jacentio/projectideas/store"
)

// NotificationPreference controls which emails a user receives.
type NotificationPreference string

const (
	// NotifyAll sends every notification email.
	NotifyAll NotificationPreference = "ALL"
	// NotifyUnreadMessages sends only unread message reminders.
	NotifyUnreadMessages NotificationPreference = "UNREAD_MESSAGES"
	// NotifyNone sends no notification email.
	NotifyNone NotificationPreference = "NONE"
)

// WantsUnreadMessageEmails reports whether unread message reminders may be sent.
func (p NotificationPreference) WantsUnreadMessageEmails() bool {
	return p == NotifyAll || p == NotifyUnreadMessages || p == ""
}

// User is a registered user. It lives in its own partition of the users
// container.
type User struct {
	ID                     string                 `dynamodbav:"id" json:"id"`
	UserID                 string                 `dynamodbav:"userId" json:"userId"`
	Username               string                 `dynamodbav:"username" json:"username"`
	Email                  string                 `dynamodbav:"email" json:"email"`
	Admin                  bool                   `dynamodbav:"admin" json:"admin"`
	UnreadMessages         int                    `dynamodbav:"unreadMessages" json:"unreadMessages"`
	NotificationPreference NotificationPreference `dynamodbav:"notificationPreference" json:"notificationPreference"`
	EmailSubscriptionID    string                 `dynamodbav:"emailSubscriptionId" json:"emailSubscriptionId"`
	TimeCreated            int64                  `dynamodbav:"timeCreated" json:"timeCreated"`
}

// NewUser creates a non-admin user with a fresh id.
func NewUser(username, email string, now time.Time) *User {
	id := keys.NewID()
	return &User{
		ID:                     id,
		UserID:                 id,
		Username:               username,
		Email:                  email,
		NotificationPreference: NotifyAll,
		EmailSubscriptionID:    keys.NewID(),
		TimeCreated:            now.Unix(),
	}
}

func (u *User) DocumentID() string       { return u.ID }
func (u *User) PartitionKey() string     { return u.UserID }
func (u *User) DocumentKind() store.Kind { return KindUser }

// UsernameIDPair is a denormalized reference to a user.
type UsernameIDPair struct {
	Username string `dynamodbav:"username" json:"username"`
	UserID   string `dynamodbav:"userId" json:"userId"`
}

// Pair returns the user's UsernameIDPair.
func (u *User) Pair() UsernameIDPair {
	return UsernameIDPair{Username: u.Username, UserID: u.UserID}
}

// UserSavedIdea is a weak reference from a user's partition to an idea they saved.
type UserSavedIdea struct {
	ID        string `dynamodbav:"id"`
	UserID    string `dynamodbav:"userId"`
	IdeaID    string `dynamodbav:"ideaId"`
	TimeSaved int64  `dynamodbav:"timeSaved"`
}

// NewUserSavedIdea creates a saved idea reference.
func NewUserSavedIdea(userID, ideaID string, now time.Time) *UserSavedIdea {
	return &UserSavedIdea{ID: keys.NewID(), UserID: userID, IdeaID: ideaID, TimeSaved: now.Unix()}
}

func (s *UserSavedIdea) DocumentID() string       { return s.ID }
func (s *UserSavedIdea) PartitionKey() string     { return s.UserID }
func (s *UserSavedIdea) DocumentKind() store.Kind { return KindUserSavedIdea }

// UserPostedIdea is a weak reference from a user's partition to an idea they posted.
type UserPostedIdea struct {
	ID          string `dynamodbav:"id"`
	UserID      string `dynamodbav:"userId"`
	IdeaID      string `dynamodbav:"ideaId"`
	TimeCreated int64  `dynamodbav:"timeCreated"`
}

// NewUserPostedIdea creates a posted idea reference.
func NewUserPostedIdea(userID, ideaID string, now time.Time) *UserPostedIdea {
	return &UserPostedIdea{ID: keys.NewID(), UserID: userID, IdeaID: ideaID, TimeCreated: now.Unix()}
}

func (p *UserPostedIdea) DocumentID() string       { return p.ID }
func (p *UserPostedIdea) PartitionKey() string     { return p.UserID }
func (p *UserPostedIdea) DocumentKind() store.Kind { return KindUserPostedIdea }

// UserJoinedProject is a weak reference from a user's partition to a project they joined.
type UserJoinedProject struct {
	ID         string `dynamodbav:"id"`
	UserID     string `dynamodbav:"userId"`
	ProjectID  string `dynamodbav:"projectId"`
	TimeJoined int64  `dynamodbav:"timeJoined"`
}

// NewUserJoinedProject creates a joined project reference.
func NewUserJoinedProject(userID, projectID string, now time.Time) *UserJoinedProject {
	return &UserJoinedProject{ID: keys.NewID(), UserID: userID, ProjectID: projectID, TimeJoined: now.Unix()}
}

func (j *UserJoinedProject) DocumentID() string       { return j.ID }
func (j *UserJoinedProject) PartitionKey() string     { return j.UserID }
func (j *UserJoinedProject) DocumentKind() store.Kind { return KindUserJoinedProject }
