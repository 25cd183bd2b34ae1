package model

import (
	"time"

	"github.com/jacentio/projectideas/internal/keys"
	"github.com/jacentio/projectideas/store"
)

// Idea is a posted idea. Its id doubles as the partition key of the posts
// container, so its comments and upvotes live beside it.
type Idea struct {
	ID             string   `dynamodbav:"id" json:"id"`
	IdeaID         string   `dynamodbav:"ideaId" json:"ideaId"`
	AuthorID       string   `dynamodbav:"authorId" json:"authorId"`
	AuthorUsername string   `dynamodbav:"authorUsername" json:"authorUsername"`
	Title          string   `dynamodbav:"title" json:"title"`
	Content        string   `dynamodbav:"content" json:"content"`
	Tags           []string `dynamodbav:"tags" json:"tags"`
	Upvotes        int      `dynamodbav:"upvotes" json:"upvotes"`
	TimeCreated    int64    `dynamodbav:"timeCreated" json:"timeCreated"`
	TimeLastEdited int64    `dynamodbav:"timeLastEdited" json:"timeLastEdited"`
	Deleted        bool     `dynamodbav:"deleted" json:"deleted"`
}

// NewIdea creates an idea with a fresh id.
func NewIdea(author *User, title, content string, tags []string, now time.Time) *Idea {
	id := keys.NewID()
	if tags == nil {
		tags = []string{}
	}
	return &Idea{
		ID:             id,
		IdeaID:         id,
		AuthorID:       author.UserID,
		AuthorUsername: author.Username,
		Title:          title,
		Content:        content,
		Tags:           tags,
		TimeCreated:    now.Unix(),
		TimeLastEdited: now.Unix(),
	}
}

func (i *Idea) DocumentID() string       { return i.ID }
func (i *Idea) PartitionKey() string     { return i.IdeaID }
func (i *Idea) DocumentKind() store.Kind { return KindIdea }

// AddUpvote increments the upvote counter.
func (i *Idea) AddUpvote() { i.Upvotes++ }

// RemoveUpvote decrements the upvote counter.
func (i *Idea) RemoveUpvote() { i.Upvotes-- }

// MarkDeleted flags the idea as deleted. The document itself is kept.
func (i *Idea) MarkDeleted() { i.Deleted = true }

// Comment is a comment on an idea, stored in the idea's partition.
type Comment struct {
	ID             string `dynamodbav:"id" json:"id"`
	IdeaID         string `dynamodbav:"ideaId" json:"ideaId"`
	AuthorID       string `dynamodbav:"authorId" json:"authorId"`
	AuthorUsername string `dynamodbav:"authorUsername" json:"authorUsername"`
	Content        string `dynamodbav:"content" json:"content"`
	TimeCreated    int64  `dynamodbav:"timeCreated" json:"timeCreated"`
	TimeLastEdited int64  `dynamodbav:"timeLastEdited" json:"timeLastEdited"`
}

// NewComment creates a comment with a fresh id.
func NewComment(ideaID string, author *User, content string, now time.Time) *Comment {
	return &Comment{
		ID:             keys.NewID(),
		IdeaID:         ideaID,
		AuthorID:       author.UserID,
		AuthorUsername: author.Username,
		Content:        content,
		TimeCreated:    now.Unix(),
		TimeLastEdited: now.Unix(),
	}
}

func (c *Comment) DocumentID() string       { return c.ID }
func (c *Comment) PartitionKey() string     { return c.IdeaID }
func (c *Comment) DocumentKind() store.Kind { return KindComment }

// IdeaUpvote records that a user upvoted an idea. Its id is the user id, so
// a second upvote by the same user conflicts on create.
type IdeaUpvote struct {
	ID     string `dynamodbav:"id"`
	IdeaID string `dynamodbav:"ideaId"`
}

// NewIdeaUpvote creates the upvote document for (idea, user).
func NewIdeaUpvote(ideaID, userID string) *IdeaUpvote {
	return &IdeaUpvote{ID: userID, IdeaID: ideaID}
}

func (u *IdeaUpvote) DocumentID() string       { return u.ID }
func (u *IdeaUpvote) PartitionKey() string     { return u.IdeaID }
func (u *IdeaUpvote) DocumentKind() store.Kind { return KindIdeaUpvote }
