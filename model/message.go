package model

import (
	"time"

	"github.com/jacentio/projectideas/internal/keys"
	"github.com/jacentio/projectideas/store"
)

// AdminSender is the sender username on system messages.
const AdminSender = "projectideas"

// ReceivedMessage is a message in its recipient's partition. Type is
// KindReceivedIndividualMessage or KindReceivedGroupMessage; group messages
// also carry the project they were sent to.
type ReceivedMessage struct {
	ID             string     `dynamodbav:"id" json:"id"`
	UserID         string     `dynamodbav:"userId" json:"userId"`
	Type           store.Kind `dynamodbav:"type" json:"type"`
	SenderUsername string     `dynamodbav:"senderUsername" json:"senderUsername"`
	Content        string     `dynamodbav:"content" json:"content"`
	TimeSent       int64      `dynamodbav:"timeSent" json:"timeSent"`
	Unread         bool       `dynamodbav:"unread" json:"unread"`
	ProjectID      string     `dynamodbav:"projectId,omitempty" json:"projectId,omitempty"`
	ProjectName    string     `dynamodbav:"projectName,omitempty" json:"projectName,omitempty"`
}

// NewReceivedIndividualMessage creates an unread direct message for recipientID.
func NewReceivedIndividualMessage(recipientID, senderUsername, content string, now time.Time) *ReceivedMessage {
	return &ReceivedMessage{
		ID:             keys.NewID(),
		UserID:         recipientID,
		Type:           KindReceivedIndividualMessage,
		SenderUsername: senderUsername,
		Content:        content,
		TimeSent:       now.Unix(),
		Unread:         true,
	}
}

// NewReceivedGroupMessage creates an unread project message for recipientID.
func NewReceivedGroupMessage(recipientID, senderUsername, content, projectID, projectName string, now time.Time) *ReceivedMessage {
	m := NewReceivedIndividualMessage(recipientID, senderUsername, content, now)
	m.Type = KindReceivedGroupMessage
	m.ProjectID = projectID
	m.ProjectName = projectName
	return m
}

func (m *ReceivedMessage) DocumentID() string       { return m.ID }
func (m *ReceivedMessage) PartitionKey() string     { return m.UserID }
func (m *ReceivedMessage) DocumentKind() store.Kind { return m.Type }

// SentMessage is the sender's copy of a message. Type is
// KindSentIndividualMessage or KindSentGroupMessage.
type SentMessage struct {
	ID                   string     `dynamodbav:"id" json:"id"`
	UserID               string     `dynamodbav:"userId" json:"userId"`
	Type                 store.Kind `dynamodbav:"type" json:"type"`
	RecipientUsername    string     `dynamodbav:"recipientUsername,omitempty" json:"recipientUsername,omitempty"`
	RecipientProjectID   string     `dynamodbav:"recipientProjectId,omitempty" json:"recipientProjectId,omitempty"`
	RecipientProjectName string     `dynamodbav:"recipientProjectName,omitempty" json:"recipientProjectName,omitempty"`
	Content              string     `dynamodbav:"content" json:"content"`
	TimeSent             int64      `dynamodbav:"timeSent" json:"timeSent"`
}

// NewSentIndividualMessage creates the sender's copy of a direct message.
func NewSentIndividualMessage(senderID, recipientUsername, content string, now time.Time) *SentMessage {
	return &SentMessage{
		ID:                keys.NewID(),
		UserID:            senderID,
		Type:              KindSentIndividualMessage,
		RecipientUsername: recipientUsername,
		Content:           content,
		TimeSent:          now.Unix(),
	}
}

// NewSentGroupMessage creates the sender's copy of a project message.
func NewSentGroupMessage(senderID, projectID, projectName, content string, now time.Time) *SentMessage {
	return &SentMessage{
		ID:                   keys.NewID(),
		UserID:               senderID,
		Type:                 KindSentGroupMessage,
		RecipientProjectID:   projectID,
		RecipientProjectName: projectName,
		Content:              content,
		TimeSent:             now.Unix(),
	}
}

func (m *SentMessage) DocumentID() string       { return m.ID }
func (m *SentMessage) PartitionKey() string     { return m.UserID }
func (m *SentMessage) DocumentKind() store.Kind { return m.Type }
