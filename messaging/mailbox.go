package messaging

import (
	"context"

	"github.com/jacentio/projectideas/model"
	"github.com/jacentio/projectideas/store"
)

// GetReceivedMessage reads one received message.
func (d *Dispatcher) GetReceivedMessage(ctx context.Context, recipientID, messageID string) (*model.ReceivedMessage, error) {
	return store.Get[model.ReceivedMessage](ctx, d.store, model.KindReceivedMessage, messageID, recipientID)
}

// GetReceivedMessagesByPage returns a page of the inbox, newest first.
func (d *Dispatcher) GetReceivedMessagesByPage(ctx context.Context, recipientID string, pageNumber int) (store.Page[model.ReceivedMessage], error) {
	q := d.registry.QueryByPartitionKey(recipientID, model.KindReceivedMessage).OrderByDesc("timeSent")
	return store.FindPage[model.ReceivedMessage](ctx, d.store, q, pageNumber, d.store.PageSize())
}

// GetSentMessagesByPage returns a page of the outbox, newest first.
func (d *Dispatcher) GetSentMessagesByPage(ctx context.Context, senderID string, pageNumber int) (store.Page[model.SentMessage], error) {
	q := d.registry.QueryByPartitionKey(senderID, model.KindSentMessage).OrderByDesc("timeSent")
	return store.FindPage[model.SentMessage](ctx, d.store, q, pageNumber, d.store.PageSize())
}

// GetNumberOfUnreadMessages returns the recipient's unread counter.
func (d *Dispatcher) GetNumberOfUnreadMessages(ctx context.Context, recipientID string) (int, error) {
	user, err := d.user(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	return user.UnreadMessages, nil
}

// MarkAllReceivedMessagesAsRead resets the unread counter and clears the
// unread flag on every received message.
func (d *Dispatcher) MarkAllReceivedMessagesAsRead(ctx context.Context, recipientID string) error {
	user, err := d.user(ctx, recipientID)
	if err != nil {
		return err
	}
	user.UnreadMessages = 0
	if err := d.store.Replace(ctx, user); err != nil {
		return err
	}

	unread, err := store.FindAll[model.ReceivedMessage](ctx, d.store,
		d.registry.QueryByPartitionKey(recipientID, model.KindReceivedMessage).Where("unread", true))
	if err != nil {
		return err
	}
	for i := range unread {
		unread[i].Unread = false
		if err := d.store.Replace(ctx, &unread[i]); err != nil {
			return err
		}
	}
	return nil
}

// UpdateReceivedMessage overwrites a received message.
func (d *Dispatcher) UpdateReceivedMessage(ctx context.Context, msg *model.ReceivedMessage) error {
	return d.store.Replace(ctx, msg)
}

// DeleteReceivedMessage removes a received message.
func (d *Dispatcher) DeleteReceivedMessage(ctx context.Context, messageID, recipientID string) error {
	return d.store.Delete(ctx, model.KindReceivedMessage, messageID, recipientID)
}

// DeleteSentMessage removes a sent message.
func (d *Dispatcher) DeleteSentMessage(ctx context.Context, messageID, senderID string) error {
	return d.store.Delete(ctx, model.KindSentMessage, messageID, senderID)
}
