package messaging_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jacentio/projectideas/internal/memdb"
	"github.com/jacentio/projectideas/internal/telemetry"
	"github.com/jacentio/projectideas/internal/testutil"
	"github.com/jacentio/projectideas/messaging"
	"github.com/jacentio/projectideas/model"
	"github.com/jacentio/projectideas/store"
)

type fixture struct {
	d        *messaging.Dispatcher
	store    *store.Store
	db       *memdb.DB
	notifier *testutil.Users
	logs     *observer.ObservedLogs
	metrics  *telemetry.Metrics
	now      func() time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)
	metrics := telemetry.New(prometheus.NewRegistry())

	var tick int64
	now := func() time.Time {
		tick++
		return time.Unix(1700000000+tick, 0)
	}

	s, db := testutil.NewStore()
	f := &fixture{store: s, db: db, notifier: &testutil.Users{}, logs: logs, metrics: metrics, now: now}
	f.d = messaging.New(s, f.notifier,
		messaging.WithLogger(logger),
		messaging.WithMetrics(metrics),
		messaging.WithClock(now),
	)
	return f
}

func (f *fixture) user(t *testing.T, username string) *model.User {
	t.Helper()
	u := model.NewUser(username, username+"@example.com", f.now())
	if err := f.store.Create(context.Background(), u); err != nil {
		t.Fatalf("Create(%s) failed: %v", username, err)
	}
	return u
}

func (f *fixture) project(t *testing.T, creator *model.User, members ...*model.User) *model.Project {
	t.Helper()
	p := model.NewProject("idea-1", creator, "robots", "description", true, true, nil, f.now())
	for _, m := range members {
		p.TeamMembers = append(p.TeamMembers, model.UsernameIDPair{Username: m.Username, UserID: m.UserID})
	}
	if err := f.store.Create(context.Background(), p); err != nil {
		t.Fatalf("Create project failed: %v", err)
	}
	return p
}

func (f *fixture) unread(t *testing.T, userID string) int {
	t.Helper()
	n, err := f.d.GetNumberOfUnreadMessages(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetNumberOfUnreadMessages failed: %v", err)
	}
	return n
}

func (f *fixture) inbox(t *testing.T, userID string) []model.ReceivedMessage {
	t.Helper()
	page, err := f.d.GetReceivedMessagesByPage(context.Background(), userID, 1)
	if err != nil {
		t.Fatalf("GetReceivedMessagesByPage failed: %v", err)
	}
	return page.Documents
}

func TestSendIndividualMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	if err := f.d.SendIndividualMessage(ctx, alice.UserID, "bob", "hello"); err != nil {
		t.Fatalf("SendIndividualMessage failed: %v", err)
	}

	inbox := f.inbox(t, bob.UserID)
	if len(inbox) != 1 {
		t.Fatalf("expected 1 received message, got %d", len(inbox))
	}
	got := inbox[0]
	if got.SenderUsername != "alice" || got.Content != "hello" || !got.Unread || got.Type != model.KindReceivedIndividualMessage {
		t.Errorf("unexpected received message %+v", got)
	}

	sent, err := f.d.GetSentMessagesByPage(ctx, alice.UserID, 1)
	if err != nil {
		t.Fatalf("GetSentMessagesByPage failed: %v", err)
	}
	if len(sent.Documents) != 1 || sent.Documents[0].RecipientUsername != "bob" {
		t.Errorf("expected one sent copy to bob, got %+v", sent.Documents)
	}
	if n := f.unread(t, bob.UserID); n != 1 {
		t.Errorf("expected 1 unread, got %d", n)
	}
	if n := len(f.inbox(t, alice.UserID)); n != 0 {
		t.Errorf("expected sender inbox empty, got %d", n)
	}
	notified := f.notifier.Recorded()
	if len(notified) != 1 || notified[0].UserID != bob.UserID || notified[0].UnreadMessages != 1 {
		t.Errorf("expected bob notified with 1 unread, got %+v", notified)
	}
}

func TestSendIndividualMessage_UnknownRecipient(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	err := f.d.SendIndividualMessage(context.Background(), alice.UserID, "nobody", "hello")
	if !errors.Is(err, store.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	sent, _ := f.d.GetSentMessagesByPage(context.Background(), alice.UserID, 1)
	if len(sent.Documents) != 0 {
		t.Errorf("expected no sent copy, got %d", len(sent.Documents))
	}
}

func TestSendIndividualMessage_UnknownSender(t *testing.T) {
	f := newFixture(t)
	f.user(t, "bob")

	err := f.d.SendIndividualMessage(context.Background(), "ghost", "bob", "hello")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSendIndividualAdminMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.user(t, "bob")

	if err := f.d.SendIndividualAdminMessage(ctx, bob.UserID, "welcome"); err != nil {
		t.Fatalf("SendIndividualAdminMessage failed: %v", err)
	}
	inbox := f.inbox(t, bob.UserID)
	if len(inbox) != 1 || inbox[0].SenderUsername != model.AdminSender {
		t.Errorf("expected one admin message, got %+v", inbox)
	}

	if err := f.d.SendIndividualAdminMessage(ctx, "ghost", "welcome"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown recipient, got %v", err)
	}
}

func TestSendGroupMessage_ExcludesSender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")
	p := f.project(t, alice, bob, carol)

	if err := f.d.SendGroupMessage(ctx, bob.UserID, p.ProjectID, "standup"); err != nil {
		t.Fatalf("SendGroupMessage failed: %v", err)
	}

	tests := []struct {
		user *model.User
		want int
	}{
		{alice, 1},
		{bob, 0},
		{carol, 1},
	}
	for _, tt := range tests {
		t.Run(tt.user.Username, func(t *testing.T) {
			inbox := f.inbox(t, tt.user.UserID)
			if len(inbox) != tt.want {
				t.Fatalf("expected %d received, got %d", tt.want, len(inbox))
			}
			if tt.want == 1 {
				got := inbox[0]
				if got.Type != model.KindReceivedGroupMessage || got.ProjectID != p.ProjectID || got.ProjectName != "robots" || got.SenderUsername != "bob" {
					t.Errorf("unexpected group message %+v", got)
				}
			}
			if n := f.unread(t, tt.user.UserID); n != tt.want {
				t.Errorf("expected %d unread, got %d", tt.want, n)
			}
		})
	}

	sent, _ := f.d.GetSentMessagesByPage(ctx, bob.UserID, 1)
	if len(sent.Documents) != 1 || sent.Documents[0].RecipientProjectID != p.ProjectID {
		t.Errorf("expected one sent group copy, got %+v", sent.Documents)
	}
	if n := len(f.notifier.Recorded()); n != 2 {
		t.Errorf("expected 2 notifications, got %d", n)
	}
}

func TestSendGroupAdminMessage_ReachesEveryMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	p := f.project(t, alice, bob)

	if err := f.d.SendGroupAdminMessage(ctx, p.ProjectID, "reminder"); err != nil {
		t.Fatalf("SendGroupAdminMessage failed: %v", err)
	}
	for _, u := range []*model.User{alice, bob} {
		inbox := f.inbox(t, u.UserID)
		if len(inbox) != 1 || inbox[0].SenderUsername != model.AdminSender {
			t.Errorf("expected admin message for %s, got %+v", u.Username, inbox)
		}
	}

	if err := f.d.SendGroupAdminMessage(ctx, "missing", "reminder"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown project, got %v", err)
	}
}

func TestSendGroupMessage_DeliveryFailureContinues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")
	p := f.project(t, alice, bob, carol)

	f.db.InjectFault(func(op, container, id, pk string) error {
		if op == "create" && pk == bob.UserID {
			return errors.New("throttled")
		}
		return nil
	})
	if err := f.d.SendGroupMessage(ctx, alice.UserID, p.ProjectID, "standup"); err != nil {
		t.Fatalf("expected delivery failure to be absorbed, got %v", err)
	}
	f.db.InjectFault(nil)

	if n := len(f.inbox(t, bob.UserID)); n != 0 {
		t.Errorf("expected bob's delivery to fail, got %d messages", n)
	}
	if n := f.unread(t, bob.UserID); n != 0 {
		t.Errorf("expected bob's counter untouched, got %d", n)
	}
	if n := len(f.inbox(t, carol.UserID)); n != 1 {
		t.Errorf("expected carol to receive, got %d", n)
	}
	if n := f.logs.FilterMessage("message delivery failed").Len(); n != 1 {
		t.Errorf("expected 1 error log, got %d", n)
	}
	if got := promtestutil.ToFloat64(f.metrics.AbsorbedFailures().WithLabelValues("messaging", "deliver")); got != 1 {
		t.Errorf("expected 1 absorbed failure, got %v", got)
	}
}

func TestDeliver_NotifierFailureAbsorbed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	f.notifier.Err = errors.New("queue down")

	if err := f.d.SendIndividualMessage(ctx, alice.UserID, "bob", "hello"); err != nil {
		t.Fatalf("expected notifier failure to be absorbed, got %v", err)
	}
	if n := f.unread(t, bob.UserID); n != 1 {
		t.Errorf("expected counter still bumped, got %d", n)
	}
	if got := promtestutil.ToFloat64(f.metrics.AbsorbedFailures().WithLabelValues("notify", "unread_messages")); got != 1 {
		t.Errorf("expected 1 absorbed notifier failure, got %v", got)
	}
}

func TestMailbox(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	for _, content := range []string{"one", "two", "three"} {
		if err := f.d.SendIndividualMessage(ctx, alice.UserID, "bob", content); err != nil {
			t.Fatalf("SendIndividualMessage failed: %v", err)
		}
	}

	inbox := f.inbox(t, bob.UserID)
	if len(inbox) != 3 || inbox[0].Content != "three" || inbox[2].Content != "one" {
		t.Fatalf("expected newest first, got %+v", inbox)
	}

	got, err := f.d.GetReceivedMessage(ctx, bob.UserID, inbox[1].ID)
	if err != nil {
		t.Fatalf("GetReceivedMessage failed: %v", err)
	}
	if got.Content != "two" {
		t.Errorf("expected two, got %q", got.Content)
	}
	if _, err := f.d.GetReceivedMessage(ctx, alice.UserID, inbox[1].ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound in another inbox, got %v", err)
	}

	if err := f.d.MarkAllReceivedMessagesAsRead(ctx, bob.UserID); err != nil {
		t.Fatalf("MarkAllReceivedMessagesAsRead failed: %v", err)
	}
	if n := f.unread(t, bob.UserID); n != 0 {
		t.Errorf("expected 0 unread, got %d", n)
	}
	for _, m := range f.inbox(t, bob.UserID) {
		if m.Unread {
			t.Errorf("expected %s read", m.ID)
		}
	}

	if err := f.d.DeleteReceivedMessage(ctx, inbox[0].ID, bob.UserID); err != nil {
		t.Fatalf("DeleteReceivedMessage failed: %v", err)
	}
	if n := len(f.inbox(t, bob.UserID)); n != 2 {
		t.Errorf("expected 2 after delete, got %d", n)
	}
	if err := f.d.DeleteReceivedMessage(ctx, inbox[0].ID, bob.UserID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}

	sent, _ := f.d.GetSentMessagesByPage(ctx, alice.UserID, 1)
	if err := f.d.DeleteSentMessage(ctx, sent.Documents[0].ID, alice.UserID); err != nil {
		t.Fatalf("DeleteSentMessage failed: %v", err)
	}
	sent, _ = f.d.GetSentMessagesByPage(ctx, alice.UserID, 1)
	if len(sent.Documents) != 2 {
		t.Errorf("expected 2 sent after delete, got %d", len(sent.Documents))
	}
}

func TestGetReceivedMessagesByPage_Boundaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.user(t, "bob")
	size := f.store.PageSize()

	for i := 0; i < size; i++ {
		if err := f.d.SendIndividualAdminMessage(ctx, bob.UserID, "note"); err != nil {
			t.Fatalf("SendIndividualAdminMessage failed: %v", err)
		}
	}

	tests := []struct {
		page     int
		wantLen  int
		wantLast bool
	}{
		{0, 0, false},
		{1, size, true},
		{2, 0, true},
	}
	for _, tt := range tests {
		got, err := f.d.GetReceivedMessagesByPage(ctx, bob.UserID, tt.page)
		if err != nil {
			t.Fatalf("page %d failed: %v", tt.page, err)
		}
		if len(got.Documents) != tt.wantLen || got.LastPage != tt.wantLast {
			t.Errorf("page %d: expected %d docs last=%v, got %d last=%v", tt.page, tt.wantLen, tt.wantLast, len(got.Documents), got.LastPage)
		}
	}
}

func TestUpdateReceivedMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.user(t, "bob")
	if err := f.d.SendIndividualAdminMessage(ctx, bob.UserID, "note"); err != nil {
		t.Fatalf("SendIndividualAdminMessage failed: %v", err)
	}
	msg := f.inbox(t, bob.UserID)[0]
	msg.Unread = false
	if err := f.d.UpdateReceivedMessage(ctx, &msg); err != nil {
		t.Fatalf("UpdateReceivedMessage failed: %v", err)
	}
	got, _ := f.d.GetReceivedMessage(ctx, bob.UserID, msg.ID)
	if got.Unread {
		t.Error("expected message marked read")
	}
}
