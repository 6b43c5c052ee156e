package messaging

import (
	"context"
	"testing"

	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/messaging"
	"github.com/b2bmarket/backend/internal/domain/notification"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/domain/shared/valueobject"
	"github.com/b2bmarket/backend/internal/infrastructure/mail"
	"github.com/b2bmarket/backend/internal/infrastructure/telemetry"
	"github.com/b2bmarket/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type messagingFixture struct {
	env    *testutil.Env
	svc    *MessageService
	acme   *company.Company
	globex *company.Company
	ada    *identity.User // acme admin
	gus    *identity.User // globex admin
	peter  *identity.User // pending initech admin
	bolts  *catalog.Listing
}

func newMessagingFixture(t *testing.T) *messagingFixture {
	t.Helper()
	env := testutil.NewEnv(t)
	env.Bus.Subscribe(NewMessageNotifier(env.Companies, env.Users, env.Notifications, env.Mailer, env.Templates,
		mail.Links{BaseURL: testutil.BaseURL}, env.Logger))

	f := &messagingFixture{
		env:    env,
		svc:    NewMessageService(env.Messages, env.Companies, env.Listings, env.Bus, telemetry.NopMarketMetrics(), env.Logger),
		acme:   env.CreateCompany(t, "Acme Tools", company.StatusActive),
		globex: env.CreateCompany(t, "Globex", company.StatusActive),
	}
	f.ada = env.CreateUser(t, f.acme.ID, "Ada", "ada@acme.test", identity.RoleAdmin)
	f.gus = env.CreateUser(t, f.globex.ID, "Gus", "gus@globex.test", identity.RoleAdmin)
	env.CreateUser(t, f.globex.ID, "Gina", "gina@globex.test", identity.RoleMember)
	initech := env.CreateCompany(t, "Initech", company.StatusPending)
	f.peter = env.CreateUser(t, initech.ID, "Peter", "peter@initech.test", identity.RoleAdmin)

	bolts, err := catalog.NewListing(catalog.KindProduct, f.globex.ID, "Bolts", valueobject.Zero(valueobject.EUR))
	require.NoError(t, err)
	require.NoError(t, env.Listings.Create(context.Background(), bolts))
	f.bolts = bolts
	return f
}

func TestMessageService_Send(t *testing.T) {
	ctx := context.Background()
	f := newMessagingFixture(t)

	sent, err := f.svc.Send(ctx, f.ada, SendMessageInput{
		To:        "globex",
		Subject:   " Need bolts ",
		Body:      "Do you ship 10k M6 bolts to Berlin?",
		ListingID: f.bolts.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Need bolts", sent.Subject)
	assert.Equal(t, f.acme.ID, sent.FromCompanyID)
	assert.Equal(t, f.globex.ID, sent.ToCompanyID)
	require.NotNil(t, sent.ToCompany)
	assert.Equal(t, "Globex", sent.ToCompany.Name)
	assert.False(t, sent.Read)

	emails := f.env.Mailer.Sent()
	require.Len(t, emails, 1, "only recipient admins are emailed")
	assert.Equal(t, []string{"gus@globex.test"}, emails[0].To)
	assert.Equal(t, "New message from Acme Tools: Need bolts", emails[0].Subject)
	assert.Contains(t, emails[0].Text, testutil.BaseURL+"/messages/"+sent.ID)

	notes, err := f.env.Notifications.ListByCompany(ctx, f.globex.ID, notification.Filter{Pagination: shared.NewPagination(1, 10)})
	require.NoError(t, err)
	require.Len(t, notes.Items, 1)
	assert.Equal(t, notification.KindMessage, notes.Items[0].Kind)
	assert.Equal(t, "/messages/"+sent.ID, notes.Items[0].Link)

	acmeListing, err := catalog.NewListing(catalog.KindProduct, f.acme.ID, "Nails", valueobject.Zero(valueobject.EUR))
	require.NoError(t, err)
	require.NoError(t, f.env.Listings.Create(ctx, acmeListing))

	valid := SendMessageInput{To: f.globex.ID, Subject: "Hi", Body: "Hello"}
	with := func(mod func(*SendMessageInput)) SendMessageInput {
		in := valid
		mod(&in)
		return in
	}
	tests := []struct {
		name  string
		actor *identity.User
		input SendMessageInput
		want  error
	}{
		{"pending sender", f.peter, valid, shared.ErrCompanyInactive},
		{"pending recipient", f.ada, with(func(in *SendMessageInput) { in.To = "initech" }), ErrInvalidRecipient},
		{"unknown recipient", f.ada, with(func(in *SendMessageInput) { in.To = "nobody" }), ErrInvalidRecipient},
		{"own company", f.ada, with(func(in *SendMessageInput) { in.To = "acme-tools" }), shared.ErrSelfMessage},
		{"listing of another company", f.ada, with(func(in *SendMessageInput) { in.ListingID = acmeListing.ID }), ErrInvalidListing},
		{"unknown listing", f.ada, with(func(in *SendMessageInput) { in.ListingID = "missing" }), ErrInvalidListing},
		{"blank subject", f.ada, with(func(in *SendMessageInput) { in.Subject = "  " }), messaging.ErrInvalidSubject},
		{"blank body", f.ada, with(func(in *SendMessageInput) { in.Body = "" }), messaging.ErrInvalidBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Send(ctx, tt.actor, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Len(t, f.env.Mailer.Sent(), 1)
}

func TestMessageService_Mailboxes(t *testing.T) {
	ctx := context.Background()
	f := newMessagingFixture(t)

	send := func(actor *identity.User, to, subject string) *MessageDTO {
		m, err := f.svc.Send(ctx, actor, SendMessageInput{To: to, Subject: subject, Body: "body"})
		require.NoError(t, err)
		return m
	}
	first := send(f.ada, "globex", "First")
	second := send(f.ada, "globex", "Second")
	reply := send(f.gus, "acme-tools", "Reply")

	inbox, err := f.svc.Inbox(ctx, f.gus, MailboxQuery{})
	require.NoError(t, err)
	require.Len(t, inbox.Items, 2)
	assert.Equal(t, "Second", inbox.Items[0].Subject, "newest first")
	require.NotNil(t, inbox.Items[0].FromCompany)
	assert.Equal(t, "Acme Tools", inbox.Items[0].FromCompany.Name)
	require.NotNil(t, inbox.Items[0].Sender)
	assert.Equal(t, "Ada", inbox.Items[0].Sender.Name)

	outbox, err := f.svc.Outbox(ctx, f.ada, MailboxQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), outbox.Total)

	unread, err := f.svc.UnreadCount(ctx, f.gus)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread.Count)

	t.Run("reading as recipient marks read", func(t *testing.T) {
		got, err := f.svc.Get(ctx, f.gus, first.ID)
		require.NoError(t, err)
		assert.True(t, got.Read)
		assert.NotNil(t, got.ReadAt)

		unread, err := f.svc.UnreadCount(ctx, f.gus)
		require.NoError(t, err)
		assert.Equal(t, int64(1), unread.Count)

		page, err := f.svc.Inbox(ctx, f.gus, MailboxQuery{UnreadOnly: true})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, second.ID, page.Items[0].ID)
	})

	t.Run("reading as sender does not", func(t *testing.T) {
		got, err := f.svc.Get(ctx, f.ada, second.ID)
		require.NoError(t, err)
		assert.False(t, got.Read)

		_, err = f.svc.MarkRead(ctx, f.ada, second.ID)
		assert.Error(t, err)
	})

	t.Run("mark read is idempotent", func(t *testing.T) {
		got, err := f.svc.MarkRead(ctx, f.ada, reply.ID)
		require.NoError(t, err)
		assert.True(t, got.Read)
		got, err = f.svc.MarkRead(ctx, f.ada, reply.ID)
		require.NoError(t, err)
		assert.True(t, got.Read)
	})

	t.Run("other companies cannot see messages", func(t *testing.T) {
		_, err := f.svc.Get(ctx, f.peter, first.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.ErrorIs(t, f.svc.Delete(ctx, f.peter, first.ID), shared.ErrNotFound)
	})

	t.Run("delete hides the message from both companies", func(t *testing.T) {
		require.NoError(t, f.svc.Delete(ctx, f.ada, second.ID))

		_, err := f.svc.Get(ctx, f.gus, second.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = f.svc.Get(ctx, f.ada, second.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		inbox, err := f.svc.Inbox(ctx, f.gus, MailboxQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), inbox.Total)

		unread, err := f.svc.UnreadCount(ctx, f.gus)
		require.NoError(t, err)
		assert.Equal(t, int64(0), unread.Count)
	})

	t.Run("conversation filter", func(t *testing.T) {
		page, err := f.svc.Outbox(ctx, f.gus, MailboxQuery{With: f.acme.ID})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, reply.ID, page.Items[0].ID)
	})
}
