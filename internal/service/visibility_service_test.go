package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/overflow-admin/internal/domain"
	"github.com/prn-tf/overflow-admin/internal/metrics"
)

type visibilityFixture struct {
	svc      *VisibilityService
	content  *MockContentRepository
	users    *MockUserRepository
	notifier *recordingNotifier
	clock    *fakeClock
	metrics  *metrics.Metrics
}

func newVisibilityFixture(t *testing.T) *visibilityFixture {
	t.Helper()
	f := &visibilityFixture{
		content:  NewMockContentRepository(),
		users:    NewMockUserRepository(),
		notifier: &recordingNotifier{},
		clock:    newFakeClock(),
		metrics:  metrics.NewMetrics(),
	}
	f.svc = NewVisibilityService(f.content, f.users, f.notifier, f.metrics, zerolog.Nop(), 500)
	f.svc.now = f.clock.Now

	author := domain.NewUser("Ada", "ada@example.com", "hash")
	author.ID = "author"
	f.users.add(author)
	return f
}

func (f *visibilityFixture) addContent(t *testing.T, kind domain.ContentKind, id, title, body string) {
	t.Helper()
	c := domain.NewContent(kind, "author", title, body)
	c.ID = id
	require.NoError(t, f.content.Create(context.Background(), c))
}

func TestVisibilityService_HideUnhide(t *testing.T) {
	f := newVisibilityFixture(t)
	f.addContent(t, domain.ContentQuestion, "q1", "How do I?", "body")
	ctx := context.Background()

	hidden, err := f.svc.Hide(ctx, HideInput{Kind: domain.ContentQuestion, ContentID: "q1", Reason: "off-topic"})
	require.NoError(t, err)
	assert.True(t, hidden.IsHidden)
	require.NotNil(t, hidden.HideReason)
	assert.Equal(t, "off-topic", *hidden.HideReason)
	require.NotNil(t, hidden.HiddenAt)
	assert.Equal(t, f.clock.Now(), *hidden.HiddenAt)

	visible, err := f.svc.Unhide(ctx, domain.ContentQuestion, "q1")
	require.NoError(t, err)
	assert.False(t, visible.IsHidden)
	assert.Nil(t, visible.HideReason)
	assert.Nil(t, visible.HiddenAt)

	_, _, sent := f.notifier.counts()
	assert.Zero(t, sent)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.VisibilityChanges.WithLabelValues("question", "hide")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.VisibilityChanges.WithLabelValues("question", "unhide")))
}

func TestVisibilityService_Hide_OverwritesHidden(t *testing.T) {
	f := newVisibilityFixture(t)
	f.addContent(t, domain.ContentAnswer, "a1", "", "body")
	ctx := context.Background()

	_, err := f.svc.Hide(ctx, HideInput{Kind: domain.ContentAnswer, ContentID: "a1", Reason: "first"})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	again, err := f.svc.Hide(ctx, HideInput{Kind: domain.ContentAnswer, ContentID: "a1", Reason: "second"})
	require.NoError(t, err)
	assert.Equal(t, "second", *again.HideReason)
	assert.Equal(t, f.clock.Now(), *again.HiddenAt)
}

func TestVisibilityService_Hide_Notifies(t *testing.T) {
	tests := []struct {
		name        string
		kind        domain.ContentKind
		title, body string
		wantContent string
	}{
		{name: "question uses title", kind: domain.ContentQuestion, title: "Title", body: "Body", wantContent: "Title"},
		{name: "answer uses body", kind: domain.ContentAnswer, body: `{"type":"doc"}`, wantContent: `{"type":"doc"}`},
		{name: "reply uses body", kind: domain.ContentReply, body: "thanks", wantContent: "thanks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newVisibilityFixture(t)
			f.addContent(t, tt.kind, "c1", tt.title, tt.body)

			_, err := f.svc.Hide(context.Background(), HideInput{Kind: tt.kind, ContentID: "c1", Reason: "rude", SendEmail: true})
			require.NoError(t, err)

			require.Len(t, f.notifier.hidden, 1)
			n := f.notifier.hidden[0]
			assert.Equal(t, "ada@example.com", n.To)
			assert.Equal(t, tt.kind, n.Kind)
			assert.Equal(t, tt.wantContent, n.Content)
			assert.Equal(t, "rude", n.Reason)
		})
	}
}

func TestVisibilityService_Hide_NotificationIsolation(t *testing.T) {
	f := newVisibilityFixture(t)
	f.svc.notifier = &recordingNotifier{panicky: true}
	f.addContent(t, domain.ContentReply, "r1", "", "body")

	hidden, err := f.svc.Hide(context.Background(), HideInput{Kind: domain.ContentReply, ContentID: "r1", Reason: "rude", SendEmail: true})
	require.NoError(t, err)
	assert.True(t, hidden.IsHidden)
}

func TestVisibilityService_Hide_MissingAuthor(t *testing.T) {
	f := newVisibilityFixture(t)
	c := domain.NewContent(domain.ContentReply, "ghost", "", "body")
	c.ID = "r1"
	require.NoError(t, f.content.Create(context.Background(), c))

	hidden, err := f.svc.Hide(context.Background(), HideInput{Kind: domain.ContentReply, ContentID: "r1", Reason: "rude", SendEmail: true})
	require.NoError(t, err)
	assert.True(t, hidden.IsHidden)
	_, _, sent := f.notifier.counts()
	assert.Zero(t, sent)
}

func TestVisibilityService_Errors(t *testing.T) {
	f := newVisibilityFixture(t)
	f.addContent(t, domain.ContentQuestion, "q1", "t", "b")
	ctx := context.Background()

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{
			name: "unknown kind",
			call: func() error {
				_, err := f.svc.Hide(ctx, HideInput{Kind: "comment", ContentID: "q1", Reason: "x"})
				return err
			},
			wantErr: domain.ErrInvalidContentKind,
		},
		{
			name: "empty reason",
			call: func() error {
				_, err := f.svc.Hide(ctx, HideInput{Kind: domain.ContentQuestion, ContentID: "q1", Reason: ""})
				return err
			},
			wantErr: domain.ErrInvalidReason,
		},
		{
			name: "missing content",
			call: func() error {
				_, err := f.svc.Hide(ctx, HideInput{Kind: domain.ContentQuestion, ContentID: "nope", Reason: "x"})
				return err
			},
			wantErr: domain.ErrContentNotFound,
		},
		{
			name: "wrong kind for id",
			call: func() error {
				_, err := f.svc.Unhide(ctx, domain.ContentAnswer, "q1")
				return err
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "unhide unknown kind",
			call: func() error {
				_, err := f.svc.Unhide(ctx, "", "q1")
				return err
			},
			wantErr: domain.ErrInvalidContentKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), tt.wantErr)
		})
	}
}

func TestVisibilityService_StoreFailure(t *testing.T) {
	f := newVisibilityFixture(t)
	f.content.updateErr = errStoreDown

	_, err := f.svc.Hide(context.Background(), HideInput{Kind: domain.ContentQuestion, ContentID: "q1", Reason: "x"})
	assert.ErrorIs(t, err, ErrInternalError)
}
