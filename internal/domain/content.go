package domain

import (
	"fmt"
	"time"
)

// ContentKind identifies one of the moderated content collections.
type ContentKind string

const (
	// ContentQuestion is a top-level question.
	ContentQuestion ContentKind = "question"

	// ContentAnswer is an answer to a question.
	ContentAnswer ContentKind = "answer"

	// ContentReply is a reply to an answer.
	ContentReply ContentKind = "reply"
)

// ContentKinds lists every kind in a stable order.
var ContentKinds = []ContentKind{ContentQuestion, ContentAnswer, ContentReply}

// ParseContentKind accepts the singular kind or the plural route segment
// ("questions", "answers", "replies").
func ParseContentKind(s string) (ContentKind, error) {
	switch s {
	case "question", "questions":
		return ContentQuestion, nil
	case "answer", "answers":
		return ContentAnswer, nil
	case "reply", "replies":
		return ContentReply, nil
	}
	return "", NewDomainError(ErrInvalidContentKind, fmt.Sprintf("unknown kind %q", s), "")
}

// Table returns the storage collection for the kind.
func (k ContentKind) Table() string {
	switch k {
	case ContentQuestion:
		return "questions"
	case ContentAnswer:
		return "answers"
	case ContentReply:
		return "replies"
	}
	return ""
}

// IsValid returns true if the kind is known.
func (k ContentKind) IsValid() bool {
	return k.Table() != ""
}

// Content is a question, answer or reply with its visibility state.
type Content struct {
	// ID is the unique identifier within the kind's collection.
	ID string `json:"id"`

	// Kind tells which collection the content lives in.
	Kind ContentKind `json:"kind"`

	// AuthorID references the user who wrote the content.
	AuthorID string `json:"authorId"`

	// Title is only set for questions.
	Title string `json:"title,omitempty"`

	// Body is plain text or a serialized rich-text document.
	Body string `json:"body"`

	// IsHidden is true iff HideReason and HiddenAt are set.
	IsHidden bool `json:"isHidden"`

	// HideReason records why a moderator hid the content.
	HideReason *string `json:"hideReason,omitempty"`

	// HiddenAt records when the content was hidden.
	HiddenAt *time.Time `json:"hiddenAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewContent creates visible content of the given kind.
func NewContent(kind ContentKind, authorID, title, body string) *Content {
	now := time.Now().UTC()
	return &Content{
		Kind:      kind,
		AuthorID:  authorID,
		Title:     title,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PreviewSource returns the text a notification should render: the title for
// questions that have one, otherwise the body.
func (c *Content) PreviewSource() string {
	if c.Kind == ContentQuestion && c.Title != "" {
		return c.Title
	}
	return c.Body
}

// VisibilityUpdate is the set of fields written by hide/unhide.
// A nil Reason means unhide.
type VisibilityUpdate struct {
	Reason   *string
	HiddenAt *time.Time
}
