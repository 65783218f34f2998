package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OwnerKind discriminates the two kinds of conversation owner.
type OwnerKind string

// Available owner kinds.
const (
	OwnerKindUser    OwnerKind = "user"
	OwnerKindSession OwnerKind = "session"
)

// Owner is exactly one of AuthenticatedUser(id) or AnonymousSession(id).
// The zero Owner owns nothing and matches no conversation.
type Owner struct {
	kind OwnerKind
	id   string
}

// AuthenticatedUser returns an owner for a signed-in user.
func AuthenticatedUser(id string) Owner {
	return Owner{kind: OwnerKindUser, id: id}
}

// AnonymousSession returns an owner for an unauthenticated session.
func AnonymousSession(id string) Owner {
	return Owner{kind: OwnerKindSession, id: id}
}

// NewOwner rebuilds an owner from its stored parts.
func NewOwner(kind OwnerKind, id string) (Owner, error) {
	if id == "" {
		return Owner{}, fmt.Errorf("%w: empty owner id", ErrInvalidInput)
	}
	switch kind {
	case OwnerKindUser:
		return AuthenticatedUser(id), nil
	case OwnerKindSession:
		return AnonymousSession(id), nil
	default:
		return Owner{}, fmt.Errorf("%w: unknown owner kind %q", ErrInvalidInput, kind)
	}
}

// ParseOwner parses the "user:<id>" or "session:<id>" form produced by String.
func ParseOwner(s string) (Owner, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return Owner{}, fmt.Errorf("%w: owner %q", ErrInvalidInput, s)
	}
	return NewOwner(OwnerKind(kind), id)
}

// Kind returns the owner kind.
func (o Owner) Kind() OwnerKind { return o.kind }

// ID returns the user or session identifier.
func (o Owner) ID() string { return o.id }

// IsAuthenticated reports whether the owner is a signed-in user.
func (o Owner) IsAuthenticated() bool { return o.kind == OwnerKindUser }

// IsZero reports whether o is the zero Owner.
func (o Owner) IsZero() bool { return o.id == "" }

// String returns "<kind>:<id>".
func (o Owner) String() string {
	if o.IsZero() {
		return ""
	}
	return string(o.kind) + ":" + o.id
}

type ownerJSON struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

// MarshalJSON encodes the owner as {"kind","id"}.
func (o Owner) MarshalJSON() ([]byte, error) {
	return json.Marshal(ownerJSON{Kind: o.kind, ID: o.id})
}

// UnmarshalJSON decodes {"kind","id"} and validates it.
func (o *Owner) UnmarshalJSON(data []byte) error {
	var raw ownerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	owner, err := NewOwner(raw.Kind, raw.ID)
	if err != nil {
		return err
	}
	*o = owner
	return nil
}

// Sender identifies who wrote a message.
type Sender string

// Available senders.
const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one immutable entry in a conversation.
type Message struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is one ongoing exchange. Ownership never changes after creation.
type Conversation struct {
	ID string `json:"id"`

	Owner Owner `json:"owner"`

	// Role is the access role used by the latest turn.
	Role AccessRole `json:"role"`

	// Messages are in insertion order.
	Messages []Message `json:"messages"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OwnedBy reports whether owner owns the conversation.
func (c *Conversation) OwnedBy(owner Owner) bool {
	return !owner.IsZero() && c.Owner == owner
}

// RecentMessages returns at most n of the latest messages, oldest first.
func (c *Conversation) RecentMessages(n int) []Message {
	if n <= 0 {
		return nil
	}
	if len(c.Messages) <= n {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}

// NoHistory is the history text used when a conversation has no messages.
const NoHistory = "No previous conversation"

// FormatHistory serialises messages as "sender: text" lines.
func FormatHistory(messages []Message) string {
	if len(messages) == 0 {
		return NoHistory
	}
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = string(m.Sender) + ": " + m.Text
	}
	return strings.Join(lines, "\n")
}

// ConversationSummary is a conversation listing entry without messages.
type ConversationSummary struct {
	ID           string     `json:"id"`
	Owner        Owner      `json:"owner"`
	Role         AccessRole `json:"role"`
	MessageCount int        `json:"messageCount"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
