package domain

// Fixed answer texts.
const (
	// FallbackAnswer is returned verbatim when no fragment is visible to the caller.
	FallbackAnswer = "I don't have a verified source for that."

	// FailureAnswer is returned when the pipeline fails at its boundary.
	FailureAnswer = "An error occurred while retrieving your answer."

	// UnknownSourceTitle is the citation title of fragments without a title.
	UnknownSourceTitle = "Unknown Source"
)

// AnswerRequest is the input of the answer pipeline.
type AnswerRequest struct {
	Query string

	// Role selects which fragments are visible.
	Role AccessRole

	// ConversationID is optional. An unknown or foreign ID starts a new conversation.
	ConversationID string

	Owner Owner
}

// Citation references a retrieved fragment.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Page  int    `json:"page,omitempty"`
}

// CitationFor derives the citation of a fragment from its metadata.
func CitationFor(f Fragment) Citation {
	title := f.Metadata.Title
	if title == "" {
		title = UnknownSourceTitle
	}
	return Citation{
		Title: title,
		URL:   f.Metadata.Source,
		Page:  f.Metadata.Page,
	}
}

// AnswerMeta describes how an answer was produced.
type AnswerMeta struct {
	SourceCount int        `json:"sourceCount"`
	RoleUsed    AccessRole `json:"roleUsed"`
	TokensUsed  int        `json:"tokensUsed,omitempty"`
	Query       string     `json:"query,omitempty"`
	Model       string     `json:"model,omitempty"`

	// Error is set when the pipeline failed; Message then explains why.
	Error   bool   `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Answer is the structured result of the answer pipeline.
type Answer struct {
	ConversationID string     `json:"conversationId,omitempty"`
	Answer         string     `json:"answer"`
	Citations      []Citation `json:"citations"`
	History        []Message  `json:"history"`
	Meta           AnswerMeta `json:"meta"`
}

// FailedAnswer builds the structured failure result for err.
func FailedAnswer(req AnswerRequest, err error) *Answer {
	return &Answer{
		ConversationID: req.ConversationID,
		Answer:         FailureAnswer,
		Citations:      []Citation{},
		History:        []Message{},
		Meta: AnswerMeta{
			RoleUsed: req.Role,
			Query:    req.Query,
			Error:    true,
			Message:  err.Error(),
		},
	}
}
