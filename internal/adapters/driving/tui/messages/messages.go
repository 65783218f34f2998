// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/bpa/internal/core/domain"
)

// QuestionSubmitted is sent when the user presses enter on a question.
type QuestionSubmitted struct {
	Question string
}

// AnswerReceived carries the pipeline result back to the model.
type AnswerReceived struct {
	Answer *domain.Answer
}

// ConversationReset is sent when the user starts a new conversation.
type ConversationReset struct{}

// ErrorOccurred is sent when an error needs to be displayed.
type ErrorOccurred struct {
	Err error
}
