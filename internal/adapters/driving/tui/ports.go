// Package tui provides an interactive terminal chat for bpa.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
type Ports struct {
	// Answer runs the question answering pipeline.
	Answer driving.AnswerService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	return nil
}

// Session identifies who is chatting and with which role.
type Session struct {
	Owner domain.Owner
	Role  domain.AccessRole

	// ConversationID resumes an existing conversation. Optional.
	ConversationID string
}
