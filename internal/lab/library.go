package lab

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fpang/archiflow/internal/store"
)

// Instruction labels recorded with saved prompts.
const (
	// DefaultInstruction labels prompts saved without an instruction.
	DefaultInstruction = "Generated Prompt"
	// ProjectInstruction labels prompts saved from the main pipeline.
	ProjectInstruction = "From Production Engine"
)

// Library is one owner's view of the Saved Prompt Library.
type Library struct {
	store store.PromptStore
	owner string
	now   func() time.Time
}

// NewLibrary creates a library for owner backed by s.
func NewLibrary(s store.PromptStore, owner string) *Library {
	return &Library{store: s, owner: owner, now: time.Now}
}

// Save adds a prompt to the front of the library. Empty text is ignored
// and returns nil, nil.
func (l *Library) Save(ctx context.Context, text, instruction string) (*store.SavedPrompt, error) {
	if text == "" {
		return nil, nil
	}
	if instruction == "" {
		instruction = DefaultInstruction
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate prompt id: %w", err)
	}
	p := store.SavedPrompt{
		ID:          id.String(),
		Text:        text,
		Instruction: instruction,
		Timestamp:   l.now(),
	}
	if err := l.store.PutPrompt(ctx, l.owner, p); err != nil {
		return nil, fmt.Errorf("failed to save prompt: %w", err)
	}
	return &p, nil
}

// List returns saved prompts, most recent first.
func (l *Library) List(ctx context.Context) ([]store.SavedPrompt, error) {
	prompts, err := l.store.ListPrompts(ctx, l.owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	return prompts, nil
}

// Delete removes a saved prompt. Unknown ids are ignored.
func (l *Library) Delete(ctx context.Context, id string) error {
	if err := l.store.DeletePrompt(ctx, l.owner, id); err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}
	return nil
}
