// Package lab is the Prompt Lab: a sandbox for trying enhancement
// instructions on arbitrary prompts outside the main pipeline, plus the
// Saved Prompt Library results can be kept in. The lab has its own busy
// flag, independent of the project's.
package lab

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrStale is returned when a newer Generate call started while this one
// was in flight; its result was discarded.
var ErrStale = errors.New("lab generation superseded by a newer request")

// Enhancer rewrites a prompt according to an instruction.
type Enhancer interface {
	EnhancePrompt(ctx context.Context, currentPrompt, instruction string) (string, error)
}

// State is the lab as the UI renders it.
type State struct {
	Input       string `json:"input"`
	Instruction string `json:"instruction"`
	Output      string `json:"output"`
	IsLoading   bool   `json:"isLoading"`
}

// Lab holds one session's sandbox state.
type Lab struct {
	enhancer Enhancer

	mu    sync.Mutex
	state State
	// seq identifies the latest Generate call. Only that call may apply
	// its result or clear IsLoading.
	seq uint64
}

// New creates an empty Lab.
func New(enhancer Enhancer) *Lab {
	return &Lab{enhancer: enhancer}
}

// Snapshot returns the current state.
func (l *Lab) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// SetOutput replaces the output text with a user edit.
func (l *Lab) SetOutput(text string) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Output = text
	return l.state
}

// Generate enhances input with instruction and stores the raw result as
// the output. Both fields are required; if either is empty nothing
// happens. On failure the previous output is kept.
func (l *Lab) Generate(ctx context.Context, input, instruction string) (State, error) {
	l.mu.Lock()
	if input == "" || instruction == "" {
		defer l.mu.Unlock()
		return l.state, nil
	}
	l.seq++
	token := l.seq
	l.state.Input = input
	l.state.Instruction = instruction
	l.state.IsLoading = true
	l.mu.Unlock()

	result, err := l.enhancer.EnhancePrompt(ctx, input, instruction)

	l.mu.Lock()
	defer l.mu.Unlock()
	if token != l.seq {
		log.Debug().Uint64("token", token).Uint64("latest", l.seq).Msg("Discarding stale lab result")
		return l.state, ErrStale
	}
	l.state.IsLoading = false
	if err != nil {
		return l.state, err
	}
	l.state.Output = result
	return l.state, nil
}
