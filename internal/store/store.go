// Package store persists the Saved Prompt Library. Prompts are grouped by
// owner: a browser session by default, or a fixed owner shared by every
// session when the library is configured to be durable.
//
// Two implementations exist. MemoryStore lives and dies with the process.
// DynamoStore uses a single DynamoDB table where every prompt of an owner
// shares a partition key (LIBRARY#{owner}) and the sort key is
// PROMPT#{id}.
package store

import (
	"context"
	"slices"
	"strings"
	"time"
)

// SavedPrompt is one library entry. It is immutable once created. IDs are
// UUIDv7, so they sort in creation order.
type SavedPrompt struct {
	ID          string    `json:"id" dynamodbav:"-"`
	Text        string    `json:"text" dynamodbav:"text"`
	Instruction string    `json:"instruction" dynamodbav:"instruction"`
	Timestamp   time.Time `json:"timestamp" dynamodbav:"timestamp"`
}

// PromptStore persists saved prompts per owner. Implementations are safe
// for concurrent use.
type PromptStore interface {
	// PutPrompt stores p for owner.
	PutPrompt(ctx context.Context, owner string, p SavedPrompt) error

	// ListPrompts returns the owner's prompts, most recent first. An owner
	// with no prompts gets an empty slice, not an error.
	ListPrompts(ctx context.Context, owner string) ([]SavedPrompt, error)

	// DeletePrompt removes a prompt. Deleting an unknown id is not an error.
	DeletePrompt(ctx context.Context, owner, id string) error
}

// sortNewestFirst orders prompts by descending timestamp, then by
// descending id for equal timestamps.
func sortNewestFirst(prompts []SavedPrompt) {
	slices.SortFunc(prompts, func(a, b SavedPrompt) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}
