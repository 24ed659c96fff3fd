// Package workspace keeps one Workspace per browser session: the project
// pipeline, the Prompt Lab and a handle on the Saved Prompt Library.
// Sessions live in a bounded, expiring LRU; an idle session is dropped
// once its TTL passes or when newer sessions push it out.
package workspace

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"github.com/fpang/archiflow/internal/blob"
	"github.com/fpang/archiflow/internal/lab"
	"github.com/fpang/archiflow/internal/project"
	"github.com/fpang/archiflow/internal/store"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Generator is everything a workspace needs from the generation client.
type Generator interface {
	project.Generator
	lab.Enhancer
}

// Workspace is one session's state.
type Workspace struct {
	ID        string
	Project   *project.Pipeline
	Lab       *lab.Lab
	Library   *lab.Library
	CreatedAt time.Time
}

// Options configures a Registry.
type Options struct {
	Generator Generator
	Blobs     blob.Store
	Prompts   store.PromptStore
	// LibraryOwner, when set, makes every session share one library.
	// Otherwise each session has its own.
	LibraryOwner string

	MaxSessions int
	TTL         time.Duration
}

// Registry creates and looks up workspaces.
type Registry struct {
	opts     Options
	sessions *expirable.LRU[string, *Workspace]
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	onEvict := func(id string, ws *Workspace) {
		log.Info().
			Str("session_id", id).
			Dur("age", time.Since(ws.CreatedAt)).
			Msg("Session evicted")
		// Runs under the LRU lock; blob deletes may hit S3.
		go ws.Project.Release(context.Background())
	}
	return &Registry{
		opts:     opts,
		sessions: expirable.NewLRU[string, *Workspace](opts.MaxSessions, onEvict, opts.TTL),
	}
}

// Create starts a new session.
func (r *Registry) Create() *Workspace {
	id := uuid.NewString()
	owner := r.opts.LibraryOwner
	if owner == "" {
		owner = id
	}

	ws := &Workspace{
		ID:        id,
		Project:   project.NewPipeline(r.opts.Generator, r.opts.Blobs),
		Lab:       lab.New(r.opts.Generator),
		Library:   lab.NewLibrary(r.opts.Prompts, owner),
		CreatedAt: time.Now(),
	}
	r.sessions.Add(id, ws)
	log.Info().Str("session_id", id).Int("active_sessions", r.sessions.Len()).Msg("Session created")
	return ws
}

// Get returns the workspace for a session id and restarts its TTL.
func (r *Registry) Get(id string) (*Workspace, error) {
	ws, ok := r.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	// expirable.LRU.Get leaves the expiry alone; re-adding slides it.
	r.sessions.Add(id, ws)
	return ws, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}
