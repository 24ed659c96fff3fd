// Package project is the main pipeline: a project moves from context
// gathering through reference selection and prompt generation to
// visualization. State changes go through Apply, a pure reducer; the
// Pipeline owns one State and runs the asynchronous generation actions
// against it.
package project

import (
	"fmt"

	"github.com/fpang/archiflow/internal/output"
	"github.com/fpang/archiflow/internal/reference"
)

// Stage is the highlighted pipeline step. Stages are advisory: any field
// can be edited at any stage.
type Stage int

const (
	StageContext Stage = iota + 1
	StageReference
	StagePrompt
	StageVisualization
)

func (s Stage) String() string {
	switch s {
	case StageContext:
		return "context"
	case StageReference:
		return "reference"
	case StagePrompt:
		return "prompt"
	case StageVisualization:
		return "visualization"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// AspectRatio is an output image aspect ratio.
type AspectRatio string

const (
	AspectSquare        AspectRatio = "1:1"
	AspectLandscape4x3  AspectRatio = "4:3"
	AspectLandscape16x9 AspectRatio = "16:9"
	AspectPortrait3x4   AspectRatio = "3:4"
	AspectPortrait9x16  AspectRatio = "9:16"
	AspectUltraWide21x9 AspectRatio = "21:9"
	DefaultAspectRatio              = AspectLandscape16x9
)

var aspectRatios = []AspectRatio{
	AspectSquare, AspectLandscape4x3, AspectLandscape16x9,
	AspectPortrait3x4, AspectPortrait9x16, AspectUltraWide21x9,
}

// ParseAspectRatio validates an aspect ratio string.
func ParseAspectRatio(s string) (AspectRatio, error) {
	for _, ar := range aspectRatios {
		if string(ar) == s {
			return ar, nil
		}
	}
	return "", fmt.Errorf("unsupported aspect ratio %q", s)
}

// ImageSize is the hi-res render resolution.
type ImageSize string

const (
	ImageSize1K      ImageSize = "1K"
	ImageSize2K      ImageSize = "2K"
	ImageSize4K      ImageSize = "4K"
	DefaultImageSize           = ImageSize1K
)

// ParseImageSize validates an image size string.
func ParseImageSize(s string) (ImageSize, error) {
	switch ImageSize(s) {
	case ImageSize1K, ImageSize2K, ImageSize4K:
		return ImageSize(s), nil
	}
	return "", fmt.Errorf("unsupported image size %q", s)
}

// Collection names one of the two reference collections.
type Collection string

const (
	CollectionContext   Collection = "context"
	CollectionReference Collection = "reference"
)

// ParseCollection validates a collection name.
func ParseCollection(s string) (Collection, error) {
	switch Collection(s) {
	case CollectionContext, CollectionReference:
		return Collection(s), nil
	}
	return "", fmt.Errorf("unknown collection %q", s)
}

// VideoJob is a render-to-video request that has not produced an output.
type VideoJob struct {
	ID             string `json:"id"`
	SourceOutputID string `json:"sourceOutputId"`
	// Error is set once the job failed. A failed job stays listed until
	// dismissed.
	Error string `json:"error,omitempty"`
}

// State is the single source of truth for one project.
type State struct {
	Description     string               `json:"description"`
	ContextFiles    reference.Collection `json:"contextFiles"`
	ExactReferences reference.Collection `json:"exactReferences"`
	// SelectedExactReferenceID may point at a removed file; lookups treat
	// that as unset.
	SelectedExactReferenceID string `json:"selectedExactReferenceId,omitempty"`

	GeneratedPrompt       string `json:"generatedPrompt"`
	ThinkingProcess       string `json:"thinkingProcess"`
	RefinementInstruction string `json:"refinementInstruction"`

	Outputs   output.Store `json:"outputs"`
	VideoJobs []VideoJob   `json:"videoJobs"`

	IsThinking          bool        `json:"isThinking"`
	ActiveStage         Stage       `json:"activeStage"`
	SelectedAspectRatio AspectRatio `json:"selectedAspectRatio"`
	SelectedResolution  ImageSize   `json:"selectedResolution"`
}

// NewState returns the initial project state.
func NewState() State {
	return State{
		ContextFiles:        reference.Collection{},
		ExactReferences:     reference.Collection{},
		Outputs:             output.Store{},
		VideoJobs:           []VideoJob{},
		ActiveStage:         StageContext,
		SelectedAspectRatio: DefaultAspectRatio,
		SelectedResolution:  DefaultImageSize,
	}
}

// collection returns the named reference collection.
func (s State) collection(c Collection) reference.Collection {
	if c == CollectionReference {
		return s.ExactReferences
	}
	return s.ContextFiles
}

// withCollection returns s with the named collection replaced.
func (s State) withCollection(c Collection, files reference.Collection) State {
	if c == CollectionReference {
		s.ExactReferences = files
	} else {
		s.ContextFiles = files
	}
	return s
}

// BaseImage resolves the reference image the next generation applies to:
// the selected reference if it still exists, otherwise the first one.
// It reports false when there are no references.
func (s State) BaseImage() (reference.File, bool) {
	if s.SelectedExactReferenceID != "" {
		if f, ok := s.ExactReferences.Find(s.SelectedExactReferenceID); ok {
			return f, true
		}
	}
	if len(s.ExactReferences) > 0 {
		return s.ExactReferences[0], true
	}
	return reference.File{}, false
}
