package project

import (
	"slices"

	"github.com/fpang/archiflow/internal/output"
	"github.com/fpang/archiflow/internal/reference"
)

// Action is a state transition. Actions are applied with Apply.
type Action interface {
	apply(State) State
}

// Apply returns the state that results from applying a to s. It never
// mutates s.
func Apply(s State, a Action) State {
	return a.apply(s)
}

// SetDescription replaces the free-text description.
type SetDescription struct{ Text string }

func (a SetDescription) apply(s State) State {
	s.Description = a.Text
	return s
}

// ConfirmContext moves from the context stage to the reference stage.
type ConfirmContext struct{}

func (ConfirmContext) apply(s State) State {
	s.ActiveStage = StageReference
	return s
}

// AddFiles appends already classified files to a collection, in order.
type AddFiles struct {
	Collection Collection
	Files      []reference.File
}

func (a AddFiles) apply(s State) State {
	files := s.collection(a.Collection)
	for _, f := range a.Files {
		files = files.Append(f)
	}
	return s.withCollection(a.Collection, files)
}

// RemoveFile removes a file from a collection. Unknown ids are ignored.
type RemoveFile struct {
	Collection Collection
	ID         string
}

func (a RemoveFile) apply(s State) State {
	return s.withCollection(a.Collection, s.collection(a.Collection).Remove(a.ID))
}

// SelectReference picks the base image for the next generation.
type SelectReference struct{ ID string }

func (a SelectReference) apply(s State) State {
	s.SelectedExactReferenceID = a.ID
	return s
}

// EditPrompt is a direct user edit of the working prompt.
type EditPrompt struct{ Text string }

func (a EditPrompt) apply(s State) State {
	s.GeneratedPrompt = a.Text
	return s
}

// SetRefinementInstruction replaces the pending refinement instruction.
type SetRefinementInstruction struct{ Text string }

func (a SetRefinementInstruction) apply(s State) State {
	s.RefinementInstruction = a.Text
	return s
}

// ChangeSettings updates the generation parameters. Empty fields are left
// unchanged. Values must already be validated.
type ChangeSettings struct {
	AspectRatio AspectRatio
	Resolution  ImageSize
}

func (a ChangeSettings) apply(s State) State {
	if a.AspectRatio != "" {
		s.SelectedAspectRatio = a.AspectRatio
	}
	if a.Resolution != "" {
		s.SelectedResolution = a.Resolution
	}
	return s
}

// RemoveOutput deletes an output. Unknown ids are ignored.
type RemoveOutput struct{ ID string }

func (a RemoveOutput) apply(s State) State {
	s.Outputs = s.Outputs.Remove(a.ID)
	return s
}

// GenerationStarted raises the busy flag. A non-zero Stage is made active.
type GenerationStarted struct{ Stage Stage }

func (a GenerationStarted) apply(s State) State {
	s.IsThinking = true
	if a.Stage != 0 {
		s.ActiveStage = a.Stage
	}
	return s
}

// GenerationFailed clears the busy flag and changes nothing else.
type GenerationFailed struct{}

func (GenerationFailed) apply(s State) State {
	s.IsThinking = false
	return s
}

// PromptGenerated stores a refined prompt and advances to the prompt stage.
type PromptGenerated struct {
	Prompt   string
	Thoughts string
}

func (a PromptGenerated) apply(s State) State {
	s.GeneratedPrompt = a.Prompt
	s.ThinkingProcess = a.Thoughts
	s.IsThinking = false
	s.ActiveStage = StagePrompt
	return s
}

// PromptRefined replaces the prompt and clears the used instruction.
type PromptRefined struct{ Prompt string }

func (a PromptRefined) apply(s State) State {
	s.GeneratedPrompt = a.Prompt
	s.RefinementInstruction = ""
	s.IsThinking = false
	return s
}

// OutputAdded appends an image output and advances to visualization.
type OutputAdded struct{ Output output.Output }

func (a OutputAdded) apply(s State) State {
	s.Outputs = s.Outputs.Append(a.Output)
	s.IsThinking = false
	s.ActiveStage = StageVisualization
	return s
}

// VideoQueued lists a new video job.
type VideoQueued struct{ Job VideoJob }

func (a VideoQueued) apply(s State) State {
	s.VideoJobs = append(slices.Clone(s.VideoJobs), a.Job)
	return s
}

// VideoFinished resolves a video job: on success the job is replaced by
// its output, on failure the job keeps the error.
type VideoFinished struct {
	JobID  string
	Output *output.Output
	Err    string
}

func (a VideoFinished) apply(s State) State {
	jobs := slices.Clone(s.VideoJobs)
	if a.Output != nil {
		s.Outputs = s.Outputs.Append(*a.Output)
		jobs = slices.DeleteFunc(jobs, func(j VideoJob) bool { return j.ID == a.JobID })
	} else {
		for i := range jobs {
			if jobs[i].ID == a.JobID {
				jobs[i].Error = a.Err
			}
		}
	}
	s.VideoJobs = jobs
	return s
}

// DismissVideoJob removes a video job from the list.
type DismissVideoJob struct{ ID string }

func (a DismissVideoJob) apply(s State) State {
	s.VideoJobs = slices.DeleteFunc(slices.Clone(s.VideoJobs), func(j VideoJob) bool { return j.ID == a.ID })
	return s
}
