package project

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/archiflow/internal/blob"
	"github.com/fpang/archiflow/internal/gemini"
	"github.com/fpang/archiflow/internal/media"
	"github.com/fpang/archiflow/internal/output"
	"github.com/fpang/archiflow/internal/reference"
)

var (
	// ErrStale is returned when a newer generation started while this one
	// was in flight. The stale result is discarded, not applied.
	ErrStale = errors.New("generation superseded by a newer request")
	// ErrOutputNotFound is returned for output ids that are not (or no
	// longer) in the output store.
	ErrOutputNotFound = errors.New("output not found")
	// ErrNotImage is returned when an operation needs an image output.
	ErrNotImage = errors.New("output is not an image")
)

// Generator is the generation service the pipeline drives.
type Generator interface {
	RefinePrompt(ctx context.Context, description string, files []gemini.InlineFile) (*gemini.RefineResult, error)
	EnhancePrompt(ctx context.Context, currentPrompt, instruction string) (string, error)
	GenerateConceptImage(ctx context.Context, prompt string, reference *gemini.InlineFile, aspectRatio string) (string, error)
	GenerateHighResRender(ctx context.Context, prompt string, reference *gemini.InlineFile, aspectRatio, imageSize string) (string, error)
	GenerateVideo(ctx context.Context, seed gemini.InlineFile, prompt string) (*gemini.Video, error)
}

// Pipeline owns one project's state. All methods are safe for concurrent
// use. Generation calls run without holding the lock; their results are
// applied only if no newer generation started in the meantime.
type Pipeline struct {
	gen   Generator
	blobs blob.Store

	mu    sync.Mutex
	state State
	// seq is the token of the latest generation. It guards IsThinking:
	// only the holder of the latest token may apply a result or clear it.
	seq uint64

	newID func() string
	now   func() time.Time
}

// NewPipeline creates a pipeline in the initial state.
func NewPipeline(gen Generator, blobs blob.Store) *Pipeline {
	return &Pipeline{
		gen:   gen,
		blobs: blobs,
		state: NewState(),
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Snapshot returns the current state.
func (p *Pipeline) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Dispatch applies a synchronous edit and returns the new state.
func (p *Pipeline) Dispatch(a Action) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Apply(p.state, a)
	return p.state
}

// AddFiles classifies uploads and appends them to a collection.
func (p *Pipeline) AddFiles(c Collection, uploads ...reference.Upload) State {
	files := make([]reference.File, 0, len(uploads))
	for _, u := range uploads {
		files = append(files, reference.NewFile(u))
	}
	log.Info().Str("collection", string(c)).Int("count", len(files)).Msg("Adding reference files")
	return p.Dispatch(AddFiles{Collection: c, Files: files})
}

// ReuseOutput copies an image output into a collection as a new file.
// Reusing a video output changes nothing.
func (p *Pipeline) ReuseOutput(outputID string, c Collection) (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.state.Outputs.Find(outputID)
	if !ok {
		return p.state, ErrOutputNotFound
	}
	f, ok := reference.FromOutput(o)
	if !ok {
		log.Debug().Str("output_id", outputID).Msg("Ignoring reuse of non-image output")
		return p.state, nil
	}
	p.state = Apply(p.state, AddFiles{Collection: c, Files: []reference.File{f}})
	return p.state, nil
}

// begin applies start under the lock and returns the new generation token
// together with the state the call should work from.
func (p *Pipeline) begin(start Action) (uint64, State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.state = Apply(p.state, start)
	return p.seq, p.state
}

// finish applies the outcome of the generation holding token. A nil err
// applies onSuccess, otherwise GenerationFailed. Stale outcomes are
// dropped and reported as ErrStale.
func (p *Pipeline) finish(token uint64, op string, onSuccess Action, err error) (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if token != p.seq {
		log.Warn().
			Str("operation", op).
			Uint64("token", token).
			Uint64("latest", p.seq).
			Msg("Discarding stale generation result")
		return p.state, ErrStale
	}
	if err != nil {
		log.Error().Err(err).Str("operation", op).Msg("Generation failed")
		p.state = Apply(p.state, GenerationFailed{})
		return p.state, err
	}
	p.state = Apply(p.state, onSuccess)
	return p.state, nil
}

// GeneratePrompt refines the description and context files into the
// working prompt and advances to the prompt stage.
func (p *Pipeline) GeneratePrompt(ctx context.Context) (State, error) {
	token, st := p.begin(GenerationStarted{Stage: StageReference})

	files := make([]gemini.InlineFile, 0, len(st.ContextFiles))
	for _, f := range st.ContextFiles {
		files = append(files, inlineFile(f))
	}

	res, err := p.gen.RefinePrompt(ctx, st.Description, files)
	if err == nil && res == nil {
		err = gemini.ErrEmptyResponse
	}
	var done Action
	if err == nil {
		done = PromptGenerated{Prompt: res.RefinedPrompt, Thoughts: res.Thoughts}
	}
	return p.finish(token, "refine", done, err)
}

// RefinePromptFurther applies an enhancement instruction to the working
// prompt. An empty instruction does nothing. On failure the prompt and
// instruction are left as they were.
func (p *Pipeline) RefinePromptFurther(ctx context.Context, instruction string) (State, error) {
	st := p.Dispatch(SetRefinementInstruction{Text: instruction})
	if st.RefinementInstruction == "" {
		return st, nil
	}

	token, st := p.begin(GenerationStarted{})
	refined, err := p.gen.EnhancePrompt(ctx, st.GeneratedPrompt, st.RefinementInstruction)
	return p.finish(token, "enhance", PromptRefined{Prompt: refined}, err)
}

// GenerateConcepts renders a concept image from the working prompt,
// editing the base image when there is one. An empty prompt does nothing.
func (p *Pipeline) GenerateConcepts(ctx context.Context) (State, error) {
	if st := p.Snapshot(); st.GeneratedPrompt == "" {
		return st, nil
	}

	token, st := p.begin(GenerationStarted{})
	base, hasBase := st.BaseImage()
	var ref *gemini.InlineFile
	if hasBase {
		in := inlineFile(base)
		ref = &in
	}

	url, err := p.gen.GenerateConceptImage(ctx, st.GeneratedPrompt, ref, string(st.SelectedAspectRatio))
	var done Action
	if err == nil {
		done = p.imageOutput(output.KindConcept, url, st.GeneratedPrompt, base, hasBase)
	}
	return p.finish(token, "concept", done, err)
}

// RenderHighRes renders a hyper-realistic image from the working prompt at
// the selected aspect ratio and resolution. An empty prompt does nothing.
func (p *Pipeline) RenderHighRes(ctx context.Context) (State, error) {
	if st := p.Snapshot(); st.GeneratedPrompt == "" {
		return st, nil
	}

	token, st := p.begin(GenerationStarted{})
	base, hasBase := st.BaseImage()
	var ref *gemini.InlineFile
	if hasBase {
		in := inlineFile(base)
		ref = &in
	}

	url, err := p.gen.GenerateHighResRender(ctx, st.GeneratedPrompt, ref,
		string(st.SelectedAspectRatio), string(st.SelectedResolution))
	var done Action
	if err == nil {
		done = p.imageOutput(output.KindHyperRealistic, url, st.GeneratedPrompt, base, hasBase)
	}
	return p.finish(token, "render", done, err)
}

func (p *Pipeline) imageOutput(kind output.Kind, dataURL, prompt string, base reference.File, hasBase bool) Action {
	o := output.Output{
		ID:        p.newID(),
		Kind:      kind,
		Media:     output.Image{DataURL: dataURL},
		Prompt:    prompt,
		CreatedAt: p.now(),
	}
	if hasBase {
		o.BaseImageID = base.ID
	}
	return OutputAdded{Output: o}
}

// BeginVideo queues a render-to-video job for an image output and
// returns it with the source output to pass to RunVideo. The job is
// listed in the state until RunVideo resolves it. Video jobs do not use
// the project busy flag; each job resolves independently.
func (p *Pipeline) BeginVideo(outputID string) (VideoJob, output.Output, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	o, ok := p.state.Outputs.Find(outputID)
	if !ok {
		return VideoJob{}, output.Output{}, ErrOutputNotFound
	}
	if _, ok := o.Image(); !ok {
		return VideoJob{}, output.Output{}, ErrNotImage
	}

	job := VideoJob{ID: p.newID(), SourceOutputID: outputID}
	p.state = Apply(p.state, VideoQueued{Job: job})
	return job, o, nil
}

// RunVideo renders the job's video, stores the bytes in the blob store
// and appends a video output. The source output is read when the job was
// queued, so deleting it meanwhile does not abort the job.
func (p *Pipeline) RunVideo(ctx context.Context, job VideoJob, source output.Output) (State, error) {
	out, err := p.renderVideo(ctx, source)
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("Video job failed")
		p.state = Apply(p.state, VideoFinished{JobID: job.ID, Err: err.Error()})
		return p.state, err
	}
	p.state = Apply(p.state, VideoFinished{JobID: job.ID, Output: out})
	return p.state, nil
}

// RenderVideo queues and runs a video job in one blocking call.
func (p *Pipeline) RenderVideo(ctx context.Context, outputID string) (State, error) {
	job, source, err := p.BeginVideo(outputID)
	if err != nil {
		return p.Snapshot(), err
	}
	return p.RunVideo(ctx, job, source)
}

func (p *Pipeline) renderVideo(ctx context.Context, source output.Output) (*output.Output, error) {
	img, ok := source.Image()
	if !ok {
		return nil, ErrNotImage
	}
	mimeType, data, err := img.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}

	video, err := p.gen.GenerateVideo(ctx, gemini.InlineFile{MIMEType: mimeType, Data: data}, source.Prompt)
	if err != nil {
		return nil, err
	}

	id := p.newID()
	if err := p.blobs.Put(ctx, blob.Blob{ID: id, MIMEType: video.MIMEType, Data: video.Data}); err != nil {
		return nil, fmt.Errorf("failed to store video: %w", err)
	}
	return &output.Output{
		ID:             id,
		Kind:           output.KindVideo,
		Media:          output.Video{BlobURL: blob.URL(id), MIMEType: video.MIMEType},
		Prompt:         source.Prompt,
		SourceOutputID: source.ID,
		CreatedAt:      p.now(),
	}, nil
}

// RemoveOutput deletes an output. A video output's blob is deleted with it.
func (p *Pipeline) RemoveOutput(ctx context.Context, id string) State {
	p.mu.Lock()
	removed, found := p.state.Outputs.Find(id)
	p.state = Apply(p.state, RemoveOutput{ID: id})
	st := p.state
	p.mu.Unlock()

	if found {
		p.releaseBlob(ctx, removed)
	}
	return st
}

// Release deletes the blobs behind every output. The session owning the
// pipeline calls it when it ends.
func (p *Pipeline) Release(ctx context.Context) {
	for _, o := range p.Snapshot().Outputs {
		p.releaseBlob(ctx, o)
	}
}

func (p *Pipeline) releaseBlob(ctx context.Context, o output.Output) {
	v, ok := o.Media.(output.Video)
	if !ok {
		return
	}
	if err := p.blobs.Delete(ctx, blob.IDFromURL(v.BlobURL)); err != nil {
		log.Warn().Err(err).Str("output_id", o.ID).Msg("Failed to delete video blob")
	}
}

func inlineFile(f reference.File) gemini.InlineFile {
	mimeType := f.MIMEType
	if mimeType == "" {
		mimeType = media.MIMEOctetStream
	}
	return gemini.InlineFile{
		Name:     f.Name,
		MIMEType: mimeType,
		Data:     f.Data,
		Metadata: f.Metadata,
	}
}
