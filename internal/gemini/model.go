package gemini

// Gemini model IDs used by the four generation operations.
//
// | Operation          | Default model ID              |
// |--------------------|-------------------------------|
// | refine / enhance   | gemini-3-pro-preview          |
// | concept image      | gemini-2.5-flash-image        |
// | hi-res render      | gemini-3-pro-image-preview    |
// | video              | veo-3.1-fast-generate-preview |
const (
	// ModelGemini3ProPreview reasons over context files and rewrites prompts.
	ModelGemini3ProPreview = "gemini-3-pro-preview"

	// ModelGemini25FlashImage is the fast image generation/edit model.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelGemini3ProImage renders hyper-realistic images with size control.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"

	// ModelVeo31Fast generates short videos seeded from an image.
	ModelVeo31Fast = "veo-3.1-fast-generate-preview"
)

// Models selects the model ID per operation.
type Models struct {
	Reasoning    string
	ConceptImage string
	HighResImage string
	Video        string
}

// DefaultModels returns the model set used when nothing is configured.
func DefaultModels() Models {
	return Models{
		Reasoning:    ModelGemini3ProPreview,
		ConceptImage: ModelGemini25FlashImage,
		HighResImage: ModelGemini3ProImage,
		Video:        ModelVeo31Fast,
	}
}

// withDefaults fills empty model IDs from DefaultModels.
func (m Models) withDefaults() Models {
	d := DefaultModels()
	if m.Reasoning == "" {
		m.Reasoning = d.Reasoning
	}
	if m.ConceptImage == "" {
		m.ConceptImage = d.ConceptImage
	}
	if m.HighResImage == "" {
		m.HighResImage = d.HighResImage
	}
	if m.Video == "" {
		m.Video = d.Video
	}
	return m
}
