// Package assets provides the prompt templates sent to the generative
// service. Templates live under prompts/ and are embedded at compile time
// so prompt wording can be reviewed without touching request code.
package assets

import (
	"bytes"
	_ "embed"
	"text/template"
)

// EnhanceSystemPrompt is the fixed agent persona used for every
// prompt-enhancement call, in the main pipeline and in the Prompt Lab.
//
//go:embed prompts/enhance-system.txt
var EnhanceSystemPrompt string

//go:embed prompts/refine.txt
var refineTemplate string

var refinePromptTmpl = template.Must(template.New("refine").Parse(refineTemplate))

// Fixed framings prepended to user prompts by the image and video operations.
const (
	ConceptEditPrefix   = "Edit this image based on the following instructions: "
	HighResRenderPrefix = "Hyper-realistic architectural render, 8k, detailed textures, dramatic lighting. "
	VideoPrefix         = "Cinematic architectural tour. "

	// EnhanceTail closes every enhancement request.
	EnhanceTail = "Refine the prompt based on the instruction. If the instruction implies shape editing (Red/Blue/Green/Yellow), apply the specific translation rules."
)

// RefineData holds the dynamic values injected into the refine template.
type RefineData struct {
	Description string
	// MetadataContext is the EXIF summary of image context files, if any.
	MetadataContext string
}

// RenderRefinePrompt renders the instruction block for a prompt-refinement call.
func RenderRefinePrompt(data RefineData) string {
	var buf bytes.Buffer
	// The template has no failure modes beyond a broken writer.
	_ = refinePromptTmpl.Execute(&buf, data)
	return buf.String()
}

// EnhanceCurrentPrompt formats the current-prompt part of an enhancement request.
func EnhanceCurrentPrompt(prompt string) string {
	return `Current Prompt: "` + prompt + `"`
}

// EnhanceInstruction formats the user-instruction part of an enhancement request.
func EnhanceInstruction(instruction string) string {
	return `User Instruction/Refinement Request: "` + instruction + `"`
}
