package webapi

import (
	"net/url"

	"github.com/fpang/archiflow/internal/output"
	"github.com/fpang/archiflow/internal/project"
	"github.com/fpang/archiflow/internal/reference"
)

// projectView is the project snapshot as the browser receives it. Output
// images and reference previews are linked rather than inlined; the
// browser loads them from the image and preview endpoints.
type projectView struct {
	project.State
	ContextFiles    []reference.File `json:"contextFiles"`
	ExactReferences []reference.File `json:"exactReferences"`
	Outputs         []output.View    `json:"outputs"`
}

func newProjectView(sessionID string, st project.State) projectView {
	v := projectView{
		State:           st,
		ContextFiles:    linkPreviews(sessionID, st.ContextFiles),
		ExactReferences: linkPreviews(sessionID, st.ExactReferences),
		Outputs:         make([]output.View, 0, len(st.Outputs)),
	}
	for _, o := range st.Outputs {
		v.Outputs = append(v.Outputs, o.View(outputImageURL(sessionID, o.ID)))
	}
	return v
}

func linkPreviews(sessionID string, files reference.Collection) []reference.File {
	out := make([]reference.File, 0, len(files))
	for _, f := range files {
		if f.PreviewURL != "" {
			f.PreviewURL = withSession("/api/project/files/"+url.PathEscape(f.ID)+"/preview", sessionID)
		}
		out = append(out, f)
	}
	return out
}

func outputImageURL(sessionID, outputID string) string {
	return withSession("/api/outputs/"+url.PathEscape(outputID)+"/image", sessionID)
}

// withSession appends the session id so <img> elements, which cannot set
// headers, can load session-scoped media.
func withSession(path, sessionID string) string {
	return path + "?sessionId=" + url.QueryEscape(sessionID)
}
