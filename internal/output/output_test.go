package output

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpang/archiflow/internal/media"
)

func imageOutput(id string) Output {
	return Output{
		ID:     id,
		Kind:   KindConcept,
		Media:  Image{DataURL: media.EncodeDataURL("image/png", []byte{1, 2, 3})},
		Prompt: "prompt " + id,
	}
}

func TestStoreAppendKeepsOrderAndSnapshot(t *testing.T) {
	var s Store
	s1 := s.Append(imageOutput("a"))
	s2 := s1.Append(imageOutput("b"))

	require.Len(t, s1, 1)
	require.Len(t, s2, 2)
	assert.Equal(t, "a", s2[0].ID)
	assert.Equal(t, "b", s2[1].ID)
}

func TestStoreRemove(t *testing.T) {
	s := Store{}.Append(imageOutput("a")).Append(imageOutput("b")).Append(imageOutput("c"))

	removed := s.Remove("b")
	assert.Equal(t, []string{"a", "c"}, ids(removed))
	assert.Equal(t, []string{"a", "b", "c"}, ids(s), "receiver must be left intact")

	assert.Equal(t, ids(s), ids(s.Remove("missing")), "removing an unknown id is a no-op")
}

func TestStoreFind(t *testing.T) {
	s := Store{}.Append(imageOutput("a"))

	got, ok := s.Find("a")
	require.True(t, ok)
	assert.Equal(t, "prompt a", got.Prompt)

	_, ok = s.Find("gone")
	assert.False(t, ok)
}

func TestDownloadName(t *testing.T) {
	assert.Equal(t, "archiflow-output-abc.png", imageOutput("abc").DownloadName())

	jpeg := Output{ID: "j", Media: Image{DataURL: media.EncodeDataURL("image/jpeg", []byte{1})}}
	assert.Equal(t, "archiflow-output-j.jpg", jpeg.DownloadName())

	video := Output{ID: "v", Kind: KindVideo, Media: Video{BlobURL: "/api/blobs/v", MIMEType: "video/mp4"}}
	assert.Equal(t, "archiflow-output-v.mp4", video.DownloadName())

	unknown := Output{ID: "u", Kind: KindVideo, Media: Video{BlobURL: "/api/blobs/u"}}
	assert.Equal(t, "archiflow-output-u.mp4", unknown.DownloadName())
}

func TestMarshalJSONSetsExactlyOneURL(t *testing.T) {
	tests := []struct {
		name      string
		out       Output
		wantImage bool
	}{
		{"image", imageOutput("i"), true},
		{"video", Output{ID: "v", Kind: KindVideo, Media: Video{BlobURL: "/api/blobs/v"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.out)
			require.NoError(t, err)

			var doc map[string]any
			require.NoError(t, json.Unmarshal(raw, &doc))

			_, hasImage := doc["imageUrl"]
			_, hasVideo := doc["videoUrl"]
			assert.Equal(t, tt.wantImage, hasImage)
			assert.Equal(t, !tt.wantImage, hasVideo)
			assert.Equal(t, string(tt.out.Kind), doc["type"])
		})
	}
}

func TestViewLinksImages(t *testing.T) {
	img := imageOutput("i")
	assert.Equal(t, "/api/outputs/i/image", img.View("/api/outputs/i/image").ImageURL)
	assert.Equal(t, img.Media.URL(), img.View("").ImageURL)

	video := Output{ID: "v", Kind: KindVideo, Media: Video{BlobURL: "/api/blobs/v"}}
	v := video.View("/ignored")
	assert.Empty(t, v.ImageURL)
	assert.Equal(t, "/api/blobs/v", v.VideoURL)
}

func ids(s Store) []string {
	out := make([]string, 0, len(s))
	for _, o := range s {
		out = append(out, o.ID)
	}
	return out
}
