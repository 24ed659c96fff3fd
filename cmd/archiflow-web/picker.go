package main

import (
	"errors"

	"github.com/ncruces/zenity"

	"github.com/fpang/archiflow/internal/webapi"
)

// pickFiles opens the native multi-file dialog for project inputs.
func pickFiles() ([]string, error) {
	paths, err := zenity.SelectFileMultiple(
		zenity.Title("Select project files"),
		zenity.FileFilters{
			{
				Name:     "Images and documents",
				Patterns: []string{"*.jpg", "*.jpeg", "*.png", "*.webp", "*.heic", "*.pdf", "*.txt", "*.md"},
			},
			{
				Name:     "All files",
				Patterns: []string{"*"},
			},
		},
	)
	if errors.Is(err, zenity.ErrCanceled) {
		return nil, webapi.ErrPickCanceled
	}
	return paths, err
}
