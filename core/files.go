package core

import (
	"io"
)

// Upload directories
const (
	DirVideos      = "videos"
	DirLessonFiles = "lesson_files"
	DirSubmissions = "submissions"
)

type (
	// Upload is a file received from a client.
	Upload struct {
		Filename string
		Size     int64
		Content  io.Reader
	}

	// FileStorage persists uploaded files under fixed directories.
	FileStorage interface {
		// Save stores the upload under `dir` and returns the generated file name.
		Save(dir string, up Upload) (string, error)
		// Remove deletes a stored file. Failures are logged, never returned.
		Remove(dir, name string)
		// Path returns the absolute path of a stored file.
		Path(dir, name string) (string, error)
	}
)

// ImportResult is the outcome of a spreadsheet import. Valid rows are committed, invalid ones reported.
type ImportResult struct {
	Success       bool     `json:"success"`
	ImportedCount int      `json:"imported_count"`
	Errors        []string `json:"errors"`
}

func NewImportResult() ImportResult {
	return ImportResult{Errors: []string{}}
}
