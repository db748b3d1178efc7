package ports

import (
	"context"
	"io"
)

// ImageUpload is a single uploaded file as received from the transport layer.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// ImageStore ingests uploaded images into the shared media directory.
type ImageStore interface {
	// Ingest writes exactly expected uploads and returns their assigned names
	// in input order. Either every file is committed or none is.
	Ingest(ctx context.Context, uploads []ImageUpload, expected int) ([]string, error)
	// Discard removes previously ingested files. Missing files are ignored.
	Discard(ctx context.Context, names []string) error
}

// MediaPurger asynchronously removes media files that are no longer referenced.
type MediaPurger interface {
	EnqueueBatch(names []string)
}
