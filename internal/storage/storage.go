package storage

import (
	"context"
	"io"
	"time"
)

// Uploader persists artefacts — graph JSON documents and node screenshots —
// to a storage backend and returns a URL they can be retrieved from.
// LocalUploader is the only implementation this repo ships, but the
// interface stays backend-agnostic so a shared-storage implementation can be
// dropped in later without touching graphstore or the server.
type Uploader interface {
	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)
}

type UploadRequest struct {
	// ObjectName is the artefact's path relative to the uploader's base
	// location (a directory, for LocalUploader).
	ObjectName string

	// Content is the data to be uploaded.
	Content io.Reader

	// ContentType is the MIME type of the content, e.g. "application/json".
	ContentType string
}

// UploadResult is the outcome of a successful upload.
type UploadResult struct {
	// ObjectName is the artefact's path relative to the uploader's base
	// location.
	ObjectName string

	// SignedURL provides access to the object. LocalUploader returns a
	// file:// URL; a remote-storage implementation would return a
	// time-limited signed URL here instead.
	SignedURL string

	// ExpiresAt is when SignedURL becomes invalid. LocalUploader's file://
	// URLs never expire, so this is left at its zero value.
	ExpiresAt time.Time
}
