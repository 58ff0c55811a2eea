// Package storage persists job working trees and generated assets onto the
// local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	jobsPrefix  = "jobs"
	OutputDir   = "output"
	ImagesDir   = "images"
	MetadataDir = "metadata"
	WorkDir     = "work"
	ArchiveName = "collection.zip"

	writeRetries = 3
)

// FileStore owns a storage root holding one working tree per job:
//
//	<base>/jobs/<id>/output/images/N.png
//	<base>/jobs/<id>/output/metadata/N.json
//	<base>/jobs/<id>/work/...          (pre-resized variant copies, scratch)
//	<base>/jobs/<id>/collection.zip
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// JobRoot returns the absolute working root for a job.
func (s *FileStore) JobRoot(jobID string) string {
	return filepath.Join(s.basePath, jobsPrefix, jobID)
}

// OutputRoot returns the job's output directory holding images/ and metadata/.
func (s *FileStore) OutputRoot(jobID string) string {
	return filepath.Join(s.JobRoot(jobID), OutputDir)
}

// WorkRoot returns the job's scratch directory.
func (s *FileStore) WorkRoot(jobID string) string {
	return filepath.Join(s.JobRoot(jobID), WorkDir)
}

// ArchivePath returns where the packaged archive for a job lives.
func (s *FileStore) ArchivePath(jobID string) string {
	return filepath.Join(s.JobRoot(jobID), ArchiveName)
}

// CreateJobTree lays out the working directories for a fresh run.
func (s *FileStore) CreateJobTree(jobID string) error {
	for _, dir := range []string{
		filepath.Join(s.OutputRoot(jobID), ImagesDir),
		filepath.Join(s.OutputRoot(jobID), MetadataDir),
		s.WorkRoot(jobID),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("storage: ensure directory: %w", err)
		}
	}
	return nil
}

// RemoveJobOutput deletes partial outputs after a failed or cancelled run.
func (s *FileStore) RemoveJobOutput(jobID string) error {
	return os.RemoveAll(s.OutputRoot(jobID))
}

// RemoveJob deletes the whole working tree for a job.
func (s *FileStore) RemoveJob(jobID string) error {
	return os.RemoveAll(s.JobRoot(jobID))
}

// Write persists the provided bytes at the given relative key and returns the
// canonicalized storage key. Keys are cleaned to prevent directory traversal.
// Transient write failures are retried with exponential backoff before the
// error escalates.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newWriteBackoff(), writeRetries), ctx)
	write := func() error {
		return os.WriteFile(fullPath, data, 0o644)
	}
	if err := backoff.Retry(write, policy); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return cleanKey, nil
}

func newWriteBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	return b
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}

// ItemKeys returns the storage keys for one item's image and metadata files.
func ItemKeys(jobID string, index int) (imageKey, metadataKey string) {
	base := jobsPrefix + "/" + jobID + "/" + OutputDir
	return fmt.Sprintf("%s/%s/%d.png", base, ImagesDir, index),
		fmt.Sprintf("%s/%s/%d.json", base, MetadataDir, index)
}
