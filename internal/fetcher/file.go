package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/utils"
)

// Ensure FileSource implements domain.Source
var _ domain.Source = (*FileSource)(nil)

// FileSource reads manifests from the local filesystem. Source ids are
// absolute paths; file:// URLs are accepted too.
type FileSource struct {
	maxSize int64
}

// NewFileSource creates a new local file source
func NewFileSource() *FileSource {
	return &FileSource{maxSize: DefaultMaxBodySize}
}

// Name returns the source name
func (s *FileSource) Name() string {
	return "file"
}

// CanHandle returns true for absolute paths and file URLs
func (s *FileSource) CanHandle(sourceID string) bool {
	return utils.IsFileURL(sourceID) || filepath.IsAbs(sourceID)
}

// Fetch reads the file. opts is ignored; local reads are never cached here.
func (s *FileSource) Fetch(ctx context.Context, sourceID string, _ domain.FetchOptions) (*domain.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := sourceID
	if utils.IsFileURL(sourceID) {
		p, err := utils.FileURLToPath(sourceID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSource, err)
		}
		path = p
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewNotFoundError(sourceID, err)
		}
		return nil, fmt.Errorf("failed to stat manifest %s: %w", sourceID, err)
	}
	if info.IsDir() {
		return nil, domain.NewNotFoundError(sourceID, errors.New("is a directory"))
	}
	if info.Size() > s.maxSize {
		return nil, fmt.Errorf("manifest %s exceeds %d bytes", sourceID, s.maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	data, err = ConvertToUTF8(data, "")
	if err != nil {
		return nil, &domain.ParseError{Source: sourceID, Msg: err.Error(), Err: err}
	}

	return &domain.Content{SourceID: sourceID, Data: data}, nil
}
