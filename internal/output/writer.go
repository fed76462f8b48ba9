package output

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/utils"
)

// Writer writes resolved documents into an output directory, one file per
// source named after the source's base name
type Writer struct {
	baseDir string
	format  domain.Format
	force   bool
	dryRun  bool

	mu    sync.Mutex
	paths map[string]string // source -> path
	taken map[string]bool
}

// WriterOptions contains options for the writer
type WriterOptions struct {
	BaseDir string
	Format  domain.Format
	// Force overwrites existing files; otherwise they are left untouched
	Force  bool
	DryRun bool
}

// NewWriter creates a new output writer
func NewWriter(opts WriterOptions) *Writer {
	if opts.BaseDir == "" {
		opts.BaseDir = "./resolved"
	}
	if opts.Format == "" {
		opts.Format = domain.FormatYAML
	}

	return &Writer{
		baseDir: opts.BaseDir,
		format:  opts.Format,
		force:   opts.Force,
		dryRun:  opts.DryRun,
		paths:   make(map[string]string),
		taken:   make(map[string]bool),
	}
}

// Write saves doc under the path assigned to source and returns that path.
// written is false when the file already existed and Force is off, or in
// dry-run mode.
func (w *Writer) Write(ctx context.Context, source string, doc *domain.Document) (path string, written bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	path = w.PathFor(source)

	if !w.force {
		if _, err := os.Stat(path); err == nil {
			return path, false, nil
		}
	}

	if w.dryRun {
		return path, false, nil
	}

	data, err := doc.Encode(w.format)
	if err != nil {
		return path, false, fmt.Errorf("failed to encode %s: %w", source, err)
	}
	if err := utils.WriteFileAtomic(path, data, 0644); err != nil {
		return path, false, err
	}
	return path, true, nil
}

// PathFor returns the output path for source. Sources sharing a base name
// get numeric suffixes in the order they are first seen.
func (w *Writer) PathFor(source string) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.paths[source]; ok {
		return p
	}

	stem := sourceStem(source)
	name := stem
	for i := 2; w.taken[name]; i++ {
		name = stem + "-" + strconv.Itoa(i)
	}
	w.taken[name] = true

	p := filepath.Join(w.baseDir, name+"."+extension(w.format))
	w.paths[source] = p
	return p
}

// EnsureBaseDir creates the base directory if it doesn't exist
func (w *Writer) EnsureBaseDir() error {
	return os.MkdirAll(w.baseDir, 0755)
}

// BaseDir returns the output directory
func (w *Writer) BaseDir() string {
	return w.baseDir
}

// Stats returns the number and total size of documents in the output directory
func (w *Writer) Stats() (int, int64, error) {
	var count int
	var size int64
	ext := "." + extension(w.format)

	err := filepath.Walk(w.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ext {
			count++
			size += info.Size()
		}
		return nil
	})

	return count, size, err
}

func extension(f domain.Format) string {
	if f == domain.FormatJSON {
		return "json"
	}
	return "yaml"
}

// sourceStem derives a file name from a path or URL without its manifest
// extension
func sourceStem(source string) string {
	base := ""
	if u, err := url.Parse(source); err == nil && (u.Scheme == "http" || u.Scheme == "https" || u.Scheme == "file") {
		base = path.Base(u.Path)
	} else {
		base = filepath.Base(source)
	}

	for _, ext := range []string{".yaml", ".yml", ".json"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}

	switch base {
	case "", ".", "/", "..":
		return "index"
	}
	return base
}
