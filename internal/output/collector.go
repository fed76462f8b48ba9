package output

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"github.com/quantmind-br/whyml-go/internal/domain"
	"github.com/quantmind-br/whyml-go/internal/utils"
)

// IndexEntry describes one written document
type IndexEntry struct {
	Source   string   `json:"source"`
	Path     string   `json:"path"`
	Valid    bool     `json:"valid"`
	Errors   int      `json:"errors"`
	Warnings int      `json:"warnings"`
	Lineage  []string `json:"lineage,omitempty"`
}

// Index is the summary file written next to resolved documents
type Index struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Total       int          `json:"total"`
	Invalid     int          `json:"invalid"`
	Documents   []IndexEntry `json:"documents"`
}

// Collector accumulates index entries for written documents
type Collector struct {
	mu       sync.RWMutex
	entries  []IndexEntry
	baseDir  string
	filename string
	enabled  bool
}

type CollectorOptions struct {
	BaseDir  string
	Filename string
	Enabled  bool
}

func NewCollector(opts CollectorOptions) *Collector {
	filename := opts.Filename
	if filename == "" {
		filename = "index.json"
	}
	return &Collector{
		entries:  make([]IndexEntry, 0),
		baseDir:  opts.BaseDir,
		filename: filename,
		enabled:  opts.Enabled,
	}
}

// Add records doc written at filePath with its validation outcome
func (c *Collector) Add(source, filePath string, doc *domain.Document, v domain.ValidationResult) {
	if !c.enabled || doc == nil {
		return
	}

	relPath, err := filepath.Rel(c.baseDir, filePath)
	if err != nil {
		relPath = filePath
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, IndexEntry{
		Source:   source,
		Path:     filepath.ToSlash(relPath),
		Valid:    v.Valid(),
		Errors:   len(v.Errors()),
		Warnings: len(v.Warnings()),
		Lineage:  append([]string(nil), doc.Lineage...),
	})
}

// Flush writes the index file. Nothing is written when disabled or empty.
func (c *Collector) Flush() error {
	if !c.enabled {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		return nil
	}

	data, err := json.MarshalIndent(c.buildIndex(), "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(filepath.Join(c.baseDir, c.filename), data, 0644)
}

func (c *Collector) buildIndex() *Index {
	docs := make([]IndexEntry, len(c.entries))
	copy(docs, c.entries)

	invalid := 0
	for _, d := range docs {
		if !d.Valid {
			invalid++
		}
	}

	return &Index{
		GeneratedAt: time.Now(),
		Total:       len(docs),
		Invalid:     invalid,
		Documents:   docs,
	}
}

func (c *Collector) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Collector) GetIndex() *Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buildIndex()
}

func (c *Collector) IsEnabled() bool {
	return c.enabled
}
