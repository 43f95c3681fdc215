// Package positions persists taught collector head positions keyed by label.
//
// The store is a small JSON file mapping labels to XY coordinates in
// millimeters. It is safe for concurrent use; Save writes atomically via a
// temp file so a crash mid-write cannot corrupt taught positions.
package positions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// Well-known labels used by the collection workflow.
const (
	Metallic       = "metallic"
	Semiconducting = "semiconducting"
	Waste          = "waste"
)

// Point is one taught head position in millimeters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Store holds taught positions and knows how to persist them.
type Store struct {
	path string
	m    *xsync.MapOf[string, Point]
}

// NewStore creates an empty store that persists to path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		m:    xsync.NewMapOf[string, Point](),
	}
}

// Load creates a store backed by path and reads any existing positions.
// A missing file is not an error; the store starts empty.
func Load(path string) (*Store, error) {
	s := NewStore(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}

		return nil, fmt.Errorf("positions: read %s: %w", path, err)
	}

	var points map[string]Point
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("positions: parse %s: %w", path, err)
	}

	for label, p := range points {
		s.m.Store(label, p)
	}

	return s, nil
}

// Save writes all positions to the store's file.
func (s *Store) Save() error {
	points := make(map[string]Point, s.m.Size())

	s.m.Range(func(label string, p Point) bool {
		points[label] = p

		return true
	})

	data, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return fmt.Errorf("positions: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("positions: create %s: %w", dir, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("positions: write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("positions: rename %s: %w", tmp, err)
	}

	return nil
}

// Set stores or replaces the position for label.
func (s *Store) Set(label string, p Point) {
	s.m.Store(label, p)
}

// Get returns the position taught for label.
func (s *Store) Get(label string) (Point, bool) {
	return s.m.Load(label)
}

// Delete removes the position taught for label.
func (s *Store) Delete(label string) {
	s.m.Delete(label)
}

// Labels returns all taught labels in sorted order.
func (s *Store) Labels() []string {
	labels := make([]string, 0, s.m.Size())

	s.m.Range(func(label string, _ Point) bool {
		labels = append(labels, label)

		return true
	})

	sort.Strings(labels)

	return labels
}

// Len returns the number of taught positions.
func (s *Store) Len() int {
	return s.m.Size()
}

// Path returns the file the store persists to.
func (s *Store) Path() string {
	return s.path
}
