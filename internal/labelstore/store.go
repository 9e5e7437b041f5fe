// Package labelstore keeps the images of recently printed labels on disk for a
// limited time so the job history can show previews.
package labelstore

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nantokaworks/brother-label/internal/raster"
	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"go.uber.org/zap"
)

// DefaultRetention is how long a stored label is kept.
const DefaultRetention = 10 * time.Minute

type Label struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	MediaType string    `json:"media_type"`
	Path      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	dir       string
	retention time.Duration

	mu     sync.RWMutex
	labels map[string]*Label
	timers map[string]*time.Timer
}

// New creates a store writing into dir. A non-positive retention uses DefaultRetention.
func New(dir string, retention time.Duration) (*Store, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create label directory: %w", err)
	}
	return &Store{
		dir:       dir,
		retention: retention,
		labels:    make(map[string]*Label),
		timers:    make(map[string]*time.Timer),
	}, nil
}

// GenerateID creates a new nanoid
func GenerateID() (string, error) {
	return gonanoid.New()
}

// Save writes img as PNG and schedules its deletion. An empty id gets a fresh one.
func (s *Store) Save(id, model, mediaType string, img image.Image) (*Label, error) {
	if id == "" {
		var err error
		if id, err = GenerateID(); err != nil {
			return nil, fmt.Errorf("failed to generate ID: %w", err)
		}
	}

	data, err := raster.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode label: %w", err)
	}
	path := filepath.Join(s.dir, id+".png")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write label: %w", err)
	}

	label := &Label{
		ID:        id,
		Model:     model,
		MediaType: mediaType,
		Path:      path,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	if old, ok := s.timers[id]; ok {
		old.Stop()
	}
	s.labels[id] = label
	s.timers[id] = time.AfterFunc(s.retention, func() { s.expire(label) })
	s.mu.Unlock()

	logger.Debug("Label saved",
		zap.String("id", id),
		zap.String("path", path))
	return label, nil
}

// Get retrieves a label by ID
func (s *Store) Get(id string) (*Label, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	label, ok := s.labels[id]
	return label, ok
}

// Recent returns stored labels, newest first.
func (s *Store) Recent(limit int) []*Label {
	s.mu.RLock()
	labels := make([]*Label, 0, len(s.labels))
	for _, l := range s.labels {
		labels = append(labels, l)
	}
	s.mu.RUnlock()

	sort.Slice(labels, func(i, j int) bool {
		return labels[i].CreatedAt.After(labels[j].CreatedAt)
	})
	if limit > 0 && limit < len(labels) {
		labels = labels[:limit]
	}
	return labels
}

// Delete removes a label and its file.
func (s *Store) Delete(id string) {
	s.remove(id, nil)
}

// expire is the retention timer callback. A label saved again under the same
// id since the timer was armed is left alone.
func (s *Store) expire(label *Label) {
	s.remove(label.ID, label)
}

func (s *Store) remove(id string, only *Label) {
	s.mu.Lock()
	label, ok := s.labels[id]
	if ok && only != nil && label != only {
		ok = false
	}
	if ok {
		delete(s.labels, id)
		if t := s.timers[id]; t != nil {
			t.Stop()
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := os.Remove(label.Path); err != nil && !os.IsNotExist(err) {
		logger.Error("Failed to delete label image", zap.String("id", id), zap.Error(err))
	}
	logger.Debug("Label deleted", zap.String("id", id))
}

// Close cancels pending deletions and removes every stored file.
func (s *Store) Close() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.labels))
	for id := range s.labels {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		s.Delete(id)
	}
}
