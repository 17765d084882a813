package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/paperdash/internal/source"
)

var (
	// ErrNotFound is returned when no frame matches the query.
	ErrNotFound = errors.New("no frame recorded")
)

// Frame is the record of one completed cycle.
type Frame struct {
	ID        uuid.UUID                `json:"id"`
	At        time.Time                `json:"at"`
	Elapsed   time.Duration            `json:"elapsed"`
	Renderer  string                   `json:"renderer"`
	Mode      string                   `json:"mode"`
	Width     int                      `json:"width"`
	Height    int                      `json:"height"`
	Sources   map[string]source.Status `json:"sources"`
	RenderErr string                   `json:"renderError,omitempty"`
	SinkErr   string                   `json:"sinkError,omitempty"`
	// PNG is the quantised frame; empty when rendering failed.
	PNG []byte `json:"-"`
}

// MemoryStore is a concurrency-safe in-memory history of frames, oldest first.
type MemoryStore struct {
	mu     sync.RWMutex
	frames []Frame

	// retention configuration
	maxHistory int           // max number of frames kept
	maxAge     time.Duration // optional max age for frames
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save appends a frame and enforces retention.
func (s *MemoryStore) Save(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames = append(s.frames, f)

	if s.maxHistory > 0 && len(s.frames) > s.maxHistory {
		over := len(s.frames) - s.maxHistory
		s.frames = append([]Frame(nil), s.frames[over:]...)
	}

	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.frames); i++ {
			if !s.frames[i].At.Before(cutoff) {
				break
			}
		}
		s.frames = s.frames[i:]
	}
}

// Latest returns the most recent frame.
func (s *MemoryStore) Latest() (Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.frames) == 0 {
		return Frame{}, ErrNotFound
	}
	return s.frames[len(s.frames)-1], nil
}

// LatestImage returns the newest frame that has a rendered image.
func (s *MemoryStore) LatestImage() (Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.frames) - 1; i >= 0; i-- {
		if len(s.frames[i].PNG) > 0 {
			return s.frames[i], nil
		}
	}
	return Frame{}, ErrNotFound
}

// Recent returns up to n frames, newest first.
func (s *MemoryStore) Recent(n int) []Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.frames) {
		n = len(s.frames)
	}
	out := make([]Frame, 0, n)
	for i := len(s.frames) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.frames[i])
	}
	return out
}

// Range returns all frames between from and to (inclusive), oldest first.
func (s *MemoryStore) Range(from, to time.Time) ([]Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Frame
	for _, f := range s.frames {
		if !f.At.Before(from) && !f.At.After(to) {
			result = append(result, f)
		}
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
