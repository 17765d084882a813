package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func frameAt(min int) Frame {
	return Frame{ID: uuid.New(), At: base.Add(time.Duration(min) * time.Minute)}
}

func TestLatestEmpty(t *testing.T) {
	s := NewMemoryStore(0, 0)
	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.LatestImage()
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, s.Recent(5))
}

func TestRetentionByCount(t *testing.T) {
	s := NewMemoryStore(3, 0)
	for i := 0; i < 5; i++ {
		s.Save(frameAt(i * 5))
	}

	recent := s.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, base.Add(20*time.Minute), recent[0].At)
	assert.Equal(t, base.Add(10*time.Minute), recent[2].At)

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, recent[0].ID, latest.ID)
}

func TestRetentionByAge(t *testing.T) {
	s := NewMemoryStore(0, 30*time.Minute)
	s.now = func() time.Time { return base.Add(60 * time.Minute) }

	s.Save(frameAt(0))
	s.Save(frameAt(20))
	s.Save(frameAt(45))

	all, err := s.Range(base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, base.Add(45*time.Minute), all[0].At)

	s.now = func() time.Time { return base.Add(5 * time.Hour) }
	s.Save(frameAt(50))
	_, err = s.Latest()
	assert.ErrorIs(t, err, ErrNotFound, "every frame expired")
}

func TestLatestImageSkipsFailedRenders(t *testing.T) {
	s := NewMemoryStore(0, 0)
	withImage := frameAt(0)
	withImage.PNG = []byte{1, 2, 3}
	s.Save(withImage)
	failed := frameAt(5)
	failed.RenderErr = "chromium crashed"
	s.Save(failed)

	got, err := s.LatestImage()
	require.NoError(t, err)
	assert.Equal(t, withImage.ID, got.ID)
}

func TestRangeInclusive(t *testing.T) {
	s := NewMemoryStore(0, 0)
	for i := 0; i < 4; i++ {
		s.Save(frameAt(i * 10))
	}
	got, err := s.Range(base.Add(10*time.Minute), base.Add(20*time.Minute))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = s.Range(base.Add(time.Hour), base.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}
