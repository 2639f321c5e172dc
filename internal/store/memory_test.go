package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/i474232898/zukan/internal/zukan"
)

func TestMemoryStore_AppendKeepsInsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	assert.Empty(t, s.List())

	for i := 0; i < 5; i++ {
		s.Append(zukan.Entry{ID: fmt.Sprintf("id-%d", i), SubjectName: fmt.Sprintf("animal %d", i)})
	}

	got := s.List()
	require.Len(t, got, 5)
	assert.Equal(t, 5, s.Len())
	for i, e := range got {
		assert.Equal(t, fmt.Sprintf("id-%d", i), e.ID)
	}
}

func TestMemoryStore_EntriesAreImmutable(t *testing.T) {
	s := NewMemoryStore()
	weather := "晴天"
	original := zukan.Entry{ID: "a", SubjectName: "ねこ", WeatherDescription: &weather}
	s.Append(original)

	// Mutating the caller's copy or a listed copy must not reach the store.
	weather = "雨"
	listed := s.List()
	*listed[0].WeatherDescription = "雪"
	listed[0].SubjectName = "いぬ"

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "ねこ", got.SubjectName)
	assert.Equal(t, "晴天", *got.WeatherDescription)
}

func TestMemoryStore_Get(t *testing.T) {
	s := NewMemoryStore()
	s.Append(zukan.Entry{ID: "a", SubjectName: "ねこ"})

	_, err := s.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ConcurrentAppend(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append(zukan.Entry{ID: fmt.Sprintf("id-%d", i)})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
}
