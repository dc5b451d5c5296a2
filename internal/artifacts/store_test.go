// File: internal/artifacts/store_test.go
package artifacts

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenshotID(t *testing.T) {
	assert.Equal(t, "computer_screenshot_call-42.png", ScreenshotID("call-42"))
}

func TestStore_PutAndTakeOnce(t *testing.T) {
	s := NewStore()
	s.Put("app/u1/s1", "shot-1", []byte("png-bytes"))

	data, ok := s.TakeOnce("app/u1/s1", "shot-1")
	require.True(t, ok)
	assert.Equal(t, []byte("png-bytes"), data)

	// Consumed on first read.
	_, ok = s.TakeOnce("app/u1/s1", "shot-1")
	assert.False(t, ok)
}

func TestStore_MissingAndSessionIsolation(t *testing.T) {
	s := NewStore()
	s.Put("app/u1/s1", "shot-1", []byte("a"))

	_, ok := s.TakeOnce("app/u1/s2", "shot-1")
	assert.False(t, ok, "artifacts are scoped to their session")

	_, ok = s.TakeOnce("app/u1/s1", "missing")
	assert.False(t, ok)

	data, ok := s.TakeOnce("app/u1/s1", "shot-1")
	require.True(t, ok)
	assert.Equal(t, []byte("a"), data)
}

func TestStore_PutReplaces(t *testing.T) {
	s := NewStore()
	s.Put("k", "id", []byte("old"))
	s.Put("k", "id", []byte("new"))

	data, ok := s.TakeOnce("k", "id")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), data)
}

func TestStore_DropSession(t *testing.T) {
	s := NewStore()
	s.Put("k", "a", []byte("1"))
	s.Put("k", "b", []byte("2"))
	require.Equal(t, 2, s.Len("k"))

	s.DropSession("k")
	assert.Equal(t, 0, s.Len("k"))
	_, ok := s.TakeOnce("k", "a")
	assert.False(t, ok)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("shot-%d", i)
			s.Put("k", id, []byte{byte(i)})
			_, ok := s.TakeOnce("k", id)
			assert.True(t, ok)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, s.Len("k"))
}
