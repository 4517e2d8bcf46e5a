package cache

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_BasicOperations(t *testing.T) {
	cache := New[string, int]()

	cache.LoadOrStore("key1", 42)
	value, exists := cache.Get("key1")
	if !exists {
		t.Error("expected key1 to exist")
	}
	if value != 42 {
		t.Errorf("expected value 42, got %d", value)
	}

	_, exists = cache.Get("nonexistent")
	if exists {
		t.Error("expected nonexistent key to not exist")
	}
	assert.Equal(t, 1, cache.Size())
}

func TestCache_ForEach(t *testing.T) {
	cache := New[string, int]()
	cache.LoadOrStore("key1", 1)
	cache.LoadOrStore("key2", 2)
	cache.LoadOrStore("key3", 3)

	sum := 0
	cache.ForEach(func(key string, value int) {
		sum += value
	})
	assert.Equal(t, 6, sum)
}

func TestCache_Stats(t *testing.T) {
	cache := New[string, int]()
	cache.LoadOrStore("a", 1)

	cache.Get("a")
	cache.Get("a")
	cache.Get("missing")

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCache_LoadOrStoreKeepsFirstValue(t *testing.T) {
	cache := New[string, string]()

	assert.Equal(t, "first", cache.LoadOrStore("k", "first"))
	assert.Equal(t, "first", cache.LoadOrStore("k", "second"))
}

func TestCache_GetOrCompute(t *testing.T) {
	cache := New[string, int]()
	calls := 0
	compute := func() (int, error) {
		calls++
		return 7, nil
	}

	v, err := cache.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = cache.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, calls)
}

func TestCache_GetOrComputeDoesNotCacheErrors(t *testing.T) {
	cache := New[string, int]()
	boom := errors.New("boom")

	_, err := cache.GetOrCompute("k", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Size())
}

func TestCache_ConcurrentFirstAccessConverges(t *testing.T) {
	cache := New[int, *int]()
	var wg sync.WaitGroup
	results := make([]*int, 16)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _ := cache.GetOrCompute(1, func() (*int, error) {
				n := i
				return &n, nil
			})
			results[i] = v
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestCache_FileValidation(t *testing.T) {
	cache := New[string, string]()

	tmpFile := filepath.Join(t.TempDir(), "source.php")
	content := "initial content"
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))
	require.NoError(t, cache.SetWithFileInfo("test", content, tmpFile))

	value, exists := cache.GetWithFileValidation("test", tmpFile)
	assert.True(t, exists)
	assert.Equal(t, content, value)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(tmpFile, []byte("modified content, longer"), 0644))

	_, exists = cache.GetWithFileValidation("test", tmpFile)
	assert.False(t, exists, "expected cached value to be invalidated after file change")
	assert.Equal(t, 0, cache.Size())
}

func TestCache_FileValidationNonExistentFile(t *testing.T) {
	cache := New[string, string]()

	_, exists := cache.GetWithFileValidation("test", "/nonexistent/file.txt")
	assert.False(t, exists)

	err := cache.SetWithFileInfo("test", "content", "/nonexistent/file.txt")
	assert.Error(t, err)
}
