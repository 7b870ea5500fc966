package reporting

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/keggminer/internal/infrastructure/storage/minio"
	"github.com/turtacn/keggminer/internal/testutil"
	"github.com/turtacn/keggminer/pkg/errors"
)

// memStore keeps uploads in memory and fails the first failures[key] calls
// for a key. A key in lostAcks is stored on its first call but still reports
// an error.
type memStore struct {
	mu       sync.Mutex
	prefix   string
	objects  map[string][]byte
	meta     map[string]map[string]string
	failures map[string]int
	lostAcks map[string]bool
	calls    map[string]int
	stats    map[string]int
}

func newMemStore(prefix string) *memStore {
	return &memStore{
		prefix:   prefix,
		objects:  map[string][]byte{},
		meta:     map[string]map[string]string{},
		failures: map[string]int{},
		lostAcks: map[string]bool{},
		calls:    map[string]int{},
		stats:    map[string]int{},
	}
}

func (s *memStore) ObjectKey(parts ...string) string {
	return path.Join(append([]string{s.prefix}, parts...)...)
}

func (s *memStore) UploadFile(_ context.Context, key, localPath string, metadata map[string]string) (*minio.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[key]++
	if s.failures[key] > 0 {
		s.failures[key]--
		return nil, errors.New(errors.ErrCodeStorageError, "upload failed")
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}
	s.objects[key] = data
	s.meta[key] = metadata
	if s.lostAcks[key] {
		delete(s.lostAcks, key)
		return nil, errors.New(errors.ErrCodeStorageError, "connection reset")
	}
	return &minio.UploadResult{ObjectKey: key, Size: int64(len(data))}, nil
}

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[key]++
	_, ok := s.objects[key]
	return ok, nil
}

func writeArtifact(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestPublisher_Publish(t *testing.T) {
	dir := t.TempDir()
	results := writeArtifact(t, dir, "results.csv", "KEGG_ID\n")
	store := newMemStore("runs")

	keys, err := NewPublisher(store).Publish(context.Background(), "r1", "similarity",
		[]Artifact{{Kind: KindResults, Path: results}})
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/r1/results.csv"}, keys)
	assert.Equal(t, "KEGG_ID\n", string(store.objects["runs/r1/results.csv"]))
	assert.Equal(t, map[string]string{"run-id": "r1", "pipeline": "similarity", "kind": KindResults},
		store.meta["runs/r1/results.csv"])
}

func TestPublisher_RetriesTransientFailures(t *testing.T) {
	dir := t.TempDir()
	results := writeArtifact(t, dir, "results.csv", "x")
	store := newMemStore("runs")
	store.failures["runs/r1/results.csv"] = 2

	keys, err := NewPublisher(store, WithPublishRetry(3, 0)).Publish(context.Background(), "r1", "similarity",
		[]Artifact{{Kind: KindResults, Path: results}})
	require.NoError(t, err)
	assert.Len(t, keys, 1)
	assert.Equal(t, 3, store.calls["runs/r1/results.csv"])
}

func TestPublisher_ContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	results := writeArtifact(t, dir, "results.csv", "x")
	failed := writeArtifact(t, dir, "failed.csv", "y")
	store := newMemStore("runs")
	store.failures["runs/r1/results.csv"] = 10
	log := testutil.NewMockLogger()

	keys, err := NewPublisher(store, WithPublishRetry(2, 0), WithPublishLogger(log)).Publish(context.Background(), "r1", "similarity",
		[]Artifact{{Kind: KindResults, Path: results}, {Kind: KindFailed, Path: failed}})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePublishFailed))
	assert.Equal(t, []string{"runs/r1/failed.csv"}, keys)
	assert.Equal(t, 2, store.calls["runs/r1/results.csv"])
	assert.True(t, log.HasMessage("error", "artifact publication failed"))
}

func TestPublisher_RetrySkipsObjectAlreadyStored(t *testing.T) {
	dir := t.TempDir()
	results := writeArtifact(t, dir, "results.csv", "KEGG_ID\n")
	store := newMemStore("runs")
	store.lostAcks["runs/r1/results.csv"] = true

	keys, err := NewPublisher(store, WithPublishRetry(3, 0)).Publish(context.Background(), "r1", "similarity",
		[]Artifact{{Kind: KindResults, Path: results}})
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/r1/results.csv"}, keys)
	assert.Equal(t, 1, store.calls["runs/r1/results.csv"])
	assert.Equal(t, 1, store.stats["runs/r1/results.csv"])
	assert.Equal(t, "KEGG_ID\n", string(store.objects["runs/r1/results.csv"]))
}

func TestPublisher_FirstAttemptDoesNotStat(t *testing.T) {
	dir := t.TempDir()
	results := writeArtifact(t, dir, "results.csv", "x")
	store := newMemStore("runs")

	_, err := NewPublisher(store).Publish(context.Background(), "r1", "similarity",
		[]Artifact{{Kind: KindResults, Path: results}})
	require.NoError(t, err)
	assert.Zero(t, store.stats["runs/r1/results.csv"])
}
