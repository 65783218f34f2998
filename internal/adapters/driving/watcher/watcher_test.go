package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

type recordingIngest struct {
	mu    sync.Mutex
	paths []string
	opts  []domain.IngestOptions
	err   error
}

func (r *recordingIngest) IngestText(context.Context, string, domain.IngestOptions) (*domain.DocumentRecord, error) {
	return nil, errors.New("not used")
}

func (r *recordingIngest) IngestFile(_ context.Context, path string, opts domain.IngestOptions) (*domain.DocumentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	r.opts = append(r.opts, opts)
	if r.err != nil {
		return nil, r.err
	}
	return &domain.DocumentRecord{ID: "doc-" + filepath.Base(path), ChunkCount: 1}, nil
}

func (r *recordingIngest) IngestURL(context.Context, string, domain.IngestOptions) (*domain.DocumentRecord, error) {
	return nil, errors.New("not used")
}

func (r *recordingIngest) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, Config{Dir: t.TempDir()})
	assert.Error(t, err)

	_, err = New(&recordingIngest{}, Config{Dir: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	file := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = New(&recordingIngest{}, Config{Dir: file})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAccepts(t *testing.T) {
	w, err := New(&recordingIngest{}, Config{Dir: t.TempDir()})
	require.NoError(t, err)

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{name: "created pdf", event: fsnotify.Event{Name: "/d/guide.pdf", Op: fsnotify.Create}, want: true},
		{name: "written markdown upper case", event: fsnotify.Event{Name: "/d/NOTES.MD", Op: fsnotify.Write}, want: true},
		{name: "removed", event: fsnotify.Event{Name: "/d/guide.pdf", Op: fsnotify.Remove}, want: false},
		{name: "chmod", event: fsnotify.Event{Name: "/d/guide.pdf", Op: fsnotify.Chmod}, want: false},
		{name: "hidden", event: fsnotify.Event{Name: "/d/.draft.txt", Op: fsnotify.Create}, want: false},
		{name: "office lock file", event: fsnotify.Event{Name: "/d/~$report.docx", Op: fsnotify.Create}, want: false},
		{name: "unsupported extension", event: fsnotify.Event{Name: "/d/photo.jpg", Op: fsnotify.Create}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.accepts(tt.event))
		})
	}
}

func TestRun_IngestsNewFilesOnce(t *testing.T) {
	dir := t.TempDir()
	ingest := &recordingIngest{}
	w, err := New(ingest, Config{
		Dir:      dir,
		Debounce: 50 * time.Millisecond,
		Options:  domain.IngestOptions{Title: "ignored", AccessRole: domain.RoleStaff, Department: "HR"},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan Result, 4)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, results) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "policy.txt")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("first and second"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("png"), 0o600))

	select {
	case res := <-results:
		require.NoError(t, res.Err)
		assert.Equal(t, path, res.Path)
		assert.Equal(t, "doc-policy.txt", res.Record.ID)
	case <-time.After(3 * time.Second):
		t.Fatal("no ingestion result")
	}

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{path}, ingest.calls())
	assert.Empty(t, ingest.opts[0].Title)
	assert.Equal(t, domain.RoleStaff, ingest.opts[0].AccessRole)
}

func TestRun_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	ingest := &recordingIngest{err: domain.ErrEmptyContent}
	w, err := New(ingest, Config{Dir: dir, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan Result, 1)
	go func() { _ = w.Run(ctx, results) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.md"), nil, 0o600))

	select {
	case res := <-results:
		assert.ErrorIs(t, res.Err, domain.ErrEmptyContent)
		assert.Nil(t, res.Record)
	case <-time.After(3 * time.Second):
		t.Fatal("no ingestion result")
	}
}
