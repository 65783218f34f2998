package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bpa/internal/core/ports/driven"
)

var testPrompts = map[string]string{
	driven.PromptCompress: "Condense {doc} for {question}",
	driven.PromptAnswer:   "History {history} Context {context} Question {question}",
}

func TestPromptStore_ImplementsInterface(t *testing.T) {
	var _ driven.PromptStore = (*PromptStore)(nil)
}

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir, testPrompts)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("", testPrompts)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".bpa", "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir, testPrompts)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptCompress)
	require.NoError(t, err)

	for _, f := range []string{"compress.txt", "answer.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_Load_ReturnsDefaultContent(t *testing.T) {
	store, err := NewPromptStore(t.TempDir(), testPrompts)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswer)

	require.NoError(t, err)
	assert.Equal(t, testPrompts[driven.PromptAnswer], prompt)
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	custom := "Custom answer: {question}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "answer.txt"), []byte(custom+"\n\n"), 0600))

	store, err := NewPromptStore(dir, testPrompts)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswer)

	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_Load_FallsBackWhenFileRemoved(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir, testPrompts)
	require.NoError(t, err)

	_, _ = store.Load(driven.PromptCompress)
	require.NoError(t, os.Remove(filepath.Join(dir, "compress.txt")))
	store.Reload()

	prompt, err := store.Load(driven.PromptCompress)

	require.NoError(t, err)
	assert.Equal(t, testPrompts[driven.PromptCompress], prompt)
}

func TestPromptStore_Load_EmptyFileUsesDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "compress.txt"), []byte("   \n"), 0600))
	store, err := NewPromptStore(dir, testPrompts)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptCompress)

	require.NoError(t, err)
	assert.Equal(t, testPrompts[driven.PromptCompress], prompt)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir(), testPrompts)
	require.NoError(t, err)

	_, err = store.Load("nonexistent_prompt")

	assert.Error(t, err)
}

func TestPromptStore_Reload_PicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir, testPrompts)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "answer.txt"), []byte("edited {question}"), 0600))

	cached, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Equal(t, "edited {question}", fresh)
}

func TestPromptStore_DoesNotOverwriteExistingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compress.txt")
	require.NoError(t, os.WriteFile(path, []byte("mine"), 0600))

	store, err := NewPromptStore(dir, testPrompts)
	require.NoError(t, err)
	_, err = store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, err := NewPromptStore(t.TempDir(), testPrompts)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Load(driven.PromptCompress); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent load failed: %v", err)
	}
}
