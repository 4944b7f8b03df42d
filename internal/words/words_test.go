// internal/words/words_test.go
package words

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedLibraryParses(t *testing.T) {
	lib := Embedded()
	assert.NotEmpty(t, lib.Prompts)
	assert.NotEmpty(t, lib.Words)
}

func TestPromptComesFromLibrary(t *testing.T) {
	lib := &Library{Prompts: []string{"one", "two"}, Words: []string{"w"}}
	for i := 0; i < 20; i++ {
		assert.Contains(t, lib.Prompts, lib.Prompt())
	}
}

func TestDrawSizeAndMembership(t *testing.T) {
	lib := Embedded()
	pool := lib.Draw(15)
	require.Len(t, pool, 15)
	for _, w := range pool {
		assert.Contains(t, lib.Words, w)
	}
}

// TestDrawAllowsDuplicates uses a single-word library so every draw must
// repeat it.
func TestDrawAllowsDuplicates(t *testing.T) {
	lib := &Library{Prompts: []string{"p"}, Words: []string{"only"}}
	pool := lib.Draw(5)
	for _, w := range pool {
		assert.Equal(t, "only", w)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"prompts":["p1"],"words":["w1","w2"]}`), 0o644))

	lib, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, lib.Prompts)
	assert.Equal(t, []string{"w1", "w2"}, lib.Words)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"prompts":[],"words":[]}`), 0o644))
	_, err = LoadFile(empty)
	assert.Error(t, err, "a library without prompts or words is rejected")

	malformed := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(malformed, []byte(`{`), 0o644))
	_, err = LoadFile(malformed)
	assert.Error(t, err)
}
