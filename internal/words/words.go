// internal/words/words.go
package words

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
)

//go:embed words.json
var embeddedData []byte

// Source supplies random prompts and word pools. The game core treats it
// as an injected read-only collaborator.
type Source interface {
	Prompt() string
	Draw(n int) []string
}

// Library is the default Source: a static prompt list and word list.
type Library struct {
	Prompts []string `json:"prompts"`
	Words   []string `json:"words"`
}

// Embedded returns the library compiled into the binary.
func Embedded() *Library {
	lib, err := parse(embeddedData)
	if err != nil {
		// The embedded data is validated at build time by the tests; a
		// parse failure here is a packaging bug.
		panic(fmt.Sprintf("words: embedded data invalid: %v", err))
	}
	return lib
}

// LoadFile reads a prompts/words JSON file, for deployments that want a
// custom data set.
func LoadFile(path string) (*Library, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("words: read %s: %w", path, err)
	}
	lib, err := parse(raw)
	if err != nil {
		return nil, fmt.Errorf("words: parse %s: %w", path, err)
	}
	return lib, nil
}

func parse(raw []byte) (*Library, error) {
	var lib Library
	if err := json.Unmarshal(raw, &lib); err != nil {
		return nil, err
	}
	if len(lib.Prompts) == 0 || len(lib.Words) == 0 {
		return nil, fmt.Errorf("needs at least one prompt and one word")
	}
	return &lib, nil
}

// Prompt returns one prompt uniformly at random. Repeats across rounds
// are allowed.
func (l *Library) Prompt() string {
	return l.Prompts[rand.Intn(len(l.Prompts))]
}

// Draw picks n words independently and uniformly at random with
// replacement, so one pool may contain duplicates.
func (l *Library) Draw(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = l.Words[rand.Intn(len(l.Words))]
	}
	return out
}
