package content

import (
	"crypto/sha256"
	"hash"
	"sort"

	"github.com/pkg/errors"
	"lukechampine.com/blake3"
)

// Algorithm describes a digest algorithm available to the engine.
type Algorithm struct {
	Name string
	Size int // digest size in bytes
	New  func() hash.Hash
}

var algorithms = map[string]Algorithm{
	"blake3": {
		Name: "blake3",
		Size: 32,
		New:  func() hash.Hash { return blake3.New(32, nil) },
	},
	"sha256": {
		Name: "sha256",
		Size: sha256.Size,
		New:  sha256.New,
	},
}

// AlgorithmByName resolves a configured algorithm name.
func AlgorithmByName(name string) (Algorithm, error) {
	algo, ok := algorithms[name]
	if !ok {
		return Algorithm{}, errors.Errorf("unknown checksum algorithm: %q (available: %v)", name, Algorithms())
	}

	return algo, nil
}

// Algorithms returns the available algorithm names, sorted.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}
