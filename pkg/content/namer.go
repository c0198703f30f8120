package content

import (
	"fmt"
	"math/rand"
	"path"
	"sync"
)

// Namer generates blob names. Injected into stores so tests can use a
// deterministic sequence while production uses seeded randomness.
type Namer interface {
	Next() string
}

// NewRandomNamer returns a Namer producing 16-hex-character names from a
// seeded pseudo-random source. Safe for concurrent use.
func NewRandomNamer(seed int64) Namer {
	return &randomNamer{rng: rand.New(rand.NewSource(seed))}
}

type randomNamer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (n *randomNamer) Next() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fmt.Sprintf("%016x", n.rng.Uint64())
}

// BlobPath fans a blob name out into its storage path, using the first two
// characters as directory levels: "d418ab1796e0fe02" becomes
// "d/4/d418ab1796e0fe02".
func BlobPath(name string) string {
	if len(name) < 2 {
		return name
	}
	return path.Join(name[0:1], name[1:2], name)
}
