package ids

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator hands out lexicographically sortable, unique identifiers. IDs from
// one Generator are strictly increasing even within the same millisecond.
type Generator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy io.Reader
}

// NewGenerator returns a Generator reading time from now (time.Now if nil).
func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		now:     now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// New returns the next identifier.
func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

var defaultGenerator = NewGenerator(nil)

// New returns an identifier from the process-wide generator.
func New() string {
	return defaultGenerator.New()
}
