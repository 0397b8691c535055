package server

import (
	"sync"

	"github.com/tomasbasham/sitegraph/internal/events"
)

// runBroadcasters tracks one events.Broadcaster per in-flight discovery run
// so the SSE endpoint can look one up by run ID independently of the
// goroutine that is producing into it.
type runBroadcasters struct {
	mu   sync.Mutex
	byID map[string]*events.Broadcaster
}

func newRunBroadcasters() *runBroadcasters {
	return &runBroadcasters{byID: make(map[string]*events.Broadcaster)}
}

func (r *runBroadcasters) create(id string) *events.Broadcaster {
	b := events.NewBroadcaster()
	r.mu.Lock()
	r.byID[id] = b
	r.mu.Unlock()
	return b
}

func (r *runBroadcasters) get(id string) (*events.Broadcaster, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	return b, ok
}

// close removes a finished run's broadcaster. Existing SSE subscribers keep
// draining their own channel until they observe the request context close;
// new subscribe attempts after this point get a 404.
func (r *runBroadcasters) close(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}
