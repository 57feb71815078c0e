package transcoder

import (
	"sync"

	"media-converter/internal/logging"
)

type release struct {
	name string
	fn   func() error
}

// releaser runs registered release functions in reverse order, each at
// most once, no matter how many times releaseAll is called.
type releaser struct {
	mu    sync.Mutex
	items []release
	done  bool
	log   *logging.Logger
}

func newReleaser(log *logging.Logger) *releaser {
	return &releaser{log: log}
}

// add registers fn. Registering after releaseAll runs fn immediately.
func (r *releaser) add(name string, fn func() error) {
	r.mu.Lock()
	if !r.done {
		r.items = append(r.items, release{name: name, fn: fn})
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.run(release{name: name, fn: fn})
}

func (r *releaser) releaseAll() {
	r.mu.Lock()
	items := r.items
	r.items = nil
	r.done = true
	r.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		r.run(items[i])
	}
}

func (r *releaser) run(item release) {
	if err := item.fn(); err != nil {
		r.log.Warn("failed to release %s: %v", item.name, err)
		return
	}
	r.log.Debug("released %s", item.name)
}
