package client

import (
	"slices"
	"sync"
)

// Gallery is the ordered list of image URLs this client renders. It is
// loaded once from the server and then only mutated incrementally: own
// uploads and broadcast events append, deletions remove. It can drift
// from the server if push events are missed; the next Load reconciles
type Gallery struct {
	mu   sync.RWMutex
	urls []string
}

func NewGallery() *Gallery {
	return &Gallery{}
}

// Load replaces the view with the server's list, order kept verbatim
func (g *Gallery) Load(urls []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.urls = slices.Clone(urls)
}

func (g *Gallery) Append(url string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.urls = append(g.urls, url)
}

func (g *Gallery) Remove(url string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.urls = slices.DeleteFunc(g.urls, func(u string) bool {
		return u == url
	})
}

func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.urls)
}

// Snapshot returns a copy safe to render from
func (g *Gallery) Snapshot() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return slices.Clone(g.urls)
}
