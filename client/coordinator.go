package client

import (
	"context"
	"io"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

// State of the upload queue
type State int32

const (
	// StateIdle means the queue is empty or draining is gated by a
	// disabled upload section
	StateIdle State = iota
	// StateDraining means exactly one entry is being processed
	StateDraining
)

// File is a pending upload: the declared name and MIME type plus a
// handle to the payload
type File struct {
	Name string
	Type string
	Data io.Reader
}

// Uploader performs the real network transfer. Implemented by *Client
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, data io.Reader) (string, error)
}

// Events are observer callbacks for anything rendering the queue. All
// are optional and are never called concurrently with each other
type Events struct {
	// Progress reports every change of the displayed percentage
	Progress func(p int)
	// Rejected fires when a file fails the type check. The upload
	// section is disabled at that point
	Rejected func(name, contentType string)
	// UploadFailed fires on a network failure for one file. The queue
	// keeps draining
	UploadFailed func(name string, err error)
	// Uploaded fires after a successful upload with the assigned URL
	Uploaded func(name, url string)
}

var allowedTypes = []string{"image/png", "image/jpeg", "image/jpg"}

const (
	defaultTick = 100 * time.Millisecond
	defaultHold = 300 * time.Millisecond
)

// Coordinator serializes files from any number of sources into
// one-at-a-time uploads. Files may be enqueued at any moment, including
// while an upload is in flight; the in-flight entry and the FIFO order
// are never disturbed.
//
// While an entry is draining a ticker advances a simulated progress
// percentage concurrently with the real transfer, since the transfer's
// true progress is not observable end to end. The ticker is joined
// before the entry resolves so it can never leak into the next one.
type Coordinator struct {
	uploader Uploader
	gallery  *Gallery
	events   Events

	// Timing and jitter are fields so tests can run fast
	tick   time.Duration
	hold   time.Duration
	jitter func() float64

	mu       sync.Mutex
	queue    []File
	inFlight bool
	state    State
	progress int
	enabled  bool
	draining bool
}

// NewCoordinator wires a queue to an uploader and a gallery view. The
// gallery and any event callback may be nil
func NewCoordinator(u Uploader, g *Gallery, ev Events) *Coordinator {
	return &Coordinator{
		uploader: u,
		gallery:  g,
		events:   ev,
		tick:     defaultTick,
		hold:     defaultHold,
		jitter:   rand.Float64,
		enabled:  true,
	}
}

// Enqueue appends files in arrival order and starts a drain if none is
// active. Safe to call from any goroutine at any time
func (q *Coordinator) Enqueue(files ...File) {
	if len(files) == 0 {
		return
	}

	q.mu.Lock()
	q.queue = append(q.queue, files...)

	start := q.enabled && !q.draining
	if start {
		q.draining = true
		q.state = StateDraining
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}
}

// State reports Idle or Draining
func (q *Coordinator) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.state
}

// Progress is the currently displayed percentage, 0..100
func (q *Coordinator) Progress() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.progress
}

// QueueLen counts pending entries, the in-flight one included
func (q *Coordinator) QueueLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.queue)
	if q.inFlight {
		n++
	}
	return n
}

// UploadEnabled reports whether the upload section accepts new work.
// Only a validation rejection clears it
func (q *Coordinator) UploadEnabled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.enabled
}

// Reload re-enables the upload section after a rejection and clears the
// pending queue, so entries stuck behind the rejection are dropped for
// good. An entry whose outcome is still being resolved is untouched, and
// anything enqueued after the reload stays put
func (q *Coordinator) Reload() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.queue = nil
	q.enabled = true
}

// drain processes the queue front to back. There is never more than one
// drain goroutine: it is only started under the draining flag and only
// exits after clearing it
func (q *Coordinator) drain() {
	for {
		q.mu.Lock()
		if !q.enabled || len(q.queue) == 0 {
			q.draining = false
			q.state = StateIdle
			q.mu.Unlock()
			return
		}
		// The entry leaves the pending slice here but stays counted
		// through inFlight until its outcome is resolved. Reload only
		// ever clears entries that were never attempted.
		entry := q.queue[0]
		q.queue = q.queue[1:]
		q.inFlight = true
		q.mu.Unlock()

		q.process(entry)

		q.mu.Lock()
		q.inFlight = false
		q.mu.Unlock()
	}
}

func (q *Coordinator) process(f File) {
	if !slices.Contains(allowedTypes, f.Type) {
		q.mu.Lock()
		q.enabled = false
		q.mu.Unlock()

		if q.events.Rejected != nil {
			q.events.Rejected(f.Name, f.Type)
		}
		return
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go q.simulate(done, stopped)

	url, err := q.uploader.Upload(context.Background(), f.Name, f.Type, f.Data)

	// Stop the ticker exactly once and wait it out before touching
	// the progress value again
	close(done)
	<-stopped

	if err != nil {
		q.setProgress(0)

		if q.events.UploadFailed != nil {
			q.events.UploadFailed(f.Name, err)
		}
		return
	}

	q.setProgress(100)
	time.Sleep(q.hold)
	q.setProgress(0)

	if q.gallery != nil {
		q.gallery.Append(url)
	}

	if q.events.Uploaded != nil {
		q.events.Uploaded(f.Name, url)
	}
}

// simulate advances the displayed percentage by a random step in [5,15)
// per tick, capped at 90. The real completion signal is the only thing
// that ever moves it past that
func (q *Coordinator) simulate(done, stopped chan struct{}) {
	defer close(stopped)

	t := time.NewTicker(q.tick)
	defer t.Stop()

	sim := 0.0

	for {
		select {
		case <-done:
			return
		case <-t.C:
			sim += q.jitter()*10 + 5
			if sim >= 90 {
				q.setProgress(90)
				<-done
				return
			}
			q.setProgress(int(sim))
		}
	}
}

func (q *Coordinator) setProgress(p int) {
	q.mu.Lock()
	q.progress = p
	q.mu.Unlock()

	if q.events.Progress != nil {
		q.events.Progress(p)
	}
}
