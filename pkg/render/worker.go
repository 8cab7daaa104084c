package render

import (
	"errors"
	"sync"

	"volumeviewer/internal/models"
	"volumeviewer/pkg/mesh"
)

// errNoResult marks a producer that returned neither a value nor an error
var errNoResult = errors.New("job produced no result")

type jobKind int

const (
	volumeJob jobKind = iota
	meshJob
)

func (k jobKind) String() string {
	if k == meshJob {
		return "mesh"
	}
	return "volume"
}

// job is one unit of background work. Exactly one of produceVolume and
// produceMesh is set.
type job struct {
	seq           uint64
	kind          jobKind
	name          string
	produceVolume func() (*models.Volume, error)
	produceMesh   func() (*mesh.Mesh, error)
}

// result travels from the worker to the graphics thread
type result struct {
	seq    uint64
	kind   jobKind
	name   string
	volume *models.Volume
	mesh   *mesh.Mesh
	err    error
}

// worker runs jobs one at a time in submission order. There is no
// cancellation: a job that has started always runs to completion.
type worker struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []job
	running bool
	closed  bool
	done    chan struct{}

	deliver func(result)
}

func newWorker(deliver func(result)) *worker {
	w := &worker{deliver: deliver, done: make(chan struct{})}
	w.cond = sync.NewCond(&w.mu)
	go w.loop()
	return w
}

// submit appends a job behind any queued or running one. It reports false
// once the worker has been closed.
func (w *worker) submit(j job) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	w.queue = append(w.queue, j)
	w.cond.Broadcast()
	return true
}

func (w *worker) loop() {
	defer close(w.done)
	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closed {
			w.cond.Wait()
		}
		if w.closed {
			w.mu.Unlock()
			return
		}
		j := w.queue[0]
		w.queue = w.queue[1:]
		w.running = true
		w.mu.Unlock()

		w.deliver(run(j))

		w.mu.Lock()
		w.running = false
		w.cond.Broadcast()
		w.mu.Unlock()
	}
}

func run(j job) result {
	res := result{seq: j.seq, kind: j.kind, name: j.name}
	switch j.kind {
	case volumeJob:
		res.volume, res.err = j.produceVolume()
		if res.err == nil && res.volume == nil {
			res.err = errNoResult
		}
	case meshJob:
		res.mesh, res.err = j.produceMesh()
		if res.err == nil && res.mesh == nil {
			res.err = errNoResult
		}
	}
	return res
}

// wait blocks until the queue is empty and no job is running
func (w *worker) wait() {
	w.mu.Lock()
	for (len(w.queue) > 0 || w.running) && !w.closed {
		w.cond.Wait()
	}
	w.mu.Unlock()
}

// close drops queued jobs, lets a running job finish and stops the loop
func (w *worker) close() {
	w.mu.Lock()
	w.closed = true
	w.queue = nil
	w.cond.Broadcast()
	w.mu.Unlock()
	<-w.done
}
