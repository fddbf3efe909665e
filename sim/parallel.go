package sim

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum item count to use the worker pool.
// Below this, a single goroutine is faster than the dispatch overhead.
const parallelThreshold = 64

// workChunk is a range of items for one worker.
type workChunk struct {
	start, end int
	fn         func(start, end int)
	done       *sync.WaitGroup
}

// workerPool runs chunks of data-parallel work on persistent goroutines.
// Several systems may share it concurrently; each parallelFor call waits on
// its own WaitGroup.
type workerPool struct {
	numWorkers int

	mu       sync.Mutex
	workChan chan workChunk
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newWorkerPool(numWorkers int) *workerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	return &workerPool{numWorkers: numWorkers}
}

// start launches the worker goroutines if they are not running yet.
func (p *workerPool) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop signals all workers to exit and waits for them.
func (p *workerPool) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	p.running = false
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case chunk := <-p.workChan:
			chunk.fn(chunk.start, chunk.end)
			chunk.done.Done()
		}
	}
}

// parallelFor dispatches [0,n) to the workers and waits for completion.
func (p *workerPool) parallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if n < parallelThreshold || p.numWorkers <= 1 {
		fn(0, n)
		return
	}

	p.start()

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	var done sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		done.Add(1)
		p.workChan <- workChunk{start: start, end: end, fn: fn, done: &done}
	}
	done.Wait()
}
