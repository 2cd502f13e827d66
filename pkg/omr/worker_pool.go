package omr

import (
	"runtime"
	"sync"
)

// workerPool fans sheet jobs out across a fixed set of goroutines. Sheets
// are independent, so the only shared state the jobs touch is the
// engine's read-only configuration.
type workerPool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup
	once     sync.Once
}

// newWorkerPool creates a pool; workers <= 0 means one per CPU.
func newWorkerPool(workers int) *workerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &workerPool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// start launches the workers once.
func (wp *workerPool) start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

func (wp *workerPool) worker() {
	for job := range wp.jobQueue {
		job()
		wp.wg.Done()
	}
}

// submit queues a job.
func (wp *workerPool) submit(job func()) {
	wp.wg.Add(1)
	wp.jobQueue <- job
}

// wait blocks until all submitted jobs finished.
func (wp *workerPool) wait() {
	wp.wg.Wait()
}

// close shuts the pool down. No submissions may follow.
func (wp *workerPool) close() {
	close(wp.jobQueue)
}
