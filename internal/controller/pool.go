package controller

import "sync"

const defaultWorkers = 4

// pool runs submitted operations on a fixed set of worker goroutines.
// The queue is unbounded so submission never blocks the caller; the
// caller only blocks when explicitly waiting on a task handle.
type pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	stopped bool
	wg      sync.WaitGroup
}

func newPool(workers int) *pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	p := &pool{}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *pool) run() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()
		job()
	}
}

// submit enqueues a job without blocking. A job submitted after stop
// still runs, on its own goroutine, so its task handle resolves.
func (p *pool) submit(job func()) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		go job()
		return
	}
	p.queue = append(p.queue, job)
	p.mu.Unlock()
	p.cond.Signal()
}

// stop drains queued jobs and waits for the workers to exit.
func (p *pool) stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}
