package worker

import (
	"container/list"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrDispatcherBusy is returned when the intake queue is full.
var ErrDispatcherBusy = errors.New("dispatcher busy")

type clientQueue struct {
	jobs     []Job
	enqueued bool // in the ready list
	inFlight bool // a job is running on a worker
}

// Dispatcher hands jobs to pool workers, round robin across clients, with
// at most one job per client running at a time.
type Dispatcher struct {
	pool     *jobChannelPool
	jobQueue chan Job
	wake     chan struct{}
	quit     chan struct{}
	logger   *zap.Logger

	mu        sync.Mutex
	queues    map[string]*clientQueue
	ready     *list.List // clients with a runnable job, oldest first
	positions map[string]*list.Element
	closeOnce sync.Once
}

type DispatcherConfig struct {
	MinWorkers  int
	MaxWorkers  int
	QueueSize   int
	IdleTimeout time.Duration
}

func NewDispatcher(cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	d := &Dispatcher{
		pool:      newJobChannelPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.IdleTimeout),
		jobQueue:  make(chan Job, cfg.QueueSize),
		wake:      make(chan struct{}, 1),
		quit:      make(chan struct{}),
		logger:    logger,
		queues:    make(map[string]*clientQueue),
		ready:     list.New(),
		positions: make(map[string]*list.Element),
	}

	for i := 0; i < d.pool.min; i++ {
		d.pool.spawnWorker()
	}

	go d.run()
	return d
}

// Submit queues job without blocking.
func (d *Dispatcher) Submit(job Job) error {
	select {
	case <-d.quit:
		return ErrDispatcherBusy
	default:
	}
	select {
	case d.jobQueue <- job:
		return nil
	default:
		return ErrDispatcherBusy
	}
}

func (d *Dispatcher) run() {
	for {
		if d.dispatchOne() {
			select {
			case job := <-d.jobQueue:
				d.enqueueJob(job)
			default:
			}
			continue
		}
		select {
		case job := <-d.jobQueue:
			d.enqueueJob(job)
		case <-d.wake:
		case <-d.quit:
			return
		}
	}
}

// CancelClient drops queued jobs of the client. A running job finishes.
func (d *Dispatcher) CancelClient(clientID string) {
	d.mu.Lock()
	q := d.queues[clientID]
	var dropped []Job
	if q != nil {
		dropped = q.jobs
		q.jobs = nil
		q.enqueued = false
		if !q.inFlight {
			delete(d.queues, clientID)
		}
	}
	if elem, ok := d.positions[clientID]; ok {
		d.ready.Remove(elem)
		delete(d.positions, clientID)
	}
	d.mu.Unlock()

	for _, job := range dropped {
		if job.abort != nil {
			job.abort()
		}
	}
}

// Close stops dispatching and retires idle workers. Queued jobs are aborted.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.quit)
		d.pool.close()

		d.mu.Lock()
		var dropped []Job
		for _, q := range d.queues {
			dropped = append(dropped, q.jobs...)
			q.jobs = nil
		}
		d.ready.Init()
		d.positions = make(map[string]*list.Element)
		d.mu.Unlock()

	drain:
		for {
			select {
			case job := <-d.jobQueue:
				dropped = append(dropped, job)
			default:
				break drain
			}
		}
		for _, job := range dropped {
			if job.abort != nil {
				job.abort()
			}
		}
	})
}

func (d *Dispatcher) enqueueJob(job Job) {
	clientID := job.ClientID

	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[clientID]
	if q == nil {
		q = &clientQueue{}
		d.queues[clientID] = q
	}
	q.jobs = append(q.jobs, job)
	d.markReadyLocked(clientID, q)
}

func (d *Dispatcher) markReadyLocked(clientID string, q *clientQueue) {
	if q.enqueued || q.inFlight || len(q.jobs) == 0 {
		return
	}
	q.enqueued = true
	d.positions[clientID] = d.ready.PushBack(clientID)
}

// dispatchOne runs the next job of the client at the front of the ready list.
func (d *Dispatcher) dispatchOne() bool {
	d.mu.Lock()
	elem := d.ready.Front()
	if elem == nil {
		d.mu.Unlock()
		return false
	}
	clientID := elem.Value.(string)
	q := d.queues[clientID]
	d.ready.Remove(elem)
	delete(d.positions, clientID)
	q.enqueued = false

	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	q.inFlight = true
	d.mu.Unlock()

	job.done = func() { d.finish(clientID) }

	workerChan := d.pool.acquire()
	if workerChan == nil {
		d.drop(job)
		return false
	}
	d.logger.Debug("assign job",
		zap.String("type", job.Type.String()),
		zap.String("client_id", clientID),
		zap.Int("worker", d.pool.workerID(workerChan)),
	)
	select {
	case workerChan <- job:
	case <-d.quit:
		d.drop(job)
		return false
	}
	return true
}

func (d *Dispatcher) drop(job Job) {
	if job.abort != nil {
		job.abort()
	}
	job.done()
}

func (d *Dispatcher) finish(clientID string) {
	d.mu.Lock()
	if q, ok := d.queues[clientID]; ok {
		q.inFlight = false
		if len(q.jobs) == 0 {
			delete(d.queues, clientID)
		} else {
			d.markReadyLocked(clientID, q)
		}
	}
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) pending(clientID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if q, ok := d.queues[clientID]; ok {
		return len(q.jobs)
	}
	return 0
}
