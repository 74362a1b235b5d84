package worker

import (
	"fmt"
)

type JobType int

const (
	Send JobType = iota
	Stop
)

func (t JobType) String() string {
	switch t {
	case Send:
		return "send"
	case Stop:
		return "stop"
	default:
		return fmt.Sprintf("job(%d)", int(t))
	}
}

// Job is one unit of per-client work. run executes on a pool worker;
// abort is called instead when the job is dropped before it runs.
type Job struct {
	Type     JobType
	ClientID string
	run      func()
	abort    func()
	done     func()
}

type Worker struct {
	pool       *jobChannelPool
	jobChannel chan Job
}

func NewWorker(pool *jobChannelPool) *Worker {
	return &Worker{
		pool:       pool,
		jobChannel: make(chan Job),
	}
}

func (w *Worker) Start() {
	go func() {
		for {
			w.pool.Release(w.jobChannel)
			select {
			case job := <-w.jobChannel:
				if job.Type == Stop {
					w.pool.retire(w.jobChannel)
					return
				}
				w.execute(job)
			case <-w.pool.quit:
				w.pool.retire(w.jobChannel)
				return
			}
		}
	}()
}

func (w *Worker) execute(job Job) {
	if job.done != nil {
		defer job.done()
	}
	if job.run != nil {
		job.run()
	}
}
