package work

import (
	"fmt"

	"github.com/amachie/folio/server/cron"
	"github.com/amachie/folio/server/models"
	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
)

const MAX_CONCURRENCY = 1

type WorkerPoolAdapter struct {
	cronScheduler *gocron.Scheduler
	pool          WorkerPool
	requeuers     []*requeuer
}

// NewWorkerAdapter creates an adapter wrapping a worker pool, a cron
// scheduler & the requeuers that feed the pool's queue. In devMode workers
// poll with short backoffs, so local servers & tests stay responsive.
func NewWorkerAdapter(timeZoneArg string, devMode bool) *WorkerPoolAdapter {
	adapter := &WorkerPoolAdapter{
		cronScheduler: cron.NewCronScheduler(timeZoneArg),
		pool:          *newWorkerPool(MAX_CONCURRENCY, devMode),
	}

	for queue := range supportedQueues {
		requeuer, err := newRequeuer(queue)
		if err != nil {
			logg.Panic(err)
		}
		adapter.requeuers = append(adapter.requeuers, requeuer)
	}

	return adapter
}

// Start starts the cron scheduler, worker pool & requeuers
func (adapter *WorkerPoolAdapter) Start() error {
	logg.Info("Starting cron scheduler & worker pool")
	adapter.cronScheduler.StartAsync()
	adapter.pool.start()

	for _, requeuer := range adapter.requeuers {
		requeuer.start()
	}

	return nil
}

// Stop stops the cron scheduler, worker pool & requeuers
func (adapter *WorkerPoolAdapter) Stop() error {
	logg.Info("Stopping cron scheduler & worker pool")
	adapter.cronScheduler.Stop()
	adapter.pool.stop()

	for _, requeuer := range adapter.requeuers {
		requeuer.stop()
	}

	return nil
}

// Register binds a name to a handler.
func (adapter *WorkerPoolAdapter) Register(name string, handler Handler) error {
	return adapter.pool.registerHandler(name, handler)
}

// Perform sends a new job to the queue, now - to be executed as soon as a worker is available
func (adapter *WorkerPoolAdapter) Perform(job JobParams) error {
	logg.Infof("Enqueuing job: %v", job)

	err := adapter.pool.enqueue(job)
	if errors.Is(err, models.ErrDuplicateJob) {
		logg.Warnf("Duplicate job already in queue for: %v", job)
		return nil
	}

	if err != nil {
		return fmt.Errorf("error enqueuing job: %v, %v", job, err)
	}

	return nil
}

// PerformIn sends a new job to the 'scheduled' queue, to be moved to the main
// queue & executed once 'secondsInFuture' seconds have elapsed
func (adapter *WorkerPoolAdapter) PerformIn(secondsInFuture int64, job JobParams) error {
	logg.Infof("Scheduling job in %vs: %v", secondsInFuture, job)

	err := adapter.pool.enqueueIn(secondsInFuture, job)
	if err != nil {
		return fmt.Errorf("error scheduling job: %v, %v", job, err)
	}

	return nil
}

// PeriodicallyPerform adds a job to the queue (to be executed)
// periodically, based on the 'cronExpression' expression provided
func (adapter *WorkerPoolAdapter) PeriodicallyPerform(cronExpression string, job JobParams) error {
	_, err := adapter.cronScheduler.Cron(cronExpression).Tag(job.Name).
		Do(
			func(job JobParams) {
				err := adapter.Perform(job)
				if err != nil {
					logg.Error(err)
				}
			},
			job,
		)
	return err
}

func (adapter *WorkerPoolAdapter) RemovePeriodicJob(jobName string) {
	adapter.cronScheduler.RemoveByTag(jobName)
}
