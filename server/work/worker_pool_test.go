package work

import (
	"testing"
	"time"

	"github.com/amachie/folio/server/models"
	"github.com/stretchr/testify/assert"
)

func TestEnqueueIn(t *testing.T) {
	models.InitializeTestDb()

	workerPool := newWorkerPool(MAX_CONCURRENCY, true)

	err := workerPool.enqueueIn(1, JobParams{
		Name:    "send_welcome_message",
		Handler: "send_welcome_message",
		Args: map[string]interface{}{
			"name":  "ada",
			"phone": "+14165550001",
		},
	})
	assert.Nil(t, err)

	// At some point we need to be able to
	// mock the current time, instead of stopping the
	// process. For now, keep it simple
	time.Sleep(2 * time.Second)

	// Make sure the correct job is created & scheduled to be run
	job, err := models.FirstScheduledJobToBeQueued()
	assert.Nil(t, err)
	assert.Equal(t, "send_welcome_message", job.Name, "The job name should match the expected job name")
	assert.Contains(t, job.Args, "ada", "Should contain the correct arg values")
	assert.Equal(t, models.SCHEDULED_JOB, job.JobStatus.Name, "The job should be in scheduled queue")
}
