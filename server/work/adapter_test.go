package work

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/amachie/folio/server/models"
	"github.com/stretchr/testify/assert"
)

func TestPerformIn(t *testing.T) {
	models.InitializeTestDb()

	workerPool := NewWorkerAdapter("UTC", true)
	sentMessages := new(bytes.Buffer)

	// stand-in for the twilio-backed welcome handler
	recordGreeting := func(args map[string]interface{}) error {
		_, err := fmt.Fprintf(sentMessages, "Hi %v!", args["name"])
		return err
	}
	workerPool.Register("send_welcome_message", recordGreeting)

	err := workerPool.PerformIn(2, JobParams{
		Name:    "send_welcome_message",
		Handler: "send_welcome_message",
		Args:    map[string]interface{}{"name": "Ada", "phone": "+14165550001"},
	})
	assert.Nil(t, err)
	assert.Empty(t, sentMessages.String(), "Expected no message before the scheduled time")

	// Wait until time to perform job has elapsed
	time.Sleep(3 * time.Second)

	workerPool.Start()

	// Wait for job to be processed
	time.Sleep(2 * time.Second)

	workerPool.Stop()

	assert.Equal(t, "Hi Ada!", sentMessages.String(), "Expected the scheduled job to send the greeting")
}
