package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getzep/graphrag/pkg/models"
	"github.com/getzep/graphrag/pkg/testutils"
)

type recordingTask struct {
	err      error
	executed chan *message.Message
	handled  []error
}

func (r *recordingTask) Execute(_ context.Context, msg *message.Message) error {
	r.executed <- msg
	return r.err
}

func (r *recordingTask) HandleError(err error) {
	r.handled = append(r.handled, err)
}

func TestTaskHandler(t *testing.T) {
	task := &recordingTask{executed: make(chan *message.Message, 1)}
	err := TaskHandler(task)(message.NewMessage("1", nil))
	assert.NoError(t, err)
	assert.Empty(t, task.handled)

	task = &recordingTask{err: errors.New("boom"), executed: make(chan *message.Message, 1)}
	err = TaskHandler(task)(message.NewMessage("2", nil))
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []error{task.err}, task.handled)
}

func TestTaskRouter_RunAndPublish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	appState := &models.AppState{Config: testutils.NewTestConfig()}
	pubsub := NewPubSub()

	router, err := NewTaskRouter(appState, pubsub)
	require.NoError(t, err)

	task := &recordingTask{executed: make(chan *message.Message, 1)}
	router.AddTask(ctx, "test", models.GraphExtractTopic, task)

	go func() {
		_ = router.Run(ctx)
	}()
	<-router.Running()
	assert.True(t, router.IsRunning())

	publisher := NewTaskPublisher(pubsub)
	err = publisher.Publish(
		models.GraphExtractTopic,
		map[string]string{RunIDKey: "run-7"},
		models.PipelineRequest{RunID: "run-7", Texts: []string{"text"}},
	)
	require.NoError(t, err)

	select {
	case msg := <-task.executed:
		assert.Equal(t, "run-7", msg.Metadata.Get(RunIDKey))
		assert.JSONEq(t, `{"run_id":"run-7","texts":["text"],"entity_types":null}`, string(msg.Payload))
	case <-ctx.Done():
		t.Fatal("timed out waiting for the task to run")
	}

	assert.NoError(t, router.Close())
	assert.NoError(t, publisher.Close())
}
