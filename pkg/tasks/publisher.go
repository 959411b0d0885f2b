package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	wotel "github.com/voi-oss/watermill-opentelemetry/pkg/opentelemetry"

	"github.com/getzep/graphrag/pkg/models"
)

var _ models.TaskPublisher = &TaskPublisher{}

type TaskPublisher struct {
	publisher message.Publisher
}

func NewTaskPublisher(publisher message.Publisher) *TaskPublisher {
	return &TaskPublisher{
		publisher: wotel.NewPublisherDecorator(publisher),
	}
}

func (t *TaskPublisher) Publish(taskType models.TaskTopic, metadata map[string]string, payload any) error {
	p, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	log.Debugf("Publishing %s message: %d bytes", taskType, len(p))
	m := message.NewMessage(watermill.NewUUID(), p)
	for k, v := range metadata {
		m.Metadata.Set(k, v)
	}

	err = t.publisher.Publish(string(taskType), m)
	if err != nil {
		return fmt.Errorf("failed to publish task message: %w", err)
	}

	return nil
}

// Close is a no-op: the publisher shares its pub/sub with the TaskRouter,
// which closes it.
func (t *TaskPublisher) Close() error {
	return nil
}
