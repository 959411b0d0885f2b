package tasks

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	wla "github.com/ma-hartma/watermill-logrus-adapter"
	wotel "github.com/voi-oss/watermill-opentelemetry/pkg/opentelemetry"

	"github.com/getzep/graphrag/pkg/models"
)

// PoisonTopic receives stage messages that failed after all retries.
const PoisonTopic = "graph_poison"

// TaskRouter is a wrapper around watermill's Router that adds some
// functionality for managing tasks and handlers.
// All handlers subscribe to a single in-process GoChannel pub/sub.
type TaskRouter struct {
	*message.Router
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
}

// NewPubSub returns the in-process pub/sub shared by the router and publisher.
// Messages are kept for late subscribers so a stage is never dropped while
// the router is starting.
func NewPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 16, Persistent: true},
		wla.NewLogrusLogger(log),
	)
}

// NewTaskRouter creates a new TaskRouter. Messages that still fail after
// tasks.max_retries are moved to PoisonTopic.
func NewTaskRouter(appState *models.AppState, pubsub *gochannel.GoChannel) (*TaskRouter, error) {
	var wlog = wla.NewLogrusLogger(log)

	router, err := message.NewRouter(message.RouterConfig{}, wlog)
	if err != nil {
		return nil, err
	}

	poisonQueue, err := middleware.PoisonQueue(pubsub, PoisonTopic)
	if err != nil {
		return nil, err
	}

	cfg := appState.Config.Tasks

	router.AddMiddleware(
		// CorrelationID will copy the correlation id from the incoming message's metadata to the produced messages
		middleware.CorrelationID,

		// Trace starts a span per handled message.
		wotel.Trace(),

		// PoisonQueue publishes messages that failed to process after MaxRetries to the poison topic.
		poisonQueue,

		// Throttle limits the number of messages processed per second.
		middleware.NewThrottle(cfg.Throttle, time.Second).Middleware,

		// Recoverer handles panics from handlers.
		// In this case, it passes them as errors to the Retry middleware.
		middleware.Recoverer,
	)

	if cfg.MaxRetries > 0 {
		router.AddMiddleware(middleware.Retry{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: 1 * time.Second,
			Multiplier:      2,
			Logger:          wlog,
		}.Middleware)
	}

	if cfg.Timeout > 0 {
		router.AddMiddleware(middleware.Timeout(cfg.Timeout))
	}

	return &TaskRouter{
		Router: router,
		pubsub: pubsub,
		logger: wlog,
	}, nil
}

// AddTask adds a task handler to the router.
func (tr *TaskRouter) AddTask(_ context.Context, name string, taskType models.TaskTopic, task models.Task) {
	tr.AddNoPublisherHandler(
		name,
		string(taskType),
		tr.pubsub,
		TaskHandler(task),
	)
}

func (tr *TaskRouter) Close() (err error) {
	routerErr := tr.Router.Close()
	defer func() {
		psErr := tr.pubsub.Close()
		if err == nil {
			err = psErr
		}
	}()
	if routerErr != nil {
		err = routerErr
	}
	return err
}

// TaskHandler returns a message handler function for the given task.
// Handlers are NoPublishHandlerFuncs i.e. do not publish messages.
func TaskHandler(task models.Task) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		err := task.Execute(msg.Context(), msg)
		if err != nil {
			task.HandleError(err)
			return err
		}
		return nil
	}
}
