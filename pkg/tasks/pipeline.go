package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"

	"github.com/getzep/graphrag/pkg/graphrag"
	"github.com/getzep/graphrag/pkg/models"
)

// Stages lists the pipeline stages in the order they run.
var Stages = []models.TaskTopic{
	models.GraphExtractTopic,
	models.GraphSummarizeTopic,
	models.GraphCommunitiesTopic,
}

// RunPipeline extracts, summarizes and reports on communities for req, one
// stage after another. It returns the results of the stages that completed,
// in order, and the error of the stage that failed, if any. The caller
// owns client and closes it.
func RunPipeline(
	ctx context.Context,
	appState *models.AppState,
	client *graphrag.Client,
	req models.PipelineRequest,
) ([]models.StageResult, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	pubsub := NewPubSub()
	router, err := NewTaskRouter(appState, pubsub)
	if err != nil {
		return nil, fmt.Errorf("failed to create task router: %w", err)
	}
	defer func() {
		if err := router.Close(); err != nil {
			log.Errorf("failed to close task router: %v", err)
		}
	}()

	appState.TaskRouter = router
	appState.TaskPublisher = NewTaskPublisher(pubsub)

	reporter := NewStageReporter(len(Stages))
	Initialize(ctx, appState, router, client, reporter)

	runErr := make(chan error, 1)
	go func() {
		log.Debug("running task router")
		runErr <- router.Run(ctx)
	}()

	select {
	case <-router.Running():
	case err := <-runErr:
		return nil, fmt.Errorf("task router stopped: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	metadata := map[string]string{
		RunIDKey:                             req.RunID,
		middleware.CorrelationIDMetadataKey: req.RunID,
	}
	if err := appState.TaskPublisher.Publish(Stages[0], metadata, req); err != nil {
		return nil, err
	}

	results := make([]models.StageResult, 0, len(Stages))
	for len(results) < len(Stages) {
		select {
		case r := <-reporter.results:
			if r.Err != nil {
				return results, r.Err
			}
			log.Infof("%s: %s", r.Stage, r.Result)
			results = append(results, r)
		case err := <-runErr:
			return results, errors.Join(models.ErrPipelineClosed, err)
		case <-ctx.Done():
			return results, ctx.Err()
		}
	}

	return results, nil
}

// StageReporter collects stage results. Failures are remembered by message
// UUID until the message reaches the poison topic, so the original error is
// reported rather than the poison reason.
type StageReporter struct {
	results chan models.StageResult

	mu       sync.Mutex
	failures map[string]error
}

func NewStageReporter(size int) *StageReporter {
	return &StageReporter{
		results:  make(chan models.StageResult, size+1),
		failures: make(map[string]error),
	}
}

func (r *StageReporter) report(ctx context.Context, result models.StageResult) {
	select {
	case r.results <- result:
	case <-ctx.Done():
	}
}

func (r *StageReporter) recordFailure(msgUUID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[msgUUID] = err
}

func (r *StageReporter) poisoned(ctx context.Context, msg *message.Message) {
	r.mu.Lock()
	err, ok := r.failures[msg.UUID]
	delete(r.failures, msg.UUID)
	r.mu.Unlock()

	if !ok {
		err = errors.New(msg.Metadata.Get(middleware.ReasonForPoisonedKey))
	}

	r.report(ctx, models.StageResult{
		RunID: msg.Metadata.Get(RunIDKey),
		Stage: models.TaskTopic(msg.Metadata.Get(middleware.PoisonedTopicKey)),
		Err:   err,
	})
}
