package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/getzep/graphrag/internal"
	"github.com/getzep/graphrag/pkg/graphrag"
	"github.com/getzep/graphrag/pkg/models"
)

// RunIDKey is the message metadata key carrying the pipeline run ID.
const RunIDKey = "run_id"

var log = internal.GetLogger()

type BaseTask struct {
	appState *models.AppState
	reporter *StageReporter
}

func (b *BaseTask) HandleError(err error) {
	log.Errorf("Task HandleError error: %s", err)
}

// stageFunc runs one client operation for a request.
type stageFunc func(ctx context.Context, req *models.PipelineRequest) (fmt.Stringer, error)

// StageTask runs one pipeline stage, reports its result and hands the
// request on to the next stage.
type StageTask struct {
	BaseTask
	stage models.TaskTopic
	next  models.TaskTopic
	run   stageFunc
}

func NewExtractTask(appState *models.AppState, client *graphrag.Client, reporter *StageReporter) *StageTask {
	return &StageTask{
		BaseTask: BaseTask{appState: appState, reporter: reporter},
		stage:    models.GraphExtractTopic,
		next:     models.GraphSummarizeTopic,
		run: func(ctx context.Context, req *models.PipelineRequest) (fmt.Stringer, error) {
			return client.ExtractNodesAndRels(ctx, req.Texts, req.EntityTypes, requestOptions(req)...)
		},
	}
}

func NewSummarizeTask(appState *models.AppState, client *graphrag.Client, reporter *StageReporter) *StageTask {
	return &StageTask{
		BaseTask: BaseTask{appState: appState, reporter: reporter},
		stage:    models.GraphSummarizeTopic,
		next:     models.GraphCommunitiesTopic,
		run: func(ctx context.Context, req *models.PipelineRequest) (fmt.Stringer, error) {
			return client.SummarizeNodesAndRels(ctx, requestOptions(req)...)
		},
	}
}

func NewCommunitiesTask(appState *models.AppState, client *graphrag.Client, reporter *StageReporter) *StageTask {
	return &StageTask{
		BaseTask: BaseTask{appState: appState, reporter: reporter},
		stage:    models.GraphCommunitiesTopic,
		run: func(ctx context.Context, req *models.PipelineRequest) (fmt.Stringer, error) {
			return client.SummarizeCommunities(ctx, requestOptions(req)...)
		},
	}
}

func (st *StageTask) Execute(ctx context.Context, msg *message.Message) error {
	var req models.PipelineRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		err = fmt.Errorf("failed to unmarshal %s payload: %w", st.stage, err)
		st.reporter.recordFailure(msg.UUID, err)
		return err
	}

	log.Infof("running %s for run %s", st.stage, req.RunID)

	result, err := st.run(ctx, &req)
	if err != nil {
		err = fmt.Errorf("%s failed: %w", st.stage, err)
		st.reporter.recordFailure(msg.UUID, err)
		return err
	}

	// Report before publishing so results arrive in stage order.
	st.reporter.report(ctx, models.StageResult{
		RunID:  req.RunID,
		Stage:  st.stage,
		Result: result.String(),
	})

	if st.next == "" {
		return nil
	}
	return st.appState.TaskPublisher.Publish(st.next, msg.Metadata, req)
}

// Initialize adds the three pipeline stages and the poison handler to router.
func Initialize(
	ctx context.Context,
	appState *models.AppState,
	router *TaskRouter,
	client *graphrag.Client,
	reporter *StageReporter,
) {
	log.Info("Initializing tasks")

	addTask := func(ctx context.Context, name string, taskType models.TaskTopic, task models.Task) {
		router.AddTask(ctx, name, taskType, task)
		log.Debugf("%s task added to task router", name)
	}

	addTask(ctx, string(models.GraphExtractTopic), models.GraphExtractTopic,
		NewExtractTask(appState, client, reporter))
	addTask(ctx, string(models.GraphSummarizeTopic), models.GraphSummarizeTopic,
		NewSummarizeTask(appState, client, reporter))
	addTask(ctx, string(models.GraphCommunitiesTopic), models.GraphCommunitiesTopic,
		NewCommunitiesTask(appState, client, reporter))

	router.AddNoPublisherHandler(PoisonTopic, PoisonTopic, router.pubsub, func(msg *message.Message) error {
		reporter.poisoned(ctx, msg)
		return nil
	})
}

func requestOptions(req *models.PipelineRequest) []graphrag.Option {
	opts := []graphrag.Option{
		graphrag.WithReadDatabase(req.ReadDatabase),
		graphrag.WithWriteDatabase(req.WriteDatabase),
	}
	if req.AllLevels {
		opts = append(opts, graphrag.WithAllLevels())
	}
	return opts
}
