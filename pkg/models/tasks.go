package models

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

type TaskTopic string

const (
	GraphExtractTopic     TaskTopic = "graph_extract"
	GraphSummarizeTopic   TaskTopic = "graph_summarize"
	GraphCommunitiesTopic TaskTopic = "graph_communities"
)

type Task interface {
	Execute(ctx context.Context, event *message.Message) error
	HandleError(err error)
}

type TaskRouter interface {
	Run(ctx context.Context) error
	AddTask(ctx context.Context, name string, taskType TaskTopic, task Task)
	IsRunning() bool
	Close() error
}

type TaskPublisher interface {
	Publish(taskType TaskTopic, metadata map[string]string, payload any) error
	Close() error
}

// PipelineRequest is the payload carried from stage to stage. Each stage
// reads the fields it needs.
type PipelineRequest struct {
	RunID         string   `json:"run_id"`
	Texts         []string `json:"texts"`
	EntityTypes   []string `json:"entity_types"`
	ReadDatabase  string   `json:"read_database,omitempty"`
	WriteDatabase string   `json:"write_database,omitempty"`
	AllLevels     bool     `json:"all_levels,omitempty"`
}

// StageResult reports the outcome of one pipeline stage.
type StageResult struct {
	RunID  string    `json:"run_id"`
	Stage  TaskTopic `json:"stage"`
	Result string    `json:"result"`
	Err    error     `json:"-"`
}
