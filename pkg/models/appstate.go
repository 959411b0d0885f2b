package models

import (
	"github.com/getzep/graphrag/config"
)

// AppState is a struct that holds the state of the application
// Use cmd.NewAppState to create a new instance
type AppState struct {
	LLMClient     LLM
	GraphStore    GraphStore
	TaskRouter    TaskRouter
	TaskPublisher TaskPublisher
	Config        *config.Config
}
