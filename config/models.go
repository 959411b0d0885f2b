package config

import "time"

// Config holds the configuration of the application
// Use config.LoadConfig to create a new instance
type Config struct {
	LLM       LLM             `mapstructure:"llm"       json:"llm"`
	Neo4j     Neo4jConfig     `mapstructure:"neo4j"     json:"neo4j"`
	GraphRAG  GraphRAGConfig  `mapstructure:"graphrag"  json:"graphrag"`
	Tasks     TasksConfig     `mapstructure:"tasks"     json:"tasks"`
	Log       LogConfig       `mapstructure:"log"       json:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry"`
}

type LLM struct {
	// Service is one of "openai" or "azure". Left empty, it is inferred from
	// AzureOpenAIEndpoint.
	Service string `mapstructure:"service" json:"service" validate:"omitempty,oneof=openai azure"`
	Model   string `mapstructure:"model"   json:"model"`
	// OpenAIAPIKey is loaded from ENV not config file. It is used for both
	// OpenAI and Azure OpenAI.
	OpenAIAPIKey   string `mapstructure:"openai_api_key"  json:"-"               validate:"required"`
	OpenAIEndpoint string `mapstructure:"openai_endpoint" json:"openai_endpoint"`
	OpenAIOrgID    string `mapstructure:"openai_org_id"   json:"openai_org_id"`

	AzureOpenAIEndpoint   string `mapstructure:"azure_openai_endpoint"    json:"azure_openai_endpoint"    validate:"omitempty,url"`
	AzureOpenAIDeployment string `mapstructure:"azure_openai_deployment"  json:"azure_openai_deployment"  validate:"required_with=AzureOpenAIEndpoint"`
	AzureOpenAIAPIVersion string `mapstructure:"azure_openai_api_version" json:"azure_openai_api_version" validate:"required_with=AzureOpenAIEndpoint"`

	Temperature    float64       `mapstructure:"temperature"     json:"temperature"     validate:"gte=0,lte=2"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"    json:"max_attempts"    validate:"gte=1"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"      json:"uri"      validate:"required"`
	Username string `mapstructure:"username" json:"username" validate:"required"`
	Password string `mapstructure:"password" json:"-"`
	// Database is used when an operation is not given an explicit read or
	// write database.
	Database                string        `mapstructure:"database"                   json:"database"`
	MaxConnectionPoolSize   int           `mapstructure:"max_connection_pool_size"   json:"max_connection_pool_size"`
	ConnectionTimeout       time.Duration `mapstructure:"connection_timeout"         json:"connection_timeout"`
	MaxTransactionRetryTime time.Duration `mapstructure:"max_transaction_retry_time" json:"max_transaction_retry_time"`
	ConnectMaxRetries       int           `mapstructure:"connect_max_retries"        json:"connect_max_retries"`
	// GDSVersionConstraint is a semver constraint the installed Graph Data
	// Science plugin must satisfy.
	GDSVersionConstraint string `mapstructure:"gds_version_constraint" json:"gds_version_constraint"`
	// SkipPluginCheck disables the APOC / GDS check performed at startup.
	SkipPluginCheck bool `mapstructure:"skip_plugin_check" json:"skip_plugin_check"`
}

type GraphRAGConfig struct {
	// MaxWorkers bounds the number of concurrent LLM calls.
	MaxWorkers int `mapstructure:"max_workers" json:"max_workers" validate:"gte=1"`
	// SummaryMaxInputTokens caps the description text sent to one summary call.
	SummaryMaxInputTokens int `mapstructure:"summary_max_input_tokens" json:"summary_max_input_tokens" validate:"gte=100"`
	// CommunityMaxInputTokens caps the community context sent to one report call.
	CommunityMaxInputTokens int `mapstructure:"community_max_input_tokens" json:"community_max_input_tokens" validate:"gte=100"`
	// ExtractionMaxOutputTokens caps the LLM output for graph extraction.
	ExtractionMaxOutputTokens int                 `mapstructure:"extraction_max_output_tokens" json:"extraction_max_output_tokens"`
	SummaryMaxOutputTokens    int                 `mapstructure:"summary_max_output_tokens"    json:"summary_max_output_tokens"`
	CustomPrompts             CustomPromptsConfig `mapstructure:"custom_prompts"               json:"custom_prompts"`
}

type CustomPromptsConfig struct {
	Extraction      string `mapstructure:"extraction"       json:"extraction"`
	Summary         string `mapstructure:"summary"          json:"summary"`
	CommunityReport string `mapstructure:"community_report" json:"community_report"`
}

type TasksConfig struct {
	// Throttle is the number of task messages processed per second.
	Throttle   int64         `mapstructure:"throttle"    json:"throttle"    validate:"gte=1"`
	MaxRetries int           `mapstructure:"max_retries" json:"max_retries" validate:"gte=0"`
	Timeout    time.Duration `mapstructure:"timeout"     json:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"  json:"level"`
	Format string `mapstructure:"format" json:"format" validate:"omitempty,oneof=text json"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"      json:"enabled"`
	Endpoint    string `mapstructure:"endpoint"     json:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"     json:"insecure"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// DatabaseOr returns db if set, otherwise the configured default database.
func (c Neo4jConfig) DatabaseOr(db string) string {
	if db != "" {
		return db
	}
	return c.Database
}
