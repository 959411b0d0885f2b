package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getzep/graphrag/internal"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// We're bootstrapping so avoid any imports from other packages
var log = logrus.New()

var ErrInvalidConfig = errors.New("invalid config")

// envBindings maps config keys to the unprefixed environment variables used
// by existing GraphRAG deployments. GRAPHRAG_* variables are checked first.
var envBindings = map[string][]string{
	"neo4j.uri":                    {"NEO4J_URI"},
	"neo4j.username":               {"NEO4J_USERNAME", "NEO4J_USER"},
	"neo4j.password":               {"NEO4J_PASSWORD"},
	"neo4j.database":               {"NEO4J_DATABASE"},
	"llm.openai_api_key":           {"AZURE_OPENAI_API_KEY", "OPENAI_API_KEY"},
	"llm.azure_openai_endpoint":    {"AZURE_OPENAI_ENDPOINT"},
	"llm.azure_openai_deployment":  {"AZURE_OPENAI_DEPLOYMENT"},
	"llm.azure_openai_api_version": {"AZURE_OPENAI_API_VERSION"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.service", "")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.openai_endpoint", "")
	v.SetDefault("llm.openai_org_id", "")
	v.SetDefault("llm.azure_openai_endpoint", "")
	v.SetDefault("llm.azure_openai_deployment", "")
	v.SetDefault("llm.azure_openai_api_version", "")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.request_timeout", 90*time.Second)
	v.SetDefault("llm.max_attempts", 5)

	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("neo4j.max_connection_pool_size", 50)
	v.SetDefault("neo4j.connection_timeout", 30*time.Second)
	v.SetDefault("neo4j.max_transaction_retry_time", 30*time.Second)
	v.SetDefault("neo4j.connect_max_retries", 5)
	v.SetDefault("neo4j.gds_version_constraint", ">= 2.5.0")
	v.SetDefault("neo4j.skip_plugin_check", false)

	v.SetDefault("graphrag.max_workers", 10)
	v.SetDefault("graphrag.summary_max_input_tokens", 4000)
	v.SetDefault("graphrag.community_max_input_tokens", 8000)
	v.SetDefault("graphrag.extraction_max_output_tokens", 4000)
	v.SetDefault("graphrag.summary_max_output_tokens", 500)
	v.SetDefault("graphrag.custom_prompts.extraction", "")
	v.SetDefault("graphrag.custom_prompts.summary", "")
	v.SetDefault("graphrag.custom_prompts.community_report", "")

	v.SetDefault("tasks.throttle", 50)
	v.SetDefault("tasks.max_retries", 2)
	v.SetDefault("tasks.timeout", 30*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.service_name", "graphrag")
}

// LoadConfig loads the config file and ENV variables into a Config struct.
// The config file is optional unless configFile is given explicitly.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	v.SetConfigType("yaml")

	v.SetEnvPrefix("GRAPHRAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
		log.Debug("no config.yaml found, using defaults and environment")
	}

	// Environment variables take precedence over config file
	loadDotEnv()

	for key, envs := range envBindings {
		prefixed := "GRAPHRAG_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, envs...)...); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct constraints and infers the LLM service when it is not set.
func Validate(cfg *Config) error {
	if cfg.LLM.Service == "" {
		cfg.LLM.Service = "openai"
		if cfg.LLM.AzureOpenAIEndpoint != "" {
			cfg.LLM.Service = "azure"
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if cfg.LLM.Service == "azure" && cfg.LLM.AzureOpenAIEndpoint == "" {
		return fmt.Errorf("%w: llm.azure_openai_endpoint must be set when llm.service is azure", ErrInvalidConfig)
	}
	if cfg.LLM.AzureOpenAIEndpoint != "" && cfg.LLM.OpenAIEndpoint != "" {
		return fmt.Errorf(
			"%w: only one of llm.azure_openai_endpoint or llm.openai_endpoint can be set",
			ErrInvalidConfig,
		)
	}

	return nil
}

// loadDotEnv loads environment variables from .env file
func loadDotEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Debug(".env file not found or unable to load")
	}
}

// SetLogLevel sets the log level based on the config file. Defaults to INFO if not set or invalid
func SetLogLevel(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	internal.SetLogLevel(level)
	internal.SetLogFormat(cfg.Log.Format)
	internal.GetLogger().Debug("Log level set to: ", level)
}
