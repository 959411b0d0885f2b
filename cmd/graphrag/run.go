package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/getzep/graphrag/config"
	"github.com/getzep/graphrag/pkg/documents"
	"github.com/getzep/graphrag/pkg/graphrag"
	"github.com/getzep/graphrag/pkg/llms"
	"github.com/getzep/graphrag/pkg/models"
	"github.com/getzep/graphrag/pkg/observability"
	"github.com/getzep/graphrag/pkg/store/neo4j"
	"github.com/getzep/graphrag/pkg/tasks"
)

type inputOptions struct {
	manifest    string
	texts       []string
	files       []string
	entityTypes []string
}

type databaseOptions struct {
	read      string
	write     string
	allLevels bool
}

func (d databaseOptions) clientOptions() []graphrag.Option {
	opts := []graphrag.Option{
		graphrag.WithReadDatabase(d.read),
		graphrag.WithWriteDatabase(d.write),
	}
	if d.allLevels {
		opts = append(opts, graphrag.WithAllLevels())
	}
	return opts
}

type appFunc func(ctx context.Context, appState *models.AppState, client *graphrag.Client) error

// withApp loads config, connects to Neo4j and the LLM, and runs fn with a
// client. The client, and with it the driver, is closed on every return
// path. SIGINT and SIGTERM cancel ctx.
func withApp(c *cobra.Command, fn appFunc) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	handleCLIOptions(cfg)

	ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, &cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			log.Errorf("Error shutting down tracing: %v", err)
		}
	}()

	log.Infof("Starting graphrag version %s", config.VersionString)

	appState, err := NewAppState(ctx, cfg)
	if err != nil {
		return err
	}

	client, err := graphrag.NewClient(ctx, appState, dbs.clientOptions()...)
	if err != nil {
		closeStore(context.WithoutCancel(ctx), appState.GraphStore)
		return err
	}
	defer closeStore(context.WithoutCancel(ctx), client)

	return fn(ctx, appState, client)
}

type closer interface {
	Close(ctx context.Context) error
}

func closeStore(ctx context.Context, c closer) {
	if err := c.Close(ctx); err != nil {
		log.Errorf("Error closing Neo4j connection: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error configuring graphrag: %w", err)
	}
	config.SetLogLevel(cfg)
	return cfg, nil
}

// NewAppState creates an AppState from the config file / ENV, connecting to
// Neo4j and creating the LLM client.
func NewAppState(ctx context.Context, cfg *config.Config) (*models.AppState, error) {
	llmClient, err := llms.NewLLMClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	graphStore, err := neo4j.NewGraphStore(ctx, &cfg.Neo4j)
	if err != nil {
		return nil, err
	}

	log.Infof("Connected to Neo4j at %s", cfg.Neo4j.URI)

	return &models.AppState{
		LLMClient:  llmClient,
		GraphStore: graphStore,
		Config:     cfg,
	}, nil
}

// handleCLIOptions handles CLI options that don't require Neo4j or the LLM
func handleCLIOptions(cfg *config.Config) {
	if showVersion {
		fmt.Println(config.VersionString)
		os.Exit(0)
	}
	if dumpConfig {
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			log.Fatalf("Error dumping config: %v", err)
		}
		fmt.Println(string(b))
		os.Exit(0)
	}
}

// resolveInput combines the manifest, texts and files. With no texts at all
// the built-in example is used, along with its entity types unless others
// were given.
func resolveInput(in inputOptions) (*documents.Manifest, error) {
	m := &documents.Manifest{}
	if in.manifest != "" {
		var err error
		m, err = documents.LoadManifest(in.manifest)
		if err != nil {
			return nil, err
		}
	}

	m.Texts = append(m.Texts, in.texts...)

	if len(in.files) > 0 {
		texts, err := documents.LoadTextFiles(in.files)
		if err != nil {
			return nil, err
		}
		m.Texts = append(m.Texts, texts...)
	}

	if len(in.entityTypes) > 0 {
		m.EntityTypes = in.entityTypes
	}

	if len(m.Texts) == 0 && in.manifest == "" && len(in.files) == 0 {
		example := documents.Example()
		log.Info("No texts given, indexing the built-in example")
		m.Texts = example.Texts
		if len(m.EntityTypes) == 0 {
			m.EntityTypes = example.EntityTypes
		}
	}

	return m, nil
}

func runPipeline(ctx context.Context, appState *models.AppState, client *graphrag.Client) error {
	m, err := resolveInput(input)
	if err != nil {
		return err
	}

	results, err := tasks.RunPipeline(ctx, appState, client, models.PipelineRequest{
		Texts:         m.Texts,
		EntityTypes:   m.EntityTypes,
		ReadDatabase:  dbs.read,
		WriteDatabase: dbs.write,
		AllLevels:     dbs.allLevels,
	})
	for _, r := range results {
		fmt.Printf("%s: %s\n", r.Stage, r.Result)
	}
	return err
}

func runExtract(ctx context.Context, _ *models.AppState, client *graphrag.Client) error {
	m, err := resolveInput(input)
	if err != nil {
		return err
	}

	result, err := client.ExtractNodesAndRels(ctx, m.Texts, m.EntityTypes)
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}

func runSummarize(ctx context.Context, _ *models.AppState, client *graphrag.Client) error {
	result, err := client.SummarizeNodesAndRels(ctx)
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}

func runCommunities(ctx context.Context, _ *models.AppState, client *graphrag.Client) error {
	result, err := client.SummarizeCommunities(ctx)
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}
