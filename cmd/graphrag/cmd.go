package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/getzep/graphrag/config"
	"github.com/getzep/graphrag/internal"
)

var (
	log *logrus.Logger

	cfgFile     string
	showVersion bool
	dumpConfig  bool

	input inputOptions
	dbs   databaseOptions
)

var cmd = &cobra.Command{
	Use:   "graphrag",
	Short: "graphrag builds a GraphRAG index of entities, relationships and communities in Neo4j",
	Long: `graphrag extracts entities and relationships from texts with an OpenAI or
Azure OpenAI model, stores them in Neo4j, summarizes them and writes reports
for the communities detected with the Leiden algorithm.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion || dumpConfig {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			handleCLIOptions(cfg)
		}
		return cmd.Help()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract, summarize and report on communities, one stage after another",
	Example: `graphrag run
graphrag run --text "Tomaz works for Neo4j" --entity-types Person,Organization
graphrag run --manifest texts.yaml --write-database neo4j --all-levels`,
	RunE: func(cmd *cobra.Command, args []string) error { return withApp(cmd, runPipeline) },
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract entities and relationships from texts and import them",
	RunE:  func(cmd *cobra.Command, args []string) error { return withApp(cmd, runExtract) },
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize the descriptions of entities and relationships",
	RunE:  func(cmd *cobra.Command, args []string) error { return withApp(cmd, runSummarize) },
}

var communitiesCmd = &cobra.Command{
	Use:   "communities",
	Short: "Detect communities and generate community reports",
	RunE:  func(cmd *cobra.Command, args []string) error { return withApp(cmd, runCommunities) },
}

var dumpJsonSchemaCmd = &cobra.Command{
	Use:     "json-schema",
	Short:   "Generates JSON Schema for graphrag's configuration file",
	Example: "graphrag json-schema > graphrag_config_schema.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := config.JSONSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(schema))
		return nil
	},
}

func init() {
	cmd.AddCommand(runCmd, extractCmd, summarizeCmd, communitiesCmd, dumpJsonSchemaCmd)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default config.yaml)")
	cmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "print version number")
	cmd.PersistentFlags().BoolVarP(&dumpConfig, "dump-config", "d", false, "dump config")

	for _, c := range []*cobra.Command{runCmd, extractCmd} {
		c.Flags().StringVarP(&input.manifest, "manifest", "m", "", "YAML manifest with texts and entity types")
		c.Flags().StringArrayVarP(&input.texts, "text", "t", nil, "text to index (repeatable)")
		c.Flags().StringArrayVarP(&input.files, "file", "f", nil, "text file, one text per paragraph (repeatable)")
		c.Flags().StringSliceVarP(&input.entityTypes, "entity-types", "e", nil, "allowed entity types")
	}

	for _, c := range []*cobra.Command{runCmd, extractCmd, summarizeCmd, communitiesCmd} {
		c.Flags().StringVar(&dbs.write, "write-database", "", "database to write to (default neo4j.database)")
	}
	for _, c := range []*cobra.Command{runCmd, summarizeCmd, communitiesCmd} {
		c.Flags().StringVar(&dbs.read, "read-database", "", "database to read from (default neo4j.database)")
	}
	for _, c := range []*cobra.Command{runCmd, communitiesCmd} {
		c.Flags().BoolVar(&dbs.allLevels, "all-levels", false, "report on every community level, not only level 0")
	}
}

// Execute executes the root cobra command.
func Execute() {
	log = internal.GetLogger()
	log.SetLevel(logrus.InfoLevel)

	err := cmd.Execute()

	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
