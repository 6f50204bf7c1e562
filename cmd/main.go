package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storygen/internal/config"
	"storygen/internal/domain"
	"storygen/internal/integrations/ollama"
	"storygen/internal/integrations/paramstore"
	"storygen/internal/logger"
	"storygen/internal/render"
	"storygen/internal/repository"
	"storygen/internal/storage"
	"storygen/internal/usecase"
)

var (
	// loaderOptions lets tests keep the loader away from the real .env and home directory.
	loaderOptions []config.Option

	loadAWSConfig = func(ctx context.Context) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	}
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle(os.Stderr).Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "storygen",
		Short: "Generate an enriched agile user story with a local LLM",
		Long: `storygen turns a role, a feature and a benefit into a complete user story
with technical notes and acceptance criteria, using a model served by Ollama.

Missing --role, --feature or --benefit values are asked for interactively.

Example:
  storygen --role "an administrator" --feature "to export reports" \
           --benefit "share them with finance" --output json --save`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runGenerate,
	}

	pf := root.PersistentFlags()
	pf.String("output", string(render.FormatMarkdown), "output format: console, markdown or json")
	pf.Bool("pretty", false, "render markdown output for the terminal")
	pf.String("config", "", "config file (default ./storygen.yaml or ~/.config/storygen/storygen.yaml)")
	pf.String("log-level", "warn", "log level: debug, info, warn or error")
	pf.String("log-format", "console", "log format: console or json")
	pf.String("param-prefix", "", "SSM parameter path holding shared defaults")
	pf.String("archive-table", "", "DynamoDB table to archive generated stories in")

	f := root.Flags()
	f.String("role", "", "who the user is (As...)")
	f.String("feature", "", "what the user wants to do (I want...)")
	f.String("benefit", "", "why the user wants it (to...)")
	f.Bool("save", false, "also save the result to a file")
	f.String("outdir", storage.DefaultDir, "directory for saved stories")
	f.String("ollama-url", ollama.DefaultURL, "Ollama generate endpoint")
	f.String("model", usecase.DefaultModel, "Ollama model to use")
	f.Duration("timeout", ollama.DefaultTimeout, "maximum time to wait for the model")

	root.AddCommand(newShowCmd())
	return root
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [story-id]",
		Short: "Print a story from the DynamoDB archive",
		Long: `Loads a previously generated story from the table given by --archive-table
and prints it in the selected --output format.

Example:
  storygen show 3f2c0f1e-7a8b-4c55-9d3e-1b2a3c4d5e6f --archive-table stories`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runShow,
	}
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, log, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ask := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
	role, err := ask.value(cfg.Role, "Who is the user? (As...)")
	if err != nil {
		return err
	}
	feature, err := ask.value(cfg.Feature, "What do they want to do? (I want...)")
	if err != nil {
		return err
	}
	benefit, err := ask.value(cfg.Benefit, "What is it for? (To...)")
	if err != nil {
		return err
	}
	req, err := domain.NewStoryRequest(role, feature, benefit)
	if err != nil {
		return err
	}

	client, err := ollama.NewClient(
		ollama.WithURL(cfg.OllamaURL),
		ollama.WithTimeout(cfg.Timeout),
		ollama.WithLogger(log),
	)
	if err != nil {
		return err
	}
	writer, err := storage.NewFileWriter(cfg.OutDir)
	if err != nil {
		return err
	}

	var archiver usecase.StoryArchiver
	if cfg.ArchiveTable != "" {
		repo, err := newArchive(ctx, cfg.ArchiveTable)
		if err != nil {
			return err
		}
		archiver = repo
	}

	svc, err := usecase.NewStoryService(client, writer, archiver, cfg.Model, log)
	if err != nil {
		return err
	}

	log.Debug("generating story", zap.String("url", client.URL()), zap.Duration("timeout", cfg.Timeout))
	out, runErr := svc.Run(ctx, usecase.RunInput{Request: req, Format: cfg.Format(), Save: cfg.Save})

	ui := newUI(cmd.OutOrStdout())
	if out.Outcome.Malformed() && runErr == nil {
		ui.malformed(out.Outcome.Raw)
		return nil
	}
	if out.Rendered != "" {
		ui.story(out.Rendered, cfg.Format(), cfg.Pretty)
	}
	if runErr != nil {
		if usecase.IsTimeout(runErr) {
			return fmt.Errorf("model endpoint %s did not answer within %s: %w", client.URL(), cfg.Timeout, runErr)
		}
		return runErr
	}
	if out.SavedPath != "" {
		ui.saved(out.SavedPath)
	}
	if out.ArchiveID != "" {
		ui.archived(out.ArchiveID)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, log, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.ArchiveTable == "" {
		return errors.New("show: --archive-table (or STORYGEN_ARCHIVE_TABLE) is required")
	}
	repo, err := newArchive(ctx, cfg.ArchiveTable)
	if err != nil {
		return err
	}
	story, err := repo.GetStory(ctx, args[0])
	if err != nil {
		return err
	}
	log.Debug("loaded archived story", zap.String("id", story.ID), zap.String("model", story.Model))

	rendered, err := render.Render(cfg.Format(), story.Result)
	if err != nil {
		return err
	}
	newUI(cmd.OutOrStdout()).story(rendered, cfg.Format(), cfg.Pretty)
	return nil
}

// setup resolves configuration (including SSM shared defaults) and builds the logger.
func setup(ctx context.Context, cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	loader, err := config.NewLoader(cmd.Flags(), loaderOptions...)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	if used := loader.ConfigFileUsed(); used != "" {
		log.Debug("config file loaded", zap.String("path", used))
	}

	if cfg.ParamPrefix != "" {
		defaults, err := loadSharedDefaults(ctx, cfg.ParamPrefix)
		if err != nil {
			return nil, nil, err
		}
		if ignored := loader.ApplyRemoteDefaults(defaults); len(ignored) > 0 {
			log.Info("ignoring unknown shared defaults", zap.Strings("names", ignored))
		}
		if cfg, err = loader.Load(); err != nil {
			return nil, nil, err
		}
		log.Debug("shared defaults applied", zap.String("prefix", cfg.ParamPrefix), zap.Int("count", len(defaults)))
	}
	return cfg, log, nil
}

func loadSharedDefaults(ctx context.Context, prefix string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	awsCfg, err := loadAWSConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	ps, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, err
	}
	return ps.LoadDefaults(ctx, prefix)
}

func newArchive(ctx context.Context, table string) (*repository.Client, error) {
	awsCfg, err := loadAWSConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return repository.New(awsdynamodb.NewFromConfig(awsCfg), table)
}
