package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finqa/internal/chunker"
	"finqa/internal/config"
	"finqa/internal/domain"
	"finqa/internal/embedding/openai"
	"finqa/internal/embedding/tfidf"
	"finqa/internal/fetcher"
	"finqa/internal/llm"
	"finqa/internal/logging"
	"finqa/internal/retrieval"
	"finqa/internal/service"
	"finqa/internal/tui"
	"finqa/internal/vectorstore/memory"
	"finqa/internal/web"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfgPath string
	cfg     *config.AppConfig
	log     *zap.Logger
	svc     *service.RAGService
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "finqa",
		Short:         "Ask questions about a finance news article",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTUI()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/finqa/config.yaml if not provided)")

	root.AddCommand(&cobra.Command{
		Use:   "tui",
		Short: "Interactive terminal form (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTUI()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the question form over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServer(cmd.Context())
		},
	})

	var url, question string
	ask := &cobra.Command{
		Use:   "ask",
		Short: "Answer one question and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runAsk(cmd.Context(), cmd, url, question)
		},
	}
	ask.Flags().StringVar(&url, "url", "", "article URL")
	ask.Flags().StringVar(&question, "question", "", "question about the article")
	_ = ask.MarkFlagRequired("url")
	_ = ask.MarkFlagRequired("question")
	root.AddCommand(ask)

	return root
}

// setup loads config, builds the logger and assembles the pipeline.
func (a *app) setup(console bool) error {
	var err error
	if a.cfgPath == "" {
		a.cfg, _, err = config.LoadDefault()
	} else {
		a.cfg, err = config.Load(a.cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a.log = logging.New(logging.Options{
		FilePath: a.cfg.Log.File,
		Console:  console,
		Debug:    a.cfg.Log.Debug,
	})

	apiKey, err := a.cfg.LLM.APIKey()
	if err != nil {
		a.log.Error("missing api key", zap.Error(err))
		return err
	}
	gen, err := llm.New(llm.Config{
		BaseURL:     a.cfg.LLM.BaseURL,
		APIKey:      apiKey,
		Model:       a.cfg.LLM.Model,
		Temperature: a.cfg.LLM.Temperature,
		Timeout:     time.Duration(a.cfg.LLM.TimeoutSecs) * time.Second,
		MaxRetries:  a.cfg.LLM.MaxRetries,
	}, a.log)
	if err != nil {
		return err
	}

	newEmbedder, err := embedderFactory(a.cfg.Embedder)
	if err != nil {
		return err
	}

	f := fetcher.New(fetcher.Config{
		ContentSelector: a.cfg.Fetcher.ContentSelector,
		UserAgent:       a.cfg.Fetcher.UserAgent,
		Referer:         a.cfg.Fetcher.Referer,
		Timeout:         a.cfg.Fetcher.Timeout(),
		MaxRetries:      a.cfg.Fetcher.MaxRetries,
		MinLength:       a.cfg.Fetcher.MinLength,
	}, nil, a.log)
	ch := chunker.NewCharacterChunker(a.cfg.Chunker.Size, a.cfg.Chunker.Overlap, a.log)
	idx := retrieval.NewBuilder(newEmbedder, func() domain.VectorStore { return memory.NewStorage() }, a.log)

	a.svc = service.NewRAGService(f, ch, idx, gen, service.Options{
		TopK:         a.cfg.Retrieval.TopK,
		PreviewChars: a.cfg.Retrieval.PreviewChars,
	}, a.log)
	a.log.Info("pipeline ready",
		zap.String("embedder", a.cfg.Embedder.Type),
		zap.String("model", a.cfg.LLM.Model))
	return nil
}

// embedderFactory returns a constructor for per-request embedders. The
// remote client is shared; embedder state is not.
func embedderFactory(cfg config.EmbedderConfig) (retrieval.EmbedderFactory, error) {
	switch cfg.Type {
	case "tfidf", "":
		return func() domain.Embedder { return tfidf.NewEmbedder() }, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, domain.NewError(domain.KindConfig, "openai embedder config missing", nil)
		}
		client := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		model := cfg.OpenAI.Model
		return func() domain.Embedder { return openai.NewEmbedder(client, model) }, nil
	default:
		return nil, domain.NewError(domain.KindConfig, "unknown embedder: "+cfg.Type, nil)
	}
}

func (a *app) runTUI() error {
	if err := a.setup(false); err != nil {
		return err
	}
	defer a.log.Sync() //nolint:errcheck

	if _, err := tea.NewProgram(tui.New(a.svc), tea.WithAltScreen()).Run(); err != nil {
		a.log.Error("tui exited", zap.Error(err))
		return err
	}
	return nil
}

func (a *app) runServer(ctx context.Context) error {
	if err := a.setup(true); err != nil {
		return err
	}
	defer a.log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(a.svc, a.log)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(a.cfg.Server.Addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.log.Info("shutting down")
		return srv.Shutdown()
	}
}

func (a *app) runAsk(ctx context.Context, cmd *cobra.Command, url, question string) error {
	if err := a.setup(true); err != nil {
		return err
	}
	defer a.log.Sync() //nolint:errcheck

	out := a.svc.Ask(ctx, url, question)
	if out.Err != nil {
		return out.Err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Answer:")
	fmt.Fprintln(w, out.Answer.Text)
	if out.Preview != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Article preview:")
		fmt.Fprintln(w, out.Preview)
	}
	return nil
}

