package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notewise/textengine/cache"
	"github.com/notewise/textengine/concept"
	enginerrors "github.com/notewise/textengine/internal/errors"
	"github.com/notewise/textengine/internal/observability"
	"github.com/notewise/textengine/internal/profile"
	"github.com/notewise/textengine/vector"
	"github.com/notewise/textengine/worker"
)

const version = "0.1.0"

var (
	engineProfile = &profile.Profile{}

	rootCmd = &cobra.Command{
		Use:   "textengine",
		Short: "Background text analysis engine: summaries, concepts and flashcards",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			engineProfile.Mode = viper.GetString("mode")
			engineProfile.Data = viper.GetString("data")
			engineProfile.CacheDSN = viper.GetString("cache-dsn")
			engineProfile.CacheCapacity = viper.GetInt("cache-capacity")
			engineProfile.CacheTTL = viper.GetDuration("cache-ttl")
			engineProfile.EmbeddingEnabled = viper.GetBool("embedding-enabled")
			engineProfile.EmbeddingAPIKey = viper.GetString("embedding-api-key")
			engineProfile.EmbeddingBaseURL = viper.GetString("embedding-base-url")
			engineProfile.EmbeddingModel = viper.GetString("embedding-model")
			engineProfile.EmbeddingDims = viper.GetInt("embedding-dimensions")
			engineProfile.QueueSize = viper.GetInt("queue-size")
			engineProfile.Version = version
			return engineProfile.Validate()
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the engine as a long-lived worker speaking JSON lines on stdin/stdout",
		RunE:  runEngine,
	}

	summarizeCmd = &cobra.Command{
		Use:   "summarize [file]",
		Short: "Summarize a text file (or stdin) and print the summary",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSummarize,
	}

	cardsCmd = &cobra.Command{
		Use:   "cards [file]",
		Short: "Generate flashcards from a text file (or stdin) and print them as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCards,
	}

	algorithmFlag  string
	maxLengthFlag  int
	maxCardsFlag   int
	cacheKeyFlag   string
	focusFlag      []string
	difficultyFlag string
	tagsFlag       []string
)

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `mode of the engine, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("data", "", "data directory for the persistent result cache")
	rootCmd.PersistentFlags().String("cache-dsn", "", "sqlite file backing the result cache, overrides --data")
	rootCmd.PersistentFlags().Int("cache-capacity", 0, "max in-memory cache entries")
	rootCmd.PersistentFlags().Duration("cache-ttl", 0, "how long cached results stay valid")
	rootCmd.PersistentFlags().Bool("embedding-enabled", false, "enable the remote embedding backend")
	rootCmd.PersistentFlags().String("embedding-api-key", "", "API key for the embedding backend")
	rootCmd.PersistentFlags().String("embedding-base-url", "https://api.openai.com/v1", "base URL of the embedding backend")
	rootCmd.PersistentFlags().String("embedding-model", "text-embedding-3-small", "embedding model name")
	rootCmd.PersistentFlags().Int("embedding-dimensions", 384, "embedding vector dimension")
	rootCmd.PersistentFlags().Int("queue-size", 8, "max pending tasks before submissions are rejected")

	for _, flag := range []string{
		"mode", "data", "cache-dsn", "cache-capacity", "cache-ttl",
		"embedding-enabled", "embedding-api-key", "embedding-base-url",
		"embedding-model", "embedding-dimensions", "queue-size",
	} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("textengine")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	summarizeCmd.Flags().StringVar(&algorithmFlag, "algorithm", "tfidf", "ranking algorithm: bert, tfidf, lead-first or nlp")
	summarizeCmd.Flags().IntVar(&maxLengthFlag, "max-length", worker.DefaultMaxLength, "summary character budget")
	summarizeCmd.Flags().StringVar(&cacheKeyFlag, "cache-key", "", "result cache key, empty disables caching")

	cardsCmd.Flags().StringVar(&algorithmFlag, "algorithm", "tfidf", "ranking algorithm: bert, tfidf, lead-first or nlp")
	cardsCmd.Flags().IntVar(&maxCardsFlag, "max-cards", worker.DefaultMaxCards, "max cards per deck")
	cardsCmd.Flags().StringSliceVar(&focusFlag, "focus", nil, "restrict cards to concepts matching these topics")
	cardsCmd.Flags().StringVar(&difficultyFlag, "difficulty", "", "force a fixed difficulty: easy, medium or hard")
	cardsCmd.Flags().StringSliceVar(&tagsFlag, "tags", nil, "tags attached to every generated card")

	rootCmd.AddCommand(runCmd, summarizeCmd, cardsCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildEngine assembles the worker with its injected services from the
// profile. The returned close function releases the cache store.
func buildEngine(logger *slog.Logger) (*worker.Worker, func(), error) {
	var store cache.Store
	if engineProfile.CacheDSN != "" {
		s, err := cache.OpenSQLiteStore(engineProfile.CacheDSN)
		if err != nil {
			return nil, nil, err
		}
		store = s
	}
	cacheSvc := cache.NewService(cache.ServiceConfig{
		Capacity: engineProfile.CacheCapacity,
		TTL:      engineProfile.CacheTTL,
	}, store)

	var embedder vector.EmbeddingService
	model := "tfidf-local"
	if engineProfile.IsEmbeddingEnabled() {
		provider := vector.NewProvider(vector.ProviderConfig{
			BaseURL:    engineProfile.EmbeddingBaseURL,
			APIKey:     engineProfile.EmbeddingAPIKey,
			Model:      engineProfile.EmbeddingModel,
			Dimensions: engineProfile.EmbeddingDims,
		})
		embedder = provider
		model = provider.Model()
	}
	vecSvc := vector.NewService(embedder, model)

	w := worker.New(vecSvc, cacheSvc, concept.HeuristicProvider{}, logger,
		worker.Config{QueueSize: engineProfile.QueueSize})
	return w, func() { cacheSvc.Close() }, nil
}

// runEngine is the long-lived mode: JSON request envelopes in on stdin, one
// event envelope per line out on stdout, logs on stderr.
func runEngine(_ *cobra.Command, _ []string) error {
	logger := observability.NewLogger(os.Stderr, engineProfile.IsDev())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, closeEngine, err := buildEngine(logger)
	if err != nil {
		return err
	}
	defer closeEngine()

	go w.Run(ctx)

	var outMu sync.Mutex
	writeLine := func(line []byte) {
		outMu.Lock()
		defer outMu.Unlock()
		os.Stdout.Write(append(line, '\n'))
	}

	var writerWg sync.WaitGroup
	writerWg.Add(1)
	go func() {
		defer writerWg.Done()
		for ev := range w.Events() {
			line, err := worker.EncodeEvent(ev)
			if err != nil {
				logger.Error("event encoding failed", "error", err)
				continue
			}
			writeLine(line)
		}
	}()

	logger.Info("engine started",
		"version", engineProfile.Version,
		"mode", engineProfile.Mode,
		"embedding_enabled", engineProfile.IsEmbeddingEnabled(),
		"cache_dsn", engineProfile.CacheDSN)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		req, err := worker.DecodeRequest(line)
		if err != nil {
			logger.Warn("request rejected", "error", err)
			continue
		}
		if err := w.Submit(req); err != nil {
			// Reflect the rejection back on the event stream so the host
			// can retry.
			rejection, encErr := worker.EncodeEvent(worker.ErrorEvent{
				TaskID: requestTaskID(req),
				Err:    err.Error(),
				Code:   string(enginerrors.CodeOf(err)),
			})
			if encErr == nil {
				writeLine(rejection)
			}
			logger.Warn("queue full, request rejected", "task_id", requestTaskID(req))
		}
	}

	stop()
	writerWg.Wait()
	return scanner.Err()
}

func requestTaskID(req worker.Request) string {
	switch r := req.(type) {
	case worker.SummarizeRequest:
		return r.Task.ID
	case worker.GenerateRequest:
		return r.Task.ID
	case worker.CancelRequest:
		return r.TaskID
	default:
		return ""
	}
}

func runSummarize(_ *cobra.Command, args []string) error {
	logger := observability.NewLogger(os.Stderr, engineProfile.IsDev())
	slog.SetDefault(logger)

	content, err := readInput(args)
	if err != nil {
		return err
	}

	tc := observability.NewTaskContext(logger, algorithmFlag)
	task := worker.SummarizeTask{
		ID:        tc.TaskID,
		Content:   content,
		Algorithm: worker.Algorithm(algorithmFlag),
		MaxLength: maxLengthFlag,
		CacheKey:  cacheKeyFlag,
	}

	return runOnce(tc, worker.SummarizeRequest{Task: task}, func(ev worker.CompleteEvent) error {
		fmt.Println(ev.Summary)
		return nil
	})
}

func runCards(_ *cobra.Command, args []string) error {
	logger := observability.NewLogger(os.Stderr, engineProfile.IsDev())
	slog.SetDefault(logger)

	content, err := readInput(args)
	if err != nil {
		return err
	}

	tc := observability.NewTaskContext(logger, algorithmFlag)
	task := worker.GenerateTask{
		ID:          tc.TaskID,
		Content:     content,
		Algorithm:   worker.Algorithm(algorithmFlag),
		MaxCards:    maxCardsFlag,
		FocusTopics: focusFlag,
		Difficulty:  difficultyFlag,
		Tags:        tagsFlag,
	}

	return runOnce(tc, worker.GenerateRequest{Task: task}, func(ev worker.CompleteEvent) error {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ev.Cards)
	})
}

// runOnce drives a single task to completion and hands the terminal result
// to emit.
func runOnce(tc *observability.TaskContext, req worker.Request, emit func(worker.CompleteEvent) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, closeEngine, err := buildEngine(tc.Logger)
	if err != nil {
		return err
	}
	defer closeEngine()

	go w.Run(ctx)

	if err := w.Submit(req); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events():
			if !ok {
				return errors.New("event stream closed before the task finished")
			}
			switch e := ev.(type) {
			case worker.ProgressEvent:
				tc.Debug("progress",
					slog.Int("progress", e.Progress),
					slog.String(observability.LogFieldStage, string(e.Stage)))
			case worker.CompleteEvent:
				if e.TaskID == tc.TaskID {
					return emit(e)
				}
			case worker.ErrorEvent:
				if e.TaskID == tc.TaskID {
					if e.Cancelled {
						return errors.New("task cancelled")
					}
					return errors.New(e.Err)
				}
			}
		}
	}
}

// readInput returns the content of the named file, or stdin when no file
// (or "-") is given.
func readInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", errors.Wrap(err, "read stdin")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", errors.Wrap(err, "read input file")
	}
	return string(data), nil
}
