// Command dockb ingests PDF documents from a source directory: text
// extraction, embedded-image OCR, per-file JSON summaries, and an SQLite
// run ledger. Service surfaces (HTTP, MCP) expose the same pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"

	"github.com/dockb/dockb/config"
	"github.com/dockb/dockb/filescan"
	"github.com/dockb/dockb/ingest"
	"github.com/dockb/dockb/ocr"
	"github.com/dockb/dockb/pdfextract"
	"github.com/dockb/dockb/vecstore"
)

const version = "0.3.0"

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("missing command")
	}

	cmd, rest := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to configuration file")
	yes := fs.Bool("yes", false, "skip the confirmation prompt (ingest only)")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}

	switch cmd {
	case "list":
		return cmdList(cfg, logger)
	case "ingest":
		return cmdIngest(cfg, logger, *yes)
	case "serve":
		return cmdServe(cfg, logger)
	case "mcp":
		return cmdMCP(cfg, logger)
	case "config":
		return cmdConfig(cfg)
	case "version":
		fmt.Println("dockb", version)
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: dockb <command> [flags]

Commands:
  list      show candidate files in the source directory
  ingest    run the extraction pipeline over the source directory
  serve     expose the pipeline over HTTP
  mcp       expose extraction tools over MCP stdio
  config    print the effective configuration
  version   print the version

Flags:
  -config path   configuration file (default config.yaml)
  -yes           skip the confirmation prompt (ingest)`)
}

// loadConfig reads the YAML config, falling back to defaults when the
// default file is absent. An explicitly named file must exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && path == "config.yaml" {
		return config.DefaultConfig(), nil
	}
	return nil, fmt.Errorf("load config: %w", err)
}

// setupLogging writes structured logs to stderr and, when the log dir is
// writable, to a JSON file alongside.
func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	level := cfg.SlogLevel()

	handler := slog.Handler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if cfg.Paths.Logs != "" {
		if err := os.MkdirAll(cfg.Paths.Logs, 0755); err == nil {
			name := filepath.Join(cfg.Paths.Logs,
				"dockb_"+time.Now().UTC().Format("20060102")+".log")
			if f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
				handler = newTeeHandler(handler,
					slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
			}
		}
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

func newExtractor(cfg *config.Config, logger *slog.Logger) (*pdfextract.Extractor, error) {
	recognizer, err := ocr.New(ocr.Config{
		MinConfidence: &cfg.OCR.MinConfidence,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	return pdfextract.New(pdfextract.Config{
		ImageDir:       cfg.Paths.Images,
		MaxPages:       cfg.PDF.MaxPages,
		MinImageWidth:  cfg.PDF.MinImageWidth,
		MinImageHeight: cfg.PDF.MinImageHeight,
		OCR:            recognizer,
		Logger:         logger,
	})
}

func newRunner(cfg *config.Config, logger *slog.Logger, confirmer ingest.Confirmer, store *ingest.Store) (*ingest.Runner, error) {
	extractor, err := newExtractor(cfg, logger)
	if err != nil {
		return nil, err
	}
	return ingest.NewRunner(ingest.Config{
		SourceDir:    cfg.Paths.Source,
		ProcessedDir: cfg.Paths.Processed,
		Extractor:    extractor,
		Confirmer:    confirmer,
		Store:        store,
		Chunker:      vecstore.Pending{},
		Vectors:      vecstore.Pending{},
		Logger:       logger,
	})
}

func openLedger(cfg *config.Config, logger *slog.Logger) *ingest.Store {
	if cfg.LedgerPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LedgerPath), 0755); err != nil {
		logger.Warn("ledger dir", "error", err)
		return nil
	}
	store, err := ingest.OpenStore(cfg.LedgerPath)
	if err != nil {
		logger.Warn("run ledger disabled", "error", err)
		return nil
	}
	return store
}

func cmdList(cfg *config.Config, logger *slog.Logger) error {
	scanner := filescan.New(filescan.Config{Logger: logger})
	records := scanner.Discover(cfg.Paths.Source, "*", []string{".pdf", ".txt", ".md"})
	filescan.WriteSummary(os.Stdout, records, "candidate")
	return nil
}

func cmdIngest(cfg *config.Config, logger *slog.Logger, yes bool) error {
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	store := openLedger(cfg, logger)
	if store != nil {
		defer store.Close()
	}

	var confirmer ingest.Confirmer = &ingest.TerminalConfirmer{In: os.Stdin, Out: os.Stdout}
	if yes {
		confirmer = ingest.AutoConfirm(true)
	}

	runner, err := newRunner(cfg, logger, confirmer, store)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d file(s) failed", report.Failed)
	}
	return nil
}

func cmdServe(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	store := openLedger(cfg, logger)
	if store != nil {
		defer store.Close()
	}

	runner, err := newRunner(cfg, logger, ingest.AutoConfirm(true), store)
	if err != nil {
		return err
	}
	api := ingest.NewServer(runner, store, cfg.Paths.Processed, logger)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func cmdMCP(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	extractor, err := newExtractor(cfg, logger)
	if err != nil {
		return err
	}

	srv := mcp.NewServer(&mcp.Implementation{Name: "dockb", Version: version}, nil)
	ingest.NewMCPService(extractor, nil, logger).RegisterMCP(srv)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("mcp server on stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func cmdConfig(cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	return nil
}
