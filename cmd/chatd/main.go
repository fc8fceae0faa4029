package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chatd/internal/catalog"
	"chatd/internal/config"
	"chatd/internal/engine"
	"chatd/internal/httpapi"
	"chatd/internal/manager"
	"chatd/pkg/types"
)

type options struct {
	addr           string
	configPath     string
	catalogPath    string
	modelStatePath string
	defaultModel   string
	budgetMB       int
	maxConcurrency int
	queueDepth     int
	queueWaitSec   int
	drainTimeoutMS int
	loadTimeoutSec int
	genTimeoutSec  int
	ctxSize        int
	threads        int
	device         string
	logLevel       string
	corsEnabled    bool
}

// envOr reads an environment default so flags stay overridable.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "chatd",
		Short:         "Single-resident-model chat serving daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", envOr("CHATD_ADDR", ":8080"), "HTTP listen address")
	f.StringVar(&opts.configPath, "config", envOr("CHATD_CONFIG", ""), "Optional config file (.yaml/.json/.toml)")
	f.StringVar(&opts.catalogPath, "catalog", envOr("CHATD_CATALOG", "model_config.json"), "Model catalog file (.yaml/.json/.toml)")
	f.StringVar(&opts.modelStatePath, "model-state", envOr("CHATD_MODEL_STATE", ""), "Optional file recording the last selected model")
	f.StringVar(&opts.defaultModel, "default-model", envOr("CHATD_DEFAULT_MODEL", ""), "Model alias to load at startup")
	f.IntVar(&opts.budgetMB, "budget-mb", envOrInt("CHATD_BUDGET_MB", 0), "Memory budget in MB for the resident model (0=unlimited)")
	f.IntVar(&opts.maxConcurrency, "max-concurrency", envOrInt("CHATD_MAX_CONCURRENCY", 1), "Concurrent generations against the resident model")
	f.IntVar(&opts.queueDepth, "queue-depth", envOrInt("CHATD_QUEUE_DEPTH", 32), "Admission queue depth (negative disables queueing)")
	f.IntVar(&opts.queueWaitSec, "queue-wait-sec", envOrInt("CHATD_QUEUE_WAIT_SEC", 30), "Max seconds a request may wait for a slot")
	f.IntVar(&opts.drainTimeoutMS, "drain-timeout-ms", envOrInt("CHATD_DRAIN_TIMEOUT_MS", 10000), "Drain timeout for swaps in milliseconds")
	f.IntVar(&opts.loadTimeoutSec, "load-timeout-sec", envOrInt("CHATD_LOAD_TIMEOUT_SEC", 300), "Ceiling on a single model load in seconds")
	f.IntVar(&opts.genTimeoutSec, "gen-timeout-sec", envOrInt("CHATD_GEN_TIMEOUT_SEC", 0), "Per-request generation timeout in seconds (0 disables)")
	f.IntVar(&opts.ctxSize, "ctx-size", envOrInt("CHATD_CTX_SIZE", 4096), "Model context window size")
	f.IntVar(&opts.threads, "threads", envOrInt("CHATD_THREADS", 0), "CPU threads for generation (0=auto)")
	f.StringVar(&opts.device, "device", envOr("CHATD_DEVICE", "auto"), "Device preference: cpu, gpu or auto")
	f.StringVar(&opts.logLevel, "log-level", envOr("CHATD_LOG_LEVEL", "info"), "Log level: trace, debug, info, warn, error")
	f.BoolVar(&opts.corsEnabled, "cors", envOrBool("CHATD_CORS", false), "Enable permissive CORS for browser clients")
	return cmd
}

// applyFile overlays file values under flags and environment: an explicit
// flag wins, then a set CHATD_* variable, then the config file, then the
// built-in defaults.
func applyFile(cmd *cobra.Command, opts *options, cfg config.Config) {
	f := cmd.Flags()
	set := func(name, envKey string, apply func()) {
		if f.Changed(name) || os.Getenv(envKey) != "" {
			return
		}
		apply()
	}
	if cfg.Addr != "" {
		set("addr", "CHATD_ADDR", func() { opts.addr = cfg.Addr })
	}
	if cfg.CatalogPath != "" {
		set("catalog", "CHATD_CATALOG", func() { opts.catalogPath = cfg.CatalogPath })
	}
	if cfg.ModelStatePath != "" {
		set("model-state", "CHATD_MODEL_STATE", func() { opts.modelStatePath = cfg.ModelStatePath })
	}
	if cfg.DefaultModel != "" {
		set("default-model", "CHATD_DEFAULT_MODEL", func() { opts.defaultModel = cfg.DefaultModel })
	}
	if cfg.MemoryBudgetMB != 0 {
		set("budget-mb", "CHATD_BUDGET_MB", func() { opts.budgetMB = cfg.MemoryBudgetMB })
	}
	if cfg.MaxConcurrency != 0 {
		set("max-concurrency", "CHATD_MAX_CONCURRENCY", func() { opts.maxConcurrency = cfg.MaxConcurrency })
	}
	if cfg.QueueDepth != 0 {
		set("queue-depth", "CHATD_QUEUE_DEPTH", func() { opts.queueDepth = cfg.QueueDepth })
	}
	if cfg.QueueWaitSec != 0 {
		set("queue-wait-sec", "CHATD_QUEUE_WAIT_SEC", func() { opts.queueWaitSec = cfg.QueueWaitSec })
	}
	if cfg.DrainTimeoutMS != 0 {
		set("drain-timeout-ms", "CHATD_DRAIN_TIMEOUT_MS", func() { opts.drainTimeoutMS = cfg.DrainTimeoutMS })
	}
	if cfg.LoadTimeoutSec != 0 {
		set("load-timeout-sec", "CHATD_LOAD_TIMEOUT_SEC", func() { opts.loadTimeoutSec = cfg.LoadTimeoutSec })
	}
	if cfg.GenTimeoutSec != 0 {
		set("gen-timeout-sec", "CHATD_GEN_TIMEOUT_SEC", func() { opts.genTimeoutSec = cfg.GenTimeoutSec })
	}
	if cfg.Device != "" {
		set("device", "CHATD_DEVICE", func() { opts.device = cfg.Device })
	}
	if cfg.LogLevel != "" {
		set("log-level", "CHATD_LOG_LEVEL", func() { opts.logLevel = cfg.LogLevel })
	}
	if cfg.CORSEnabled {
		set("cors", "CHATD_CORS", func() { opts.corsEnabled = true })
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func run(cmd *cobra.Command, opts *options) error {
	if opts.configPath != "" {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		applyFile(cmd, opts, cfg)
	}
	log := newLogger(opts.logLevel)

	switch types.DevicePreference(opts.device) {
	case types.DeviceCPU, types.DeviceGPU, types.DeviceAuto:
	default:
		return fmt.Errorf("invalid device %q (want cpu, gpu or auto)", opts.device)
	}

	cat, err := catalog.Load(opts.catalogPath)
	if err != nil {
		return err
	}

	mgr := manager.New(manager.ManagerConfig{
		Catalog:        cat,
		Engine:         engine.NewLlamaEngine(opts.ctxSize, opts.threads),
		Logger:         log,
		BudgetMB:       opts.budgetMB,
		MaxConcurrency: opts.maxConcurrency,
		QueueDepth:     opts.queueDepth,
		QueueWait:      time.Duration(opts.queueWaitSec) * time.Second,
		DrainTimeout:   time.Duration(opts.drainTimeoutMS) * time.Millisecond,
		LoadTimeout:    time.Duration(opts.loadTimeoutSec) * time.Second,
		GenTimeout:     time.Duration(opts.genTimeoutSec) * time.Second,
		CtxSize:        opts.ctxSize,
		Threads:        opts.threads,
		DefaultDevice:  types.DevicePreference(opts.device),
	})

	// Base context cancelled on SIGINT/SIGTERM; in-flight work observes it
	// through the joined handler contexts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	httpapi.SetBaseContext(ctx)
	httpapi.SetLogger(log)
	httpapi.SetSwapDrainTimeout(time.Duration(opts.drainTimeoutMS) * time.Millisecond)
	httpapi.SetCORSOptions(opts.corsEnabled, nil, nil, nil)

	// Startup model: the explicit flag wins over the persisted selection.
	initial := opts.defaultModel
	if initial == "" && opts.modelStatePath != "" {
		if alias, err := config.LoadModelState(opts.modelStatePath); err != nil {
			log.Warn().Err(err).Str("path", opts.modelStatePath).Msg("model state unreadable")
		} else {
			initial = alias
		}
	}
	if initial != "" {
		// Load in the background so health endpoints come up immediately.
		go func() {
			if err := mgr.Load(ctx, initial); err != nil {
				log.Error().Err(err).Str("model", initial).Msg("startup load failed")
			}
		}()
	}

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", opts.addr).Str("device", opts.device).Msg("chatd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("chatd failed")
	}
}
