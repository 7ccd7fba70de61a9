package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/script-hub/script-hub/internal/cache"
	"github.com/script-hub/script-hub/internal/config"
	"github.com/script-hub/script-hub/internal/logging"
	"github.com/script-hub/script-hub/internal/origin"
	"github.com/script-hub/script-hub/internal/proxy"
	"github.com/script-hub/script-hub/internal/server"
	"github.com/script-hub/script-hub/internal/server/routes"
	"github.com/script-hub/script-hub/internal/tasks"
	"github.com/script-hub/script-hub/internal/version"
)

// cliOptions collects parsed CLI flags so tests can inject them.
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run executes the selected mode and returns the exit code, keeping main
// testable.
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "load config failed: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "init logger failed: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["tools"] = len(cfg.Tools)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("config check passed")
		return 0
	}

	registry, err := server.NewToolRegistry(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "build tool registry failed: %v\n", err)
		return 1
	}

	// Startup order: config → registry → store → scheduler → handler →
	// Fiber app, so every request shares one store and one task group.
	store, err := newStore(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "init cache store failed: %v\n", err)
		return 1
	}

	scheduler := tasks.NewScheduler(logger, cfg.Global.TaskTimeout.DurationValue())
	fetcher := origin.NewFetcher(server.NewUpstreamClient(cfg))
	handler := proxy.NewHandler(fetcher, logger, store, scheduler)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["tools"] = len(cfg.Tools)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["storage_backend"] = cfg.Global.StorageBackend
	fields["cache_ttl_s"] = cfg.Global.CacheTTL.Seconds()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("configuration loaded")

	if err := serveHTTP(cfg, registry, handler, scheduler, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP server failed: %v\n", err)
		return 1
	}
	return 0
}

func newStore(cfg *config.Config) (cache.Store, error) {
	if cfg.Global.StorageBackend == config.StorageBackendMemory {
		return cache.NewMemoryStore(), nil
	}
	return cache.NewFSStore(cfg.Global.StoragePath)
}

// parseCLIFlags parses CLI arguments and resolves the config path from flag
// then environment.
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("script-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "config file path (default ./config.toml, overridable via SCRIPT_HUB_CONFIG)")
	fs.BoolVar(&checkOnly, "check-config", false, "validate the config and exit")
	fs.BoolVar(&showVer, "version", false, "print version information")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("parse flags: %w", err)
	}

	path := os.Getenv("SCRIPT_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

// serveHTTP runs the listener until a signal arrives, then stops accepting
// requests and drains pending background stores before returning. The drain
// is what keeps the process alive until every scheduled cache population
// settles.
func serveHTTP(
	cfg *config.Config,
	registry *server.ToolRegistry,
	handler server.ProxyHandler,
	scheduler *tasks.Scheduler,
	logger *logrus.Logger,
) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Registry:   registry,
		Proxy:      handler,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterToolRoutes(app, registry, cfg.Global.StorageBackend)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("HTTP server started")

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", port))
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
	}

	logger.WithField("action", "shutdown").Info("signal received, shutting down")
	if err := app.Shutdown(); err != nil {
		logger.WithField("action", "shutdown").WithError(err).Warn("listener shutdown failed")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Global.DrainTimeout.DurationValue())
	defer cancel()
	if err := scheduler.Drain(drainCtx); err != nil {
		// Interrupted stores self-heal on the next miss.
		logger.WithField("action", "shutdown").WithError(err).Warn("background drain incomplete")
	}
	return nil
}
