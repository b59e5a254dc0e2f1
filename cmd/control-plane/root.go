package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetxds/control-plane/internal/admin"
	"github.com/fleetxds/control-plane/internal/api"
	"github.com/fleetxds/control-plane/internal/auth"
	"github.com/fleetxds/control-plane/internal/cache"
	"github.com/fleetxds/control-plane/internal/cipher"
	"github.com/fleetxds/control-plane/internal/config"
	"github.com/fleetxds/control-plane/internal/discovery"
	"github.com/fleetxds/control-plane/internal/instance"
	"github.com/fleetxds/control-plane/internal/instance/sources"
	"github.com/fleetxds/control-plane/internal/instance/transform"
	"github.com/fleetxds/control-plane/internal/loader"
	"github.com/fleetxds/control-plane/internal/logging"
	"github.com/fleetxds/control-plane/internal/matcher"
	"github.com/fleetxds/control-plane/internal/metrics"
	"github.com/fleetxds/control-plane/internal/template"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "control-plane",
	Short: "Poll-based xDS control plane",
	Long: `control-plane serves versioned proxy configuration over the poll-based
discovery protocol: it continuously ingests upstream data into an in-memory
instance store, renders per-request configuration through versioned
templates, and answers unchanged polls without re-rendering.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("control-plane %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	baseLogger := logging.New(logging.Config(cfg.Logging))
	handler, logHub := api.NewBroadcastHandler(baseLogger.Handler())
	logger := slog.New(handler)
	slog.SetDefault(logger)

	logger.Info("starting control plane", "version", version, "commit", commit)

	m := metrics.Default()

	registry, err := buildLoaderRegistry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build loader registry: %w", err)
	}

	var suite *cipher.Suite
	if cfg.Authentication.Enabled || cfg.Authentication.EncryptionKey.Single != "" || len(cfg.Authentication.EncryptionKey.Multi) > 0 {
		suite, err = cipher.FromConfig(cfg.Authentication.EncryptionKey)
		if err != nil {
			return fmt.Errorf("build cipher suite: %w", err)
		}
	}

	specs := make([]instance.SourceSpec, 0, len(cfg.Sources))
	for i, sc := range cfg.Sources {
		src, err := sources.Build(ctx, sc, registry)
		if err != nil {
			return fmt.Errorf("build source %d (%s): %w", i, sc.Type, err)
		}
		specs = append(specs, instance.SourceSpec{Type: sc.Type, Scope: sc.Scope, Src: src})
	}

	store := instance.NewStore()
	poller := instance.NewPoller(store, specs, transform.NewRegistry(), instance.PollerConfig{
		RefreshRate:      cfg.SourceConfig.RefreshRate,
		GlobalModifiers:  cfg.GlobalModifiers,
		PerInstModifiers: cfg.Modifiers,
	}, logger, m.Ingestion)

	logger.Info("performing initial source load")
	if err := poller.InitialLoadWithRetry(ctx, 2*time.Minute); err != nil {
		return fmt.Errorf("initial source load: %w", err)
	}

	templates, err := template.BuildRegistry(ctx, cfg.Templates, registry, nil)
	if err != nil {
		return fmt.Errorf("build template registry: %w", err)
	}

	tc, refresher, err := template.BuildContext(ctx, cfg.TemplateContext, registry, m.Context)
	if err != nil {
		return fmt.Errorf("build template context: %w", err)
	}

	discoveryCache, err := cache.Build(cfg.DiscoveryCache, m.Cache, logger)
	if err != nil {
		return fmt.Errorf("build discovery cache: %w", err)
	}

	engine := &discovery.Engine{
		Store:     store,
		Templates: templates,
		Context:   tc,
		Matcher: matcher.Config{
			Enabled:   cfg.Matching.Enabled,
			SourceKey: cfg.Matching.SourceKey,
			NodeKey:   cfg.Matching.NodeKey,
		},
		Cipher:    suite,
		ExtraKeys: cfg.SourceConfig.ExtraKeys,
		Logger:    logger,
		Metrics:   m.Discovery,
	}
	if cfg.Authentication.Enabled {
		engine.Auth = auth.NewGate(suite, "metadata.auth", cfg.Authentication.AuthPasswords)
	}
	if discoveryCache != nil {
		engine.Cache = discoveryCache
		defer discoveryCache.Close()
	}

	surface := &admin.Surface{
		Engine:    engine,
		Poller:    poller,
		Templates: templates,
		Config:    cfg,
		Cipher:    suite,
	}

	server := api.NewServer(engine, surface, version, cfg.IsDebug(), cfg.Server.UnchangedStatus, logger)
	server.LogHub = logHub
	router := server.NewRouter()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      withRequestDeadline(router, cfg.Server.RequestDeadline),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()
	go poller.Run(bgCtx)
	if refresher != nil {
		refresher.Start()
		defer refresher.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("shutting down", "reason", "context cancelled")
	}

	cancelBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

// buildLoaderRegistry wires the protocol and serializer plugin tables. The
// s3 protocol is only registered when something in the configuration names
// it, so deployments without object storage don't need AWS credentials.
func buildLoaderRegistry(ctx context.Context, cfg *config.Config) (*loader.Registry, error) {
	registry := loader.NewRegistry()

	httpProto := loader.NewHTTPProtocol(nil)
	registry.RegisterProtocol("file", loader.FileProtocol{})
	registry.RegisterProtocol("http", httpProto)
	registry.RegisterProtocol("https", httpProto)
	registry.RegisterProtocol("env", loader.EnvProtocol{})
	registry.RegisterProtocol("inline", loader.InlineProtocol{})
	registry.RegisterValueProtocol("exec", loader.NewExecProtocol())

	registry.RegisterSerializer("yaml", loader.YAMLSerializer{})
	registry.RegisterSerializer("json", loader.YAMLSerializer{})
	registry.RegisterSerializer("raw", loader.RawSerializer{})
	registry.RegisterSerializer("template", loader.NewTemplateSerializer("loader", nil))

	if configReferencesS3(cfg) {
		region := os.Getenv("AWS_REGION")
		if region == "" {
			region = "us-east-1"
		}
		s3Proto, err := loader.NewS3Protocol(ctx, region, os.Getenv("S3_ENDPOINT"))
		if err != nil {
			return nil, fmt.Errorf("s3 protocol: %w", err)
		}
		registry.RegisterProtocol("s3", s3Proto)
	}

	return registry, nil
}

func configReferencesS3(cfg *config.Config) bool {
	for _, sc := range cfg.Sources {
		if sc.Type == "s3" {
			return true
		}
	}
	for _, byType := range cfg.Templates {
		for _, loc := range byType {
			if loc.Protocol == "s3" {
				return true
			}
		}
	}
	for _, loc := range cfg.TemplateContext.Context {
		if loc.Protocol == "s3" {
			return true
		}
	}
	return false
}

// withRequestDeadline bounds every request with the configured deadline so
// the discovery pipeline's deadline checks have something to trip on.
func withRequestDeadline(next http.Handler, deadline time.Duration) http.Handler {
	if deadline <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), deadline)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
