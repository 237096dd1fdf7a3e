package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conclave-ai/conclave/internal/adapters/session"
	"github.com/conclave-ai/conclave/internal/adapters/state"
	"github.com/conclave-ai/conclave/internal/api"
	"github.com/conclave-ai/conclave/internal/core"
	"github.com/conclave-ai/conclave/internal/events"
	"github.com/conclave-ai/conclave/internal/service"
)

var (
	serveHost         string
	servePort         int
	serveNoSupervisor bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and auto-advance supervisor",
	Long: `Starts the HTTP API server together with the supervisor loop that
drives active launches through the deliberation stages. Both share the
same launch store, so manual API triggers and automatic advances
serialize through the store's conditional writes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "bind host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "bind port (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoSupervisor, "no-supervisor", false,
		"serve the API without the auto-advance loop")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, err := state.NewLaunchStore(cfg.State.Backend, cfg.State.Path)
	if err != nil {
		return fmt.Errorf("opening launch store: %w", err)
	}
	defer func() {
		if err := state.CloseLaunchStore(store); err != nil {
			logger.Warn("closing launch store", "error", err)
		}
	}()

	bus := events.New(256)
	defer bus.Close()

	invoker := session.NewCLIInvoker(cfg.Agents, logger)
	runtime := session.NewLocalRuntime(invoker, logger)
	defer runtime.Close()

	synth := service.NewSynthesizer(invoker, &service.RetryPolicy{
		MaxAttempts:  cfg.Synthesis.MaxAttempts,
		BaseDelay:    cfg.Synthesis.BaseDelayDuration(),
		MaxDelay:     30 * time.Second,
		JitterFactor: 0.2,
		Multiplier:   2.0,
	}, cfg.Synthesis.FallbackAgent, logger)

	launcher := service.NewLauncher(store, runtime, invoker, synth, bus, logger, service.LauncherOptions{
		Policy: core.CoordinatorPolicy{
			SessionTimeout: cfg.Supervisor.SessionTimeoutDuration(),
		},
		ChatTimeout: cfg.Supervisor.ChatTimeoutDuration(),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !serveNoSupervisor {
		supervisor := service.NewSupervisor(service.SupervisorConfig{
			Launcher:     launcher,
			Store:        store,
			Logger:       logger,
			TickInterval: cfg.Supervisor.TickIntervalDuration(),
			Concurrency:  cfg.Supervisor.Concurrency,
		})
		if err := supervisor.Start(ctx); err != nil {
			return fmt.Errorf("starting supervisor: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := supervisor.Stop(stopCtx); err != nil {
				logger.Warn("stopping supervisor", "error", err)
			}
		}()
	}

	opts := []api.ServerOption{api.WithLogger(logger.Logger)}
	if cfg.Server.NoCORS {
		opts = append(opts, api.WithoutCORS())
	}
	server := api.NewServer(launcher, bus, opts...)

	host := cfg.Server.Host
	if serveHost != "" {
		host = serveHost
	}
	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	err = server.ListenAndServe(ctx, addr)
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("server shut down")
		return nil
	}
	return err
}
