package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/simlink-project/simlink/internal/api"
	"github.com/simlink-project/simlink/internal/circuit"
	"github.com/simlink-project/simlink/internal/cli"
	"github.com/simlink-project/simlink/internal/config"
	"github.com/simlink-project/simlink/internal/connector"
	"github.com/simlink-project/simlink/internal/db"
	"github.com/simlink-project/simlink/internal/events"
	"github.com/simlink-project/simlink/internal/network"
	"github.com/simlink-project/simlink/internal/scheduler"
	"github.com/simlink-project/simlink/internal/telemetry"
	"github.com/simlink-project/simlink/internal/util"
)

type connectOptions struct {
	configDir string
	setup     bool
	noConsole bool
}

func connectCmd() *cobra.Command {
	var opts connectOptions

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Log in and hold a circuit open",
		Long: `Log in with the configured account, open a circuit to the assigned region
and stay connected until you log out, the simulator ends the session or
the process is interrupted.

The password is read from $SIMLINK_PASSWORD or prompted for.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configDir, "config", "c", config.DefaultConfigDir, "Configuration directory")
	cmd.Flags().BoolVar(&opts.setup, "setup", false, "Run the setup wizard before connecting")
	cmd.Flags().BoolVar(&opts.noConsole, "no-console", false, "Do not read chat from standard input")

	return cmd
}

func runConnect(opts connectOptions) error {
	printBanner()

	// Initialize logger with defaults first (reconfigured after config load)
	if err := util.InitLogger(util.DefaultLogConfig()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load(opts.configDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging := cfg.GetLogging()
	if err := util.InitLogger(util.LogConfig{
		Level:      logging.Level,
		Directory:  logging.Directory,
		MaxBackups: logging.MaxBackups,
		Console:    logging.Console,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to reconfigure logger, using defaults")
	}

	log.Info().
		Str("version", version).
		Str("platform", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Msg("starting simlink")

	if err := ensureValidConfig(cfg, opts.setup); err != nil {
		return err
	}

	sysInfo := util.GetSystemInfo()
	log.Info().
		Str("hostname", sysInfo.Hostname).
		Str("os", sysInfo.OS).
		Str("cpu", sysInfo.CPUModel).
		Int("cores", sysInfo.CPUCores).
		Uint64("memory_mb", sysInfo.TotalMemory).
		Msg("system information")

	cat, err := loadCatalog(cfg.GetCatalog().TemplatePath)
	if err != nil {
		return fmt.Errorf("failed to load message catalog: %w", err)
	}

	login := cfg.GetLogin()
	password, err := config.ResolvePassword(fmt.Sprintf("Password for %s %s", login.FirstName, login.LastName))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resp, err := connector.NewLoginClient(login, sysInfo, nil).Login(ctx, password)
	if err != nil {
		return loginFailure(err)
	}
	if resp.Message != "" {
		fmt.Println(resp.Message)
	}

	circ := cfg.GetCircuit()
	conn, err := network.DialCircuit(ctx, resp.SimAddr(), circ.ReceiveBufferBytes)
	if err != nil {
		return fmt.Errorf("network unreachable: %w", err)
	}

	eventBus := events.NewEventBus()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine, err := circuit.NewEngine(conn, circuit.Session{
		AgentID:     resp.AgentID,
		SessionID:   resp.SessionID,
		CircuitCode: resp.CircuitCode,
		SimAddr:     resp.SimAddr(),
	}, circuit.Options{
		Catalog:   cat,
		Bus:       eventBus,
		Metrics:   circuit.NewMetrics(registry),
		Circuit:   circ,
		AgentName: fmt.Sprintf("%s %s", resp.FirstName, resp.LastName),
	})
	if err != nil {
		conn.Close()
		return err
	}

	// Collaborators stop when the circuit does.
	auxCtx, cancelAux := context.WithCancel(ctx)
	defer cancelAux()

	var wg sync.WaitGroup

	var (
		history api.History
		pruner  scheduler.Pruner
	)
	transcriptCfg := cfg.GetTranscript()
	transcript := openTranscript(transcriptCfg, eventBus)
	if transcript != nil {
		defer transcript.Close()
		history = transcript
		pruner = transcript
	}

	sched := scheduler.NewScheduler(transcriptCfg.RetentionDays, pruner, engine)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Start(auxCtx)
	}()

	if mqttCfg := cfg.GetMQTT(); mqttCfg.Enabled {
		bridge, err := telemetry.NewBridge(mqttCfg, eventBus, sysInfo, version)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize MQTT, telemetry disabled")
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				log.Info().Msg("starting MQTT telemetry")
				if err := bridge.Start(auxCtx); err != nil {
					log.Warn().Err(err).Msg("MQTT telemetry failed")
				}
			}()
		}
	}

	if apiCfg := cfg.GetAPI(); apiCfg.Enabled {
		apiServer := api.NewServer(apiCfg, engine, history, registry, version)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := startWithRetry(auxCtx, "API server", apiServer.Start, 5); err != nil {
				log.Warn().Err(err).Msg("API server failed after retries (non-fatal)")
			}
		}()
	}

	if !opts.noConsole {
		console := cli.NewConsole(engine, eventBus, os.Stdin, os.Stdout)
		console.Subscribe()
		go console.Start(auxCtx)
	}

	_, runErr := engine.Run(ctx)
	status := engine.Status()

	eventBus.EmitSync(context.Background(), events.Event{
		Type:   events.EventShutdown,
		Source: "main",
		Payload: events.DisconnectedPayload{
			Reason: status.Reason.String(),
			Detail: status.Detail,
		},
	})
	cancelAux()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timed out after 10 seconds")
	}
	eventBus.Stop()

	fmt.Println(circuit.Describe(status, runErr))
	log.Info().
		Str("reason", status.Reason.String()).
		Str("detail", status.Detail).
		Msg("simlink stopped")

	if runErr != nil {
		return fmt.Errorf("circuit ended: %w", runErr)
	}
	return nil
}

// ensureValidConfig logs validation findings and offers the setup wizard on
// first run.
func ensureValidConfig(cfg *config.Config, forceSetup bool) error {
	validation := config.Validate(cfg)
	for _, w := range validation.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if validation.IsValid() && !forceSetup {
		return nil
	}
	for _, e := range validation.Errors {
		log.Error().Str("field", e.Field).Msg(e.Message)
	}

	if !forceSetup && !cfg.IsFirstRun() {
		return fmt.Errorf("configuration validation failed, please fix the errors above")
	}

	log.Info().Msg("launching setup wizard")
	if err := config.RunSetupWizard(cfg, os.Stdin, os.Stderr); err != nil {
		return fmt.Errorf("setup wizard failed: %w", err)
	}
	if v := config.Validate(cfg); !v.IsValid() {
		return fmt.Errorf("configuration still invalid: %v", v.Errors[0])
	}
	return nil
}

// openTranscript opens the transcript store and records chat and IM events
// into it. Failures disable the transcript.
func openTranscript(cfg config.TranscriptConfig, bus *events.EventBus) *db.Transcript {
	if !cfg.Enabled {
		return nil
	}
	transcript, err := db.OpenTranscript(cfg.Path)
	if err != nil {
		log.Warn().Err(err).Msg("failed to open transcript, history disabled")
		return nil
	}

	bus.Subscribe(events.EventChat, "transcript.chat", transcript.HandleEvent)
	bus.Subscribe(events.EventInstantMessage, "transcript.im", transcript.HandleEvent)
	return transcript
}

// loginFailure names the cause of a failed login: rejected credentials and
// unusable replies come from a reachable service, anything else does not.
func loginFailure(err error) error {
	switch {
	case errors.Is(err, connector.ErrLoginRejected):
		return err
	case errors.Is(err, connector.ErrMalformedReply):
		return fmt.Errorf("login service error: %w", err)
	default:
		return fmt.Errorf("network unreachable: %w", err)
	}
}

func startWithRetry(ctx context.Context, name string, startFn func(context.Context) error, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if ctx.Err() != nil {
			return nil
		}
		lastErr = startFn(ctx)
		if lastErr == nil {
			return nil
		}
		if i < maxRetries {
			log.Warn().Err(lastErr).Str("component", name).Int("retry", i+1).Int("max", maxRetries).Msg("bind failed, retrying in 3s...")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(3 * time.Second):
			}
		}
	}
	return lastErr
}
