package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/tesseralabs/ledger/app/services/ledger/handlers"
	"github.com/tesseralabs/ledger/foundation/events"
	"github.com/tesseralabs/ledger/foundation/ledger/blocklog"
	"github.com/tesseralabs/ledger/foundation/ledger/indexer"
	"github.com/tesseralabs/ledger/foundation/ledger/limits"
	"github.com/tesseralabs/ledger/foundation/ledger/notify"
	"github.com/tesseralabs/ledger/foundation/ledger/state"
	"github.com/tesseralabs/ledger/foundation/ledger/timers"
	"github.com/tesseralabs/ledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("LEDGER")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		}
		State struct {
			BlockLogPath string `conf:"default:zledger/blocks.db"`
			GenesisPath  string `conf:"default:zledger/genesis.json"`
		}
		Limits struct {
			MaxMemoBytes       int `conf:"default:32"`
			MaxBlobBytes       int `conf:"default:256"`
			MaxTextBytes       int `conf:"default:256"`
			MaxIntegerDigits   int `conf:"default:20"`
			MaxArrayLength     int `conf:"default:100"`
			MaxSubaccountBytes int `conf:"default:32"`
			MaxRawRequestBytes int `conf:"default:50000"`
		}
		Indexer struct {
			Target        string        `conf:"default:"`
			NotifyDelay   time.Duration `conf:"default:2s"`
			NotifyTimeout time.Duration `conf:"default:60s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "LEDGER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Ledger Support

	// The ledger packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	defer evts.Shutdown()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// Open the append-only block log, reloading any blocks persisted by a
	// previous run.
	blockLog, err := blocklog.New(cfg.State.BlockLogPath, ev)
	if err != nil {
		return fmt.Errorf("opening block log: %w", err)
	}
	defer blockLog.Close()

	// Load the genesis file to get starting balances for founders of the
	// ledger.
	genesis, err := state.LoadGenesis(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	// The state value manages the account balances and provides an API for
	// application support.
	st, err := state.New(state.Config{
		Genesis:   genesis,
		BlockLog:  blockLog,
		EvHandler: ev,
	})
	if err != nil {
		return fmt.Errorf("constructing state: %w", err)
	}

	// =========================================================================
	// Request Inspection Support

	lim := limits.Limits{
		MaxMemoBytes:       cfg.Limits.MaxMemoBytes,
		MaxBlobBytes:       cfg.Limits.MaxBlobBytes,
		MaxTextBytes:       cfg.Limits.MaxTextBytes,
		MaxIntegerDigits:   cfg.Limits.MaxIntegerDigits,
		MaxArrayLength:     cfg.Limits.MaxArrayLength,
		MaxSubaccountBytes: cfg.Limits.MaxSubaccountBytes,
		MaxRawRequestBytes: cfg.Limits.MaxRawRequestBytes,
	}

	pipeline, err := handlers.NewPipeline(lim)
	if err != nil {
		return fmt.Errorf("constructing inspection pipeline: %w", err)
	}

	// =========================================================================
	// Index Notification Support

	// The delayed-action facility and the block log both lose their
	// registrations across a restart, so the scheduler is wired up fresh on
	// every startup before any traffic is accepted.
	tmrs := timers.New(ev)
	defer tmrs.Shutdown()

	sched := notify.New(notify.Config{
		BlockLog:  blockLog,
		Timers:    tmrs,
		Client:    indexer.NewHTTPClient(),
		Target:    cfg.Indexer.Target,
		Delay:     cfg.Indexer.NotifyDelay,
		Timeout:   cfg.Indexer.NotifyTimeout,
		EvHandler: ev,
	})

	tmrs.RegisterExecutionCallback(notify.ActionKind, sched.Execute)
	blockLog.RegisterAppendListener(notify.ActionKind, sched.OnBlockAppended)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.
	debugMux := handlers.DebugMux(build, log)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		BlockLog: blockLog,
		Pipeline: pipeline,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	// Construct the mux for the private API calls.
	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		BlockLog: blockLog,
		Notify:   sched,
		Pipeline: pipeline,
	})

	// Construct a server to service the requests against the mux.
	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public server gracefully: %w", err)
		}

		// Asking listener to shut down and shed load.
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private server gracefully: %w", err)
		}
	}

	return nil
}
