//go:build windows

// service_windows.go implements Windows Service support using
// github.com/kardianos/service. When installed as a service the agent
// runs in watch mode, importing any order file dropped into the
// configured watch directory.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kardianos/service"

	"mm_importer/core"
	"mm_importer/db"
	"mm_importer/intake"
	"mm_importer/logging"
	"mm_importer/makermatrix"
	"mm_importer/metrics"
	"mm_importer/suppliers"
	"mm_importer/watch"
	"mm_importer/workflow"
)

// Program implements service.Interface. It wraps the watch service and
// provides Start/Stop lifecycle methods.
type Program struct {
	ctx    context.Context
	cancel context.CancelFunc
	exit   chan struct{}
}

// Start is called when the service is started. It begins watch mode in
// a goroutine and returns immediately, as the service manager requires.
func (p *Program) Start(s service.Service) error {
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.exit = make(chan struct{})

	go p.run()

	return nil
}

// Stop signals the watch loop to shut down and waits for it to drain.
func (p *Program) Stop(s service.Service) error {
	p.cancel()

	select {
	case <-p.exit:
	case <-time.After(30 * time.Second):
		return fmt.Errorf("timeout waiting for service to stop")
	}

	return nil
}

// run wires the watch service the same way the foreground watch command
// does, minus the signal handling (the service manager owns lifecycle).
func (p *Program) run() {
	defer close(p.exit)

	_ = godotenv.Load()

	logger := logging.NewLogger(false, core.GetEnvOrDefault("LOG_FILE", "importer.log"))
	defer func() { _ = logger.Sync() }()

	cfg, err := core.LoadConfig()
	if err != nil {
		logger.Errorw("Failed to load configuration", "error", err)
		return
	}

	client := makermatrix.NewClientFromConfig(cfg)
	store := metrics.NewStore(metrics.DefaultHistoryCapacity)

	var record watch.Recorder
	hist, err := db.OpenHistory(cfg.HistoryDBPath, cfg.MigrationsPath)
	if err != nil {
		logger.Warnw("History database unavailable", "error", err)
	} else {
		defer hist.Close()
		record = func(ctx context.Context, path, supplierID string, info core.OrderInfo, capabilities string, result *core.ImportResult, taskStatus core.TaskStatus, duration time.Duration, runErr error) {
			if _, recErr := hist.RecordResult(ctx, path, supplierID, info, capabilities, result, taskStatus, duration, runErr); recErr != nil {
				logger.Warnw("Failed to record import history", "error", recErr)
			}
		}
	}

	defaults, err := suppliers.LoadCapabilityDefaults(cfg.CapabilitiesPath)
	if err != nil {
		logger.Warnw("Failed to load capability defaults", "error", err)
	}

	it := intake.New(cfg, client, logger)
	submitter := workflow.NewSubmitter(client, cfg.ServerURL, logger)
	poller := workflow.NewPoller(client, cfg.PollInterval, logger).WithStats(store)
	runner := workflow.NewRunner(submitter, poller, nil, cfg.SubmitTimeout, logger)

	svc := watch.NewService(cfg, it, runner, defaults, record, store, logger)
	if err := svc.Run(p.ctx); err != nil {
		logger.Errorw("Watch mode failed", "error", err)
	}
}

// ServiceConfig returns the Windows service definition.
func ServiceConfig() *service.Config {
	return &service.Config{
		Name:        "MMImporter",
		DisplayName: "MakerMatrix Import Agent",
		Description: "Watches a drop directory and imports supplier order files into MakerMatrix",
		Option: service.KeyValue{
			"StartType": "automatic",
		},
	}
}

func newService() (service.Service, error) {
	s, err := service.New(&Program{}, ServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return s, nil
}

// HandleServiceCommand handles service-related command-line arguments.
// Returns true if a service command was handled, false otherwise.
func HandleServiceCommand(args []string) bool {
	if len(args) < 2 {
		// No subcommand. If we are running under the service manager
		// (not interactively), run as a service.
		if !service.Interactive() {
			s, err := newService()
			if err == nil {
				_ = s.Run()
			}
			return true
		}
		return false
	}

	var err error
	switch args[1] {
	case "install":
		err = serviceAction(func(s service.Service) error { return s.Install() }, "Service installed")
	case "uninstall", "remove":
		err = serviceAction(func(s service.Service) error { return s.Uninstall() }, "Service uninstalled")
	case "start":
		err = serviceAction(func(s service.Service) error { return s.Start() }, "Service started")
	case "stop":
		err = serviceAction(func(s service.Service) error { return s.Stop() }, "Service stopped")
	case "restart":
		err = serviceAction(func(s service.Service) error { return s.Restart() }, "Service restarted")
	case "status":
		s, newErr := newService()
		if newErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", newErr)
			os.Exit(core.ExitCodeError)
		}
		status, statusErr := s.Status()
		if statusErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", statusErr)
			os.Exit(core.ExitCodeError)
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("Service is running")
		case service.StatusStopped:
			fmt.Println("Service is stopped")
		default:
			fmt.Println("Service status unknown")
		}
		return true
	default:
		return false
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(core.ExitCodeError)
	}

	return true
}

func serviceAction(action func(service.Service) error, okMsg string) error {
	s, err := newService()
	if err != nil {
		return err
	}
	if err := action(s); err != nil {
		return err
	}
	fmt.Println(okMsg)
	return nil
}
