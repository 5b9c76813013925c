// Command mm-importer is a command-line agent for the MakerMatrix
// order-import workflow: it previews supplier order files, submits them
// for import, tracks enrichment tasks to completion, and can watch a
// drop directory for unattended imports.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mm_importer/core"
	"mm_importer/db"
	"mm_importer/intake"
	"mm_importer/logging"
	"mm_importer/makermatrix"
	"mm_importer/metrics"
	"mm_importer/shutdown"
	"mm_importer/suppliers"
	"mm_importer/watch"
	"mm_importer/workflow"
)

func main() {
	// Service management commands (install/uninstall/...) short-circuit
	// before configuration is required.
	if HandleServiceCommand(os.Args) {
		return
	}

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Use fmt here since logger isn't initialized yet
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(core.ExitCodeUsage)
	}
	cmd := os.Args[1]

	switch cmd {
	case "version", "-v", "--version":
		fmt.Println(core.GetVersionInfo())
		return
	case "help", "-h", "--help":
		usage()
		return
	}

	isDevelopment := os.Getenv("DEV_MODE") == "true"
	logger := logging.NewLogger(isDevelopment, core.GetEnvOrDefault("LOG_FILE", "importer.log"))
	defer func() { _ = logger.Sync() }()

	cfg, err := core.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(core.ExitCodeError)
	}

	logger.Info("Configuration loaded",
		zap.String("server", cfg.ServerURL),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Duration("submit_timeout", cfg.SubmitTimeout),
		zap.Bool("allow_self_signed_certs", cfg.AllowSelfSignedCerts),
		zap.Bool("dev_mode", isDevelopment),
	)

	a := &app{
		cfg:    cfg,
		client: makermatrix.NewClientFromConfig(cfg),
		log:    logger,
	}

	var code int
	switch cmd {
	case "suppliers":
		code = a.cmdSuppliers(os.Args[2:])
	case "preview":
		code = a.cmdPreview(os.Args[2:])
	case "import":
		code = a.cmdImport(os.Args[2:])
	case "history":
		code = a.cmdHistory(os.Args[2:])
	case "watch":
		code = a.cmdWatch()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		code = core.ExitCodeUsage
	}

	_ = logger.Sync()
	os.Exit(code)
}

// app bundles the dependencies every subcommand needs.
type app struct {
	cfg    *core.Config
	client *makermatrix.Client
	log    *logging.Logger
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, for the
// one-shot commands that don't need the full shutdown manager.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func (a *app) cmdSuppliers(args []string) int {
	fs := flag.NewFlagSet("suppliers", flag.ExitOnError)
	_ = fs.Parse(args)

	ctx, cancel := signalContext()
	defer cancel()

	resolver := suppliers.NewResolver(a.client, a.log)
	caps := resolver.ListSuppliers(ctx)

	if resolver.UsedFallback {
		color.New(color.FgYellow).Println("Backend unreachable; showing built-in supplier list")
	}

	header := color.New(color.FgCyan, color.Bold)
	header.Printf("%-12s %-24s %-14s %-14s %s\n", "ID", "NAME", "FILE TYPES", "CONFIG", "ENRICHMENT")
	for _, c := range caps {
		clr := color.New(color.FgWhite)
		if !c.IsConfigured {
			clr = color.New(color.FgYellow)
		}
		clr.Printf("%-12s %-24s %-14s %-14s %s\n",
			c.ID, c.DisplayName,
			strings.Join(c.SupportedFileTypes, ","),
			c.ConfigurationStatus,
			strings.Join(c.EnrichmentCapabilities, ","))
	}
	return core.ExitCodeSuccess
}

func (a *app) cmdPreview(args []string) int {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	file := fs.String("file", "", "order file to preview (csv/xls/xlsx)")
	supplier := fs.String("supplier", "", "supplier id (default: detect from filename)")
	_ = fs.Parse(args)
	if *file == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		return core.ExitCodeUsage
	}

	ctx, cancel := signalContext()
	defer cancel()

	it := intake.New(a.cfg, a.client, a.log)
	preview, err := it.SelectFile(ctx, *file, *supplier)
	if err != nil {
		return a.fail(err)
	}

	header := color.New(color.FgCyan, color.Bold)
	header.Printf("%s\n", preview.Filename)
	fmt.Printf("  format: %s  size: %d bytes  rows: %d\n",
		preview.FileFormat, preview.Size, preview.TotalRows)
	if preview.DetectedParser != "" {
		fmt.Printf("  detected supplier: %s\n", preview.DetectedParser)
	}
	if !preview.IsSupported {
		color.New(color.FgYellow).Println("  preview unavailable; the file may still import")
	}
	for _, ve := range preview.ValidationErrors {
		color.New(color.FgRed).Printf("  ! %s\n", ve)
	}

	if len(preview.Headers) > 0 {
		fmt.Println()
		header.Println(strings.Join(preview.Headers, " | "))
		for _, row := range preview.SampleRows {
			cells := make([]string, len(preview.Headers))
			for i, h := range preview.Headers {
				cells[i] = row[h]
			}
			fmt.Println(strings.Join(cells, " | "))
		}
	}

	parser := preview.DetectedParser
	if parser == "" {
		parser = *supplier
	}
	if info := it.ExtractOrderInfo(ctx, preview.Filename, parser); !info.IsEmpty() {
		fmt.Println()
		fmt.Printf("order number: %s  order date: %s\n", info.OrderNumber, info.OrderDate)
	}
	return core.ExitCodeSuccess
}

func (a *app) cmdImport(args []string) int {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "order file to import (csv/xls/xlsx)")
	supplier := fs.String("supplier", "", "supplier id (default: detect from filename)")
	orderNumber := fs.String("order-number", "", "order number override")
	orderDate := fs.String("order-date", "", "order date override (YYYY-MM-DD)")
	notes := fs.String("notes", "", "order notes")
	capsFlag := fs.String("caps", "", "comma-separated enrichment capabilities (default: recommended)")
	noEnrich := fs.Bool("no-enrich", false, "disable enrichment")
	quiet := fs.Bool("quiet", false, "suppress progress output")
	_ = fs.Parse(args)
	if *file == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		return core.ExitCodeUsage
	}

	ctx, cancel := signalContext()
	defer cancel()

	it := intake.New(a.cfg, a.client, a.log)
	preview, err := it.SelectFile(ctx, *file, *supplier)
	if err != nil {
		return a.fail(err)
	}

	resolver := suppliers.NewResolver(a.client, a.log)
	var capability *core.SupplierCapability
	if *supplier == "" {
		capability = resolver.AutoDetect(ctx, preview.DetectedParser)
		if capability == nil {
			fmt.Fprintf(os.Stderr, "could not detect a supplier for %s; pass --supplier\n", preview.Filename)
			return core.ExitCodeUsage
		}
	} else {
		capability, err = resolver.Resolve(ctx, *supplier)
		if err != nil {
			return a.fail(err)
		}
	}
	if preview.FileFormat != "" && !capability.SupportsFileType(preview.FileFormat) {
		color.New(color.FgYellow).Printf("Warning: %s does not list %s files as supported\n",
			capability.ID, preview.FileFormat)
	}

	defaults, err := suppliers.LoadCapabilityDefaults(a.cfg.CapabilitiesPath)
	if err != nil {
		a.log.Warn("Failed to load capability defaults", zap.Error(err))
	}
	sel := suppliers.NewSelection(*capability, defaults)
	switch {
	case *noEnrich:
		sel.ClearAll()
	case *capsFlag != "":
		sel.ClearAll()
		for _, c := range strings.Split(*capsFlag, ",") {
			sel.Toggle(strings.TrimSpace(c))
		}
	}
	if notice := sel.CredentialNotice(); notice != "" && !*quiet {
		color.New(color.FgYellow).Println(notice)
	}

	parser := preview.DetectedParser
	if parser == "" {
		parser = capability.ID
	}
	info := core.OrderInfo{OrderNumber: *orderNumber, OrderDate: *orderDate, Notes: *notes}
	info.Merge(it.ExtractOrderInfo(ctx, preview.Filename, parser))

	out := os.Stdout
	if *quiet {
		devNull, openErr := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if openErr == nil {
			defer devNull.Close()
			out = devNull
		}
	}
	reporter := newTerminalReporter(out)

	submitter := workflow.NewSubmitter(a.client, a.cfg.ServerURL, a.log)
	poller := workflow.NewPoller(a.client, a.cfg.PollInterval, a.log)
	runner := workflow.NewRunner(submitter, poller, reporter, a.cfg.SubmitTimeout, a.log)

	start := time.Now()
	result, taskStatus, runErr := runner.Run(ctx, *file, capability.ID, info, sel.Selected())
	duration := time.Since(start)

	a.recordOutcome(*file, capability.ID, info, sel.Selected(), result, taskStatus, duration, runErr)

	if runErr != nil {
		return exitCodeFor(runErr)
	}
	// An enrichment task failure is not an import failure: the parts are
	// in, and the reporter has already shown the task error.
	return core.ExitCodeSuccess
}

// recordOutcome persists one import attempt to the history database.
// History failures are logged, never surfaced; the import already happened.
func (a *app) recordOutcome(path, supplierID string, info core.OrderInfo, capabilities []string, result *core.ImportResult, taskStatus core.TaskStatus, duration time.Duration, runErr error) {
	hist, err := db.OpenHistory(a.cfg.HistoryDBPath, a.cfg.MigrationsPath)
	if err != nil {
		a.log.Warn("History database unavailable", zap.Error(err))
		return
	}
	defer hist.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	recordID, err := hist.RecordResult(ctx, filepath.Base(path), supplierID, info,
		strings.Join(capabilities, ","), result, taskStatus, duration, runErr)
	if err != nil {
		a.log.Warn("Failed to record import history", zap.Error(err))
		return
	}
	a.log.Debug("Import recorded", zap.String("record_id", recordID))
}

func (a *app) cmdHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "max records to show")
	supplier := fs.String("supplier", "", "filter by supplier id")
	cleanup := fs.Int("cleanup", 0, "prune records older than N days")
	_ = fs.Parse(args)

	ctx, cancel := signalContext()
	defer cancel()

	hist, err := db.OpenHistory(a.cfg.HistoryDBPath, a.cfg.MigrationsPath)
	if err != nil {
		return a.fail(err)
	}
	defer hist.Close()

	if *cleanup > 0 {
		n, err := hist.Cleanup(ctx, *cleanup)
		if err != nil {
			return a.fail(err)
		}
		fmt.Printf("pruned %d records older than %d days\n", n, *cleanup)
	}

	var records []db.ImportRecord
	if *supplier != "" {
		records, err = hist.QueryBySupplier(ctx, *supplier, *limit)
	} else {
		records, err = hist.QueryRecent(ctx, *limit)
	}
	if err != nil {
		return a.fail(err)
	}

	header := color.New(color.FgCyan, color.Bold)
	header.Printf("%-20s %-10s %-28s %6s %6s %-10s %s\n",
		"WHEN", "SUPPLIER", "FILE", "PARTS", "FAIL", "STATUS", "ORDER")
	for _, rec := range records {
		clr := color.New(color.FgGreen)
		if rec.Status != "succeeded" {
			clr = color.New(color.FgRed)
		}
		fmt.Printf("%-20s %-10s %-28s %6d %6d %s %s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			rec.SupplierID, rec.Filename, rec.Imported, rec.Failed,
			clr.Sprintf("%-10s", rec.Status), rec.OrderNumber)
	}
	return core.ExitCodeSuccess
}

func (a *app) cmdWatch() int {
	manager := shutdown.NewManager(a.log.Zap())
	manager.Start()

	store := metrics.NewStore(metrics.DefaultHistoryCapacity)

	var record watch.Recorder
	hist, err := db.OpenHistory(a.cfg.HistoryDBPath, a.cfg.MigrationsPath)
	if err != nil {
		a.log.Warn("History database unavailable; imports will not be recorded", zap.Error(err))
	} else {
		manager.Register("history", 10, func(context.Context) error { return hist.Close() })
		record = func(ctx context.Context, path, supplierID string, info core.OrderInfo, capabilities string, result *core.ImportResult, taskStatus core.TaskStatus, duration time.Duration, runErr error) {
			if _, recErr := hist.RecordResult(ctx, path, supplierID, info, capabilities, result, taskStatus, duration, runErr); recErr != nil {
				a.log.Warn("Failed to record import history", zap.Error(recErr))
			}
		}
	}

	defaults, err := suppliers.LoadCapabilityDefaults(a.cfg.CapabilitiesPath)
	if err != nil {
		a.log.Warn("Failed to load capability defaults", zap.Error(err))
	}

	it := intake.New(a.cfg, a.client, a.log)
	submitter := workflow.NewSubmitter(a.client, a.cfg.ServerURL, a.log)
	poller := workflow.NewPoller(a.client, a.cfg.PollInterval, a.log).WithStats(store)
	runner := workflow.NewRunner(submitter, poller, nil, a.cfg.SubmitTimeout, a.log)

	svc := watch.NewService(a.cfg, it, runner, defaults, record, store, a.log)
	if err := svc.Run(manager.Context()); err != nil {
		a.log.Error("Watch mode failed", zap.Error(err))
		_ = manager.Shutdown()
		return core.ExitCodeError
	}

	if err := manager.Shutdown(); err != nil {
		a.log.Warn("Shutdown incomplete", zap.Error(err))
	}

	snap := store.Snapshot()
	a.log.Info("Session summary",
		zap.Int64("imports", snap.ImportsTotal),
		zap.Int64("succeeded", snap.ImportsSucceed),
		zap.Int64("failed", snap.ImportsFailed),
		zap.Int64("parts_imported", snap.PartsImported),
		zap.Int64("polls_issued", snap.PollsIssued),
		zap.Int64("tasks_completed", snap.TasksCompleted),
		zap.Int64("tasks_failed", snap.TasksFailed),
		zap.Duration("uptime", snap.Uptime),
	)
	return manager.ExitCode()
}

// fail prints an error in workflow-aware form and maps it to an exit code.
func (a *app) fail(err error) int {
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "✗ %v\n", err)
	if we, ok := core.IsWorkflowError(err); ok && we.Action != "" {
		color.New(color.FgHiBlack).Fprintf(os.Stderr, "  %s\n", we.Action)
	}
	return exitCodeFor(err)
}

func exitCodeFor(err error) int {
	if err == nil {
		return core.ExitCodeSuccess
	}
	if core.IsValidationError(err) {
		return core.ExitCodeUsage
	}
	return core.ExitCodeError
}

func usage() {
	fmt.Println("usage: mm-importer <command> [flags]")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  suppliers                              list import-capable suppliers")
	fmt.Println("  preview  --file=order.csv              preview a file and its detected supplier")
	fmt.Println("  import   --file=order.csv [--supplier=lcsc] [--caps=...] [--no-enrich]")
	fmt.Println("  history  [--limit=20] [--supplier=id] [--cleanup=days]")
	fmt.Println("  watch                                  import files dropped into the watch dir")
	fmt.Println("  version")
	fmt.Println()
	fmt.Println("Service management (Windows): install, uninstall, start, stop, restart, status")
	fmt.Println()
	fmt.Println("Configuration comes from the environment (or a .env file);")
	fmt.Println("see example.env for the full list.")
}
