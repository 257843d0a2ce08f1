package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/opscart/node-placeholder-scaler/pkg/calendar"
	"github.com/opscart/node-placeholder-scaler/pkg/cluster"
	"github.com/opscart/node-placeholder-scaler/pkg/config"
	"github.com/opscart/node-placeholder-scaler/pkg/deployment"
	"github.com/opscart/node-placeholder-scaler/pkg/inventory"
	"github.com/opscart/node-placeholder-scaler/pkg/metrics"
	"github.com/opscart/node-placeholder-scaler/pkg/reporter"
	"github.com/opscart/node-placeholder-scaler/pkg/resolver"
	"github.com/opscart/node-placeholder-scaler/pkg/scaler"
	"github.com/opscart/node-placeholder-scaler/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var (
	cfg *config.Config

	outputFormat string
	eventsAt     string
	historyLimit int
)

func main() {
	cfg = config.NewConfig()

	klog.InitFlags(nil)
	defer klog.Flush()

	rootCmd := &cobra.Command{
		Use:           "placeholder-scaler",
		Short:         "Scale node pool placeholders ahead of scheduled demand",
		Long:          `Reads per-pool replica targets from calendar events and keeps one placeholder deployment per node pool sized accordingly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.CalendarURL, "calendar-url", cfg.CalendarURL, "ICS calendar: http(s)/webcal URL, file:// URL or path (env CALENDAR_URL)")
	flags.StringVar(&cfg.Kubeconfig, "kubeconfig", cfg.Kubeconfig, "Kubeconfig used outside the cluster (default ~/.kube/config)")
	flags.StringVar(&cfg.PoolLabel, "pool-label", cfg.PoolLabel, "Node label naming the pool of a node")
	flags.StringVar(&cfg.PlaceholderNamespace, "namespace", cfg.PlaceholderNamespace, "Namespace of the placeholder deployments")
	flags.StringVar(&cfg.PlaceholderSelector, "selector", cfg.PlaceholderSelector, "Label selector of placeholder pods")
	flags.StringVar(&cfg.PoolsFile, "pools", cfg.PoolsFile, "Pools file (YAML)")
	flags.StringVar(&cfg.TemplateFile, "template", cfg.TemplateFile, "Placeholder deployment template (YAML)")
	flags.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Send writes with server-side dry-run (always on for plan)")
	flags.StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, csv")
	flags.AddGoFlagSet(flag.CommandLine)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile continuously and serve /metrics",
		RunE:  runLoop,
	}
	runCmd.Flags().DurationVar(&cfg.ReconcileInterval, "interval", cfg.ReconcileInterval, "Time between reconciles")
	runCmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Address of the metrics endpoint")

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute and print the plan of every pool without changing the cluster",
		Long:  `Runs one reconcile with server-side dry-run forced on, so deployment writes are validated by the API server but never persisted.`,
		RunE:  runPlan,
	}

	capacityCmd := &cobra.Command{
		Use:   "capacity",
		Short: "Show allocatable, requested and free resources per pool and node",
		RunE:  runCapacity,
	}

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Show calendar events in progress and the replica targets they resolve to",
		RunE:  runEvents,
	}
	eventsCmd.Flags().StringVar(&eventsAt, "at", "", "Instant to evaluate (RFC3339, default now)")

	historyCmd := &cobra.Command{
		Use:   "history [pool]",
		Short: "View recorded scaling decisions",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of decisions to show")

	rootCmd.AddCommand(runCmd, planCmd, capacityCmd, eventsCmd, historyCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		klog.ErrorS(err, "Command failed")
		klog.Flush()
		os.Exit(1)
	}
}

func newReporter() (*reporter.Reporter, error) {
	format, err := reporter.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return reporter.New(format), nil
}

func openStore(ctx context.Context, c *config.Config) (storage.Store, error) {
	if !c.StorageEnabled {
		return nil, nil
	}
	store, err := storage.NewPostgresStore(ctx, c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

func newScaler(ctx context.Context, c *config.Config, monitor *metrics.Monitor) (*scaler.Scaler, storage.Store, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	pools, err := config.LoadPools(c.PoolsFile)
	if err != nil {
		return nil, nil, err
	}
	template, err := deployment.LoadTemplate(c.TemplateFile)
	if err != nil {
		return nil, nil, err
	}
	client, err := cluster.NewClientset(c.Kubeconfig)
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(ctx, c)
	if err != nil {
		return nil, nil, err
	}

	s := scaler.New(scaler.Options{
		Config:   c,
		Pools:    pools,
		Template: template,
		Client:   client,
		Source:   calendar.NewSource(nil),
		Monitor:  monitor,
		Store:    store,
	})
	return s, store, nil
}

func runLoop(cmd *cobra.Command, args []string) error {
	ctx, stop := context.WithCancel(cmd.Context())
	defer stop()

	reg := prometheus.NewRegistry()
	monitor := metrics.NewMonitor()
	reg.MustRegister(monitor, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s, store, err := newScaler(ctx, cfg, monitor)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		klog.InfoS("Serving metrics", "addr", cfg.MetricsAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.ErrorS(err, "Metrics server failed")
			stop()
		}
	}()

	runErr := s.Run(ctx, cfg.ReconcileInterval)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		klog.ErrorS(err, "Failed to shut down metrics server")
	}
	return runErr
}

// planConfig returns a copy of c that only sends dry-run writes
func planConfig(c *config.Config) *config.Config {
	planned := *c
	planned.DryRun = true
	return &planned
}

func runPlan(cmd *cobra.Command, args []string) error {
	rep, err := newReporter()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, store, err := newScaler(ctx, planConfig(cfg), nil)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	result, reconcileErr := s.Reconcile(ctx)
	if result != nil {
		report := &reporter.PlanReport{
			GeneratedAt: result.At,
			Events:      result.EventNames(),
			Targets:     result.Targets,
			Plans:       result.Plans,
			DryRun:      result.DryRun,
		}
		if err := rep.WritePlans(os.Stdout, report); err != nil {
			return err
		}
	}
	return reconcileErr
}

func runCapacity(cmd *cobra.Command, args []string) error {
	rep, err := newReporter()
	if err != nil {
		return err
	}

	client, err := cluster.NewClientset(cfg.Kubeconfig)
	if err != nil {
		return err
	}

	inv := inventory.New(client, cfg.PoolLabel)
	usable, err := inv.UsableResources(cmd.Context())
	if err != nil {
		return err
	}
	return rep.WriteCapacity(os.Stdout, reporter.NewCapacityReport(usable, time.Now()))
}

func runEvents(cmd *cobra.Command, args []string) error {
	if cfg.CalendarURL == "" {
		return fmt.Errorf("CALENDAR_URL must be set")
	}

	var at time.Time
	if eventsAt != "" {
		var err error
		if at, err = time.Parse(time.RFC3339, eventsAt); err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
	}

	cal, err := calendar.NewSource(nil).GetCalendar(cmd.Context(), cfg.CalendarURL)
	if err != nil {
		return err
	}
	if cal == nil {
		fmt.Println("Calendar unavailable (server error); pool defaults apply")
		return nil
	}

	events := calendar.GetEvents(cal, at)
	fmt.Printf("Calendar timezone: %s\n", calendar.ResolveTimezone(cal))
	if len(events) == 0 {
		fmt.Println("No events in progress")
	}
	for _, ev := range events {
		fmt.Printf("- %s\n", calendar.FormatEvent(ev))
	}

	targets := resolver.GetReplicaCounts(events)
	if len(targets) > 0 {
		fmt.Println("\nReplica targets:")
		pools := make([]string, 0, len(targets))
		for pool := range targets {
			pools = append(pools, pool)
		}
		sort.Strings(pools)
		for _, pool := range pools {
			fmt.Printf("  %s: %d\n", pool, targets[pool])
		}
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	rep, err := newReporter()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	pool := ""
	if len(args) == 1 {
		pool = args[0]
	}
	decisions, err := store.ListDecisions(ctx, pool, historyLimit)
	if err != nil {
		return err
	}
	return rep.WriteDecisions(os.Stdout, decisions)
}
