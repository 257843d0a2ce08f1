// Package scaler ties calendar demand, cluster headroom and the placeholder
// deployments together into one reconcile loop.
package scaler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opscart/node-placeholder-scaler/pkg/calendar"
	"github.com/opscart/node-placeholder-scaler/pkg/config"
	"github.com/opscart/node-placeholder-scaler/pkg/deployment"
	"github.com/opscart/node-placeholder-scaler/pkg/inventory"
	"github.com/opscart/node-placeholder-scaler/pkg/metrics"
	"github.com/opscart/node-placeholder-scaler/pkg/models"
	"github.com/opscart/node-placeholder-scaler/pkg/planner"
	"github.com/opscart/node-placeholder-scaler/pkg/resolver"
	"github.com/opscart/node-placeholder-scaler/pkg/storage"
	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"
)

// CalendarSource loads the demand calendar
type CalendarSource interface {
	GetCalendar(ctx context.Context, location string) (*calendar.Calendar, error)
}

// Options wires a Scaler. Monitor and Store are optional.
type Options struct {
	Config   *config.Config
	Pools    *config.Pools
	Template *appsv1.Deployment
	Client   kubernetes.Interface
	Source   CalendarSource
	Monitor  *metrics.Monitor
	Store    storage.Store
}

// Scaler runs the reconcile cycle: calendar, inventory, plan, apply and record
type Scaler struct {
	cfg       *config.Config
	pools     *config.Pools
	template  *appsv1.Deployment
	source    CalendarSource
	inventory *inventory.Inventory
	applier   *deployment.Applier
	planner   *planner.Planner
	monitor   *metrics.Monitor
	store     storage.Store
	now       func() time.Time
}

// Result is the outcome of one reconcile cycle
type Result struct {
	At      time.Time
	Events  []models.CalendarEvent
	Targets models.ReplicaTargets
	Usable  models.UsableByPool
	Plans   []models.PoolPlan
	DryRun  bool
}

// EventNames returns the formatted active events
func (r *Result) EventNames() []string {
	names := make([]string, 0, len(r.Events))
	for _, ev := range r.Events {
		names = append(names, calendar.FormatEvent(ev))
	}
	return names
}

// New creates a Scaler from opts. A nil Monitor gets a private one.
func New(opts Options) *Scaler {
	monitor := opts.Monitor
	if monitor == nil {
		monitor = metrics.NewMonitor()
	}

	inv := inventory.New(opts.Client, opts.Config.PoolLabel)
	inv.OnUnparsed = monitor.UnparsedQuantity

	return &Scaler{
		cfg:       opts.Config,
		pools:     opts.Pools,
		template:  opts.Template,
		source:    opts.Source,
		inventory: inv,
		applier:   deployment.NewApplier(opts.Client, opts.Config.PlaceholderNamespace, opts.Config.DryRun),
		planner:   planner.New(inv, opts.Config.PlaceholderNamespace, opts.Config.PlaceholderSelector),
		monitor:   monitor,
		store:     opts.Store,
		now:       time.Now,
	}
}

// Reconcile runs one cycle: read the calendar, resolve targets, measure the
// pools and apply one placeholder deployment per configured pool.
func (s *Scaler) Reconcile(ctx context.Context) (*Result, error) {
	result, err := s.reconcile(ctx)
	if err != nil {
		s.monitor.ReconcileFailed()
		return result, err
	}
	s.monitor.ReconcileSucceeded(float64(result.At.Unix()))
	return result, nil
}

func (s *Scaler) reconcile(ctx context.Context) (*Result, error) {
	result := &Result{At: s.now(), DryRun: s.cfg.DryRun}

	cal, err := s.source.GetCalendar(ctx, s.cfg.CalendarURL)
	if err != nil {
		return result, fmt.Errorf("failed to load calendar: %w", err)
	}
	if cal == nil {
		klog.InfoS("No calendar available, using pool defaults", "url", s.cfg.CalendarURL)
	}

	result.Events = calendar.GetEvents(cal, result.At)
	result.Targets = resolver.GetReplicaCounts(result.Events)
	s.monitor.ObserveEvents(len(result.Events))
	for pool := range result.Targets {
		if _, ok := s.pools.Pools[pool]; !ok {
			klog.InfoS("Calendar targets a pool that is not configured", "pool", pool)
		}
	}
	klog.V(1).InfoS("Resolved replica targets", "events", len(result.Events), "targets", result.Targets)

	result.Usable, err = s.inventory.UsableResources(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to read cluster capacity: %w", err)
	}
	s.monitor.ObserveUsable(result.Usable)

	eventNames := result.EventNames()
	var errs []error
	for _, pool := range s.pools.Names() {
		plan, err := s.reconcilePool(ctx, pool, result)
		if err != nil {
			klog.ErrorS(err, "Failed to reconcile pool", "pool", pool)
			errs = append(errs, fmt.Errorf("pool %s: %w", pool, err))
			continue
		}
		result.Plans = append(result.Plans, plan)
		s.monitor.ObservePlan(plan)
		s.record(ctx, plan, eventNames, result.At)
	}
	return result, errors.Join(errs...)
}

func (s *Scaler) reconcilePool(ctx context.Context, pool string, result *Result) (models.PoolPlan, error) {
	cfg := s.pools.Pools[pool]

	current, err := s.applier.CurrentReplicas(ctx, deployment.Name(pool))
	if err != nil {
		return models.PoolPlan{}, err
	}

	plan := s.planner.Plan(ctx, pool, cfg, result.Targets, result.Usable, current)
	if !plan.Fits {
		klog.InfoS("Placeholders exceed current headroom", "pool", pool, "desired", plan.DesiredReplicas, "reason", plan.Reason)
	}

	d, err := deployment.MakeDeployment(pool, s.template, cfg.NodeSelector, cfg.Resources, plan.DesiredReplicas)
	if err != nil {
		return plan, err
	}
	if _, err := s.applier.Apply(ctx, d); err != nil {
		return plan, err
	}

	klog.InfoS("Reconciled pool", "pool", pool, "action", plan.Action,
		"current", plan.CurrentReplicas, "desired", plan.DesiredReplicas, "fromEvent", plan.TargetedByEvent)
	return plan, nil
}

// record stores changes only; a failing store does not fail the cycle
func (s *Scaler) record(ctx context.Context, plan models.PoolPlan, events []string, at time.Time) {
	if s.store == nil || plan.Action == models.ActionNoAction {
		return
	}
	if err := s.store.SaveDecision(ctx, models.NewDecision(plan, events, s.cfg.DryRun, at)); err != nil {
		klog.ErrorS(err, "Failed to record decision", "pool", plan.Pool)
	}
}

// Run reconciles immediately and then every interval until ctx is done.
// Failed cycles are logged and retried on the next tick.
func (s *Scaler) Run(ctx context.Context, interval time.Duration) error {
	klog.InfoS("Starting placeholder scaler", "interval", interval, "pools", s.pools.Names(), "dryRun", s.cfg.DryRun)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Reconcile(ctx); err != nil {
			klog.ErrorS(err, "Reconcile failed")
		}

		select {
		case <-ctx.Done():
			klog.InfoS("Stopping placeholder scaler")
			return nil
		case <-ticker.C:
		}
	}
}
