// Package planner decides the placeholder replica count of each pool and
// checks it against the pool's current headroom.
package planner

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/opscart/node-placeholder-scaler/pkg/config"
	"github.com/opscart/node-placeholder-scaler/pkg/models"
)

// NodeProber answers per-node questions about the cluster
type NodeProber interface {
	IsUnschedulableNode(ctx context.Context, node string) bool
	IsPlaceholderPodRunningOnNode(ctx context.Context, node, namespace, selector string) bool
}

// Planner decides the desired placeholder replicas of each pool
type Planner struct {
	prober    NodeProber
	namespace string
	selector  string
}

// New creates a Planner that probes placeholder pods matching selector in namespace
func New(prober NodeProber, namespace, selector string) *Planner {
	return &Planner{
		prober:    prober,
		namespace: namespace,
		selector:  selector,
	}
}

// Plan computes the plan of one pool. The calendar target wins over the pool
// default. Fits is reported but never blocks the plan.
func (p *Planner) Plan(ctx context.Context, pool string, cfg config.PoolConfig, targets models.ReplicaTargets, usable models.UsableByPool, current int32) models.PoolPlan {
	plan := models.PoolPlan{
		Pool:                   pool,
		CurrentReplicas:        current,
		DesiredReplicas:        cfg.Replicas,
		ReplicaCPUMillicores:   cfg.ReplicaCPUMillicores(),
		ReplicaMemoryMebibytes: cfg.ReplicaMemoryMebibytes(),
	}
	if target, ok := targets[pool]; ok {
		plan.DesiredReplicas = int32(min(target, math.MaxInt32))
		plan.TargetedByEvent = true
	}

	switch {
	case plan.DesiredReplicas > current:
		plan.Action = models.ActionScaleUp
	case plan.DesiredReplicas < current:
		plan.Action = models.ActionScaleDown
	default:
		plan.Action = models.ActionNoAction
	}

	nodes := usable[models.NamedPool(pool)]
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	var capacity int64
	for _, name := range names {
		if p.prober.IsUnschedulableNode(ctx, name) {
			plan.CordonedNodes++
			continue
		}
		node := nodes[name]
		plan.SchedulableNodes++
		plan.FreeCPUMillicores += max(node.CPUFreeM, 0)
		plan.FreeMemoryMebibytes += max(node.MemFreeMi, 0)
		capacity += replicasFitting(node, plan.ReplicaCPUMillicores, plan.ReplicaMemoryMebibytes)
		if p.prober.IsPlaceholderPodRunningOnNode(ctx, name, p.namespace, p.selector) {
			plan.NodesWithPlaceholder++
		}
	}

	additional := int64(plan.DesiredReplicas) - int64(current)
	plan.Fits = additional <= 0 || capacity >= additional
	plan.Reason = reason(plan, additional, capacity)
	return plan
}

// replicasFitting returns how many placeholder replicas fit into the free
// resources of node. A replica without requests always fits.
func replicasFitting(node models.UsableResources, cpu, memory int64) int64 {
	if cpu <= 0 && memory <= 0 {
		return math.MaxInt32
	}
	fit := int64(math.MaxInt64)
	if cpu > 0 {
		fit = min(fit, max(node.CPUFreeM, 0)/cpu)
	}
	if memory > 0 {
		fit = min(fit, max(node.MemFreeMi, 0)/memory)
	}
	return fit
}

func reason(plan models.PoolPlan, additional, capacity int64) string {
	source := "pool default"
	if plan.TargetedByEvent {
		source = "calendar event"
	}

	switch {
	case plan.Action == models.ActionNoAction:
		return fmt.Sprintf("%d replicas already match %s", plan.CurrentReplicas, source)
	case plan.Action == models.ActionScaleDown:
		return fmt.Sprintf("%s asks for %d replicas, releasing %d", source, plan.DesiredReplicas, -additional)
	case plan.Fits:
		return fmt.Sprintf("%s asks for %d more replicas, %d fit on %d schedulable nodes",
			source, additional, capacity, plan.SchedulableNodes)
	default:
		return fmt.Sprintf("%s asks for %d more replicas but only %d fit on %d schedulable nodes; expecting new nodes",
			source, additional, capacity, plan.SchedulableNodes)
	}
}
