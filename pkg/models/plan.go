package models

import "time"

// PlanAction describes what a reconcile does to a pool's placeholder deployment
type PlanAction string

const (
	ActionScaleUp   PlanAction = "SCALE_UP"
	ActionScaleDown PlanAction = "SCALE_DOWN"
	ActionNoAction  PlanAction = "NO_ACTION"
)

// PoolPlan is the decision for one pool in one reconcile cycle
type PoolPlan struct {
	Pool            string     `json:"pool"`
	CurrentReplicas int32      `json:"current_replicas"`
	DesiredReplicas int32      `json:"desired_replicas"`
	Action          PlanAction `json:"action"`

	// TargetedByEvent is false when the pool default was used
	TargetedByEvent bool `json:"targeted_by_event"`

	// Per placeholder replica requests
	ReplicaCPUMillicores   int64 `json:"replica_cpu_m"`
	ReplicaMemoryMebibytes int64 `json:"replica_mem_mi"`

	// Headroom across schedulable nodes of the pool
	FreeCPUMillicores    int64 `json:"free_cpu_m"`
	FreeMemoryMebibytes  int64 `json:"free_mem_mi"`
	SchedulableNodes     int   `json:"schedulable_nodes"`
	CordonedNodes        int   `json:"cordoned_nodes"`
	NodesWithPlaceholder int   `json:"nodes_with_placeholder"`

	// Fits is false when the additional replicas exceed the current headroom.
	// The deployment is still applied; the cluster autoscaler is expected to add nodes.
	Fits   bool   `json:"fits"`
	Reason string `json:"reason"`
}

// Decision is a persisted record of a pool plan
type Decision struct {
	ID              string     `json:"id"`
	Pool            string     `json:"pool"`
	CurrentReplicas int32      `json:"current_replicas"`
	DesiredReplicas int32      `json:"desired_replicas"`
	Action          PlanAction `json:"action"`
	Fits            bool       `json:"fits"`
	Reason          string     `json:"reason"`
	Events          []string   `json:"events"`
	DryRun          bool       `json:"dry_run"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewDecision records plan together with the events that were active
func NewDecision(plan PoolPlan, events []string, dryRun bool, at time.Time) *Decision {
	return &Decision{
		Pool:            plan.Pool,
		CurrentReplicas: plan.CurrentReplicas,
		DesiredReplicas: plan.DesiredReplicas,
		Action:          plan.Action,
		Fits:            plan.Fits,
		Reason:          plan.Reason,
		Events:          append([]string{}, events...),
		DryRun:          dryRun,
		CreatedAt:       at,
	}
}
