package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/opscart/node-placeholder-scaler/pkg/models"
)

// ReportFormat represents the output format
type ReportFormat string

const (
	FormatText ReportFormat = "text"
	FormatJSON ReportFormat = "json"
	FormatCSV  ReportFormat = "csv"
)

// ParseFormat validates a user supplied format name
func ParseFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(s); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want text, json or csv)", s)
	}
}

// CapacityRow is one node, or a pool total when Node is empty
type CapacityRow struct {
	Node string `json:"node,omitempty"`
	models.UsableResources
}

// CapacityReport lists the usable resources of every node and pool
type CapacityReport struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Nodes       []CapacityRow `json:"nodes"`
	Pools       []CapacityRow `json:"pools"`
}

// NewCapacityReport flattens usable into rows sorted by pool and node
func NewCapacityReport(usable models.UsableByPool, at time.Time) *CapacityReport {
	report := &CapacityReport{
		GeneratedAt: at,
		Nodes:       []CapacityRow{},
		Pools:       []CapacityRow{},
	}

	pools := make([]models.Pool, 0, len(usable))
	for pool := range usable {
		pools = append(pools, pool)
	}
	sort.Slice(pools, func(i, j int) bool {
		return pools[i].Name() < pools[j].Name()
	})

	for _, pool := range pools {
		nodes := make([]string, 0, len(usable[pool]))
		for node := range usable[pool] {
			nodes = append(nodes, node)
		}
		sort.Strings(nodes)
		for _, node := range nodes {
			report.Nodes = append(report.Nodes, CapacityRow{Node: node, UsableResources: usable[pool][node]})
		}
		report.Pools = append(report.Pools, CapacityRow{UsableResources: usable.PoolTotals(pool)})
	}
	return report
}

// PlanReport describes one reconcile cycle
type PlanReport struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Events      []string              `json:"events"`
	Targets     models.ReplicaTargets `json:"targets"`
	Plans       []models.PoolPlan     `json:"plans"`
	DryRun      bool                  `json:"dry_run"`
}

// Reporter renders reports in one format
type Reporter struct {
	format ReportFormat
}

// New creates a new reporter
func New(format ReportFormat) *Reporter {
	return &Reporter{
		format: format,
	}
}

// WriteCapacity renders a capacity report
func (r *Reporter) WriteCapacity(w io.Writer, report *CapacityReport) error {
	switch r.format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatCSV:
		return capacityCSV(w, report)
	default:
		return capacityText(w, report)
	}
}

// WritePlans renders the plans of a reconcile cycle
func (r *Reporter) WritePlans(w io.Writer, report *PlanReport) error {
	switch r.format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatCSV:
		return plansCSV(w, report)
	default:
		return plansText(w, report)
	}
}

// WriteDecisions renders stored decisions
func (r *Reporter) WriteDecisions(w io.Writer, decisions []*models.Decision) error {
	switch r.format {
	case FormatJSON:
		if decisions == nil {
			decisions = []*models.Decision{}
		}
		return writeJSON(w, decisions)
	case FormatCSV:
		return decisionsCSV(w, decisions)
	default:
		return decisionsText(w, decisions)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
