package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/opscart/node-placeholder-scaler/pkg/models"
)

func capacityCSV(writer io.Writer, report *CapacityReport) error {
	w := csv.NewWriter(writer)

	header := []string{
		"Pool",
		"Node",
		"CPU Allocatable (m)",
		"CPU Requested (m)",
		"CPU Free (m)",
		"CPU Free Ratio",
		"Memory Allocatable (Mi)",
		"Memory Requested (Mi)",
		"Memory Free (Mi)",
		"Memory Free Ratio",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range report.Nodes {
		if err := w.Write(capacityRecord(row.Node, row.UsableResources)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	for _, row := range report.Pools {
		if err := w.Write(capacityRecord("", row.UsableResources)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func capacityRecord(node string, u models.UsableResources) []string {
	return []string{
		u.NodePool.Name(),
		node,
		strconv.FormatInt(u.CPUAllocM, 10),
		strconv.FormatInt(u.CPURequestedM, 10),
		strconv.FormatInt(u.CPUFreeM, 10),
		fmt.Sprintf("%.4f", u.CPUFreeRatio),
		strconv.FormatInt(u.MemAllocMi, 10),
		strconv.FormatInt(u.MemRequestedMi, 10),
		strconv.FormatInt(u.MemFreeMi, 10),
		fmt.Sprintf("%.4f", u.MemFreeRatio),
	}
}

func plansCSV(writer io.Writer, report *PlanReport) error {
	w := csv.NewWriter(writer)

	header := []string{"Pool", "Current", "Desired", "Action", "From Event", "Fits", "Schedulable Nodes", "Cordoned Nodes", "Reason"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, p := range report.Plans {
		row := []string{
			p.Pool,
			strconv.Itoa(int(p.CurrentReplicas)),
			strconv.Itoa(int(p.DesiredReplicas)),
			string(p.Action),
			strconv.FormatBool(p.TargetedByEvent),
			strconv.FormatBool(p.Fits),
			strconv.Itoa(p.SchedulableNodes),
			strconv.Itoa(p.CordonedNodes),
			p.Reason,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func decisionsCSV(writer io.Writer, decisions []*models.Decision) error {
	w := csv.NewWriter(writer)

	header := []string{"ID", "Time", "Pool", "Current", "Desired", "Action", "Fits", "Dry Run", "Reason", "Events"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, d := range decisions {
		row := []string{
			d.ID,
			d.CreatedAt.UTC().Format(time.RFC3339),
			d.Pool,
			strconv.Itoa(int(d.CurrentReplicas)),
			strconv.Itoa(int(d.DesiredReplicas)),
			string(d.Action),
			strconv.FormatBool(d.Fits),
			strconv.FormatBool(d.DryRun),
			d.Reason,
			strings.Join(d.Events, "; "),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}
