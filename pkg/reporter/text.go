package reporter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/opscart/node-placeholder-scaler/pkg/models"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func capacityText(w io.Writer, report *CapacityReport) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "POOL\tNODE\tCPU ALLOC\tCPU REQ\tCPU FREE\tCPU FREE %\tMEM ALLOC\tMEM REQ\tMEM FREE\tMEM FREE %")
	for _, row := range report.Nodes {
		writeCapacityRow(tw, row.NodePool.Name(), row.Node, row.UsableResources)
	}
	for _, row := range report.Pools {
		writeCapacityRow(tw, row.NodePool.Name(), "(total)", row.UsableResources)
	}
	return tw.Flush()
}

func writeCapacityRow(w io.Writer, pool, node string, u models.UsableResources) {
	fmt.Fprintf(w, "%s\t%s\t%dm\t%dm\t%dm\t%.1f%%\t%dMi\t%dMi\t%dMi\t%.1f%%\n",
		pool, node,
		u.CPUAllocM, u.CPURequestedM, u.CPUFreeM, u.CPUFreeRatio*100,
		u.MemAllocMi, u.MemRequestedMi, u.MemFreeMi, u.MemFreeRatio*100)
}

func plansText(w io.Writer, report *PlanReport) error {
	mode := ""
	if report.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "Reconcile at %s%s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"), mode)

	if len(report.Events) == 0 {
		fmt.Fprintln(w, "Active events: none")
	} else {
		fmt.Fprintln(w, "Active events:")
		for _, ev := range report.Events {
			fmt.Fprintf(w, "  - %s\n", ev)
		}
	}
	fmt.Fprintln(w)

	tw := newTable(w)
	fmt.Fprintln(tw, "POOL\tCURRENT\tDESIRED\tACTION\tFITS\tNODES\tCORDONED\tREASON")
	for _, p := range report.Plans {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%d\t%d\t%s\n",
			p.Pool, p.CurrentReplicas, p.DesiredReplicas, p.Action, yesNo(p.Fits),
			p.SchedulableNodes, p.CordonedNodes, p.Reason)
	}
	return tw.Flush()
}

func decisionsText(w io.Writer, decisions []*models.Decision) error {
	if len(decisions) == 0 {
		_, err := fmt.Fprintln(w, "No decisions recorded")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "TIME\tPOOL\tCURRENT\tDESIRED\tACTION\tDRY RUN\tEVENTS")
	for _, d := range decisions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			d.CreatedAt.Format("2006-01-02 15:04:05"), d.Pool, d.CurrentReplicas, d.DesiredReplicas,
			d.Action, yesNo(d.DryRun), strings.Join(d.Events, "; "))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
