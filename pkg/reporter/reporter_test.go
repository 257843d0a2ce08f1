package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/opscart/node-placeholder-scaler/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func sampleUsable() models.UsableByPool {
	a := models.NamedPool("pool-a")
	return models.UsableByPool{
		a: {
			"node-2": {NodePool: a, CPUAllocM: 2000, MemAllocMi: 4096, CPUFreeM: 2000, MemFreeMi: 4096, CPUFreeRatio: 1, MemFreeRatio: 1},
			"node-1": {NodePool: a, CPUAllocM: 4000, MemAllocMi: 8192, CPURequestedM: 1000, MemRequestedMi: 2048,
				CPUFreeM: 3000, MemFreeMi: 6144, CPUFreeRatio: 0.75, MemFreeRatio: 0.75},
		},
		models.UnknownPool: {
			"node-9": {CPUAllocM: 1000, CPURequestedM: 1500, CPUFreeM: -500, CPUFreeRatio: -0.5},
		},
	}
}

func samplePlans() *PlanReport {
	return &PlanReport{
		GeneratedAt: reportTime,
		Events:      []string{"Workshop 2024-03-01"},
		Targets:     models.ReplicaTargets{"pool-a": 3},
		Plans: []models.PoolPlan{
			{Pool: "pool-a", CurrentReplicas: 1, DesiredReplicas: 3, Action: models.ActionScaleUp,
				TargetedByEvent: true, Fits: true, SchedulableNodes: 2, Reason: "calendar event"},
		},
		DryRun: true,
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"text", "json", "csv"} {
		f, err := ParseFormat(s)
		require.NoError(t, err)
		assert.Equal(t, ReportFormat(s), f)
	}
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("html")
	assert.Error(t, err)
}

func TestNewCapacityReportOrdering(t *testing.T) {
	report := NewCapacityReport(sampleUsable(), reportTime)

	require.Len(t, report.Nodes, 3)
	assert.Equal(t, "node-1", report.Nodes[0].Node)
	assert.Equal(t, "node-2", report.Nodes[1].Node)
	assert.Equal(t, "node-9", report.Nodes[2].Node)

	require.Len(t, report.Pools, 2)
	assert.Equal(t, "pool-a", report.Pools[0].NodePool.Name())
	assert.Equal(t, int64(5000), report.Pools[0].CPUFreeM)
	assert.Equal(t, "unknown-pool", report.Pools[1].NodePool.Name())
}

func TestCapacityText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(FormatText).WriteCapacity(&buf, NewCapacityReport(sampleUsable(), reportTime)))

	out := buf.String()
	assert.Contains(t, out, "POOL")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "-500m")
	assert.Contains(t, out, "unknown-pool")
	assert.Contains(t, out, "(total)")
}

func TestCapacityJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(FormatJSON).WriteCapacity(&buf, NewCapacityReport(sampleUsable(), reportTime)))

	var decoded struct {
		Nodes []map[string]any `json:"nodes"`
		Pools []map[string]any `json:"pools"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Nodes, 3)
	assert.Equal(t, "node-1", decoded.Nodes[0]["node"])
	assert.Equal(t, "pool-a", decoded.Nodes[0]["node_pool"])
	assert.Equal(t, 0.75, decoded.Nodes[0]["cpu_free_ratio"])
	assert.Equal(t, "unknown-pool", decoded.Pools[1]["node_pool"])
}

func TestCapacityCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(FormatCSV).WriteCapacity(&buf, NewCapacityReport(sampleUsable(), reportTime)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, "Pool", records[0][0])
	assert.Equal(t, []string{"pool-a", "node-1", "4000", "1000", "3000", "0.7500", "8192", "2048", "6144", "0.7500"}, records[1])
	assert.Equal(t, "", records[4][1])
}

func TestPlansText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(FormatText).WritePlans(&buf, samplePlans()))

	out := buf.String()
	assert.Contains(t, out, "(dry run)")
	assert.Contains(t, out, "  - Workshop 2024-03-01")
	assert.Contains(t, out, "SCALE_UP")

	buf.Reset()
	require.NoError(t, New(FormatText).WritePlans(&buf, &PlanReport{GeneratedAt: reportTime}))
	assert.Contains(t, buf.String(), "Active events: none")
}

func TestPlansJSONAndCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(FormatJSON).WritePlans(&buf, samplePlans()))
	assert.Contains(t, buf.String(), `"desired_replicas": 3`)
	assert.Contains(t, buf.String(), `"pool-a": 3`)

	buf.Reset()
	require.NoError(t, New(FormatCSV).WritePlans(&buf, samplePlans()))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"pool-a", "1", "3", "SCALE_UP", "true", "true", "2", "0", "calendar event"}, records[1])
}

func TestWriteDecisions(t *testing.T) {
	decisions := []*models.Decision{
		{ID: "id-1", Pool: "pool-a", DesiredReplicas: 3, Action: models.ActionScaleUp,
			Events: []string{"a", "b"}, CreatedAt: reportTime},
	}

	var buf bytes.Buffer
	require.NoError(t, New(FormatText).WriteDecisions(&buf, decisions))
	assert.Contains(t, buf.String(), "a; b")

	buf.Reset()
	require.NoError(t, New(FormatCSV).WriteDecisions(&buf, decisions))
	assert.True(t, strings.HasPrefix(buf.String(), "ID,Time,Pool"))
	assert.Contains(t, buf.String(), "2024-03-01T09:30:00Z")

	buf.Reset()
	require.NoError(t, New(FormatText).WriteDecisions(&buf, nil))
	assert.Equal(t, "No decisions recorded\n", buf.String())

	buf.Reset()
	require.NoError(t, New(FormatJSON).WriteDecisions(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}
