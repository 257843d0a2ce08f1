package resolver

import (
	"strconv"
	"testing"

	"github.com/opscart/node-placeholder-scaler/pkg/models"
	"github.com/stretchr/testify/assert"
)

func events(descriptions ...string) []models.CalendarEvent {
	evs := make([]models.CalendarEvent, 0, len(descriptions))
	for _, d := range descriptions {
		evs = append(evs, models.CalendarEvent{Summary: "Test Event", Description: d})
	}
	return evs
}

func TestGetReplicaCounts(t *testing.T) {
	tests := []struct {
		name     string
		events   []models.CalendarEvent
		expected models.ReplicaTargets
	}{
		{
			name:     "single event",
			events:   events("pool-a: 3\npool-b: 5\n"),
			expected: models.ReplicaTargets{"pool-a": 3, "pool-b": 5},
		},
		{
			name:     "max across events",
			events:   events("pool-a: 3\n", "pool-a: 7\n"),
			expected: models.ReplicaTargets{"pool-a": 7},
		},
		{
			name:     "max keeps larger first value",
			events:   events("pool-a: 10\n", "pool-a: 2\n"),
			expected: models.ReplicaTargets{"pool-a": 10},
		},
		{
			name:     "no events",
			events:   nil,
			expected: models.ReplicaTargets{},
		},
		{
			name:     "empty description",
			events:   events(""),
			expected: models.ReplicaTargets{},
		},
		{
			name:     "non-integer value skipped",
			events:   events("pool-a: not-a-number\n"),
			expected: models.ReplicaTargets{},
		},
		{
			name:     "valid sibling survives invalid value",
			events:   events("pool-a: 5\npool-b: bad\n"),
			expected: models.ReplicaTargets{"pool-a": 5},
		},
		{
			name:     "float and bool values skipped",
			events:   events("pool-a: 2.5\npool-b: true\npool-c: 1\n"),
			expected: models.ReplicaTargets{"pool-c": 1},
		},
		{
			name:     "negative value skipped",
			events:   events("pool-a: -1\npool-b: 0\n"),
			expected: models.ReplicaTargets{"pool-b": 0},
		},
		{
			name:     "invalid yaml skipped",
			events:   events("{{{invalid"),
			expected: models.ReplicaTargets{},
		},
		{
			name:     "plain string skipped",
			events:   events("just a plain string"),
			expected: models.ReplicaTargets{},
		},
		{
			name:     "list skipped",
			events:   events("- pool-a\n- pool-b\n"),
			expected: models.ReplicaTargets{},
		},
		{
			name:     "invalid events do not affect valid ones",
			events:   events("{{{invalid", "pool-a: 2", "just text"),
			expected: models.ReplicaTargets{"pool-a": 2},
		},
		{
			name:     "multiple pools across events",
			events:   events("pool-a: 3\npool-b: 1\n", "pool-b: 5\npool-c: 2\n"),
			expected: models.ReplicaTargets{"pool-a": 3, "pool-b": 5, "pool-c": 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetReplicaCounts(tt.events))
		})
	}
}

func TestGetReplicaCountsOrderIndependent(t *testing.T) {
	pairs := [][2]int{{1, 9}, {9, 1}, {4, 4}, {0, 3}}

	for _, p := range pairs {
		a := models.CalendarEvent{Description: "pool-p: " + strconv.Itoa(p[0])}
		b := models.CalendarEvent{Description: "pool-p: " + strconv.Itoa(p[1])}
		want := max(p[0], p[1])

		assert.Equal(t, want, GetReplicaCounts([]models.CalendarEvent{a, b})["pool-p"])
		assert.Equal(t, want, GetReplicaCounts([]models.CalendarEvent{b, a})["pool-p"])
	}
}

