// Package resolver turns calendar events into per-pool placeholder replica targets.
package resolver

import (
	"github.com/opscart/node-placeholder-scaler/pkg/models"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

const intTag = "!!int"

// GetReplicaCounts parses each event description as a "pool: replicas"
// mapping and merges them, keeping the largest count seen for every pool.
// Descriptions that are not a mapping are skipped whole; non-integer values
// skip only their own key.
func GetReplicaCounts(events []models.CalendarEvent) models.ReplicaTargets {
	targets := models.ReplicaTargets{}

	for _, ev := range events {
		entries, ok := parseDescription(ev.Description)
		if !ok {
			klog.V(2).InfoS("Skipping event without a pool mapping", "event", ev.Summary)
			continue
		}

		for pool, replicas := range entries {
			if current, seen := targets[pool]; !seen || replicas > current {
				targets[pool] = replicas
			}
		}
	}

	return targets
}

// parseDescription returns the valid pool entries of a description, and
// false when the description is not a YAML mapping
func parseDescription(description string) (map[string]int, bool) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(description), &doc); err != nil {
		return nil, false
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, false
	}

	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, false
	}

	entries := make(map[string]int)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			continue
		}

		replicas, ok := replicaCount(value)
		if !ok {
			klog.V(2).InfoS("Skipping non-integer replica count", "pool", key.Value, "value", value.Value)
			continue
		}
		if current, seen := entries[key.Value]; !seen || replicas > current {
			entries[key.Value] = replicas
		}
	}
	return entries, true
}

func replicaCount(node *yaml.Node) (int, bool) {
	if node.Kind != yaml.ScalarNode || node.ShortTag() != intTag {
		return 0, false
	}

	var n int
	if err := node.Decode(&n); err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
