package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/opscart/node-placeholder-scaler/pkg/converter"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"
)

// PoolConfig describes the placeholder deployment of one pool
type PoolConfig struct {
	NodeSelector map[string]string           `json:"nodeSelector,omitempty"`
	Resources    corev1.ResourceRequirements `json:"resources"`

	// Replicas is used when no calendar event targets the pool
	Replicas int32 `json:"replicas"`
}

// ReplicaCPUMillicores returns the cpu request of one placeholder replica
func (p PoolConfig) ReplicaCPUMillicores() int64 {
	q, ok := p.Resources.Requests[corev1.ResourceCPU]
	if !ok {
		return 0
	}
	return converter.MillicoresOf(q)
}

// ReplicaMemoryMebibytes returns the memory request of one placeholder replica
func (p PoolConfig) ReplicaMemoryMebibytes() int64 {
	q, ok := p.Resources.Requests[corev1.ResourceMemory]
	if !ok {
		return 0
	}
	return converter.MebibytesOf(q)
}

// Pools is the content of the pools file
type Pools struct {
	Pools map[string]PoolConfig `json:"pools"`
}

// Names returns the configured pool names, sorted
func (p *Pools) Names() []string {
	names := make([]string, 0, len(p.Pools))
	for name := range p.Pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadPools reads and validates the pools file at path
func LoadPools(path string) (*Pools, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pools file: %w", err)
	}
	return ParsePools(data)
}

// ParsePools decodes and validates a pools document
func ParsePools(data []byte) (*Pools, error) {
	var pools Pools
	if err := yaml.UnmarshalStrict(data, &pools); err != nil {
		return nil, fmt.Errorf("failed to parse pools file: %w", err)
	}
	if err := pools.Validate(); err != nil {
		return nil, err
	}
	return &pools, nil
}

// Validate checks every pool definition
func (p *Pools) Validate() error {
	if len(p.Pools) == 0 {
		return fmt.Errorf("no pools configured")
	}
	for _, name := range p.Names() {
		pool := p.Pools[name]
		if name == "" {
			return fmt.Errorf("pool name must not be empty")
		}
		if pool.Replicas < 0 {
			return fmt.Errorf("pool %s: replicas must be >= 0, got %d", name, pool.Replicas)
		}
		if q, ok := pool.Resources.Requests[corev1.ResourceCPU]; ok {
			if _, err := converter.ParseCPU(q.String()); err != nil {
				return fmt.Errorf("pool %s: %w", name, err)
			}
		}
		if q, ok := pool.Resources.Requests[corev1.ResourceMemory]; ok {
			if _, err := converter.ParseMemory(q.String()); err != nil {
				return fmt.Errorf("pool %s: %w", name, err)
			}
		}
	}
	return nil
}
