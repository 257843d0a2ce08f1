package models

// NodeResources holds CPU and memory figures for a single node
type NodeResources struct {
	// CPU in millicores
	CPUMillicores int64 `json:"cpu_m"`

	// Memory in mebibytes
	MemoryMebibytes int64 `json:"mem_mi"`

	// Unparsed is set when a quantity could not be converted and was counted as zero
	Unparsed bool `json:"unparsed,omitempty"`
}

// Add accumulates other into r
func (r *NodeResources) Add(other NodeResources) {
	r.CPUMillicores += other.CPUMillicores
	r.MemoryMebibytes += other.MemoryMebibytes
	r.Unparsed = r.Unparsed || other.Unparsed
}

// PoolResources groups per-node records by pool: pool -> node -> record
type PoolResources map[Pool]map[string]NodeResources

// Set stores the record of node under pool
func (p PoolResources) Set(pool Pool, node string, res NodeResources) {
	if p[pool] == nil {
		p[pool] = make(map[string]NodeResources)
	}
	p[pool][node] = res
}

// Accumulate adds res to the record of node under pool
func (p PoolResources) Accumulate(pool Pool, node string, res NodeResources) {
	if p[pool] == nil {
		p[pool] = make(map[string]NodeResources)
	}
	current := p[pool][node]
	current.Add(res)
	p[pool][node] = current
}

// Get returns the record of node under pool, zero if absent
func (p PoolResources) Get(pool Pool, node string) NodeResources {
	return p[pool][node]
}

// UsableResources is the free-capacity view of one node.
// Free values are not clamped: a negative value means the node is over-committed.
type UsableResources struct {
	NodePool       Pool    `json:"node_pool"`
	CPUAllocM      int64   `json:"cpu_alloc_m"`
	MemAllocMi     int64   `json:"mem_alloc_mi"`
	CPURequestedM  int64   `json:"cpu_requested_m"`
	MemRequestedMi int64   `json:"mem_requested_mi"`
	CPUFreeM       int64   `json:"cpu_free_m"`
	MemFreeMi      int64   `json:"mem_free_mi"`
	CPUFreeRatio   float64 `json:"cpu_free_ratio"`
	MemFreeRatio   float64 `json:"mem_free_ratio"`
}

// UsableByPool groups usable resources by pool: pool -> node -> record
type UsableByPool map[Pool]map[string]UsableResources

// PoolTotals sums the usable resources of every node in pool
func (u UsableByPool) PoolTotals(pool Pool) UsableResources {
	total := UsableResources{NodePool: pool}
	for _, node := range u[pool] {
		total.CPUAllocM += node.CPUAllocM
		total.MemAllocMi += node.MemAllocMi
		total.CPURequestedM += node.CPURequestedM
		total.MemRequestedMi += node.MemRequestedMi
		total.CPUFreeM += node.CPUFreeM
		total.MemFreeMi += node.MemFreeMi
	}
	total.CPUFreeRatio = Ratio(total.CPUFreeM, total.CPUAllocM)
	total.MemFreeRatio = Ratio(total.MemFreeMi, total.MemAllocMi)
	return total
}

// Ratio returns part/whole, or 0 when whole is zero
func Ratio(part, whole int64) float64 {
	if whole == 0 {
		return 0.0
	}
	return float64(part) / float64(whole)
}
