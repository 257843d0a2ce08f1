package models

// UnknownPoolName is how the unmapped pool is rendered.
const UnknownPoolName = "unknown-pool"

// Pool identifies a node pool. The zero value is UnknownPool, the pool of
// nodes that carry no pool label or are missing from a node/pool mapping.
type Pool struct {
	name string
}

// UnknownPool is the fallback pool for nodes whose pool cannot be determined
var UnknownPool = Pool{}

// NamedPool returns the pool called name. An empty name or UnknownPoolName
// yields UnknownPool, so a node labelled "unknown-pool" joins the fallback pool.
func NamedPool(name string) Pool {
	if name == UnknownPoolName {
		return UnknownPool
	}
	return Pool{name: name}
}

// IsUnknown reports whether p is the fallback pool
func (p Pool) IsUnknown() bool {
	return p.name == ""
}

// Name returns the pool name, or "unknown-pool" for the fallback pool
func (p Pool) Name() string {
	if p.IsUnknown() {
		return UnknownPoolName
	}
	return p.name
}

func (p Pool) String() string {
	return p.Name()
}

// MarshalText lets pools key JSON objects
func (p Pool) MarshalText() ([]byte, error) {
	return []byte(p.Name()), nil
}

// NodePoolMapping maps node names to the pool they belong to
type NodePoolMapping map[string]Pool

// PoolOf returns the pool of node, defaulting to UnknownPool
func (m NodePoolMapping) PoolOf(node string) Pool {
	if pool, ok := m[node]; ok {
		return pool
	}
	return UnknownPool
}

// ReplicaTargets maps pool names to the desired placeholder replica count
type ReplicaTargets map[string]int
