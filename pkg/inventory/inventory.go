// Package inventory derives per-pool allocatable, requested and free
// resources from the nodes and pods of a cluster.
package inventory

import (
	"context"
	"fmt"

	"github.com/opscart/node-placeholder-scaler/pkg/converter"
	"github.com/opscart/node-placeholder-scaler/pkg/models"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"
)

// DefaultPoolLabel is the node label naming the pool a node belongs to
const DefaultPoolLabel = "hub.jupyter.org/pool-name"

// Inventory reads nodes and pods to account resources per node pool
type Inventory struct {
	client   kubernetes.Interface
	labelKey string

	// OnUnparsed, when set, is called for every quantity counted as zero
	// because it could not be converted. resource is "cpu" or "memory".
	OnUnparsed func(resource string)
}

// New creates an Inventory. An empty labelKey selects DefaultPoolLabel.
func New(client kubernetes.Interface, labelKey string) *Inventory {
	if labelKey == "" {
		labelKey = DefaultPoolLabel
	}
	return &Inventory{
		client:   client,
		labelKey: labelKey,
	}
}

// LabelKey returns the node label used to map nodes to pools
func (i *Inventory) LabelKey() string {
	return i.labelKey
}

// NodePoolMapping maps every node name to the pool named by its labelKey label.
// Nodes without the label map to models.UnknownPool.
func (i *Inventory) NodePoolMapping(ctx context.Context, labelKey string) (models.NodePoolMapping, error) {
	if labelKey == "" {
		labelKey = DefaultPoolLabel
	}

	nodes, err := i.client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	mapping := make(models.NodePoolMapping, len(nodes.Items))
	for _, node := range nodes.Items {
		if name, ok := node.Labels[labelKey]; ok {
			mapping[node.Name] = models.NamedPool(name)
		} else {
			mapping[node.Name] = models.UnknownPool
		}
	}
	return mapping, nil
}

// AllocatableByPool returns the allocatable cpu and memory of every node, grouped by pool
func (i *Inventory) AllocatableByPool(ctx context.Context, mapping models.NodePoolMapping) (models.PoolResources, error) {
	nodes, err := i.client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	result := make(models.PoolResources)
	for _, node := range nodes.Items {
		res := i.convert(node.Name, node.Status.Allocatable)
		result.Set(mapping.PoolOf(node.Name), node.Name, res)
	}
	return result, nil
}

// RequestedByPool sums the container requests of every scheduled pod per node, grouped by pool.
// Pods of every phase count; pods not bound to a node are skipped.
func (i *Inventory) RequestedByPool(ctx context.Context, mapping models.NodePoolMapping) (models.PoolResources, error) {
	pods, err := i.client.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	result := make(models.PoolResources)
	for _, pod := range pods.Items {
		nodeName := pod.Spec.NodeName
		if nodeName == "" {
			continue
		}
		pool := mapping.PoolOf(nodeName)
		for _, container := range pod.Spec.Containers {
			result.Accumulate(pool, nodeName, i.convert(nodeName, container.Resources.Requests))
		}
	}
	return result, nil
}

// UsableResources computes the free capacity of every node, grouped by pool
func (i *Inventory) UsableResources(ctx context.Context) (models.UsableByPool, error) {
	mapping, err := i.NodePoolMapping(ctx, i.labelKey)
	if err != nil {
		return nil, err
	}

	alloc, err := i.AllocatableByPool(ctx, mapping)
	if err != nil {
		return nil, err
	}

	requested, err := i.RequestedByPool(ctx, mapping)
	if err != nil {
		return nil, err
	}

	return ComputeUsable(alloc, requested), nil
}

// ComputeUsable subtracts requested from allocatable for every (pool, node) present in alloc.
// Free values are not clamped at zero.
func ComputeUsable(alloc, requested models.PoolResources) models.UsableByPool {
	usable := make(models.UsableByPool, len(alloc))
	for pool, nodes := range alloc {
		usable[pool] = make(map[string]models.UsableResources, len(nodes))
		for node, a := range nodes {
			r := requested.Get(pool, node)
			cpuFree := a.CPUMillicores - r.CPUMillicores
			memFree := a.MemoryMebibytes - r.MemoryMebibytes
			usable[pool][node] = models.UsableResources{
				NodePool:       pool,
				CPUAllocM:      a.CPUMillicores,
				MemAllocMi:     a.MemoryMebibytes,
				CPURequestedM:  r.CPUMillicores,
				MemRequestedMi: r.MemoryMebibytes,
				CPUFreeM:       cpuFree,
				MemFreeMi:      memFree,
				CPUFreeRatio:   models.Ratio(cpuFree, a.CPUMillicores),
				MemFreeRatio:   models.Ratio(memFree, a.MemoryMebibytes),
			}
		}
	}
	return usable
}

// convert reads cpu and memory out of list. Missing entries count as zero.
func (i *Inventory) convert(node string, list corev1.ResourceList) models.NodeResources {
	var res models.NodeResources
	var err error

	if q, ok := list[corev1.ResourceCPU]; ok {
		if res.CPUMillicores, err = converter.ParseCPU(q.String()); err != nil {
			klog.V(2).InfoS("Counting unparseable cpu as zero", "node", node, "err", err)
			res.Unparsed = true
			i.unparsed("cpu")
		}
	}
	if q, ok := list[corev1.ResourceMemory]; ok {
		if res.MemoryMebibytes, err = converter.ParseMemory(q.String()); err != nil {
			klog.V(2).InfoS("Counting unparseable memory as zero", "node", node, "err", err)
			res.Unparsed = true
			i.unparsed("memory")
		}
	}
	return res
}

func (i *Inventory) unparsed(resource string) {
	if i.OnUnparsed != nil {
		i.OnUnparsed(resource)
	}
}
