package inventory

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/klog/v2"
)

// IsPlaceholderPodRunningOnNode reports whether a pod matching selector in
// namespace is bound to node and in phase Running. API errors yield false.
func (i *Inventory) IsPlaceholderPodRunningOnNode(ctx context.Context, node, namespace, selector string) bool {
	pods, err := i.client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		klog.ErrorS(err, "Failed to list placeholder pods", "namespace", namespace, "selector", selector)
		return false
	}

	for _, pod := range pods.Items {
		if pod.Spec.NodeName == node && pod.Status.Phase == corev1.PodRunning {
			return true
		}
	}
	return false
}

// IsUnschedulableNode reports whether node is cordoned. API errors yield false.
func (i *Inventory) IsUnschedulableNode(ctx context.Context, node string) bool {
	n, err := i.client.CoreV1().Nodes().Get(ctx, node, metav1.GetOptions{})
	if err != nil {
		klog.ErrorS(err, "Failed to get node", "node", node)
		return false
	}
	return n.Spec.Unschedulable
}
