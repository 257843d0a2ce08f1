package deployment

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"
)

// Applier creates or updates placeholder deployments in one namespace
type Applier struct {
	client    kubernetes.Interface
	namespace string
	dryRun    bool
}

// NewApplier creates an Applier. With dryRun set, writes are sent with
// server-side dry-run and nothing is persisted.
func NewApplier(client kubernetes.Interface, namespace string, dryRun bool) *Applier {
	return &Applier{
		client:    client,
		namespace: namespace,
		dryRun:    dryRun,
	}
}

func (a *Applier) dryRunOpt() []string {
	if a.dryRun {
		return []string{metav1.DryRunAll}
	}
	return nil
}

// Apply creates d in the applier's namespace, or updates the existing
// deployment of the same name
func (a *Applier) Apply(ctx context.Context, d *appsv1.Deployment) (*appsv1.Deployment, error) {
	deployments := a.client.AppsV1().Deployments(a.namespace)
	d = d.DeepCopy()
	d.Namespace = a.namespace

	existing, err := deployments.Get(ctx, d.Name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		klog.InfoS("Creating placeholder deployment", "deployment", klog.KRef(a.namespace, d.Name), "replicas", replicasOf(d), "dryRun", a.dryRun)
		created, err := deployments.Create(ctx, d, metav1.CreateOptions{DryRun: a.dryRunOpt()})
		if err != nil {
			return nil, fmt.Errorf("failed to create deployment %s: %w", d.Name, err)
		}
		return created, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment %s: %w", d.Name, err)
	}

	desired := d.DeepCopy()
	desired.ResourceVersion = existing.ResourceVersion
	klog.InfoS("Updating placeholder deployment", "deployment", klog.KRef(a.namespace, d.Name),
		"from", replicasOf(existing), "to", replicasOf(desired), "dryRun", a.dryRun)
	updated, err := deployments.Update(ctx, desired, metav1.UpdateOptions{DryRun: a.dryRunOpt()})
	if err != nil {
		return nil, fmt.Errorf("failed to update deployment %s: %w", d.Name, err)
	}
	return updated, nil
}

// CurrentReplicas returns spec.replicas of the named deployment, 0 when it does not exist
func (a *Applier) CurrentReplicas(ctx context.Context, name string) (int32, error) {
	d, err := a.client.AppsV1().Deployments(a.namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get deployment %s: %w", name, err)
	}
	return replicasOf(d), nil
}

// replicasOf returns spec.replicas, defaulting to 1 like the API server
func replicasOf(d *appsv1.Deployment) int32 {
	if d.Spec.Replicas == nil {
		return 1
	}
	return *d.Spec.Replicas
}
