// Package cluster builds Kubernetes clients for the scaler.
package cluster

import (
	"fmt"
	"path/filepath"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	"k8s.io/klog/v2"
)

var (
	inClusterConfig  = rest.InClusterConfig
	kubeconfigConfig = func(path string) (*rest.Config, error) {
		return clientcmd.BuildConfigFromFlags("", path)
	}
)

// DefaultKubeconfig returns ~/.kube/config, or "" when there is no home directory
func DefaultKubeconfig() string {
	if home := homedir.HomeDir(); home != "" {
		return filepath.Join(home, ".kube", "config")
	}
	return ""
}

// RESTConfig tries in-cluster credentials first and falls back to the
// kubeconfig at path (default ~/.kube/config).
func RESTConfig(path string) (*rest.Config, error) {
	config, err := inClusterConfig()
	if err == nil {
		klog.V(2).InfoS("Using in-cluster credentials")
		return config, nil
	}
	klog.V(2).InfoS("In-cluster credentials unavailable, falling back to kubeconfig", "err", err)

	if path == "" {
		path = DefaultKubeconfig()
	}
	config, err = kubeconfigConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}
	return config, nil
}

// NewClientset creates a clientset using RESTConfig
func NewClientset(path string) (kubernetes.Interface, error) {
	config, err := RESTConfig(path)
	if err != nil {
		return nil, err
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}
	return clientset, nil
}
