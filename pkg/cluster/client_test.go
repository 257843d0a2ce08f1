package cluster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/rest"
)

func stubLoaders(t *testing.T, inCluster func() (*rest.Config, error), kubeconfig func(string) (*rest.Config, error)) {
	t.Helper()
	origInCluster, origKubeconfig := inClusterConfig, kubeconfigConfig
	inClusterConfig, kubeconfigConfig = inCluster, kubeconfig
	t.Cleanup(func() {
		inClusterConfig, kubeconfigConfig = origInCluster, origKubeconfig
	})
}

func TestRESTConfigPrefersInCluster(t *testing.T) {
	kubeconfigCalls := 0
	stubLoaders(t,
		func() (*rest.Config, error) { return &rest.Config{Host: "https://in-cluster"}, nil },
		func(string) (*rest.Config, error) {
			kubeconfigCalls++
			return &rest.Config{Host: "https://kubeconfig"}, nil
		},
	)

	config, err := RESTConfig("")
	require.NoError(t, err)
	assert.Equal(t, "https://in-cluster", config.Host)
	assert.Equal(t, 0, kubeconfigCalls)
}

func TestRESTConfigFallsBackToKubeconfig(t *testing.T) {
	var gotPath string
	stubLoaders(t,
		func() (*rest.Config, error) { return nil, rest.ErrNotInCluster },
		func(path string) (*rest.Config, error) {
			gotPath = path
			return &rest.Config{Host: "https://kubeconfig"}, nil
		},
	)

	config, err := RESTConfig("/tmp/kubeconfig")
	require.NoError(t, err)
	assert.Equal(t, "https://kubeconfig", config.Host)
	assert.Equal(t, "/tmp/kubeconfig", gotPath)
}

func TestRESTConfigBothFail(t *testing.T) {
	stubLoaders(t,
		func() (*rest.Config, error) { return nil, rest.ErrNotInCluster },
		func(string) (*rest.Config, error) { return nil, errors.New("no kubeconfig") },
	)

	_, err := RESTConfig("")
	assert.ErrorContains(t, err, "no kubeconfig")
}

func TestNewClientset(t *testing.T) {
	stubLoaders(t,
		func() (*rest.Config, error) { return &rest.Config{Host: "https://127.0.0.1:6443"}, nil },
		func(string) (*rest.Config, error) { return nil, errors.New("unused") },
	)

	clientset, err := NewClientset("")
	require.NoError(t, err)
	assert.NotNil(t, clientset)
}
