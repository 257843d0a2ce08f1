// Package deployment builds and applies the placeholder Deployment of a pool.
package deployment

import (
	"fmt"
	"os"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"
)

// NameSuffix is appended to the pool name to form the deployment name
const NameSuffix = "-placeholder"

// Name returns the placeholder deployment name of pool
func Name(pool string) string {
	return pool + NameSuffix
}

// MakeDeployment returns a copy of template named "<pool>-placeholder" with
// replicas, the first container's resources and the pod node selector replaced.
// template is not modified.
func MakeDeployment(pool string, template *appsv1.Deployment, nodeSelector map[string]string, resources corev1.ResourceRequirements, replicas int32) (*appsv1.Deployment, error) {
	if template == nil {
		return nil, fmt.Errorf("deployment template is nil")
	}
	if len(template.Spec.Template.Spec.Containers) == 0 {
		return nil, fmt.Errorf("deployment template %q has no containers", template.Name)
	}

	d := template.DeepCopy()
	d.Name = Name(pool)
	d.Spec.Replicas = &replicas
	d.Spec.Template.Spec.Containers[0].Resources = *resources.DeepCopy()

	var selector map[string]string
	if nodeSelector != nil {
		selector = make(map[string]string, len(nodeSelector))
		for k, v := range nodeSelector {
			selector[k] = v
		}
	}
	d.Spec.Template.Spec.NodeSelector = selector

	return d, nil
}

// LoadTemplate reads a Deployment manifest (YAML or JSON) from path
func LoadTemplate(path string) (*appsv1.Deployment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment template: %w", err)
	}
	return ParseTemplate(data)
}

// ParseTemplate decodes a Deployment manifest
func ParseTemplate(data []byte) (*appsv1.Deployment, error) {
	var d appsv1.Deployment
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse deployment template: %w", err)
	}
	if len(d.Spec.Template.Spec.Containers) == 0 {
		return nil, fmt.Errorf("deployment template has no containers")
	}
	return &d, nil
}
