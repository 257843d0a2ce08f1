// Package converter turns Kubernetes resource quantities into the canonical
// accounting units used across the scaler: millicores and mebibytes.
package converter

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/klog/v2"
)

const bytesPerMebibyte = 1024 * 1024

// ParseCPU converts a CPU quantity ("1500m", "1.5", "2") to millicores
func ParseCPU(value string) (int64, error) {
	q, err := parseNonNegative(value)
	if err != nil {
		return 0, fmt.Errorf("invalid cpu quantity %q: %w", value, err)
	}
	return MillicoresOf(q), nil
}

// ParseMemory converts a memory quantity ("2097152Ki", "8Gi", "1073741824") to mebibytes
func ParseMemory(value string) (int64, error) {
	q, err := parseNonNegative(value)
	if err != nil {
		return 0, fmt.Errorf("invalid memory quantity %q: %w", value, err)
	}
	return MebibytesOf(q), nil
}

func parseNonNegative(value string) (resource.Quantity, error) {
	q, err := resource.ParseQuantity(strings.TrimSpace(value))
	if err != nil {
		return resource.Quantity{}, err
	}
	if q.Sign() < 0 {
		return resource.Quantity{}, fmt.Errorf("negative quantity")
	}
	return q, nil
}

// CPUToMillicores is ParseCPU that yields 0 for unparseable input
func CPUToMillicores(value string) int64 {
	m, err := ParseCPU(value)
	if err != nil {
		klog.V(2).InfoS("Treating unparseable cpu quantity as zero", "value", value, "err", err)
		return 0
	}
	return m
}

// MemoryToMebibytes is ParseMemory that yields 0 for unparseable input
func MemoryToMebibytes(value string) int64 {
	mi, err := ParseMemory(value)
	if err != nil {
		klog.V(2).InfoS("Treating unparseable memory quantity as zero", "value", value, "err", err)
		return 0
	}
	return mi
}

// MillicoresOf returns q in millicores
func MillicoresOf(q resource.Quantity) int64 {
	return q.MilliValue()
}

// MebibytesOf returns q in whole mebibytes, truncated
func MebibytesOf(q resource.Quantity) int64 {
	return q.Value() / bytesPerMebibyte
}
