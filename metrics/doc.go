// Package metrics exports search pool activity to Prometheus.
package metrics
