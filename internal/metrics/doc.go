// Package metrics declares the Prometheus metrics exported by the card
// archive service and a small collector that keeps gauge values in sync
// with catalog statistics.
package metrics
