// Package otel bridges accesskit metrics into OpenTelemetry observable
// instruments. The exporter registers a single collection callback that
// reads a metrics snapshot on each collection cycle.
package otel
