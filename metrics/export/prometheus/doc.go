// Package prometheus renders accesskit metrics in Prometheus text
// exposition format, without a client_golang dependency. Mount
// [PrometheusExporter.Handler] at the scrape path.
package prometheus
