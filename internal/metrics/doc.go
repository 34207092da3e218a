// Package metrics records build observability data.
//
// Components receive a Recorder and default to NoopRecorder, so metrics never
// need nil checks at call sites:
//
//	builder := build.New(cfg, build.WithRecorder(metrics.NoopRecorder{}))
//
// PrometheusRecorder registers its collectors on a caller-provided registry.
// The registry can be written to a node-exporter textfile after each build
// with WriteTextfile.
package metrics
