// Package metrics records build and preview metrics.
//
// Components take a Recorder and default to NoopRecorder, so metrics stay
// optional without nil checks at every call site. PrometheusRecorder is the
// real implementation; HTTPHandler exposes its registry.
package metrics
