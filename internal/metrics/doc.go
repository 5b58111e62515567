// Package metrics records build and live-reload metrics.
//
// Components take a Recorder through a WithRecorder setter and default to NoopRecorder:
//
//	reg := metrics.NewRegistry()
//	builder := build.NewBuilder(cfg).WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// The dev server exposes reg on /metrics via HTTPHandler.
package metrics
