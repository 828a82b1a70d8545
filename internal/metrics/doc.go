// Package metrics provides observability hooks for Satsuma builds.
//
// Components receive a Recorder and default to NoopRecorder, so no nil checks
// are needed at call sites. The serve command swaps in a PrometheusRecorder
// when metrics are enabled and exposes it through HTTPHandler:
//
//	reg := prom.NewRegistry()
//	recorder := metrics.NewPrometheusRecorder(reg)
//	builder := build.NewBuilder(cfg).WithRecorder(recorder)
//	mux.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
