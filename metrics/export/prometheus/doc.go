// Package prometheus renders goIAM metrics in Prometheus text exposition format.
//
// [NewExporter] accepts a [MetricsSource] (normally *goIAM.Engine) and exposes an
// [http.Handler]. Counter names follow goiam_*_total; the single histogram is
// goiam_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
