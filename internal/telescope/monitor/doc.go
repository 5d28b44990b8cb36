// Package monitor turns pipeline output into run diagnostics: per-plane
// residual summaries and histograms (PNG, gonum/plot) and a stage funnel
// chart (HTML, go-echarts). It consumes pipeline results as a Sink and is
// never imported by the tracking layers.
package monitor
