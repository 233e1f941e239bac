// Package metrics defines the sinks scheduling runs report to. Sinks record
// committed tasks and may implement the optional recorder interfaces for run
// summaries and per-task failures. Sinks are built by name through the
// factory registry and combined with NewMultiSink when several are
// configured.
package metrics
