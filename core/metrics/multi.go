package metrics

import "errors"

// MultiSink forwards every record to all of its sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink combines sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCommits forwards to every sink and joins their errors.
func (m *MultiSink) RecordCommits(recs []CommitRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordCommits(recs))
	}
	return errors.Join(errs...)
}

// RecordRun forwards to the sinks implementing RunRecorder.
func (m *MultiSink) RecordRun(sum RunSummary) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(RunRecorder); ok {
			errs = append(errs, r.RecordRun(sum))
		}
	}
	return errors.Join(errs...)
}

// RecordFailure forwards to the sinks implementing FailureRecorder.
func (m *MultiSink) RecordFailure(ev FailureEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(FailureRecorder); ok {
			errs = append(errs, r.RecordFailure(ev))
		}
	}
	return errors.Join(errs...)
}
