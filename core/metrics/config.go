package metrics

import "github.com/kilianp07/capsched/core/factory"

// Config lists the sinks to build.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// TextfilePath, when set, receives the Prometheus registry in text
	// exposition format after every run.
	TextfilePath string `json:"textfile_path"`
}
