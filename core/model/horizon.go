package model

import (
	"fmt"
	"time"

	"github.com/kilianp07/capsched/core/interval"
)

// Horizon is the overall [StartW, EndW) scheduling boundary.
type Horizon struct {
	StartW int64 `json:"start_w"`
	EndW   int64 `json:"end_w"`
}

// Validate checks that the horizon is not empty.
func (h Horizon) Validate() error {
	if h.EndW <= h.StartW {
		return fmt.Errorf("horizon end %d must be after start %d", h.EndW, h.StartW)
	}
	return nil
}

// Interval returns the horizon as an untracked interval.
func (h Horizon) Interval() interval.Interval { return interval.New(h.StartW, h.EndW) }

// Clamp limits w to the horizon.
func (h Horizon) Clamp(w Window) Window {
	if w.EarliestW < h.StartW {
		w.EarliestW = h.StartW
	}
	if w.LatestW == 0 || w.LatestW > h.EndW {
		w.LatestW = h.EndW
	}
	return w
}

// Window is the earliest/latest permissible time for a task.
type Window struct {
	EarliestW int64 `json:"earliest_w"`
	LatestW   int64 `json:"latest_w"`
}

// Len returns the length of the window.
func (w Window) Len() int64 { return w.LatestW - w.EarliestW }

// Time converts seconds since the epoch to UTC time.
func Time(w int64) time.Time { return time.Unix(w, 0).UTC() }

// Seconds converts t to seconds since the epoch.
func Seconds(t time.Time) int64 { return t.Unix() }
