// Package export writes committed schedules for downstream tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/capsched/core/model"
)

// Entry is one committed task.
type Entry struct {
	TaskKey   string    `json:"task_key"`
	Kind      string    `json:"kind"`
	Parent    string    `json:"parent,omitempty"`
	Resources []string  `json:"resources"`
	State     string    `json:"process_state,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Score     float64   `json:"score"`
}

// Entries lists the scheduled tasks of l ordered by start, then key.
func Entries(l *model.Landscape) []Entry {
	var out []Entry
	for _, t := range l.Tasks.Values() {
		if !t.IsScheduled() || t.Scheduled == nil {
			continue
		}
		out = append(out, Entry{
			TaskKey:   t.Key,
			Kind:      t.Kind.String(),
			Parent:    t.Parent,
			Resources: t.Resources,
			State:     t.ProcessState,
			Start:     model.Time(t.Scheduled.StartW),
			End:       model.Time(t.Scheduled.EndW),
			Score:     t.Score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].TaskKey < out[j].TaskKey
	})
	return out
}

// WriteJSON writes the schedule to w in JSON format.
func WriteJSON(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	return enc.Encode(entries)
}

// WriteCSV writes the schedule to w in CSV format. Resources are joined
// with "|".
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"task_key", "kind", "parent", "resources", "process_state", "start", "end", "score"}); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			e.TaskKey,
			e.Kind,
			e.Parent,
			strings.Join(e.Resources, "|"),
			e.State,
			e.Start.Format(time.RFC3339),
			e.End.Format(time.RFC3339),
			strconv.FormatFloat(e.Score, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
