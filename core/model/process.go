package model

import "sort"

// Process is a chain of tasks sharing a link name, ordered by sequence.
type Process struct {
	Name  string
	Tasks []string
}

// Processes maps chain names to their tasks.
type Processes struct {
	*Collection[*Process]
}

// BuildProcesses groups linked tasks by chain name.
func BuildProcesses(tasks *Collection[*Task]) *Processes {
	p := &Processes{Collection: NewCollection[*Process]()}
	tasks.Each(func(key string, t *Task) bool {
		name := t.ProcessName()
		if name == "" || t.Kind != KindProduction {
			return true
		}
		proc, ok := p.Get(name)
		if !ok {
			proc = &Process{Name: name}
			p.Put(name, proc)
		}
		proc.Tasks = append(proc.Tasks, key)
		return true
	})
	for _, proc := range p.Values() {
		sort.SliceStable(proc.Tasks, func(i, j int) bool {
			a, _ := tasks.Get(proc.Tasks[i])
			b, _ := tasks.Get(proc.Tasks[j])
			return a.Sequence < b.Sequence
		})
	}
	return p
}

// Predecessors returns the tasks before key in its chain, nearest first.
func (p *Process) Predecessors(key string) []string {
	for i, k := range p.Tasks {
		if k != key {
			continue
		}
		out := make([]string, 0, i)
		for j := i - 1; j >= 0; j-- {
			out = append(out, p.Tasks[j])
		}
		return out
	}
	return nil
}

// Successors returns the tasks after key in its chain, nearest first.
func (p *Process) Successors(key string) []string {
	for i, k := range p.Tasks {
		if k == key {
			out := make([]string, len(p.Tasks)-i-1)
			copy(out, p.Tasks[i+1:])
			return out
		}
	}
	return nil
}
