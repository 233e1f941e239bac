package interval

// Union inserts iv into l, keeping l ordered. The interval is merged with the
// existing intervals it crosses; an interval that merely touches a neighbour
// at an endpoint is inserted next to it and not merged. Feasible start-time
// results are grown with this function, and callers rely on touching windows
// staying separate.
func Union(l *List, iv Interval) {
	items := l.items
	i := 0
	for i < len(items) && items[i].EndW <= iv.StartW {
		if items[i].StartW == iv.StartW && items[i].EndW == iv.EndW {
			return
		}
		i++
	}
	if i == len(items) || items[i].StartW >= iv.EndW {
		if i < len(items) && items[i].StartW == iv.StartW && items[i].EndW == iv.EndW {
			return
		}
		l.Insert(i, iv)
		return
	}

	merged := iv
	if items[i].StartW < merged.StartW {
		merged.StartW = items[i].StartW
	}
	j := i
	for j < len(items) && items[j].StartW < merged.EndW {
		if items[j].EndW > merged.EndW {
			merged.EndW = items[j].EndW
		}
		j++
	}
	l.items = append(items[:i], append([]Interval{merged}, items[j:]...)...)
}

// UnionAll folds every interval of src into l with Union.
func UnionAll(l *List, src List) {
	for _, iv := range src.items {
		Union(l, iv)
	}
}
