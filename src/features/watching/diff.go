package watching

import "slices"

// Diff compares two snapshots and returns the events that lead from previous
// to current: all creations first, then modifications, then deletions.
// Paths present in both snapshots with equal metadata produce no event.
func Diff(previous, current Snapshot) []FileEvent {
	var created, modified, deleted []string

	for path, meta := range current {
		before, existed := previous[path]
		switch {
		case !existed:
			created = append(created, path)
		case before.Changed(meta):
			modified = append(modified, path)
		}
	}
	for path := range previous {
		if _, exists := current[path]; !exists {
			deleted = append(deleted, path)
		}
	}

	events := make([]FileEvent, 0, len(created)+len(modified)+len(deleted))
	events = appendSorted(events, created, FileCreated)
	events = appendSorted(events, modified, FileModified)
	events = appendSorted(events, deleted, FileDeleted)
	return events
}

func appendSorted(events []FileEvent, paths []string, kind EventKind) []FileEvent {
	slices.Sort(paths)
	for _, path := range paths {
		events = append(events, FileEvent{Path: path, Kind: kind})
	}
	return events
}

// groupByKind splits an ordered event list into its created, modified and
// deleted runs, keeping that order.
func groupByKind(events []FileEvent) [][]FileEvent {
	var groups [][]FileEvent
	for i := 0; i < len(events); {
		j := i + 1
		for j < len(events) && events[j].Kind == events[i].Kind {
			j++
		}
		groups = append(groups, events[i:j])
		i = j
	}
	return groups
}
