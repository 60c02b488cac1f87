package notify

type actionKind int

const (
	actionAdd actionKind = iota
	actionRemove
	actionClear
)

type action struct {
	kind  actionKind
	entry Entry
	id    string
}

// reduce returns the list after applying a. It never mutates entries.
func reduce(entries []Entry, a action) []Entry {
	switch a.kind {
	case actionAdd:
		next := make([]Entry, len(entries), len(entries)+1)
		copy(next, entries)
		return append(next, a.entry)
	case actionRemove:
		next := make([]Entry, 0, len(entries))
		for _, e := range entries {
			if e.ID != a.id {
				next = append(next, e)
			}
		}
		return next
	case actionClear:
		return nil
	default:
		return entries
	}
}
