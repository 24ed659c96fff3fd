package output

import "slices"

// Store is an append-only, ordered collection of outputs. It is a value
// type: every operation returns a new Store and leaves the receiver intact,
// which keeps state snapshots independent of later updates.
type Store []Output

// Append returns a store with o added at the end.
func (s Store) Append(o Output) Store {
	next := make(Store, 0, len(s)+1)
	next = append(next, s...)
	return append(next, o)
}

// Remove returns a store without the output with the given id. Removing an
// unknown id returns an equal store.
func (s Store) Remove(id string) Store {
	return slices.DeleteFunc(slices.Clone(s), func(o Output) bool { return o.ID == id })
}

// Find looks up an output by id.
func (s Store) Find(id string) (Output, bool) {
	for _, o := range s {
		if o.ID == id {
			return o, true
		}
	}
	return Output{}, false
}
