package channel

import "sort"

// ProviderSet is the allow-list of provider adapter ids a channel's output
// may be routed to. It is fixed at construction.
type ProviderSet struct {
	ids map[string]struct{}
}

// NewProviderSet builds a set from ids. Empty ids are ignored and
// duplicates collapse.
func NewProviderSet(ids ...string) ProviderSet {
	set := ProviderSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id == "" {
			continue
		}
		set.ids[id] = struct{}{}
	}
	return set
}

// IDs returns a sorted copy of the ids.
func (s ProviderSet) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of ids.
func (s ProviderSet) Len() int {
	return len(s.ids)
}

// Allows reports whether a provider may carry the channel's output. An empty
// set allows every provider.
func (s ProviderSet) Allows(id string) bool {
	if len(s.ids) == 0 {
		return true
	}
	_, ok := s.ids[id]
	return ok
}
