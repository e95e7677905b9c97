package index

import (
	"sort"
	"sync"

	aho "github.com/petar-dambovaliev/aho-corasick"
	"github.com/tchap/go-patricia/v2/patricia"

	"rulesmith/internal/schema"
)

// SubstringIndex indexes rendered trigger strings, each owned by one or more
// active entities. It answers both directions of the substring relation.
//
// Add and Remove must not run concurrently with queries. After Freeze, queries
// may run from many goroutines: the automaton is immutable and trie walks,
// which reorder child lists, are serialized on walk.
type SubstringIndex struct {
	owners   map[string][]schema.Correction
	suffixes *patricia.Trie // suffix of a trigger -> []string triggers having it
	walk     sync.Mutex

	mu        sync.Mutex
	automaton aho.AhoCorasick
	patterns  []string
	stale     bool
}

// NewSubstringIndex creates an empty index.
func NewSubstringIndex() *SubstringIndex {
	return &SubstringIndex{
		owners:   make(map[string][]schema.Correction),
		suffixes: patricia.NewTrie(),
		stale:    true,
	}
}

// Len returns the number of distinct triggers.
func (ix *SubstringIndex) Len() int {
	return len(ix.owners)
}

// Add registers owner under trigger.
func (ix *SubstringIndex) Add(trigger string, owner schema.Correction) {
	if trigger == "" {
		return
	}
	existing, ok := ix.owners[trigger]
	for _, o := range existing {
		if o == owner {
			return
		}
	}
	ix.owners[trigger] = append(existing, owner)
	if ok {
		return
	}

	for i := 0; i < len(trigger); i++ {
		key := patricia.Prefix(trigger[i:])
		var list []string
		if item := ix.suffixes.Get(key); item != nil {
			list = item.([]string)
		}
		ix.suffixes.Set(key, append(list, trigger))
	}
	ix.stale = true
}

// Remove unregisters owner from trigger. The trigger disappears with its last owner.
func (ix *SubstringIndex) Remove(trigger string, owner schema.Correction) {
	existing, ok := ix.owners[trigger]
	if !ok {
		return
	}
	kept := make([]schema.Correction, 0, len(existing))
	for _, o := range existing {
		if o != owner {
			kept = append(kept, o)
		}
	}
	if len(kept) > 0 {
		ix.owners[trigger] = kept
		return
	}
	delete(ix.owners, trigger)

	for i := 0; i < len(trigger); i++ {
		key := patricia.Prefix(trigger[i:])
		item := ix.suffixes.Get(key)
		if item == nil {
			continue
		}
		list := item.([]string)
		rest := make([]string, 0, len(list))
		for _, t := range list {
			if t != trigger {
				rest = append(rest, t)
			}
		}
		if len(rest) == 0 {
			ix.suffixes.Delete(key)
		} else {
			ix.suffixes.Set(key, rest)
		}
	}
	ix.stale = true
}

// Owners returns the entities registered under trigger.
func (ix *SubstringIndex) Owners(trigger string) []schema.Correction {
	return ix.owners[trigger]
}

// Freeze builds the automaton so concurrent queries never rebuild it.
func (ix *SubstringIndex) Freeze() *SubstringIndex {
	ix.ensureAutomaton()
	return ix
}

func (ix *SubstringIndex) ensureAutomaton() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if !ix.stale {
		return
	}
	ix.patterns = make([]string, 0, len(ix.owners))
	for t := range ix.owners {
		ix.patterns = append(ix.patterns, t)
	}
	sort.Strings(ix.patterns)
	if len(ix.patterns) > 0 {
		builder := aho.NewAhoCorasickBuilder(aho.Opts{DFA: true})
		ix.automaton = builder.Build(ix.patterns)
	}
	ix.stale = false
}

// ContainedIn returns the indexed triggers, other than q, that occur inside q.
func (ix *SubstringIndex) ContainedIn(q string) []string {
	ix.ensureAutomaton()
	if len(ix.patterns) == 0 || q == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	iter := ix.automaton.IterOverlappingByte([]byte(q))
	for next := iter.Next(); next != nil; next = iter.Next() {
		t := ix.patterns[next.Pattern()]
		if t == q || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Containing returns the indexed triggers, other than q, that contain q.
func (ix *SubstringIndex) Containing(q string) []string {
	if q == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	ix.walk.Lock()
	defer ix.walk.Unlock()
	ix.suffixes.VisitSubtree(patricia.Prefix(q), func(_ patricia.Prefix, item patricia.Item) error {
		for _, t := range item.([]string) {
			if t == q || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
		return nil
	})
	sort.Strings(out)
	return out
}
