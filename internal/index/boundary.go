// Package index provides the vocabulary and trigger indexes the solver passes query.
package index

import (
	"errors"
	"sort"
	"strings"
	"sync"

	aho "github.com/petar-dambovaliev/aho-corasick"
	"github.com/tchap/go-patricia/v2/patricia"

	"rulesmith/internal/schema"
)

var errStop = errors.New("stop")

// BoundaryIndex answers prefix, suffix and substring questions over a fixed vocabulary.
// Every query excludes the exact match: "some word other than t".
//
// Queries are safe from many goroutines. Trie walks sort child lists in place,
// so they are serialized on walk.
type BoundaryIndex struct {
	words      map[string]struct{}
	prefixes   *patricia.Trie // word -> word
	suffixes   *patricia.Trie // reversed word -> word
	substrings *patricia.Trie // every suffix of every word -> longest owning word

	walk sync.Mutex
}

// NewBoundaryIndex builds the index from a word list. Empty strings are ignored.
func NewBoundaryIndex(words []string) *BoundaryIndex {
	ix := &BoundaryIndex{
		words:      make(map[string]struct{}, len(words)),
		prefixes:   patricia.NewTrie(),
		suffixes:   patricia.NewTrie(),
		substrings: patricia.NewTrie(),
	}
	for _, w := range words {
		ix.add(w)
	}
	return ix
}

// NewBoundaryIndexFromSet builds the index from a set.
func NewBoundaryIndexFromSet(words map[string]bool) *BoundaryIndex {
	list := make([]string, 0, len(words))
	for w := range words {
		list = append(list, w)
	}
	return NewBoundaryIndex(list)
}

func (ix *BoundaryIndex) add(w string) {
	if w == "" {
		return
	}
	if _, ok := ix.words[w]; ok {
		return
	}
	ix.words[w] = struct{}{}
	ix.prefixes.Insert(patricia.Prefix(w), w)
	ix.suffixes.Insert(patricia.Prefix(reverse(w)), w)

	for i := 0; i < len(w); i++ {
		key := patricia.Prefix(w[i:])
		if existing := ix.substrings.Get(key); existing != nil && len(existing.(string)) >= len(w) {
			continue
		}
		ix.substrings.Set(key, w)
	}
}

// Len returns the vocabulary size.
func (ix *BoundaryIndex) Len() int {
	return len(ix.words)
}

// Contains reports whether t is itself a vocabulary word.
func (ix *BoundaryIndex) Contains(t string) bool {
	_, ok := ix.words[t]
	return ok
}

// Words returns the vocabulary in sorted order.
func (ix *BoundaryIndex) Words() []string {
	out := make([]string, 0, len(ix.words))
	for w := range ix.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// HasPrefix reports whether some word other than t starts with t.
func (ix *BoundaryIndex) HasPrefix(t string) bool {
	return ix.ExamplePrefix(t) != ""
}

// HasSuffix reports whether some word other than t ends with t.
func (ix *BoundaryIndex) HasSuffix(t string) bool {
	return ix.ExampleSuffix(t) != ""
}

// HasSubstring reports whether t occurs inside some word other than t.
func (ix *BoundaryIndex) HasSubstring(t string) bool {
	return ix.ExampleSubstring(t) != ""
}

// ExamplePrefix returns a word other than t starting with t, or "".
func (ix *BoundaryIndex) ExamplePrefix(t string) string {
	if t == "" {
		return ""
	}
	return ix.firstOwnerLongerThan(ix.prefixes, t, len(t))
}

// ExampleSuffix returns a word other than t ending with t, or "".
func (ix *BoundaryIndex) ExampleSuffix(t string) string {
	if t == "" {
		return ""
	}
	return ix.firstOwnerLongerThan(ix.suffixes, reverse(t), len(t))
}

// ExampleSubstring returns a word other than t containing t, or "".
func (ix *BoundaryIndex) ExampleSubstring(t string) string {
	if t == "" {
		return ""
	}
	return ix.firstOwnerLongerThan(ix.substrings, t, len(t))
}

// Triggers returns a vocabulary word that trigger t would fire inside under
// boundary b, or "" when t is safe. BOTH never fires inside another word.
func (ix *BoundaryIndex) Triggers(t string, b schema.Boundary) string {
	switch b {
	case schema.BoundaryNone:
		return ix.ExampleSubstring(t)
	case schema.BoundaryLeft:
		return ix.ExamplePrefix(t)
	case schema.BoundaryRight:
		return ix.ExampleSuffix(t)
	}
	return ""
}

// FiresIn reports whether trigger t fires inside word (other than being word) under b.
func FiresIn(t, word string, b schema.Boundary) bool {
	if t == "" || t == word {
		return false
	}
	switch b {
	case schema.BoundaryNone:
		return strings.Contains(word, t)
	case schema.BoundaryLeft:
		return strings.HasPrefix(word, t)
	case schema.BoundaryRight:
		return strings.HasSuffix(word, t)
	}
	return false
}

// firstOwnerLongerThan visits the subtree under key and returns the first owning
// word longer than n. A longer owner cannot be the query itself.
func (ix *BoundaryIndex) firstOwnerLongerThan(trie *patricia.Trie, key string, n int) string {
	ix.walk.Lock()
	defer ix.walk.Unlock()

	var found string
	err := trie.VisitSubtree(patricia.Prefix(key), func(_ patricia.Prefix, item patricia.Item) error {
		if w := item.(string); len(w) > n {
			found = w
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return ""
	}
	return found
}

// Matches holds the batch answers for one query.
type Matches struct {
	Prefix    bool
	Suffix    bool
	Substring bool
}

// Fires reports whether the matches make a trigger unsafe under b.
func (m Matches) Fires(b schema.Boundary) bool {
	switch b {
	case schema.BoundaryNone:
		return m.Substring
	case schema.BoundaryLeft:
		return m.Prefix
	case schema.BoundaryRight:
		return m.Suffix
	}
	return false
}

// BatchCheck answers HasPrefix, HasSuffix and HasSubstring for many queries with
// a single scan over the vocabulary.
func (ix *BoundaryIndex) BatchCheck(queries []string) map[string]Matches {
	results := make(map[string]Matches, len(queries))
	patterns := make([]string, 0, len(queries))
	for _, q := range queries {
		if q == "" {
			continue
		}
		if _, ok := results[q]; ok {
			continue
		}
		results[q] = Matches{}
		patterns = append(patterns, q)
	}
	if len(patterns) == 0 || len(ix.words) == 0 {
		return results
	}

	builder := aho.NewAhoCorasickBuilder(aho.Opts{DFA: true})
	automaton := builder.Build(patterns)
	for w := range ix.words {
		iter := automaton.IterOverlappingByte([]byte(w))
		for next := iter.Next(); next != nil; next = iter.Next() {
			q := patterns[next.Pattern()]
			if q == w {
				continue
			}
			m := results[q]
			m.Substring = true
			if next.Start() == 0 {
				m.Prefix = true
			}
			if next.End() == len(w) {
				m.Suffix = true
			}
			results[q] = m
		}
	}
	return results
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
