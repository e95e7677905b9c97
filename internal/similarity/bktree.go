// Package similarity finds the typos closest to a query, so a lookup that
// misses can suggest what was meant.
package similarity

import "sort"

// BKTree indexes strings by edit distance.
type BKTree struct {
	root *bkNode
	size int
}

type bkNode struct {
	word     string
	children map[int]*bkNode
}

// NewBKTree creates a new empty BK-tree.
func NewBKTree() *BKTree {
	return &BKTree{}
}

// Build creates a tree holding words.
func Build(words []string) *BKTree {
	t := NewBKTree()
	t.InsertAll(words)
	return t
}

// Insert adds a word to the tree. Empty and duplicate words are ignored.
func (t *BKTree) Insert(word string) {
	if word == "" {
		return
	}
	if t.root == nil {
		t.root = &bkNode{word: word, children: make(map[int]*bkNode)}
		t.size++
		return
	}

	current := t.root
	for {
		dist := LevenshteinDistance(word, current.word)
		if dist == 0 {
			return
		}
		child, exists := current.children[dist]
		if !exists {
			current.children[dist] = &bkNode{word: word, children: make(map[int]*bkNode)}
			t.size++
			return
		}
		current = child
	}
}

// InsertAll adds multiple words to the tree.
func (t *BKTree) InsertAll(words []string) {
	for _, word := range words {
		t.Insert(word)
	}
}

// SearchResult holds a search result with its distance.
type SearchResult struct {
	Word     string
	Distance int
}

// Search finds all words within maxDistance edits of query, in tree order.
func (t *BKTree) Search(query string, maxDistance int) []SearchResult {
	if t.root == nil || query == "" {
		return nil
	}
	var results []SearchResult
	t.searchNode(t.root, query, maxDistance, &results)
	return results
}

func (t *BKTree) searchNode(node *bkNode, query string, maxDistance int, results *[]SearchResult) {
	dist := LevenshteinDistance(query, node.word)
	if dist <= maxDistance {
		*results = append(*results, SearchResult{Word: node.word, Distance: dist})
	}

	// Triangle inequality: only children in [dist-max, dist+max] can match.
	for childDist, child := range node.children {
		if childDist >= dist-maxDistance && childDist <= dist+maxDistance {
			t.searchNode(child, query, maxDistance, results)
		}
	}
}

// Nearest returns up to limit words within maxDistance of query, closest
// first and alphabetical among equals. The query itself is excluded.
// A limit of 0 returns every match.
func (t *BKTree) Nearest(query string, maxDistance, limit int) []SearchResult {
	var results []SearchResult
	for _, r := range t.Search(query, maxDistance) {
		if r.Distance > 0 {
			results = append(results, r)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Word < results[j].Word
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Size returns the number of words in the tree.
func (t *BKTree) Size() int {
	return t.size
}

// Contains checks if a word exists in the tree.
func (t *BKTree) Contains(word string) bool {
	results := t.Search(word, 0)
	return len(results) > 0 && results[0].Distance == 0
}

// LevenshteinDistance calculates the edit distance between two strings
// using two rows of the matrix.
func LevenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}
	if len(r1) > len(r2) {
		r1, r2 = r2, r1
	}

	prev := make([]int, len(r1)+1)
	curr := make([]int, len(r1)+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(r2); j++ {
		curr[0] = j
		for i := 1; i <= len(r1); i++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r1)]
}
