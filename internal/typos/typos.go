// Package typos generates the misspellings a word is likely to be typed as.
package typos

// Transpositions swaps each pair of adjacent characters.
func Transpositions(word string) []string {
	var out []string
	for i := 0; i+1 < len(word); i++ {
		b := []byte(word)
		b[i], b[i+1] = b[i+1], b[i]
		out = append(out, string(b))
	}
	return out
}

// Omissions drops one character. Words shorter than 4 produce none.
func Omissions(word string) []string {
	if len(word) < 4 {
		return nil
	}
	out := make([]string, 0, len(word))
	for i := 0; i < len(word); i++ {
		out = append(out, word[:i]+word[i+1:])
	}
	return out
}

// Duplications doubles one character.
func Duplications(word string) []string {
	out := make([]string, 0, len(word))
	for i := 0; i < len(word); i++ {
		out = append(out, word[:i+1]+word[i:])
	}
	return out
}

// Insertions adds a key adjacent to each character, before and after it.
func Insertions(word string) []string {
	var out []string
	for i := 0; i < len(word); i++ {
		for _, adj := range Adjacent(word[i]) {
			out = append(out, word[:i+1]+string(adj)+word[i+1:])
			out = append(out, word[:i]+string(adj)+word[i:])
		}
	}
	return out
}

// Replacements swaps each character for an adjacent key.
func Replacements(word string) []string {
	var out []string
	for i := 0; i < len(word); i++ {
		for _, adj := range Adjacent(word[i]) {
			out = append(out, word[:i]+string(adj)+word[i+1:])
		}
	}
	return out
}

// All returns every typo kind for word. Keyboard typos are included when
// keyboard is set. The result may contain duplicates and word itself.
func All(word string, keyboard bool) []string {
	if word == "" {
		return nil
	}
	out := Transpositions(word)
	out = append(out, Omissions(word)...)
	out = append(out, Duplications(word)...)
	if keyboard {
		out = append(out, Insertions(word)...)
		out = append(out, Replacements(word)...)
	}
	return out
}
