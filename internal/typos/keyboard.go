package typos

import (
	"math"
	"slices"
)

var keyboardRows = []string{
	"qwertyuiop",
	"asdfghjkl",
	"zxcvbnm",
}

var keyPos = func() map[byte][2]int {
	m := make(map[byte][2]int)
	for r, row := range keyboardRows {
		for c := 0; c < len(row); c++ {
			m[row[c]] = [2]int{r, c}
		}
	}
	return m
}()

func keyDistance(a, b byte) float64 {
	pa, oka := keyPos[a]
	pb, okb := keyPos[b]
	if !oka || !okb {
		return math.Inf(1)
	}
	dr := float64(pa[0] - pb[0])
	dc := float64(pa[1] - pb[1])
	return math.Sqrt(dr*dr + dc*dc)
}

// adjacent maps each key to the keys directly beside, above and below it.
var adjacent = func() map[byte][]byte {
	m := make(map[byte][]byte)
	for a := range keyPos {
		for b := range keyPos {
			if a != b && keyDistance(a, b) <= 1.0 {
				m[a] = append(m[a], b)
			}
		}
	}
	for k := range m {
		slices.Sort(m[k])
	}
	return m
}()

// Adjacent returns the keys next to c on a QWERTY layout, sorted.
func Adjacent(c byte) []byte {
	return adjacent[c]
}
