package match

// levenshtein computes the edit distance between two strings, comparing by
// rune so accented letters count as single edits. Two-row rolling buffer.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}

	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = minInt(del, ins, sub)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// similarity maps edit distance onto [0,1]; 1.0 means identical strings.
// Strings shorter than minCompareLen runes are too short to compare
// meaningfully and always score 0.
func similarity(a, b string) float64 {
	la := len([]rune(a))
	lb := len([]rune(b))
	if la < minCompareLen || lb < minCompareLen {
		return 0
	}

	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}

	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
