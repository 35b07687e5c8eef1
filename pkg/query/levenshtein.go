package query

// levenshtein computes the edit distance between two strings with the
// classic two-row dynamic program. maxDist short-circuits: once every cell
// in a row exceeds it the exact distance no longer matters and maxDist+1 is
// returned.
func levenshtein(a, b string, maxDist int) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d := prev[j-1] + cost
			if up := prev[j] + 1; up < d {
				d = up
			}
			if left := cur[j-1] + 1; left < d {
				d = left
			}
			cur[j] = d
			if d < rowMin {
				rowMin = d
			}
		}
		if rowMin > maxDist {
			return maxDist + 1
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
