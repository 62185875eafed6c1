package fuzzy

// Distance is the Levenshtein distance between a and b measured in Unicode
// code points. It keeps a single DP row sized to the shorter string and
// iterates the longer string in the outer loop.
func Distance(a, b string) int {
	long, short := []rune(a), []rune(b)
	if len(long) < len(short) {
		long, short = short, long
	}
	if len(short) == 0 {
		return len(long)
	}

	row := make([]int, len(short)+1)
	for j := range row {
		row[j] = j
	}
	for i, lc := range long {
		diag := row[0]
		row[0] = i + 1
		for j, sc := range short {
			up := row[j+1]
			cost := 1
			if lc == sc {
				cost = 0
			}
			row[j+1] = min(up+1, row[j]+1, diag+cost)
			diag = up
		}
	}
	return row[len(short)]
}
