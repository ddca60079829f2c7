package archive

import "strings"

// NaturalLess compares two path strings with numeric awareness, so
// "page2.jpg" orders before "page10.jpg". Comparison is
// case-insensitive; the raw strings break ties for stability.
func NaturalLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	i, j := 0, 0
	for i < len(la) && j < len(lb) {
		ca, cb := la[i], lb[j]
		if isDigit(ca) && isDigit(cb) {
			// Compare whole digit runs numerically.
			ia, na := digitRun(la, i)
			ib, nb := digitRun(lb, j)
			if na != nb {
				return numLess(na, nb)
			}
			i, j = ia, ib
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	if len(la)-i != len(lb)-j {
		return len(la)-i < len(lb)-j
	}
	return a < b
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// digitRun returns the index past the digit run starting at i and the
// run with leading zeros stripped.
func digitRun(s string, i int) (int, string) {
	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	run := strings.TrimLeft(s[start:i], "0")
	if run == "" {
		run = "0"
	}
	return i, run
}

// numLess compares two zero-stripped digit strings numerically.
func numLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
