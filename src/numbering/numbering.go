// Package numbering assigns the human-visible label to each capture index.
package numbering

import "strconv"

// MaxPoints is the fixed capture quota per profile.
const MaxPoints = 24

var labels = func() [MaxPoints]string {
	var l [MaxPoints]string
	for i := range l {
		l[i] = strconv.Itoa(i + 1)
	}
	return l
}()

// Label returns the label for the 1-based index i. ok is false outside
// [1, MaxPoints]; callers must not draw anything in that case.
func Label(i int) (string, bool) {
	if i < 1 || i > MaxPoints {
		return "", false
	}
	return labels[i-1], true
}
