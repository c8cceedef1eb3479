package arinc665

import "github.com/boljen/go-bitmap"

// mediumSet tracks which medium numbers (1..255) are present in a Media
// Set. Medium numbers are a small, dense, contiguous integer domain, so a
// bitmap is used instead of a map[MediumNumber]bool.
type mediumSet struct {
	bm bitmap.Bitmap
}

func newMediumSet() mediumSet {
	return mediumSet{bm: bitmap.New(256)}
}

func (s mediumSet) has(n MediumNumber) bool {
	return s.bm.Get(int(n))
}

func (s mediumSet) add(n MediumNumber) {
	s.bm.Set(int(n), true)
}
