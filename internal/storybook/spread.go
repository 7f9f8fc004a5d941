// Package storybook implements the reading engine for an opened picture book:
// spread position, timed page turns, the furthest-reached watermark, and the
// one-way latch that unlocks sharing once the end spread is reached.
package storybook

// SpreadKind identifies what a spread displays.
type SpreadKind string

const (
	SpreadCover SpreadKind = "cover"
	SpreadStory SpreadKind = "story"
	SpreadEnd   SpreadKind = "end"
)

// TotalSpreads returns the number of spreads for a book with pageCount story
// pages: a cover, one spread per page, and an end spread.
func TotalSpreads(pageCount int) int {
	if pageCount < 0 {
		pageCount = 0
	}
	return pageCount + 2
}

// KindOf returns the kind of spread at index for a book with total spreads.
// Index 0 is always the cover and total-1 is always the end spread.
func KindOf(index, total int) SpreadKind {
	switch {
	case index <= 0:
		return SpreadCover
	case index >= total-1:
		return SpreadEnd
	default:
		return SpreadStory
	}
}

// StoryPage maps a spread index to its zero-based story page.
// ok is false for the cover and end spreads.
func StoryPage(index, total int) (page int, ok bool) {
	if KindOf(index, total) != SpreadStory {
		return 0, false
	}
	return index - 1, true
}
