package intelligence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordScanner_Scan(t *testing.T) {
	s := NewKeywordScanner()

	scan := s.Scan([]string{
		"A0001/26 NOTAMN\nE) RWY 09 CLSD",
		"GENERAL INFORMATION\nNOTHING TO REPORT",
		"E) ILS u/s\nE) PROHIBITED AREA ACTIVE, DANGER",
		"E) ENCLOSED AREA", // no whole-word match
	})

	assert.Equal(t, 4, scan.PagesScanned)
	assert.Equal(t, []int{1, 3}, scan.RelevantPages)
	assert.Equal(t, 2, scan.RelevantCount())
	assert.Equal(t, 1, scan.Matches["CLSD"])
	assert.Equal(t, 1, scan.Matches["U/S"])
	assert.Equal(t, 1, scan.Matches["PROHIBITED"])
	assert.Equal(t, 1, scan.Matches["DANGER"])
	assert.Zero(t, scan.Matches["CLOSED"])
}

func TestKeywordScanner_CustomKeywords(t *testing.T) {
	s := NewKeywordScanner("crane")
	assert.Equal(t, []string{"crane"}, s.Keywords())

	scan := s.Scan([]string{"CRANE 200FT", "RWY CLSD"})
	assert.Equal(t, []int{1}, scan.RelevantPages)
}

func TestKeywordScanner_NoPages(t *testing.T) {
	scan := NewKeywordScanner().Scan(nil)
	assert.Zero(t, scan.PagesScanned)
	assert.Empty(t, scan.RelevantPages)
}
