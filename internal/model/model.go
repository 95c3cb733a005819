package model

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PlayerName identifies a player. Source data carries no numeric IDs.
type PlayerName string

// TeamName identifies a team within a match.
type TeamName string

// Category is a post-normalization subject label.
type Category string

// CleanName trims, collapses inner whitespace and NFC-normalizes s so that
// "Alice  Smith" and "Alice Smith " intern to the same identity.
func CleanName(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// Point values recorded on a buzz.
const (
	PointsPower = 15
	PointsTen   = 10
	PointsNeg   = -5
	PointsNone  = 0
)

// ---- Decoded inputs ----

// Lineup is the set of players active for a team from FirstQuestion onward.
type Lineup struct {
	FirstQuestion int
	Players       []PlayerName
}

// Buzz is one answer attempt on a tossup.
type Buzz struct {
	Position int // word index into the tossup text
	Player   PlayerName
	Team     TeamName
	Points   int
}

// Correct reports whether the buzz scored.
func (b Buzz) Correct() bool { return b.Points > 0 }

// RosterEntry is a player's appearance record in one match.
type RosterEntry struct {
	Player       PlayerName
	TossupsHeard int
}

// TeamRecord is one team's side of a match.
type TeamRecord struct {
	Name        TeamName
	Lineups     []Lineup // in file order
	Roster      []RosterEntry
	BonusPoints int
}

// MatchQuestion holds the buzzes recorded on one question of a match.
type MatchQuestion struct {
	Number int // 1-based, matches the packet order
	Buzzes []Buzz
}

// MatchRecord is the normalized view of one played match.
type MatchRecord struct {
	Path        string
	Packet      string // packet name used to locate the question bank
	Round       int
	TossupsRead int
	Teams       []TeamRecord
	Questions   []MatchQuestion
}

// BankQuestion is one tossup in a packet.
type BankQuestion struct {
	Text   string
	Answer string
	Label  string // raw category label, before normalization
}

// QuestionBank is the normalized view of one packet.
type QuestionBank struct {
	Name    string
	Tossups []BankQuestion
}

// Lookup returns the tossup for a 1-based question number.
func (b *QuestionBank) Lookup(number int) (BankQuestion, bool) {
	idx := number - 1
	if b == nil || idx < 0 || idx >= len(b.Tossups) {
		return BankQuestion{}, false
	}
	return b.Tossups[idx], true
}

// ---- Aggregated state ----

// Tossup is one processed match-question pair.
type Tossup struct {
	Text           string
	Answer         string
	Category       Category
	Correct        *Buzz
	Incorrect      *Buzz // only the most recent non-scoring buzz
	HeardBy        []PlayerName
	Packet         string
	Round          int
	QuestionNumber int
}

// WordCount is the number of whitespace-separated words in the text.
func (t *Tossup) WordCount() int {
	return len(strings.Fields(t.Text))
}

// PlayerCatStat accumulates a player's results in one category (or overall).
type PlayerCatStat struct {
	Points        int
	Powers        int
	Tens          int
	Negs          int
	Heard         int
	BuzzPositions []int // correct buzzes only
}

// Combine returns the pointwise sum of a and b. Neither input is modified.
func Combine(a, b PlayerCatStat) PlayerCatStat {
	var positions []int
	if n := len(a.BuzzPositions) + len(b.BuzzPositions); n > 0 {
		positions = make([]int, 0, n)
		positions = append(positions, a.BuzzPositions...)
		positions = append(positions, b.BuzzPositions...)
	}
	return PlayerCatStat{
		Points:        a.Points + b.Points,
		Powers:        a.Powers + b.Powers,
		Tens:          a.Tens + b.Tens,
		Negs:          a.Negs + b.Negs,
		Heard:         a.Heard + b.Heard,
		BuzzPositions: positions,
	}
}

// PointsPer20 is points per tossup heard scaled to 20 tossups.
func (s *PlayerCatStat) PointsPer20() float64 {
	if s.Heard == 0 {
		return 0
	}
	return float64(s.Points) / float64(s.Heard) * 20
}

// AvgBuzzPosition returns the mean correct-buzz position; false when there are none.
func (s *PlayerCatStat) AvgBuzzPosition() (float64, bool) {
	if len(s.BuzzPositions) == 0 {
		return 0, false
	}
	sum := 0
	for _, p := range s.BuzzPositions {
		sum += p
	}
	return float64(sum) / float64(len(s.BuzzPositions)), true
}

// MedianBuzzPosition returns the median correct-buzz position; false when there are none.
func (s *PlayerCatStat) MedianBuzzPosition() (float64, bool) {
	n := len(s.BuzzPositions)
	if n == 0 {
		return 0, false
	}
	sorted := make([]int, n)
	copy(sorted, s.BuzzPositions)
	sort.Ints(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2]), true
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2, true
}
