package aggregator

import (
	"github.com/pable/go-qb-metrics/internal/diag"
	"github.com/pable/go-qb-metrics/internal/lineup"
	"github.com/pable/go-qb-metrics/internal/model"
)

// Ingest folds one match, played on bank, into the tournament. It never
// fails: anomalies are recorded as diagnostics and the rest of the match is
// still processed.
func (t *Tournament) Ingest(match *model.MatchRecord, bank *model.QuestionBank) {
	if match == nil {
		return
	}

	// ---- Pass 1: rosters, lineup timelines, games played. ----

	timelines := make([]lineup.Timeline, len(match.Teams))
	onRoster := make(map[model.PlayerName]bool)
	for i, team := range match.Teams {
		timelines[i] = lineup.NewTimeline(team.Lineups)
		for _, entry := range team.Roster {
			t.registerPlayer(entry.Player)
			onRoster[entry.Player] = true
			if entry.TossupsHeard > 0 {
				t.games[entry.Player]++
			}
		}
		for _, l := range team.Lineups {
			for _, p := range l.Players {
				t.registerPlayer(p)
				onRoster[p] = true
			}
		}
	}

	// ---- Pass 2: questions. ----

	for _, q := range match.Questions {
		bq, ok := bank.Lookup(q.Number)
		if !ok {
			t.diags.Add(diag.CrossReference, diag.CodeQuestionOutOfRange,
				"tossup number not found in packet",
				diag.F("match", match.Path),
				diag.F("question", q.Number),
				diag.F("packet_size", bankSize(bank)),
			)
			continue
		}
		cat := t.normalizer.Normalize(bq.Label)
		t.registerCategory(cat)

		// Everyone on the clock heard the tossup, once, even if listed twice.
		var heardBy []model.PlayerName
		seen := make(map[model.PlayerName]bool)
		for _, tl := range timelines {
			for _, p := range tl.Resolve(q.Number) {
				if seen[p] {
					continue
				}
				seen[p] = true
				t.catStat(p, cat).Heard++
				t.overallStat(p).Heard++
				heardBy = append(heardBy, p)
			}
		}

		tu := model.Tossup{
			Text:           bq.Text,
			Answer:         bq.Answer,
			Category:       cat,
			HeardBy:        heardBy,
			Packet:         match.Packet,
			Round:          match.Round,
			QuestionNumber: q.Number,
		}

		for _, b := range q.Buzzes {
			if !onRoster[b.Player] {
				t.diags.Add(diag.DataIntegrity, diag.CodeUnknownPlayer,
					"buzz by player absent from match roster; buzz skipped",
					diag.F("match", match.Path),
					diag.F("question", q.Number),
					diag.F("player", b.Player),
					diag.F("team", b.Team),
				)
				continue
			}

			buzz := b
			if buzz.Correct() {
				if tu.Correct != nil {
					t.diags.Add(diag.DataIntegrity, diag.CodeMultipleCorrect,
						"multiple correct buzzes on tossup; keeping the last",
						diag.F("match", match.Path),
						diag.F("question", q.Number),
						diag.F("answer", bq.Answer),
						diag.F("previous", tu.Correct.Player),
						diag.F("player", buzz.Player),
					)
				}
				tu.Correct = &buzz
			} else {
				// Only the most recent incorrect buzz is kept; multiple negs
				// on one tossup are not tracked.
				tu.Incorrect = &buzz
			}

			if !recordBuzz(t.catStat(b.Player, cat), b) {
				t.diags.Add(diag.DataIntegrity, diag.CodeUnrecognizedPointValue,
					"unrecognized point value; counted in points only",
					diag.F("match", match.Path),
					diag.F("question", q.Number),
					diag.F("player", b.Player),
					diag.F("points", b.Points),
				)
			}
			recordBuzz(t.overallStat(b.Player), b)
		}

		t.tossups = append(t.tossups, tu)
	}
}

// recordBuzz applies b to s. It reports false when the point value matched
// no bucket.
func recordBuzz(s *model.PlayerCatStat, b model.Buzz) bool {
	s.Points += b.Points
	if b.Points > 0 {
		s.BuzzPositions = append(s.BuzzPositions, b.Position)
	}
	switch b.Points {
	case model.PointsPower:
		s.Powers++
	case model.PointsTen:
		s.Tens++
	case model.PointsNeg:
		s.Negs++
	case model.PointsNone:
	default:
		return false
	}
	return true
}

func bankSize(b *model.QuestionBank) int {
	if b == nil {
		return 0
	}
	return len(b.Tossups)
}
