package qbj

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pable/go-qb-metrics/internal/model"
)

const sampleMatch = `{
  "tossups_read": 2,
  "_round": 3,
  "packets": "Round 3",
  "match_teams": [
    {
      "team": {"name": "Hilltop  A"},
      "bonus_points": 30,
      "lineups": [
        {"first_question": 1, "players": [{"name": "Alice"}, {"name": " Bob "}]}
      ],
      "match_players": [
        {"player": {"name": "Alice"}, "tossups_heard": 2},
        {"player": {"name": "Bob"}, "tossups_heard": 2}
      ]
    }
  ],
  "match_questions": [
    {
      "question_number": 1,
      "buzzes": [
        {"player": {"name": "Alice"}, "team": {"name": "Hilltop A"},
         "buzz_position": {"word_index": 4}, "result": {"value": 15}}
      ]
    },
    {"question_number": 2, "buzzes": []}
  ]
}`

const samplePacket = `{
  "tossups": [
    {"question": "This element has atomic number one.", "answer": "hydrogen", "metadata": "Science - Chemistry"},
    {"question": "", "question_sanitized": "Name this river.", "answer_sanitized": "Nile", "metadata": "Geography"}
  ],
  "bonuses": []
}`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeMatch(t *testing.T) {
	m, err := DecodeMatch(strings.NewReader(sampleMatch))
	if err != nil {
		t.Fatalf("DecodeMatch: %v", err)
	}
	if m.Packet != "Round 3" || m.Round != 3 || m.TossupsRead != 2 {
		t.Errorf("header = %+v", m)
	}
	if len(m.Teams) != 1 {
		t.Fatalf("teams = %d, want 1", len(m.Teams))
	}
	team := m.Teams[0]
	if team.Name != "Hilltop A" || team.BonusPoints != 30 {
		t.Errorf("team = %+v", team)
	}
	if got := team.Lineups[0].Players; len(got) != 2 || got[1] != "Bob" {
		t.Errorf("lineup players = %v", got)
	}
	if len(team.Roster) != 2 || team.Roster[0].TossupsHeard != 2 {
		t.Errorf("roster = %+v", team.Roster)
	}
	want := model.Buzz{Position: 4, Player: "Alice", Team: "Hilltop A", Points: 15}
	if len(m.Questions) != 2 || m.Questions[0].Buzzes[0] != want {
		t.Errorf("questions = %+v", m.Questions)
	}
}

func TestDecodeMatch_DuplicateLineupPlayer(t *testing.T) {
	doc := strings.Replace(sampleMatch, `{"name": "Alice"}, {"name": " Bob "}`, `{"name": "Alice"}, {"name": " Bob "}, {"name": "Alice "}`, 1)
	m, err := DecodeMatch(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeMatch: %v", err)
	}
	got := m.Teams[0].Lineups[0].Players
	if len(got) != 2 || got[0] != "Alice" || got[1] != "Bob" {
		t.Errorf("lineup players = %v, want [Alice Bob]", got)
	}
}

func TestDecodeMatch_Malformed(t *testing.T) {
	if _, err := DecodeMatch(strings.NewReader(`{"match_teams": [`)); err == nil {
		t.Error("expected error for truncated json")
	}
}

func TestDecodePacket_SanitizedFallback(t *testing.T) {
	b, err := DecodePacket(strings.NewReader(samplePacket))
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if len(b.Tossups) != 2 {
		t.Fatalf("tossups = %d, want 2", len(b.Tossups))
	}
	if b.Tossups[0].Label != "Science - Chemistry" {
		t.Errorf("label = %q", b.Tossups[0].Label)
	}
	if b.Tossups[1].Text != "Name this river." || b.Tossups[1].Answer != "Nile" {
		t.Errorf("fallback tossup = %+v", b.Tossups[1])
	}
}

func TestPacketCandidates_Order(t *testing.T) {
	got := PacketCandidates(filepath.Join("games", "r3.qbj"), "Round 3", []string{"packets", "games"})
	want := []string{
		filepath.Join("games", "Round 3.json"),
		filepath.Join("packets", "Round 3.json"),
		"Round 3.json",
	}
	if len(got) != len(want) {
		t.Fatalf("candidates = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLocatePacket(t *testing.T) {
	dir := t.TempDir()
	matchPath := filepath.Join(dir, "games", "r3.qbj")
	writeFile(t, matchPath, sampleMatch)
	extra := filepath.Join(dir, "packets")
	writeFile(t, filepath.Join(extra, "Round 3.json"), samplePacket)

	got, err := LocatePacket(matchPath, "Round 3", []string{extra})
	if err != nil {
		t.Fatalf("LocatePacket: %v", err)
	}
	if got != filepath.Join(extra, "Round 3.json") {
		t.Errorf("located %q", got)
	}

	// A packet next to the match wins over the configured directory.
	local := filepath.Join(dir, "games", "Round 3.json")
	writeFile(t, local, samplePacket)
	if got, _ := LocatePacket(matchPath, "Round 3", []string{extra}); got != local {
		t.Errorf("located %q, want %q", got, local)
	}

	if _, err := LocatePacket(matchPath, "Round 9", []string{extra}); !errors.Is(err, ErrPacketNotFound) {
		t.Errorf("err = %v, want ErrPacketNotFound", err)
	}
	if _, err := LocatePacket(matchPath, "", nil); !errors.Is(err, ErrNoPacketName) {
		t.Errorf("err = %v, want ErrNoPacketName", err)
	}
}

func TestLoader_LoadAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Round 3.json"), samplePacket)
	var paths []string
	for _, name := range []string{"a.qbj", "b.qbj", "c.qbj"} {
		p := filepath.Join(dir, name)
		writeFile(t, p, sampleMatch)
		paths = append(paths, p)
	}
	bad := filepath.Join(dir, "bad.qbj")
	writeFile(t, bad, "not json")
	orphan := filepath.Join(dir, "orphan.qbj")
	writeFile(t, orphan, strings.Replace(sampleMatch, `"Round 3"`, `"Round 4"`, 1))
	paths = append(paths, bad, orphan)

	l := NewLoader(nil, 4)
	got, err := l.LoadAll(context.Background(), paths)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != len(paths) {
		t.Fatalf("results = %d, want %d", len(got), len(paths))
	}
	for i, res := range got {
		if res.Path != paths[i] {
			t.Errorf("result %d path = %q, want %q", i, res.Path, paths[i])
		}
	}
	for _, res := range got[:3] {
		if res.Err != nil || res.Bank == nil || res.Bank.Name != "Round 3" {
			t.Errorf("load %s = %+v", res.Path, res)
		}
	}
	if got[0].Bank != got[2].Bank {
		t.Error("shared packet should be decoded once")
	}
	if got[3].Err == nil || got[3].Match != nil {
		t.Errorf("bad file = %+v", got[3])
	}
	if !errors.Is(got[4].Err, ErrPacketNotFound) || got[4].Match == nil {
		t.Errorf("orphan = %+v", got[4])
	}
}

func TestLoader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLoader(nil, 2).LoadAll(ctx, []string{"x.qbj"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
