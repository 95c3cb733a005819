// Package qbj decodes .qbj match records and packet .json files into the
// aggregator's model types and locates the packet each match was read from.
package qbj

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pable/go-qb-metrics/internal/model"
)

// ErrNoPacketName is returned when a match does not name its packet.
var ErrNoPacketName = errors.New("match has no packets field")

// ErrPacketNotFound is returned when no candidate packet path exists.
var ErrPacketNotFound = errors.New("packet not found")

// DecodeMatch decodes a .qbj document. Player and team names are cleaned
// with model.CleanName.
func DecodeMatch(r io.Reader) (*model.MatchRecord, error) {
	var raw rawMatch
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode qbj: %w", err)
	}

	m := &model.MatchRecord{
		Packet:      strings.TrimSpace(raw.Packets),
		Round:       raw.Round,
		TossupsRead: raw.TossupsRead,
	}
	for _, mt := range raw.MatchTeams {
		team := model.TeamRecord{
			Name:        model.TeamName(model.CleanName(mt.Team.Name)),
			BonusPoints: mt.BonusPoints,
		}
		for _, l := range mt.Lineups {
			lu := model.Lineup{FirstQuestion: l.FirstQuestion}
			seen := make(map[model.PlayerName]bool, len(l.Players))
			for _, p := range l.Players {
				name := playerName(p)
				if seen[name] {
					continue
				}
				seen[name] = true
				lu.Players = append(lu.Players, name)
			}
			team.Lineups = append(team.Lineups, lu)
		}
		for _, mp := range mt.MatchPlayers {
			team.Roster = append(team.Roster, model.RosterEntry{
				Player:       playerName(mp.Player),
				TossupsHeard: mp.TossupsHeard,
			})
		}
		m.Teams = append(m.Teams, team)
	}
	for _, mq := range raw.MatchQuestions {
		q := model.MatchQuestion{Number: mq.QuestionNumber}
		for _, b := range mq.Buzzes {
			q.Buzzes = append(q.Buzzes, model.Buzz{
				Position: b.BuzzPosition.WordIndex,
				Player:   playerName(b.Player),
				Team:     model.TeamName(model.CleanName(b.Team.Name)),
				Points:   b.Result.Value,
			})
		}
		m.Questions = append(m.Questions, q)
	}
	return m, nil
}

func playerName(n rawName) model.PlayerName {
	return model.PlayerName(model.CleanName(n.Name))
}

// DecodePacket decodes a packet .json document. When the plain question or
// answer text is empty the sanitized variant is used.
func DecodePacket(r io.Reader) (*model.QuestionBank, error) {
	var raw rawPacket
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode packet: %w", err)
	}
	b := &model.QuestionBank{Tossups: make([]model.BankQuestion, 0, len(raw.Tossups))}
	for _, tu := range raw.Tossups {
		b.Tossups = append(b.Tossups, model.BankQuestion{
			Text:   firstNonEmpty(tu.Question, tu.QuestionSanitized),
			Answer: firstNonEmpty(tu.Answer, tu.AnswerSanitized),
			Label:  tu.Metadata,
		})
	}
	return b, nil
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// ReadMatch opens and decodes the match file at path.
func ReadMatch(path string) (*model.MatchRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open match: %w", err)
	}
	defer f.Close()
	m, err := DecodeMatch(f)
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// ReadPacket opens and decodes the packet file at path. The bank is named
// after the file's base name without extension.
func ReadPacket(path string) (*model.QuestionBank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open packet: %w", err)
	}
	defer f.Close()
	b, err := DecodePacket(f)
	if err != nil {
		return nil, err
	}
	b.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return b, nil
}

// PacketCandidates returns the paths tried for packet, in order: the match
// file's directory, each of dirs, then the working directory. Duplicates
// are dropped.
func PacketCandidates(matchPath, packet string, dirs []string) []string {
	file := packet + ".json"
	roots := make([]string, 0, len(dirs)+2)
	roots = append(roots, filepath.Dir(matchPath))
	roots = append(roots, dirs...)
	roots = append(roots, ".")

	seen := make(map[string]bool, len(roots))
	var out []string
	for _, root := range roots {
		p := filepath.Clean(filepath.Join(root, file))
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// LocatePacket returns the first existing candidate for the match's packet.
// The error wraps ErrPacketNotFound and lists the paths tried.
func LocatePacket(matchPath, packet string, dirs []string) (string, error) {
	if packet == "" {
		return "", fmt.Errorf("%s: %w", matchPath, ErrNoPacketName)
	}
	tried := PacketCandidates(matchPath, packet, dirs)
	for _, p := range tried {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (checked %s)", ErrPacketNotFound, strings.Join(tried, ", "))
}
