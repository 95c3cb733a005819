package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pable/go-qb-metrics/internal/aggregator"
	"github.com/pable/go-qb-metrics/internal/diag"
	"github.com/pable/go-qb-metrics/internal/model"
)

// Run is one stored ingest run.
type Run struct {
	ID          string
	Tournament  string
	CreatedAt   time.Time
	Matches     int
	Players     int
	Tossups     int
	Diagnostics int
}

// SaveRun stores a finished run in one transaction. An empty run.ID is
// filled with a new UUID; CreatedAt defaults to now. It returns the stored run.
func (db *DB) SaveRun(run Run, snap aggregator.Snapshot, diags []diag.Diagnostic) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Players = len(snap.Players)
	run.Tossups = len(snap.Tossups)
	run.Diagnostics = len(diags)

	tx, err := db.conn.Begin()
	if err != nil {
		return run, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO runs(id, tournament, created_at, matches, players, tossups, diagnostics)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Tournament, run.CreatedAt.Format(time.RFC3339), run.Matches,
		run.Players, run.Tossups, run.Diagnostics,
	)
	if err != nil {
		return run, fmt.Errorf("insert run: %w", err)
	}

	for _, step := range []func(*sql.Tx, string) error{
		func(tx *sql.Tx, id string) error { return insertPlayers(tx, id, snap.Players) },
		func(tx *sql.Tx, id string) error { return insertCategories(tx, id, snap.Categories) },
		func(tx *sql.Tx, id string) error { return insertStats(tx, id, snap) },
		func(tx *sql.Tx, id string) error { return insertTossups(tx, id, snap.Tossups) },
		func(tx *sql.Tx, id string) error { return insertDiagnostics(tx, id, diags) },
	} {
		if err := step(tx, run.ID); err != nil {
			return run, err
		}
	}
	return run, tx.Commit()
}

func insertPlayers(tx *sql.Tx, runID string, players []aggregator.PlayerRecord) error {
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO players(run_id, ordinal, name, games) VALUES (?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, p := range players {
		if _, err := stmt.Exec(runID, i, string(p.Name), p.Games); err != nil {
			return fmt.Errorf("insert player %s: %w", p.Name, err)
		}
	}
	return nil
}

func insertCategories(tx *sql.Tx, runID string, cats []aggregator.CategoryRecord) error {
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO categories(run_id, ordinal, name, synthetic) VALUES (?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, c := range cats {
		if _, err := stmt.Exec(runID, i, string(c.Name), boolInt(c.Synthetic)); err != nil {
			return fmt.Errorf("insert category %s: %w", c.Name, err)
		}
	}
	return nil
}

func insertStats(tx *sql.Tx, runID string, snap aggregator.Snapshot) error {
	overall, err := tx.Prepare(`
		INSERT OR REPLACE INTO player_overall_stats(
			run_id, player, points, powers, tens, negs, heard, buzz_positions
		) VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer overall.Close()
	for _, p := range snap.Players {
		if p.Overall == nil {
			continue
		}
		s := *p.Overall
		pos, err := json.Marshal(positionsOrEmpty(s.BuzzPositions))
		if err != nil {
			return err
		}
		if _, err := overall.Exec(runID, string(p.Name), s.Points, s.Powers, s.Tens, s.Negs, s.Heard, string(pos)); err != nil {
			return fmt.Errorf("insert player_overall_stats for %s: %w", p.Name, err)
		}
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO player_category_stats(
			run_id, player, category, synthetic, points, powers, tens, negs, heard, buzz_positions
		) VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range snap.Stats {
		s := r.Stat
		pos, err := json.Marshal(positionsOrEmpty(s.BuzzPositions))
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(runID, string(r.Player), string(r.Category), boolInt(r.Synthetic),
			s.Points, s.Powers, s.Tens, s.Negs, s.Heard, string(pos)); err != nil {
			return fmt.Errorf("insert player_category_stats for %s/%s: %w", r.Player, r.Category, err)
		}
	}
	return nil
}

func positionsOrEmpty(p []int) []int {
	if p == nil {
		return []int{}
	}
	return p
}

func insertTossups(tx *sql.Tx, runID string, tossups []model.Tossup) error {
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO tossups(
			run_id, ordinal, packet, round, question_number, category, answer, text, heard_by,
			correct_player, correct_team, correct_points, correct_position,
			incorrect_player, incorrect_team, incorrect_points, incorrect_position
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, tu := range tossups {
		heard, err := json.Marshal(tu.HeardBy)
		if err != nil {
			return err
		}
		args := []any{runID, i, tu.Packet, tu.Round, tu.QuestionNumber, string(tu.Category), tu.Answer, tu.Text, string(heard)}
		args = append(args, buzzArgs(tu.Correct)...)
		args = append(args, buzzArgs(tu.Incorrect)...)
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert tossup %d: %w", i, err)
		}
	}
	return nil
}

func buzzArgs(b *model.Buzz) []any {
	if b == nil {
		return []any{nil, nil, nil, nil}
	}
	return []any{string(b.Player), string(b.Team), b.Points, b.Position}
}

type fieldRow struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func insertDiagnostics(tx *sql.Tx, runID string, diags []diag.Diagnostic) error {
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO diagnostics(run_id, ordinal, kind, code, message, fields) VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, d := range diags {
		fields := make([]fieldRow, 0, len(d.Fields))
		for _, f := range d.Fields {
			fields = append(fields, fieldRow{Key: f.Key, Value: f.Value})
		}
		raw, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("encode diagnostic fields: %w", err)
		}
		if _, err := stmt.Exec(runID, i, d.Kind.String(), d.Code, d.Message, string(raw)); err != nil {
			return fmt.Errorf("insert diagnostic %d: %w", i, err)
		}
	}
	return nil
}

const runColumns = `id, tournament, created_at, matches, players, tossups, diagnostics`

func scanRun(sc interface{ Scan(...any) error }) (Run, error) {
	var r Run
	var created string
	if err := sc.Scan(&r.ID, &r.Tournament, &created, &r.Matches, &r.Players, &r.Tossups, &r.Diagnostics); err != nil {
		return r, err
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return r, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	r.CreatedAt = t
	return r, nil
}

// ListRuns returns all stored runs, newest first.
func (db *DB) ListRuns() ([]Run, error) {
	rows, err := db.conn.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRunByPrefix finds the newest run whose id starts with prefix. It
// returns nil when nothing matches.
func (db *DB) GetRunByPrefix(prefix string) (*Run, error) {
	r, err := scanRun(db.conn.QueryRow(`
		SELECT `+runColumns+` FROM runs WHERE id LIKE ? ORDER BY created_at DESC LIMIT 1`, prefix+"%"))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteRun removes a run and everything stored for it.
func (db *DB) DeleteRun(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, table := range []string{"diagnostics", "tossups", "player_category_stats", "player_overall_stats", "categories", "players"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE run_id = ?`, id); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return tx.Commit()
}

// LoadSnapshot reads back the tournament state stored for a run.
func (db *DB) LoadSnapshot(runID string) (aggregator.Snapshot, error) {
	var snap aggregator.Snapshot

	players, err := db.loadPlayers(runID)
	if err != nil {
		return snap, err
	}
	snap.Players = players

	if snap.Categories, err = db.loadCategories(runID); err != nil {
		return snap, err
	}

	overall, err := db.loadOverall(runID)
	if err != nil {
		return snap, err
	}
	stats, err := db.loadStats(runID)
	if err != nil {
		return snap, err
	}
	for i := range snap.Players {
		if s, ok := overall[snap.Players[i].Name]; ok {
			snap.Players[i].Overall = &s
		}
	}
	// Order stat records by player registration, then category order.
	for _, p := range snap.Players {
		for _, c := range snap.Categories {
			if r, ok := stats[p.Name][c.Name]; ok {
				snap.Stats = append(snap.Stats, r)
			}
		}
	}

	if snap.Tossups, err = db.loadTossups(runID); err != nil {
		return snap, err
	}
	return snap, nil
}

func (db *DB) loadPlayers(runID string) ([]aggregator.PlayerRecord, error) {
	rows, err := db.conn.Query(`SELECT name, games FROM players WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []aggregator.PlayerRecord
	for rows.Next() {
		var p aggregator.PlayerRecord
		var name string
		if err := rows.Scan(&name, &p.Games); err != nil {
			return nil, err
		}
		p.Name = model.PlayerName(name)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) loadCategories(runID string) ([]aggregator.CategoryRecord, error) {
	rows, err := db.conn.Query(`SELECT name, synthetic FROM categories WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []aggregator.CategoryRecord
	for rows.Next() {
		var name string
		var synthetic int
		if err := rows.Scan(&name, &synthetic); err != nil {
			return nil, err
		}
		out = append(out, aggregator.CategoryRecord{Name: model.Category(name), Synthetic: synthetic != 0})
	}
	return out, rows.Err()
}

func scanStat(sc interface{ Scan(...any) error }, player *string, s *model.PlayerCatStat, extra ...any) error {
	var positions string
	dest := append([]any{player}, extra...)
	dest = append(dest, &s.Points, &s.Powers, &s.Tens, &s.Negs, &s.Heard, &positions)
	if err := sc.Scan(dest...); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(positions), &s.BuzzPositions); err != nil {
		return fmt.Errorf("decode buzz positions for %s: %w", *player, err)
	}
	if len(s.BuzzPositions) == 0 {
		s.BuzzPositions = nil
	}
	return nil
}

func (db *DB) loadOverall(runID string) (map[model.PlayerName]model.PlayerCatStat, error) {
	rows, err := db.conn.Query(`
		SELECT player, points, powers, tens, negs, heard, buzz_positions
		FROM player_overall_stats WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.PlayerName]model.PlayerCatStat)
	for rows.Next() {
		var player string
		var s model.PlayerCatStat
		if err := scanStat(rows, &player, &s); err != nil {
			return nil, err
		}
		out[model.PlayerName(player)] = s
	}
	return out, rows.Err()
}

func (db *DB) loadStats(runID string) (map[model.PlayerName]map[model.Category]aggregator.CategoryStatRecord, error) {
	rows, err := db.conn.Query(`
		SELECT player, category, synthetic, points, powers, tens, negs, heard, buzz_positions
		FROM player_category_stats WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.PlayerName]map[model.Category]aggregator.CategoryStatRecord)
	for rows.Next() {
		var player, cat string
		var synthetic int
		var s model.PlayerCatStat
		if err := scanStat(rows, &player, &s, &cat, &synthetic); err != nil {
			return nil, err
		}
		p := model.PlayerName(player)
		if out[p] == nil {
			out[p] = make(map[model.Category]aggregator.CategoryStatRecord)
		}
		out[p][model.Category(cat)] = aggregator.CategoryStatRecord{
			Player:    p,
			Category:  model.Category(cat),
			Synthetic: synthetic != 0,
			Stat:      s,
		}
	}
	return out, rows.Err()
}

func (db *DB) loadTossups(runID string) ([]model.Tossup, error) {
	rows, err := db.conn.Query(`
		SELECT packet, round, question_number, category, answer, text, heard_by,
			correct_player, correct_team, correct_points, correct_position,
			incorrect_player, incorrect_team, incorrect_points, incorrect_position
		FROM tossups WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Tossup
	for rows.Next() {
		var tu model.Tossup
		var cat, heard string
		var correct, incorrect nullBuzz
		if err := rows.Scan(&tu.Packet, &tu.Round, &tu.QuestionNumber, &cat, &tu.Answer, &tu.Text, &heard,
			&correct.player, &correct.team, &correct.points, &correct.position,
			&incorrect.player, &incorrect.team, &incorrect.points, &incorrect.position); err != nil {
			return nil, err
		}
		tu.Category = model.Category(cat)
		if err := json.Unmarshal([]byte(heard), &tu.HeardBy); err != nil {
			return nil, fmt.Errorf("decode heard_by: %w", err)
		}
		tu.Correct = correct.buzz()
		tu.Incorrect = incorrect.buzz()
		out = append(out, tu)
	}
	return out, rows.Err()
}

type nullBuzz struct {
	player, team     sql.NullString
	points, position sql.NullInt64
}

func (n nullBuzz) buzz() *model.Buzz {
	if !n.player.Valid {
		return nil
	}
	return &model.Buzz{
		Player:   model.PlayerName(n.player.String),
		Team:     model.TeamName(n.team.String),
		Points:   int(n.points.Int64),
		Position: int(n.position.Int64),
	}
}

// LoadDiagnostics returns the diagnostics stored for a run, in raised order.
func (db *DB) LoadDiagnostics(runID string) ([]diag.Diagnostic, error) {
	rows, err := db.conn.Query(`
		SELECT kind, code, message, fields FROM diagnostics WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []diag.Diagnostic
	for rows.Next() {
		var kind, raw string
		var d diag.Diagnostic
		if err := rows.Scan(&kind, &d.Code, &d.Message, &raw); err != nil {
			return nil, err
		}
		var fields []fieldRow
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("decode diagnostic fields: %w", err)
		}
		for _, f := range fields {
			d.Fields = append(d.Fields, diag.F(f.Key, f.Value))
		}
		d.Kind = diag.ParseKind(kind)
		out = append(out, d)
	}
	return out, rows.Err()
}

// PlayerTotal is a player's overall record summed across stored runs.
type PlayerTotal struct {
	Player model.PlayerName
	Runs   int
	Games  int
	Stat   model.PlayerCatStat
}

// PlayerTotals sums every player's overall record across all runs, best
// points per 20 first.
func (db *DB) PlayerTotals() ([]PlayerTotal, error) {
	rows, err := db.conn.Query(`
		SELECT s.player, COUNT(DISTINCT s.run_id), COALESCE(SUM(p.games), 0),
			SUM(s.points), SUM(s.powers), SUM(s.tens), SUM(s.negs), SUM(s.heard)
		FROM player_overall_stats s
		LEFT JOIN players p ON p.run_id = s.run_id AND p.name = s.player
		GROUP BY s.player
		ORDER BY CASE WHEN SUM(s.heard) = 0 THEN 0 ELSE 20.0 * SUM(s.points) / SUM(s.heard) END DESC, s.player`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerTotal
	for rows.Next() {
		var t PlayerTotal
		var name string
		if err := rows.Scan(&name, &t.Runs, &t.Games,
			&t.Stat.Points, &t.Stat.Powers, &t.Stat.Tens, &t.Stat.Negs, &t.Stat.Heard); err != nil {
			return nil, err
		}
		t.Player = model.PlayerName(name)
		out = append(out, t)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
