/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package archive

import (
	"cmp"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"slices"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Seednode/imposter/internal/game"
)

//go:embed schema.sql
var embeddedSchema embed.FS

// Game is one archived game with its final standings, best first.
type Game struct {
	ID         int64         `json:"id"`
	Room       string        `json:"room"`
	Rounds     int           `json:"rounds"`
	Winner     game.Player   `json:"winner"`
	Standings  []game.Player `json:"standings"`
	FinishedAt time.Time     `json:"finishedAt"`
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens the SQLite database at path and creates the schema if needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	s := New(db)
	if err := s.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing archive %s: %w", path, err)
	}

	return s, nil
}

func (s *Store) InitSchema() error {
	if _, err := s.db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return err
	}

	b, err := embeddedSchema.ReadFile("schema.sql")
	if err != nil {
		return err
	}

	_, err = s.db.Exec(strings.TrimSpace(string(b)))
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordGame stores a finished game and its standings in one transaction.
func (s *Store) RecordGame(ctx context.Context, rec game.GameRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO games(room, rounds, winner_id, winner_name, winner_score, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Room, rec.Rounds, rec.Winner.ID, rec.Winner.Name, rec.Winner.Score, rec.FinishedAt.UTC())
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, p := range rankStandings(rec.Standings) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO standings(game_id, position, player_id, name, score) VALUES (?, ?, ?, ?, ?)`,
			id, i+1, p.ID, p.Name, p.Score); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return id, nil
}

// rankStandings orders by score, keeping join order between equal scores.
func rankStandings(players []game.Player) []game.Player {
	ranked := slices.Clone(players)
	slices.SortStableFunc(ranked, func(a, b game.Player) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return ranked
}

// RecentGames returns up to limit games, newest first.
func (s *Store) RecentGames(ctx context.Context, limit int) ([]Game, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, room, rounds, winner_id, winner_name, winner_score, finished_at
FROM games
ORDER BY finished_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := []Game{}
	for rows.Next() {
		var g Game
		if err := rows.Scan(&g.ID, &g.Room, &g.Rounds, &g.Winner.ID, &g.Winner.Name, &g.Winner.Score, &g.FinishedAt); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range games {
		standings, err := s.standings(ctx, games[i].ID)
		if err != nil {
			return nil, err
		}
		games[i].Standings = standings
	}

	return games, nil
}

func (s *Store) standings(ctx context.Context, gameID int64) ([]game.Player, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT player_id, name, score FROM standings WHERE game_id = ? ORDER BY position`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []game.Player
	for rows.Next() {
		var p game.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Score); err != nil {
			return nil, err
		}
		players = append(players, p)
	}

	return players, rows.Err()
}
