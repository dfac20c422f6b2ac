package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hoshinonyaruko/snake-in-web/structs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const createHighScoresTableSQL = `
CREATE TABLE IF NOT EXISTS HighScores (
    Variant TEXT PRIMARY KEY,
    Score INTEGER NOT NULL DEFAULT 0
);
`

const createGamesTableSQL = `
CREATE TABLE IF NOT EXISTS Games (
    SessionID TEXT PRIMARY KEY,
    Variant TEXT,
    Player TEXT,
    Score INTEGER,
    Length INTEGER,
    Reason TEXT,
    StartedAt TIMESTAMP,
    EndedAt TIMESTAMP
);
`

const createGamesIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_games_variant_score ON Games (Variant, Score DESC);
`

// 最高分只升不降
const upsertHighScoreSQL = `
INSERT INTO HighScores (Variant, Score) VALUES (?, ?)
ON CONFLICT(Variant) DO UPDATE SET Score = MAX(Score, excluded.Score);
`

// Store keeps the high score and the finished games of one variant.
type Store struct {
	db      *sqlx.DB
	variant string
}

// Open opens (or creates) the database at path and prepares the tables.
func Open(path, variant string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// sqlite 只允许一个写连接
	db.SetMaxOpenConns(1)

	if err := InitializeDatabase(db); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("path", path).Str("variant", variant).Msg("score database ready")
	return &Store{db: db, variant: variant}, nil
}

func executeSQL(db *sqlx.DB, sqlStatement string) error {
	if _, err := db.Exec(sqlStatement); err != nil {
		return fmt.Errorf("error executing SQL statement: %s: %w", sqlStatement, err)
	}
	return nil
}

func InitializeDatabase(db *sqlx.DB) error {
	for _, stmt := range []string{createHighScoresTableSQL, createGamesTableSQL, createGamesIndexSQL} {
		if err := executeSQL(db, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LoadHighScore returns 0 when nothing has been saved yet.
func (s *Store) LoadHighScore(ctx context.Context) (int, error) {
	var score int
	err := s.db.GetContext(ctx, &score, "SELECT Score FROM HighScores WHERE Variant = ?", s.variant)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load high score: %w", err)
	}
	return score, nil
}

// SaveHighScore stores score unless a higher one is already saved.
func (s *Store) SaveHighScore(ctx context.Context, score int) error {
	if _, err := s.db.ExecContext(ctx, upsertHighScoreSQL, s.variant, score); err != nil {
		return fmt.Errorf("save high score: %w", err)
	}
	return nil
}

// RecordGame 写入一局的结果，同时确保最高分不低于这局得分
func (s *Store) RecordGame(ctx context.Context, rec structs.GameRecord) error {
	if rec.Variant == "" {
		rec.Variant = s.variant
	}

	// 开启事务
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.NamedExecContext(ctx, `INSERT OR REPLACE INTO Games
		(SessionID, Variant, Player, Score, Length, Reason, StartedAt, EndedAt)
		VALUES (:SessionID, :Variant, :Player, :Score, :Length, :Reason, :StartedAt, :EndedAt)`, rec)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("record game %s: %w", rec.SessionID, err)
	}

	if _, err = tx.ExecContext(ctx, upsertHighScoreSQL, rec.Variant, rec.Score); err != nil {
		tx.Rollback()
		return fmt.Errorf("record game %s: %w", rec.SessionID, err)
	}

	// 提交事务
	return tx.Commit()
}

// TopGames returns the best finished games of this variant, highest score first.
func (s *Store) TopGames(ctx context.Context, limit int) ([]structs.GameRecord, error) {
	games := []structs.GameRecord{}
	err := s.db.SelectContext(ctx, &games, `SELECT SessionID, Variant, Player, Score, Length, Reason, StartedAt, EndedAt
		FROM Games WHERE Variant = ? ORDER BY Score DESC, EndedAt ASC LIMIT ?`, s.variant, limit)
	if err != nil {
		return nil, fmt.Errorf("top games: %w", err)
	}
	return games, nil
}
