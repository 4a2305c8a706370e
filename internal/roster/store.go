// Package roster persists the groups a chat should be a member of, so a
// restarted bot re-requests them without waiting for anyone to ask again.
// It stores membership intent only, never message content.
package roster

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"botkit/internal/bot"
	"botkit/internal/domain"
)

// Store is the "roster" service. On Init it opens its database, persists
// any statically configured groups and re-requests every remembered group
// through the chat's join gate; the gate buffers them until the transport
// session is ready. Params: "chat" (required), "db_path" (default
// ~/.botkit/roster.db), "groups" (optional static list).
type Store struct {
	name     string
	chatName string
	dbPath   string
	static   []string
	bot      *bot.Bot
	logger   *slog.Logger
	db       *sql.DB
}

func New(b *bot.Bot, name string, params bot.Params) (domain.Service, error) {
	chatName := params.String("chat")
	if chatName == "" {
		return nil, fmt.Errorf("roster service needs a chat param")
	}
	dbPath := params.String("db_path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("roster db path: %w", err)
		}
		dbPath = filepath.Join(home, ".botkit", "roster.db")
	}
	return &Store{
		name:     name,
		chatName: chatName,
		dbPath:   dbPath,
		static:   params.StringSlice("groups"),
		bot:      b,
		logger:   b.Logger(),
	}, nil
}

func (s *Store) Name() string { return s.name }

func (s *Store) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return fmt.Errorf("roster: create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("roster: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	s.db = db

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return fmt.Errorf("roster: migrate: %w", err)
	}

	svc, ok := s.bot.Lookup(s.chatName)
	if !ok {
		return fmt.Errorf("roster: no service named %q", s.chatName)
	}
	joiner, ok := svc.(domain.GroupJoiner)
	if !ok {
		return fmt.Errorf("roster: service %q cannot join groups", s.chatName)
	}

	for _, group := range s.static {
		if err := s.remember(ctx, group); err != nil {
			return err
		}
	}

	groups, err := s.Groups(ctx)
	if err != nil {
		return err
	}
	for _, group := range groups {
		joiner.RequestJoin(group)
	}
	s.logger.Info("roster loaded", "chat", s.chatName, "groups", len(groups))
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS desired_groups (
		chat            TEXT NOT NULL,
		group_name      TEXT NOT NULL,
		first_requested TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (chat, group_name)
	);`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Add persists a group and forwards the join request to the chat.
func (s *Store) Add(ctx context.Context, group string) error {
	if err := s.remember(ctx, group); err != nil {
		return err
	}
	svc, ok := s.bot.Lookup(s.chatName)
	if !ok {
		return fmt.Errorf("roster: no service named %q", s.chatName)
	}
	if joiner, ok := svc.(domain.GroupJoiner); ok {
		joiner.RequestJoin(group)
	}
	return nil
}

// Remove forgets a group; the chat is not asked to leave, the group is
// simply not re-requested on the next start.
func (s *Store) Remove(ctx context.Context, group string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM desired_groups WHERE chat = ? AND group_name = ?`, s.chatName, group)
	return err
}

// Groups returns the remembered groups in first-requested order.
func (s *Store) Groups(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_name FROM desired_groups WHERE chat = ? ORDER BY first_requested, rowid`, s.chatName)
	if err != nil {
		return nil, fmt.Errorf("roster: query groups: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) remember(ctx context.Context, group string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO desired_groups (chat, group_name) VALUES (?, ?)`, s.chatName, group)
	if err != nil {
		return fmt.Errorf("roster: remember %q: %w", group, err)
	}
	return nil
}

func (s *Store) Shutdown() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
