// Package store implements the SQLite-backed customer card store: the
// persistence collaborator behind the CRM toolset. Cards live on a
// Kanban-style pipeline; the store exposes CRUD plus status transitions and
// satisfies the crm.Service contract with typed collaborator errors.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dealflow/internal/collab"
	"dealflow/internal/types"
)

// Pipeline statuses, matching the board columns.
const (
	StatusToReach    = "to_reach"
	StatusInProgress = "in_progress"
	StatusReachedOut = "reached_out"
	StatusFollowUp   = "follow_up"
)

// Card priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidStatus reports whether s names a pipeline column.
func ValidStatus(s string) bool {
	switch s {
	case StatusToReach, StatusInProgress, StatusReachedOut, StatusFollowUp:
		return true
	}
	return false
}

// Card is one customer record on the board.
type Card struct {
	ID           int64
	CustomerName string
	Company      string
	Email        string
	Phone        string
	Status       string
	Priority     string
	Notes        string
	AssignedTo   string
	LastContact  *time.Time
	NextFollowup *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Contact converts the card into the CRM view handed to the tool layer.
func (c *Card) Contact() *types.ContactRecord {
	return &types.ContactRecord{
		ID:           c.ID,
		Name:         c.CustomerName,
		Company:      c.Company,
		Email:        c.Email,
		Phone:        c.Phone,
		Status:       c.Status,
		Priority:     c.Priority,
		Notes:        c.Notes,
		LastContact:  c.LastContact,
		NextFollowup: c.NextFollowup,
	}
}

// CardStore persists cards and notes in SQLite.
type CardStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS cards (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	customer_name TEXT NOT NULL,
	company TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'to_reach',
	priority TEXT NOT NULL DEFAULT 'medium',
	notes TEXT NOT NULL DEFAULT '',
	assigned_to TEXT NOT NULL DEFAULT '',
	last_contact_date TIMESTAMP,
	next_followup_date TIMESTAMP,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_cards_status ON cards(status);
CREATE INDEX IF NOT EXISTS idx_cards_name ON cards(customer_name);

CREATE TABLE IF NOT EXISTS notes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	card_id INTEGER NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
	body TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_notes_card ON notes(card_id);
`

// Open initializes the SQLite database at the given path, creating the
// schema when missing.
func Open(path string) (*CardStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &CardStore{db: db}, nil
}

// Close releases the database handle.
func (s *CardStore) Close() error {
	return s.db.Close()
}

const cardColumns = `id, customer_name, company, email, phone, status, priority, notes,
	assigned_to, last_contact_date, next_followup_date, created_at, updated_at`

func scanCard(row interface{ Scan(...any) error }) (*Card, error) {
	var c Card
	err := row.Scan(&c.ID, &c.CustomerName, &c.Company, &c.Email, &c.Phone,
		&c.Status, &c.Priority, &c.Notes, &c.AssignedTo,
		&c.LastContact, &c.NextFollowup, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCard inserts a card and returns it with its assigned id.
func (s *CardStore) CreateCard(ctx context.Context, card Card) (*Card, error) {
	if card.CustomerName == "" {
		return nil, collab.NewError(collab.CodeInvalidInput, "customer_name is required")
	}
	if card.Status == "" {
		card.Status = StatusToReach
	}
	if !ValidStatus(card.Status) {
		return nil, collab.NewError(collab.CodeInvalidInput, "unknown status %q", card.Status)
	}
	if card.Priority == "" {
		card.Priority = PriorityMedium
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (customer_name, company, email, phone, status, priority, notes,
			assigned_to, last_contact_date, next_followup_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.CustomerName, card.Company, card.Email, card.Phone, card.Status,
		card.Priority, card.Notes, card.AssignedTo, card.LastContact, card.NextFollowup)
	if err != nil {
		return nil, fmt.Errorf("insert card: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert card: %w", err)
	}
	return s.GetCard(ctx, id)
}

// GetCard fetches a card by id.
func (s *CardStore) GetCard(ctx context.Context, id int64) (*Card, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, collab.NewError(collab.CodeNotFound, "card %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	return card, nil
}

// ListCards returns cards, optionally filtered by status, newest first.
func (s *CardStore) ListCards(ctx context.Context, status string) ([]Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards`
	args := []any{}
	if status != "" {
		if !ValidStatus(status) {
			return nil, collab.NewError(collab.CodeInvalidInput, "unknown status %q", status)
		}
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("list cards: %w", err)
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

// UpdateCard overwrites the card's editable fields.
func (s *CardStore) UpdateCard(ctx context.Context, card Card) (*Card, error) {
	if !ValidStatus(card.Status) {
		return nil, collab.NewError(collab.CodeInvalidInput, "unknown status %q", card.Status)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET customer_name = ?, company = ?, email = ?, phone = ?, status = ?,
			priority = ?, notes = ?, assigned_to = ?, last_contact_date = ?,
			next_followup_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		card.CustomerName, card.Company, card.Email, card.Phone, card.Status,
		card.Priority, card.Notes, card.AssignedTo, card.LastContact,
		card.NextFollowup, card.ID)
	if err != nil {
		return nil, fmt.Errorf("update card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, collab.NewError(collab.CodeNotFound, "card %d not found", card.ID)
	}
	return s.GetCard(ctx, card.ID)
}

// DeleteCard removes a card and its notes.
func (s *CardStore) DeleteCard(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return collab.NewError(collab.CodeNotFound, "card %d not found", id)
	}
	return nil
}

// TransitionStatus moves a card to another pipeline column.
func (s *CardStore) TransitionStatus(ctx context.Context, id int64, status string) error {
	if !ValidStatus(status) {
		return collab.NewError(collab.CodeInvalidInput, "unknown status %q", status)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE cards SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id)
	if err != nil {
		return fmt.Errorf("transition status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return collab.NewError(collab.CodeNotFound, "card %d not found", id)
	}
	return nil
}

// LookupContact resolves a contact by numeric id or exact name, falling back
// to a unique prefix match. Implements crm.Service.
func (s *CardStore) LookupContact(ctx context.Context, nameOrID string) (*types.ContactRecord, error) {
	nameOrID = strings.TrimSpace(nameOrID)
	if nameOrID == "" {
		return nil, collab.NewError(collab.CodeInvalidInput, "name_or_id is required")
	}

	if id, err := strconv.ParseInt(nameOrID, 10, 64); err == nil {
		card, err := s.GetCard(ctx, id)
		if err != nil {
			return nil, err
		}
		return card.Contact(), nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cardColumns+` FROM cards
		WHERE customer_name = ? COLLATE NOCASE
			OR customer_name LIKE ? COLLATE NOCASE
		LIMIT 2`,
		nameOrID, nameOrID+"%")
	if err != nil {
		return nil, fmt.Errorf("lookup contact: %w", err)
	}
	defer rows.Close()

	var matches []*Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("lookup contact: %w", err)
		}
		matches = append(matches, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup contact: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, collab.NewError(collab.CodeNotFound, "no contact matching %q", nameOrID)
	case 1:
		return matches[0].Contact(), nil
	default:
		return nil, collab.NewError(collab.CodeInvalidInput, "%q matches multiple contacts, use the numeric id", nameOrID)
	}
}

// SearchContacts finds contacts whose name, company, or email contains the
// query. Implements crm.Service.
func (s *CardStore) SearchContacts(ctx context.Context, query string, limit int) ([]types.ContactRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, collab.NewError(collab.CodeInvalidInput, "query is required")
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cardColumns+` FROM cards
		WHERE customer_name LIKE ? COLLATE NOCASE
			OR company LIKE ? COLLATE NOCASE
			OR email LIKE ? COLLATE NOCASE
		ORDER BY updated_at DESC
		LIMIT ?`,
		pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	defer rows.Close()

	var contacts []types.ContactRecord
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("search contacts: %w", err)
		}
		contacts = append(contacts, *card.Contact())
	}
	return contacts, rows.Err()
}

// CreateNote attaches a note to a card. Implements crm.Service.
func (s *CardStore) CreateNote(ctx context.Context, cardID int64, text string) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, collab.NewError(collab.CodeInvalidInput, "note text is required")
	}
	if _, err := s.GetCard(ctx, cardID); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (card_id, body) VALUES (?, ?)`, cardID, text)
	if err != nil {
		return 0, fmt.Errorf("create note: %w", err)
	}
	return res.LastInsertId()
}

// Notes returns a card's notes, oldest first.
func (s *CardStore) Notes(ctx context.Context, cardID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM notes WHERE card_id = ? ORDER BY id`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("list notes: %w", err)
		}
		notes = append(notes, body)
	}
	return notes, rows.Err()
}
