package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
	audit "github.com/tawf-labs/amana-reserve/pkg/platform/audit"
)

// Store persists audit events in PostgreSQL. The category column is derived
// from the action at write time so retention jobs can partition on it.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// payload is the JSON document stored alongside the indexed columns.
type payload struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Timestamp  string `json:"timestamp"`
	Actor      string `json:"actor,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Action     string `json:"action"`
	ActivityID string `json:"activity_id,omitempty"`
	ProposalID uint64 `json:"proposal_id,omitempty"`
	Amount     uint64 `json:"amount,omitempty"`
	Outcome    int64  `json:"outcome,omitempty"`
	Decision   string `json:"decision,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

func marshalEvent(event audit.Event) (string, []byte, error) {
	category := event.Action.Category()
	doc := payload{
		ID:         uuid.New().String(),
		Category:   string(category),
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		Actor:      event.Actor.String(),
		Subject:    event.Subject.String(),
		Action:     string(event.Action),
		ActivityID: event.ActivityID,
		ProposalID: event.ProposalID,
		Amount:     event.Amount,
		Outcome:    event.Outcome,
		Decision:   event.Decision,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", nil, fmt.Errorf("marshal audit payload: %w", err)
	}
	return string(category), raw, nil
}

// Append writes a single audit event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category, raw, err := marshalEvent(event)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO audit_events (actor, action, category, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.db.ExecContext(ctx, query, event.Actor.String(), string(event.Action), category, event.Timestamp, raw)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// AppendBatch writes many events in one statement. Uses unnest instead of
// per-row inserts; the worker drains its inbox in batches through this path.
func (s *Store) AppendBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}

	actors := make([]string, 0, len(events))
	actions := make([]string, 0, len(events))
	categories := make([]string, 0, len(events))
	occurred := make([]time.Time, 0, len(events))
	payloads := make([]string, 0, len(events))
	for _, event := range events {
		category, raw, err := marshalEvent(event)
		if err != nil {
			return err
		}
		actors = append(actors, event.Actor.String())
		actions = append(actions, string(event.Action))
		categories = append(categories, category)
		occurred = append(occurred, event.Timestamp)
		payloads = append(payloads, string(raw))
	}

	query := `
		INSERT INTO audit_events (actor, action, category, occurred_at, payload)
		SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::timestamptz[], $5::jsonb[])
	`
	_, err := s.db.ExecContext(ctx, query,
		pq.Array(actors), pq.Array(actions), pq.Array(categories), pq.Array(occurred), pq.Array(payloads))
	if err != nil {
		return fmt.Errorf("append audit batch: %w", err)
	}
	return nil
}

// ListByActor returns events for one actor, oldest first.
func (s *Store) ListByActor(ctx context.Context, actor id.Identity) ([]audit.Event, error) {
	query := `
		SELECT payload FROM audit_events
		WHERE actor = $1
		ORDER BY occurred_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, actor.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var doc payload
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal audit payload: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, doc.Timestamp)
		events = append(events, audit.Event{
			Category:   audit.EventCategory(doc.Category),
			Timestamp:  ts,
			Actor:      id.Identity(doc.Actor),
			Subject:    id.Identity(doc.Subject),
			Action:     audit.AuditEvent(doc.Action),
			ActivityID: doc.ActivityID,
			ProposalID: doc.ProposalID,
			Amount:     doc.Amount,
			Outcome:    doc.Outcome,
			Decision:   doc.Decision,
			Reason:     doc.Reason,
			RequestID:  doc.RequestID,
		})
	}
	return events, rows.Err()
}
