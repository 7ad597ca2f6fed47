package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

var (
	insertAuditSQL = fmt.Sprintf(
		`INSERT INTO audit_logs (actor, action, target_id, created_at) VALUES (?, ?, ?, %s)`,
		fmt.Sprintf(nowExpr, "audit_logs"))
	insertChatSQL = fmt.Sprintf(
		`INSERT INTO chats (actor, utterance, response, created_at) VALUES (?, ?, ?, %s)`,
		fmt.Sprintf(nowExpr, "chats"))
)

// AppendAudit records a mutation. Entries without an actor are rejected;
// callers skip auditing for anonymous requests.
func (s *SQLiteStore) AppendAudit(ctx context.Context, entry AuditEntry) error {
	actor := strings.TrimSpace(entry.Actor)
	if actor == "" {
		return &ValidationError{Field: "actor", Message: "audit entries need a known actor"}
	}
	var target sql.NullInt64
	if entry.TargetID != nil {
		target = sql.NullInt64{Int64: *entry.TargetID, Valid: true}
	}
	if _, err := s.db.ExecContext(ctx, insertAuditSQL, actor, string(entry.Action), target); err != nil {
		return storageErr("append audit", err)
	}
	return nil
}

func (s *SQLiteStore) LoadAudit(ctx context.Context) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, actor, action, target_id, created_at FROM audit_logs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, storageErr("load audit", err)
	}
	defer func() { _ = rows.Close() }()

	var out []AuditEntry
	for rows.Next() {
		var (
			e      AuditEntry
			action string
			target sql.NullInt64
			ts     string
		)
		if err := rows.Scan(&e.ID, &e.Actor, &action, &target, &ts); err != nil {
			return nil, storageErr("scan audit", err)
		}
		e.Action = Action(action)
		if target.Valid {
			id := target.Int64
			e.TargetID = &id
		}
		if e.Timestamp, err = parseTimestamp(ts); err != nil {
			return nil, storageErr("scan audit", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load audit", err)
	}
	return out, nil
}

// AppendInteraction stores one exchange; an empty actor is kept as GuestActor.
func (s *SQLiteStore) AppendInteraction(ctx context.Context, in Interaction) error {
	actor := strings.TrimSpace(in.Actor)
	if actor == "" {
		actor = GuestActor
	}
	if _, err := s.db.ExecContext(ctx, insertChatSQL, actor, in.Utterance, in.Response); err != nil {
		return storageErr("append interaction", err)
	}
	return nil
}

func (s *SQLiteStore) LoadInteractions(ctx context.Context) ([]Interaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, actor, utterance, response, created_at FROM chats ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, storageErr("load interactions", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Interaction
	for rows.Next() {
		var (
			in Interaction
			ts string
		)
		if err := rows.Scan(&in.ID, &in.Actor, &in.Utterance, &in.Response, &ts); err != nil {
			return nil, storageErr("scan interaction", err)
		}
		if in.Timestamp, err = parseTimestamp(ts); err != nil {
			return nil, storageErr("scan interaction", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load interactions", err)
	}
	return out, nil
}
