package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"chronicle/internal/sentinel"
	"chronicle/internal/timeline/lifecycle"
	"chronicle/internal/timeline/models"
	id "chronicle/pkg/domain"
)

// PostgresStore persists events and moderation logs in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed event store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const eventColumns = `id, title, summary, description_md, location_name, latitude, longitude,
	start_year_ad, end_year_ad, start_year_hijri, end_year_hijri, importance_level,
	visibility_rank, status, created_by, updated_by, created_at, updated_at, approved_at`

func (s *PostgresStore) Create(ctx context.Context, event *models.Event, entry *models.LogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err = tx.ExecContext(ctx, query,
		uuid.UUID(event.ID),
		event.Title,
		event.Summary,
		event.DescriptionMD,
		event.LocationName,
		event.Latitude,
		event.Longitude,
		event.StartYearAD,
		event.EndYearAD,
		event.StartYearHijri,
		event.EndYearHijri,
		event.ImportanceLevel,
		event.VisibilityRank,
		string(event.Status),
		nullableUserID(event.CreatedBy),
		nullableUserID(event.UpdatedBy),
		event.CreatedAt,
		event.UpdatedAt,
		event.ApprovedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	if err := insertLogEntry(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	event, err := scanEvent(s.db.QueryRowContext(ctx, query, uuid.UUID(eventID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) List(ctx context.Context, vis lifecycle.Visibility, filter *models.ListFilter) ([]*models.Event, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	// Visibility goes into the query itself so non-approved rows outside the
	// scope never leave the database.
	if !vis.All {
		if vis.OwnerID.IsNil() {
			where = append(where, "status = "+arg(string(models.StatusApproved)))
		} else {
			where = append(where, "(status = "+arg(string(models.StatusApproved))+" OR created_by = "+arg(uuid.UUID(vis.OwnerID))+")")
		}
	}

	if filter != nil {
		if filter.Status != nil {
			where = append(where, "status = "+arg(string(*filter.Status)))
		}
		if filter.Year != nil {
			where = append(where, "start_year_ad = "+arg(*filter.Year))
		}
		if filter.StartYearFrom != nil {
			where = append(where, "start_year_ad >= "+arg(*filter.StartYearFrom))
		}
		if filter.StartYearTo != nil {
			where = append(where, "start_year_ad <= "+arg(*filter.StartYearTo))
		}
		if filter.Location != "" {
			where = append(where, "location_name ILIKE "+arg("%"+filter.Location+"%"))
		}
		if filter.Query != "" {
			pattern := arg("%" + filter.Query + "%")
			where = append(where, "(title ILIKE "+pattern+" OR summary ILIKE "+pattern+" OR description_md ILIKE "+pattern+")")
		}
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_year_ad ASC, visibility_rank DESC, created_at ASC"
	if filter != nil {
		if filter.Limit > 0 {
			query += " LIMIT " + arg(filter.Limit)
		}
		if filter.Offset > 0 {
			query += " OFFSET " + arg(filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Transition locks the event row, runs apply against the fresh state, then
// writes the row and its log entry in the same transaction. Concurrent
// transitions on the same event serialize on the row lock, so apply always
// validates against the committed status of the winner.
func (s *PostgresStore) Transition(ctx context.Context, eventID id.EventID, apply TransitionFunc) (*models.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	event, err := scanEvent(tx.QueryRowContext(ctx, query, uuid.UUID(eventID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find event for transition: %w", err)
	}

	entry, err := apply(event)
	if err != nil {
		return nil, err
	}

	update := `
		UPDATE events
		SET title = $2, summary = $3, description_md = $4, location_name = $5,
			latitude = $6, longitude = $7, start_year_ad = $8, end_year_ad = $9,
			start_year_hijri = $10, end_year_hijri = $11, importance_level = $12,
			visibility_rank = $13, status = $14, updated_by = $15, updated_at = $16,
			approved_at = $17
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, update,
		uuid.UUID(event.ID),
		event.Title,
		event.Summary,
		event.DescriptionMD,
		event.LocationName,
		event.Latitude,
		event.Longitude,
		event.StartYearAD,
		event.EndYearAD,
		event.StartYearHijri,
		event.EndYearHijri,
		event.ImportanceLevel,
		event.VisibilityRank,
		string(event.Status),
		nullableUserID(event.UpdatedBy),
		event.UpdatedAt,
		event.ApprovedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	if err := insertLogEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) History(ctx context.Context, eventID id.EventID) ([]*models.LogEntry, error) {
	if _, err := s.Get(ctx, eventID); err != nil {
		return nil, err
	}

	// seq is the insertion order; created_at alone can collide when entries
	// land inside the same transaction timestamp.
	query := `
		SELECT id, event_id, performed_by, action, note, created_at
		FROM moderation_log
		WHERE event_id = $1
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(eventID))
	if err != nil {
		return nil, fmt.Errorf("list moderation log: %w", err)
	}
	defer rows.Close()

	var entries []*models.LogEntry
	for rows.Next() {
		var entry models.LogEntry
		var entryID, entryEventID uuid.UUID
		var performedBy uuid.NullUUID
		var action string
		var note sql.NullString
		if err := rows.Scan(&entryID, &entryEventID, &performedBy, &action, &note, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan moderation log: %w", err)
		}
		entry.ID = id.LogID(entryID)
		entry.EventID = id.EventID(entryEventID)
		entry.Action = models.Action(action)
		entry.Note = note.String
		if performedBy.Valid {
			actor := id.UserID(performedBy.UUID)
			entry.PerformedBy = &actor
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderation log: %w", err)
	}
	return entries, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertLogEntry(ctx context.Context, exec execer, entry *models.LogEntry) error {
	query := `
		INSERT INTO moderation_log (id, event_id, performed_by, action, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var performedBy any
	if entry.PerformedBy != nil {
		performedBy = uuid.UUID(*entry.PerformedBy)
	}
	_, err := exec.ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.EventID),
		performedBy,
		string(entry.Action),
		entry.Note,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert moderation log: %w", err)
	}
	return nil
}

func nullableUserID(userID id.UserID) any {
	if userID.IsNil() {
		return nil
	}
	return uuid.UUID(userID)
}

type eventRow interface {
	Scan(dest ...any) error
}

func scanEvent(row eventRow) (*models.Event, error) {
	var event models.Event
	var eventID uuid.UUID
	var status string
	var createdBy, updatedBy uuid.NullUUID
	var approvedAt sql.NullTime
	if err := row.Scan(
		&eventID,
		&event.Title,
		&event.Summary,
		&event.DescriptionMD,
		&event.LocationName,
		&event.Latitude,
		&event.Longitude,
		&event.StartYearAD,
		&event.EndYearAD,
		&event.StartYearHijri,
		&event.EndYearHijri,
		&event.ImportanceLevel,
		&event.VisibilityRank,
		&status,
		&createdBy,
		&updatedBy,
		&event.CreatedAt,
		&event.UpdatedAt,
		&approvedAt,
	); err != nil {
		return nil, err
	}
	event.ID = id.EventID(eventID)
	event.Status = models.Status(status)
	if createdBy.Valid {
		event.CreatedBy = id.UserID(createdBy.UUID)
	}
	if updatedBy.Valid {
		event.UpdatedBy = id.UserID(updatedBy.UUID)
	}
	if approvedAt.Valid {
		event.ApprovedAt = &approvedAt.Time
	}
	return &event, nil
}
