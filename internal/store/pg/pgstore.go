// Package pg implements the event and auth stores on PostgreSQL.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"campushub.org/internal/event"
	"campushub.org/internal/ids"
)

type Store struct {
	db *sql.DB
}

var _ event.Service = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection. Used by tests with sqlmock.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) CreateEvent(ctx context.Context, organizerID string, req event.CreateEventRequest) (event.Event, error) {
	req, err := event.ValidateCreate(organizerID, req)
	if err != nil {
		return event.Event{}, err
	}

	e := event.Event{
		ID:          ids.New(),
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		StartAt:     req.StartAt.UTC(),
		Capacity:    req.Capacity,
		OrganizerID: organizerID,
		IsPublished: req.IsPublished,
		CreatedAt:   time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		insert into events(id, title, description, venue, start_at, capacity, registered_count, organizer_id, is_published, created_at)
		values ($1,$2,$3,$4,$5,$6,0,$7,$8,$9)
	`, e.ID, e.Title, e.Description, e.Venue, e.StartAt, e.Capacity, e.OrganizerID, e.IsPublished, e.CreatedAt)
	if err != nil {
		return event.Event{}, err
	}
	return e, nil
}

const eventColumns = `id, title, description, venue, start_at, capacity, registered_count, organizer_id, is_published, created_at`

func scanEvent(row interface{ Scan(...any) error }) (event.Event, error) {
	var e event.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Venue, &e.StartAt, &e.Capacity,
		&e.RegisteredCount, &e.OrganizerID, &e.IsPublished, &e.CreatedAt)
	return e, err
}

func (s *Store) GetEvent(ctx context.Context, id string) (event.Event, error) {
	row := s.db.QueryRowContext(ctx, `select `+eventColumns+` from events where id=$1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, event.ErrNotFound
	}
	if err != nil {
		return event.Event{}, err
	}
	return e, nil
}

func (s *Store) ListPublished(ctx context.Context) ([]event.Event, error) {
	return s.listEvents(ctx, `
		select `+eventColumns+` from events
		where is_published = true
		order by start_at asc
	`)
}

func (s *Store) ListByOrganizer(ctx context.Context, organizerID string) ([]event.Event, error) {
	return s.listEvents(ctx, `
		select `+eventColumns+` from events
		where organizer_id = $1
		order by start_at desc
	`, organizerID)
}

func (s *Store) listEvents(ctx context.Context, query string, args ...any) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []event.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Register runs the whole registration as one transaction: the event row is
// locked with FOR UPDATE, so concurrent attempts serialize on the counter
// and can never both observe a free seat that only one of them gets.
func (s *Store) Register(ctx context.Context, eventID string, student event.Student) (event.Registration, error) {
	student, err := event.ValidateStudent(student)
	if err != nil {
		return event.Registration{}, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return event.Registration{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var capacity, registered int
	err = tx.QueryRowContext(ctx, `
		select capacity, registered_count from events where id=$1 for update
	`, eventID).Scan(&capacity, &registered)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Registration{}, event.ErrNotFound
	}
	if err != nil {
		return event.Registration{}, err
	}

	var dup int
	err = tx.QueryRowContext(ctx, `
		select count(*) from registrations where event_id=$1 and student_id=$2
	`, eventID, student.ID).Scan(&dup)
	if err != nil {
		return event.Registration{}, err
	}
	if dup > 0 {
		return event.Registration{}, event.ErrAlreadyRegistered
	}

	if registered >= capacity {
		return event.Registration{}, event.ErrEventFull
	}

	reg := event.Registration{
		StudentID: student.ID,
		EventID:   eventID,
		Name:      student.Name,
		Email:     student.Email,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx, `
		insert into registrations(event_id, student_id, name, email, created_at)
		values ($1,$2,$3,$4,$5)
	`, reg.EventID, reg.StudentID, reg.Name, reg.Email, reg.CreatedAt); err != nil {
		return event.Registration{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		update events set registered_count = registered_count + 1 where id=$1
	`, eventID); err != nil {
		return event.Registration{}, err
	}

	if err := tx.Commit(); err != nil {
		return event.Registration{}, err
	}
	return reg, nil
}

func (s *Store) ListRegistrations(ctx context.Context, eventID string) ([]event.Registration, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select event_id, student_id, name, email, created_at
		from registrations
		where event_id=$1
		order by created_at desc
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []event.Registration
	for rows.Next() {
		var r event.Registration
		if err := rows.Scan(&r.EventID, &r.StudentID, &r.Name, &r.Email, &r.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}
