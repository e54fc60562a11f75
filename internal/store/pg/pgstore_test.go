package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"campushub.org/internal/event"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestGetEventNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("select .* from events where id=").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetEvent(context.Background(), "missing")
	if !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegisterCommitsWholeTransaction(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select capacity, registered_count from events").
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity", "registered_count"}).AddRow(10, 3))
	mock.ExpectQuery(`select count\(\*\) from registrations`).
		WithArgs("evt-1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("insert into registrations").
		WithArgs("evt-1", "stu-1", "Sam", "sam@campus.edu", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`update events set registered_count = registered_count \+ 1`).
		WithArgs("evt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reg, err := s.Register(context.Background(), "evt-1", event.Student{
		ID:    "stu-1",
		Name:  "Sam",
		Email: "sam@campus.edu",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.EventID != "evt-1" || reg.StudentID != "stu-1" {
		t.Fatalf("unexpected registration: %#v", reg)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegisterFullRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select capacity, registered_count from events").
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity", "registered_count"}).AddRow(5, 5))
	mock.ExpectQuery(`select count\(\*\) from registrations`).
		WithArgs("evt-1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	_, err := s.Register(context.Background(), "evt-1", event.Student{ID: "stu-1", Email: "sam@campus.edu"})
	if !errors.Is(err, event.ErrEventFull) {
		t.Fatalf("expected ErrEventFull, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegisterDuplicateWinsOverFull(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select capacity, registered_count from events").
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity", "registered_count"}).AddRow(5, 5))
	mock.ExpectQuery(`select count\(\*\) from registrations`).
		WithArgs("evt-1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := s.Register(context.Background(), "evt-1", event.Student{ID: "stu-1", Email: "sam@campus.edu"})
	if !errors.Is(err, event.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegisterUnknownEvent(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select capacity, registered_count from events").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"capacity", "registered_count"}))
	mock.ExpectRollback()

	_, err := s.Register(context.Background(), "missing", event.Student{ID: "stu-1", Email: "sam@campus.edu"})
	if !errors.Is(err, event.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListPublishedOrdersByStart(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "title", "description", "venue", "start_at", "capacity",
		"registered_count", "organizer_id", "is_published", "created_at",
	}).AddRow("evt-1", "Sooner", "", "Hall", now.Add(time.Hour), 10, 0, "org-1", true, now).
		AddRow("evt-2", "Later", "", "Hall", now.Add(2*time.Hour), 10, 0, "org-1", true, now)

	mock.ExpectQuery("select .* from events\\s+where is_published = true").
		WillReturnRows(rows)

	events, err := s.ListPublished(context.Background())
	if err != nil {
		t.Fatalf("ListPublished: %v", err)
	}
	if len(events) != 2 || events[0].ID != "evt-1" {
		t.Fatalf("unexpected events: %#v", events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
