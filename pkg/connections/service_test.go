package connections

import (
	"errors"
	"testing"

	"SportLink/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Connection{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db)
}

func TestRequestAcceptLifecycle(t *testing.T) {
	s := newTestService(t)

	if _, err := s.Request(1, 1); !errors.Is(err, ErrSelfConnection) {
		t.Fatalf("expected ErrSelfConnection, got %v", err)
	}

	if ok, _ := s.IsConnected(1, 2); ok {
		t.Fatalf("unconnected pair reported connected")
	}

	conn, err := s.Request(1, 2)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if conn.Status != models.ConnectionPending {
		t.Fatalf("expected pending, got %s", conn.Status)
	}

	// pending is not connected
	if ok, _ := s.IsConnected(1, 2); ok {
		t.Fatalf("pending pair reported connected")
	}

	// duplicate requests in either direction are rejected
	if _, err := s.Request(1, 2); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := s.Request(2, 1); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for reverse direction, got %v", err)
	}

	// only the recipient may accept
	if err := s.Accept(conn.ID, 1); !errors.Is(err, ErrNotRecipient) {
		t.Fatalf("expected ErrNotRecipient, got %v", err)
	}
	if err := s.Accept(conn.ID+99, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Accept(conn.ID, 2); err != nil {
		t.Fatalf("accept: %v", err)
	}
	// idempotent
	if err := s.Accept(conn.ID, 2); err != nil {
		t.Fatalf("second accept: %v", err)
	}

	if ok, _ := s.IsConnected(1, 2); !ok {
		t.Fatalf("accepted pair not reported connected")
	}
	if ok, _ := s.IsConnected(2, 1); !ok {
		t.Fatalf("IsConnected is not symmetric")
	}
}

func TestListFor(t *testing.T) {
	s := newTestService(t)

	if _, err := s.Request(1, 2); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := s.Request(3, 1); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := s.Request(2, 3); err != nil {
		t.Fatalf("request: %v", err)
	}

	conns, err := s.ListFor(1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(conns) != 2 {
		t.Fatalf("expected 2 connections for user 1, got %d", len(conns))
	}
	for _, conn := range conns {
		if conn.RequesterID != 1 && conn.RecipientID != 1 {
			t.Fatalf("connection %d does not involve user 1", conn.ID)
		}
	}
}
