package store

import (
	"errors"
	"testing"
	"time"
)

func createTestUser(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.Users().Create(&User{ID: id, Name: "Learner " + id, TokenHash: "hash-" + id}); err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "user-1")
	repo := s.Sessions()

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	sess := &Session{
		ID:       "sess-1",
		UserID:   "user-1",
		Username: "Learner user-1",
		TopSigns: []SignCount{
			{Label: "Hello", Count: 3},
			{Label: "V", Count: 1},
		},
		SecondsSpent: 42.5,
		Score:        2,
		Questions:    3,
		CreatedAt:    created,
	}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID("sess-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.UserID != "user-1" || got.Username != "Learner user-1" {
		t.Errorf("owner = %q/%q", got.UserID, got.Username)
	}
	if got.SecondsSpent != 42.5 || got.Score != 2 || got.Questions != 3 {
		t.Errorf("stats = %v/%d/%d", got.SecondsSpent, got.Score, got.Questions)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	if len(got.TopSigns) != 2 {
		t.Fatalf("len(TopSigns) = %d, want 2", len(got.TopSigns))
	}
	if got.TopSigns[0] != (SignCount{Label: "Hello", Count: 3}) || got.TopSigns[1] != (SignCount{Label: "V", Count: 1}) {
		t.Errorf("TopSigns = %+v, order must be preserved", got.TopSigns)
	}
}

func TestSessionRepository_EmptyTopSigns(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "user-1")

	if err := s.Sessions().Create(&Session{ID: "empty", UserID: "user-1", Username: "x", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := s.Sessions().GetByID("empty")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.TopSigns == nil || len(got.TopSigns) != 0 {
		t.Errorf("TopSigns = %#v, want empty non-nil slice", got.TopSigns)
	}
}

func TestSessionRepository_ListByUser(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "user-1")
	createTestUser(t, s, "user-2")
	repo := s.Sessions()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		sess := &Session{
			ID:        id,
			UserID:    "user-1",
			Username:  "u",
			TopSigns:  []SignCount{{Label: "Hello", Count: i + 1}},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.Create(sess); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}
	if err := repo.Create(&Session{ID: "other", UserID: "user-2", Username: "o", CreatedAt: base}); err != nil {
		t.Fatalf("Create(other) error = %v", err)
	}

	list, err := repo.ListByUser("user-1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	want := []string{"new", "mid", "old"}
	for i, sess := range list {
		if sess.ID != want[i] {
			t.Errorf("list[%d] = %q, want %q", i, sess.ID, want[i])
		}
		if len(sess.TopSigns) != 1 {
			t.Errorf("list[%d] has %d signs, want 1", i, len(sess.TopSigns))
		}
	}
}

func TestSessionRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "user-1")
	repo := s.Sessions()

	sess := &Session{ID: "sess-1", UserID: "user-1", Username: "u", TopSigns: []SignCount{{Label: "V", Count: 1}}, CreatedAt: time.Now()}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete("sess-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID("sess-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete("sess-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM session_signs WHERE session_id = ?", "sess-1").Scan(&n); err != nil {
		t.Fatalf("count signs: %v", err)
	}
	if n != 0 {
		t.Errorf("session_signs rows = %d, want 0 after cascade", n)
	}
}

func TestSessionRepository_RequiresUser(t *testing.T) {
	s := newTestStore(t)

	err := s.Sessions().Create(&Session{ID: "orphan", UserID: "nobody", Username: "x", CreatedAt: time.Now()})
	if err == nil {
		t.Error("expected foreign key error for unknown user")
	}
}
