package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/virodrop/virodrop/game/engine"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.NewEngine(engine.DefaultSettings())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng
}

func TestCreateAssignsID(t *testing.T) {
	m := NewManager()

	sess, err := m.Create("classic", newTestEngine(t))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(sess.ID) != 4 {
		t.Errorf("ID length = %d, want 4", len(sess.ID))
	}
	if sess.ConfigID != "classic" {
		t.Errorf("ConfigID = %q, want classic", sess.ConfigID)
	}
	if sess.Engine == nil {
		t.Error("session engine is nil")
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}
}

func TestGetCaseInsensitive(t *testing.T) {
	m := NewManager()
	sess, err := m.Create("classic", newTestEngine(t))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := m.Get(strings.ToUpper(sess.ID))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != sess {
		t.Error("expected the same session instance")
	}
}

func TestGetNotFound(t *testing.T) {
	m := NewManager()
	if _, err := m.Get("zzzz"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	m := NewManager()
	sess, err := m.Create("classic", newTestEngine(t))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := m.Delete(sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get after delete err = %v, want ErrSessionNotFound", err)
	}
	if err := m.Delete(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Delete err = %v, want ErrSessionNotFound", err)
	}
}

func TestListAndCount(t *testing.T) {
	m := NewManager()
	for i := 0; i < 3; i++ {
		if _, err := m.Create("classic", newTestEngine(t)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if got := len(m.List()); got != 3 {
		t.Errorf("List length = %d, want 3", got)
	}
	if got := m.Count(); got != 3 {
		t.Errorf("Count = %d, want 3", got)
	}
}

func TestUpdateLastAccessed(t *testing.T) {
	m := NewManager()
	sess, err := m.Create("classic", newTestEngine(t))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	before := sess.LastAccessed
	if err := m.UpdateLastAccessed(sess.ID); err != nil {
		t.Fatalf("UpdateLastAccessed: %v", err)
	}
	if sess.LastAccessed.Before(before) {
		t.Error("LastAccessed went backwards")
	}

	if err := m.UpdateLastAccessed("zzzz"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}
