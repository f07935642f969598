package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/virodrop/virodrop/game/service"
)

func testEntry(id string, score int) service.ScoreEntry {
	return service.ScoreEntry{
		SessionID: id,
		Score:     score,
		Level:     3,
		Cleared:   score / 100,
		When:      time.Now(),
	}
}

func TestScoreStoreSubmitAndTop(t *testing.T) {
	store, err := NewScoreStore(filepath.Join(t.TempDir(), "scores.json"))
	if err != nil {
		t.Fatalf("NewScoreStore: %v", err)
	}

	for _, e := range []service.ScoreEntry{
		testEntry("aaaa", 500),
		testEntry("bbbb", 2000),
		testEntry("cccc", 1200),
	} {
		if err := store.Submit(e); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	top, err := store.Top(2)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("got %d entries, want 2", len(top))
	}
	if top[0].Score != 2000 || top[1].Score != 1200 {
		t.Errorf("top scores = %d, %d, want 2000, 1200", top[0].Score, top[1].Score)
	}

	// n beyond the table size returns everything
	all, err := store.Top(100)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d entries, want 3", len(all))
	}
}

func TestScoreStoreAttachName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.json")
	store, err := NewScoreStore(path)
	if err != nil {
		t.Fatalf("NewScoreStore: %v", err)
	}

	early := testEntry("aaaa", 500)
	early.When = time.Now().Add(-time.Hour)
	for _, e := range []service.ScoreEntry{early, testEntry("aaaa", 800), testEntry("bbbb", 900)} {
		if err := store.Submit(e); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	// The session's most recent entry gets the name.
	entry, ok, err := store.AttachName("aaaa", "mags")
	if err != nil {
		t.Fatalf("AttachName: %v", err)
	}
	if !ok || entry.Name != "mags" || entry.Score != 800 {
		t.Errorf("entry = %+v ok=%v, want latest aaaa entry named mags", entry, ok)
	}

	// Unknown sessions report not found without error.
	if _, ok, err := store.AttachName("zzzz", "mags"); err != nil || ok {
		t.Errorf("AttachName unknown = ok=%v err=%v, want false nil", ok, err)
	}

	// The name survives a reload.
	reopened, err := NewScoreStore(path)
	if err != nil {
		t.Fatalf("NewScoreStore (reopen): %v", err)
	}
	all, err := reopened.Top(0)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	named := 0
	for _, e := range all {
		if e.Name == "mags" {
			named++
			if e.Score != 800 {
				t.Errorf("named entry score = %d, want 800", e.Score)
			}
		}
	}
	if named != 1 {
		t.Errorf("named entries = %d, want 1", named)
	}
}

func TestScoreStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.json")

	store, err := NewScoreStore(path)
	if err != nil {
		t.Fatalf("NewScoreStore: %v", err)
	}
	if err := store.Submit(testEntry("aaaa", 900)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	reopened, err := NewScoreStore(path)
	if err != nil {
		t.Fatalf("NewScoreStore (reopen): %v", err)
	}
	top, err := reopened.Top(0)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 1 || top[0].Score != 900 || top[0].SessionID != "aaaa" {
		t.Errorf("reloaded table = %+v, want one entry aaaa/900", top)
	}
}

func TestScoreStorePrunes(t *testing.T) {
	store, err := NewScoreStore(filepath.Join(t.TempDir(), "scores.json"))
	if err != nil {
		t.Fatalf("NewScoreStore: %v", err)
	}

	for i := 0; i < maxStoredScores+10; i++ {
		if err := store.Submit(testEntry("aaaa", i*10)); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	all, err := store.Top(0)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(all) != maxStoredScores {
		t.Errorf("table size = %d, want %d", len(all), maxStoredScores)
	}
	// The lowest scores were dropped
	if all[len(all)-1].Score != 100 {
		t.Errorf("lowest kept score = %d, want 100", all[len(all)-1].Score)
	}
}
