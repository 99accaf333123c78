package prefs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/verte-zerg/punchcall/internal/model"
	"github.com/verte-zerg/punchcall/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "punchcall.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestLoadMissingReturnsBase(t *testing.T) {
	st := openStore(t)
	base := model.DefaultTrainingConfig()
	cfg, err := Load(context.Background(), st, base)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != base {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	want := model.DefaultTrainingConfig()
	want.Rounds = 6
	want.RoundSeconds = 150
	want.Voice = "coach"
	want.AudioOverlap = 250
	if err := Save(ctx, st, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(ctx, st, model.DefaultTrainingConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestDecodeLegacyRoundMinutes(t *testing.T) {
	cfg, err := Decode([]byte(`{"rounds":4,"roundMinutes":2.5}`), model.DefaultTrainingConfig())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.RoundSeconds != 150 {
		t.Fatalf("expected 150 seconds, got %d", cfg.RoundSeconds)
	}
	if cfg.Rounds != 4 {
		t.Fatalf("expected 4 rounds, got %d", cfg.Rounds)
	}
	if cfg.RestSeconds != model.DefaultTrainingConfig().RestSeconds {
		t.Fatalf("expected default rest")
	}
}

func TestDecodePrefersRoundSeconds(t *testing.T) {
	cfg, err := Decode([]byte(`{"roundSeconds":90,"roundMinutes":5}`), model.DefaultTrainingConfig())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.RoundSeconds != 90 {
		t.Fatalf("expected 90 seconds, got %d", cfg.RoundSeconds)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	base := model.DefaultTrainingConfig()
	cfg, err := Decode([]byte(`{`), base)
	if err == nil {
		t.Fatalf("expected error")
	}
	if cfg != base {
		t.Fatalf("expected base on error")
	}
}
