package cli

import (
	"context"
	"testing"
	"time"

	"walletflow/internal/config"
	"walletflow/internal/drag"
	"walletflow/internal/log"
	"walletflow/internal/storage/memory"
)

func TestDragConfig(t *testing.T) {
	t.Run("overrides", func(t *testing.T) {
		dc := DragConfig(&config.Config{
			LongPressThreshold:   time.Second,
			AutoScrollDelay:      2 * time.Second,
			AutoScrollEdgeMargin: 25,
		})
		if dc.LongPress != time.Second || dc.ScrollDelay != 2*time.Second || dc.EdgeMargin != 25 {
			t.Fatalf("unexpected config %+v", dc)
		}
	})

	t.Run("zero values keep defaults", func(t *testing.T) {
		if got, want := DragConfig(&config.Config{}), drag.DefaultConfig(); got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	})
}

func TestNewRefresher_SnapshotOnly(t *testing.T) {
	cfg := &config.Config{RatesBaseCurrency: "EUR", RatesRefreshInterval: time.Minute}
	r := NewRefresher(cfg, memory.New(), log.Discard())
	if r == nil {
		t.Fatal("expected refresher")
	}
	if _, err := r.Refresh(context.Background()); err == nil {
		t.Fatal("empty snapshot store without a source must fail")
	}
}

func TestPeriod(t *testing.T) {
	if p := Period(&config.Config{SpendingPeriod: "week"}); !p.IsValid() {
		t.Fatalf("week should be valid, got %q", p)
	}
}

func TestInitBackend(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		res, err := InitBackend(context.Background(), log.Discard(), &config.Config{DataBackend: "memory"})
		if err != nil {
			t.Fatalf("InitBackend: %v", err)
		}
		if err := res.Cleanup(); err != nil {
			t.Fatalf("cleanup: %v", err)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		if _, err := InitBackend(context.Background(), log.Discard(), &config.Config{DataBackend: "sheets"}); err == nil {
			t.Fatal("expected error")
		}
	})
}
