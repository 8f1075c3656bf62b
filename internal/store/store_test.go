package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sentitrade/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	bp := ps.barPath("aapl", 2024)
	want := filepath.Join("/data", "us", "daily", "AAPL", "2024.parquet")
	if bp != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, want)
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Open:       185.5,
			High:       187.0,
			Low:        185.0,
			Close:      186.0,
			Volume:     45000000,
			TradeCount: 450000,
			VWAP:       185.75,
		},
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:       185.0,
			High:       186.5,
			Low:        184.0,
			Close:      185.5,
			Volume:     50000000,
			TradeCount: 500000,
			VWAP:       185.25,
		},
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "AAPL", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 185.5 {
		t.Errorf("first bar Close = %v, want 185.5", got[0].Close)
	}
	if got[1].Close != 186.0 {
		t.Errorf("second bar Close = %v, want 186.0", got[1].Close)
	}
	if got[1].Volume != 45000000 {
		t.Errorf("second bar Volume = %v, want 45000000", got[1].Volume)
	}
}

func TestParquetStoreReadSpansYears(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "TSLA", Timestamp: time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC), Close: 248.0},
		{Symbol: "TSLA", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 250.0},
		{Symbol: "TSLA", Timestamp: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Close: 190.0},
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "TSLA", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 248.0 || got[1].Close != 250.0 {
		t.Errorf("ReadBars closes = %v, %v; want 248, 250", got[0].Close, got[1].Close)
	}
}

func TestParquetStoreMergeBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	day1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	if err := ps.WriteBars(ctx, []domain.Bar{{Symbol: "MSFT", Timestamp: day1, Close: 403.0}}); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}
	// Same symbol+year: merges, and a repeated timestamp replaces.
	if err := ps.WriteBars(ctx, []domain.Bar{
		{Symbol: "MSFT", Timestamp: day2, Close: 408.0},
		{Symbol: "MSFT", Timestamp: day1, Close: 404.0},
	}); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	got, err := ps.ReadBars(ctx, "MSFT", day1, day2)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars after merge, want 2", len(got))
	}
	if got[0].Close != 404.0 {
		t.Errorf("merged bar Close = %v, want 404 (incoming wins)", got[0].Close)
	}
}

func TestParquetStoreMissingSymbol(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	got, err := ps.ReadBars(context.Background(), "NOPE",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadBars returned %d bars, want 0", len(got))
	}
}

func openSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state", "seen.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) returned error: %v", dbPath, err)
	}
	t.Cleanup(func() {
		if cerr := s.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	})
	return s
}

func TestSQLiteStoreMarkSeen(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	seen, err := s.Seen(ctx, "news-1")
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if seen {
		t.Fatal("news-1 seen before it was marked")
	}

	isNew, err := s.MarkSeen(ctx, "news-1", "alpaca")
	if err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if !isNew {
		t.Error("first MarkSeen should report new")
	}

	isNew, err = s.MarkSeen(ctx, "news-1", "alpaca")
	if err != nil {
		t.Fatalf("MarkSeen (again): %v", err)
	}
	if isNew {
		t.Error("second MarkSeen should not report new")
	}

	if seen, _ := s.Seen(ctx, "news-1"); !seen {
		t.Error("news-1 should be seen")
	}
}

func TestSQLiteStorePersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seen.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if _, err := s.MarkSeen(ctx, "news-9", "rss"); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore (reopen): %v", err)
	}
	defer s.Close()
	if seen, _ := s.Seen(ctx, "news-9"); !seen {
		t.Error("news-9 should survive a reopen")
	}
}

func TestSQLiteStoreConcurrentMarkSeen(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := s.MarkSeen(ctx, "race", "")
			if err != nil {
				t.Errorf("MarkSeen: %v", err)
				return
			}
			if isNew {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("%d callers saw the id as new, want exactly 1", wins)
	}
}
