package diagnostics

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJournal_SQLite(t *testing.T) {
	j := Open(filepath.Join(t.TempDir(), "diag.db"))
	t.Cleanup(func() { _ = j.Close() })
	ctx := context.Background()

	j.Report(ctx, "list.fetch", errors.New("connection refused"))
	j.Report(ctx, "detail.save", errors.New("status 500"))
	j.Report(ctx, "ignored", nil)

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "detail.save", entries[0].Site, "newest first")
	require.Equal(t, "status 500", entries[0].Message)
	require.Equal(t, "list.fetch", entries[1].Site)
	require.False(t, entries[1].CreatedAt.IsZero())

	limited, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestJournal_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diag.db")
	first := Open(path)
	first.Report(context.Background(), "detail.delete", errors.New("boom"))
	require.NoError(t, first.Close())

	second := Open(path)
	t.Cleanup(func() { _ = second.Close() })
	entries, err := second.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "detail.delete", entries[0].Site)
}

func TestJournal_MemoryFallback(t *testing.T) {
	j := Open("")
	ctx := context.Background()
	for _, site := range []string{"a", "b", "c"} {
		j.Report(ctx, site, errors.New(site+" failed"))
	}

	entries, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "c", entries[0].Site)
	require.Equal(t, "b", entries[1].Site)
	require.EqualValues(t, 3, entries[0].ID)
	require.NoError(t, j.Close())
}

func TestJournal_MergesMemoryFallbackByTime(t *testing.T) {
	j := Open(filepath.Join(t.TempDir(), "diag.db"))
	t.Cleanup(func() { _ = j.Close() })
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	j.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	j.Report(ctx, "db.old", errors.New("first"))
	_, err := j.database().Exec(`CREATE TRIGGER reject_mem BEFORE INSERT ON diagnostics
        WHEN NEW.site = 'mem' BEGIN SELECT RAISE(ABORT, 'rejected'); END;`)
	require.NoError(t, err)
	j.Report(ctx, "mem", errors.New("second"))
	j.Report(ctx, "db.new", errors.New("third"))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	sites := make([]string, 0, len(entries))
	for _, e := range entries {
		sites = append(sites, e.Site)
	}
	require.Equal(t, []string{"db.new", "mem", "db.old"}, sites)

	limited, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, "mem", limited[1].Site)
}
