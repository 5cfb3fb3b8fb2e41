package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/covingest/internal/coverage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{DSN: filepath.Join(t.TempDir(), "db", "cov.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport() *coverage.Report {
	return &coverage.Report{Regions: []coverage.Region{
		{File: "pkg/a.go", From: coverage.Position{Line: 1, Column: 2}, To: coverage.Position{Line: 3, Column: 4}, Statements: 5, Executions: 6},
		{File: "pkg/b.go", From: coverage.Position{Line: 9}, To: coverage.Position{Line: 10}, Statements: 1, Executions: 0},
		{File: "pkg/a.go", From: coverage.Position{Line: 7, Column: 8}, To: coverage.Position{Line: 9, Column: 10}, Statements: 11, Executions: 12},
	}}
}

func TestConnect(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		debug   bool
		wantErr bool
	}{
		{name: "memory database", dsn: ":memory:"},
		{name: "debug enabled", dsn: ":memory:", debug: true},
		{name: "nested file database", dsn: filepath.Join(t.TempDir(), "nested", "path", "cov.db")},
		{name: "empty dsn", dsn: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := Connect(Options{DSN: tt.dsn, Debug: tt.debug})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			sqlDB, err := db.DB()
			require.NoError(t, err)
			defer sqlDB.Close()

			assert.True(t, db.Migrator().HasTable(&ReportRecord{}))
			assert.True(t, db.Migrator().HasTable(&RegionRecord{}))
			if tt.dsn != ":memory:" {
				_, err := os.Stat(tt.dsn)
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("libsql://db.example.turso.io"))
	assert.True(t, isURL("https://db.example.com"))
	assert.True(t, isURL("http://127.0.0.1:8080"))
	assert.False(t, isURL("/var/lib/cov.db"))
	assert.False(t, isURL(":memory:"))
	assert.False(t, isURL("libsql"))
}

func TestSaveLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, "unit", coverage.FormatGo, sampleReport())
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	stored, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, stored.ID)
	assert.Equal(t, "unit", stored.Name)
	assert.Equal(t, coverage.FormatGo, stored.Format)
	assert.False(t, stored.CreatedAt.IsZero())
	assert.Equal(t, sampleReport(), stored.Report)

	regions := stored.Report.Regions
	assert.Equal(t, unsafe.StringData(regions[0].File), unsafe.StringData(regions[2].File))
}

func TestSaveLoad_EmptyReport(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, "empty", coverage.FormatLCOV, &coverage.Report{Regions: []coverage.Region{}})
	require.NoError(t, err)

	stored, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, coverage.FormatLCOV, stored.Format)
	assert.NotNil(t, stored.Report.Regions)
	assert.Empty(t, stored.Report.Regions)
}

func TestLoad_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Load(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Save(ctx, "svc-a", coverage.FormatGo, sampleReport())
	require.NoError(t, err)
	second, err := s.Save(ctx, "svc-b", coverage.FormatJaCoCo, sampleReport())
	require.NoError(t, err)
	_, err = s.Save(ctx, "svc-a", coverage.FormatLCOV, &coverage.Report{})
	require.NoError(t, err)

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	var ids []string
	for _, e := range all {
		ids = append(ids, e.ID)
	}
	assert.Contains(t, ids, first)
	assert.Contains(t, ids, second)

	named, err := s.List(ctx, "svc-a", 0)
	require.NoError(t, err)
	require.Len(t, named, 2)
	for _, e := range named {
		assert.Equal(t, "svc-a", e.Name)
	}

	limited, err := s.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	b, err := s.List(ctx, "svc-b", 0)
	require.NoError(t, err)
	require.Len(t, b, 1)
	assert.Equal(t, Entry{ID: second, Name: "svc-b", Format: "jacoco", RegionCount: 3, CreatedAt: b[0].CreatedAt}, b[0])
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, "gone", coverage.FormatGo, sampleReport())
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Load(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, id), ErrNotFound)

	var orphans int64
	require.NoError(t, s.db.Model(&RegionRecord{}).Where("report_id = ?", id).Count(&orphans).Error)
	assert.Zero(t, orphans)
}
