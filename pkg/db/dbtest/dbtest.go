// Package dbtest opens throwaway in-memory sqlite databases for package tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/pkg/db"
	"github.com/digitos-team/masala-software/pkg/db/models"
)

// Open returns a migrated sqlite database private to the calling test. The
// pool is pinned to one connection so concurrent transactions serialise the
// way row locks would on postgres.
func Open(t testing.TB, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 db.QueryLogger(nil, 0),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate models: %v", err)
	}
	return conn
}

// OpenClient wraps Open in a db.Client so services get the real WithTx.
func OpenClient(t testing.TB, name string) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t, name)
	return db.NewFromConn(conn), conn
}
