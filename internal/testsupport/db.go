// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AaronL1011/mechmate-sub000/internal/model"
	"github.com/AaronL1011/mechmate-sub000/internal/repository"
)

// OpenDB opens a private in-memory database for one test.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repository.NewDB(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewStore wraps OpenDB in a repository.Store.
func NewStore(t testing.TB) *repository.Store {
	t.Helper()
	return repository.NewStore(OpenDB(t))
}

// AfterNextQuery registers fn to run once, right after the first query that
// scans into a *T once the returned flag is set. fn receives the query's
// handle, so it shares the query's transaction if there is one.
func AfterNextQuery[T any](t testing.TB, db *gorm.DB, fn func(tx *gorm.DB)) *atomic.Bool {
	t.Helper()
	armed := &atomic.Bool{}
	err := db.Callback().Query().After("gorm:query").Register("testsupport:after_next_query", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*T); !ok || !armed.CompareAndSwap(true, false) {
			return
		}
		fn(tx)
	})
	if err != nil {
		t.Fatalf("register query callback: %v", err)
	}
	return armed
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Date returns a pointer to the parsed calendar date.
func Date(raw string) *model.Date {
	d := model.MustParseDate(raw)
	return &d
}
