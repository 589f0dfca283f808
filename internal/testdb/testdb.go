// Package testdb opens isolated in-memory SQLite databases migrated with the
// shipped goose migrations.
package testdb

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/angelmondragon/pricebook-backend/pkg/migrate"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns a connection to a fresh database named after the running test.
// Foreign keys are left unenforced so fixtures can seed books and prices in
// any order; CHECK constraints and column types match production.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.Run(context.Background(), sqlDB, migrate.Dialect(conn.Dialector.Name()), migrate.DefaultDir, "up"))
	return conn
}
