package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/pricebook-backend/pkg/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// sqliteEnv points the commands at a shared in-memory database kept alive by the returned handle.
func sqliteEnv(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	t.Setenv(config.EnvAppEnv, "dev")
	t.Setenv(config.EnvUseSQLite, "true")
	t.Setenv(config.EnvDBDSN, dsn)
	t.Setenv(config.EnvDefaultBookID, "root")

	keeper, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := keeper.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return keeper
}

func TestScopeIDCommand(t *testing.T) {
	out, err := run(t, "scope-id", "--websites", "3, 1", "--customer-groups", "2")
	require.NoError(t, err)
	require.Equal(t, "w[1,3]:cg[2]\n", out)

	_, err = run(t, "scope-id", "--websites", "x")
	require.Error(t, err)
}

func TestInitCreatesDefaultOnce(t *testing.T) {
	sqliteEnv(t)

	out, err := run(t, "init", "--migrate")
	require.NoError(t, err)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	require.Equal(t, "root", first["default_price_book_id"])
	require.Equal(t, true, first["created"])

	out, err = run(t, "init")
	require.NoError(t, err)
	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	require.Equal(t, false, second["created"])
}

func TestResolveWalksToDefault(t *testing.T) {
	keeper := sqliteEnv(t)

	_, err := run(t, "init", "--migrate")
	require.NoError(t, err)

	out, err := run(t, "create-book", "--name", "Retail", "--websites", "1", "--customer-groups", "2")
	require.NoError(t, err)
	require.Contains(t, out, `"id": "w[1]:cg[2]"`)

	_, err = run(t, "resolve", "--book", "w[1]:cg[2]", "--product", "sku-1")
	require.Error(t, err, "no price anywhere in the chain")

	require.NoError(t, keeper.Exec(
		`INSERT INTO prices (pricebook_id, entity_id, qty, minimum_price_regular, minimum_price_final) VALUES ('root', 'sku-1', 1, 10, 8)`,
	).Error)

	out, err = run(t, "resolve", "--book", "w[1]:cg[2]", "--product", "sku-1")
	require.NoError(t, err)
	var resolved struct {
		PriceBookID string                       `json:"price_book_id"`
		Qty         string                       `json:"qty"`
		Prices      map[string]map[string]string `json:"prices"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resolved))
	require.Equal(t, "w[1]:cg[2]", resolved.PriceBookID)
	require.Equal(t, "1.0000", resolved.Qty)
	require.Equal(t, "10", resolved.Prices["minimum_price"]["regular"])
}

func TestResolveRequiresProduct(t *testing.T) {
	_, err := run(t, "resolve")
	require.Error(t, err)
}
