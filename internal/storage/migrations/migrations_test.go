package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Embedded(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.NotEmpty(t, pg)
	assert.Equal(t, "001_whale_events.sql", pg[0].Name)
	assert.Contains(t, pg[0].SQL, "whale_events")

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)
	assert.Contains(t, ch[0].SQL, "daily_bars")
}

func TestLoad_OrderAndSkips(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_b.sql":  {Data: []byte("SELECT 2")},
		"m/001_a.sql":  {Data: []byte("SELECT 1")},
		"m/003_c.sql":  {Data: []byte("  \n")},
		"m/README.txt": {Data: []byte("ignored")},
	}

	files, err := load(fsys, "m")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "001_a.sql", files[0].Name)
	assert.Equal(t, "002_b.sql", files[1].Name)
}

func TestSplitStatements(t *testing.T) {
	stmts, err := splitStatements(`
-- archive
CREATE TABLE a (x String DEFAULT 'it''s');

CREATE TABLE b (y UInt8);
`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE a (x String DEFAULT 'it''s')",
		"CREATE TABLE b (y UInt8)",
	}, stmts)

	_, err = splitStatements("INSERT INTO a VALUES ('x;y');")
	assert.ErrorIs(t, err, ErrSemicolonInString)
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/whales")
	require.NoError(t, err)
	assert.Equal(t, "whales", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
