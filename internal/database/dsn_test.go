package database

import (
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDriver(t *testing.T) {
	cases := map[string]string{
		"":            driverSQLite,
		"SQLite3":     driverSQLite,
		" postgresql": driverPostgres,
		"pg":          driverPostgres,
		"MariaDB":     driverMySQL,
		"Oracle":      "oracle",
	}
	for input, want := range cases {
		require.Equal(t, want, normalizeDriver(input), "input %q", input)
	}
}

func TestBuildSQLiteDSN(t *testing.T) {
	dsn, err := buildSQLiteDSN(Config{})
	require.NoError(t, err)
	require.Equal(t, sqliteMemoryDSN, dsn)

	dsn, err = buildSQLiteDSN(Config{DSN: "file:custom.db"})
	require.NoError(t, err)
	require.Equal(t, "file:custom.db", dsn)

	dir := t.TempDir()
	dsn, err = buildSQLiteDSN(Config{Path: dir + "/data/wattrewards.db"})
	require.NoError(t, err)
	require.Contains(t, dsn, "wattrewards.db?_foreign_keys=1")
	require.DirExists(t, dir+"/data")
}

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "wattrewards", Name: "wattrewards"})
	require.NoError(t, err)

	parsed, err := pgconn.ParseConfig(dsn)
	require.NoError(t, err)
	require.Equal(t, "localhost", parsed.Host)
	require.Equal(t, uint16(5432), parsed.Port)
	require.Equal(t, "wattrewards", parsed.User)
	require.Equal(t, "wattrewards", parsed.Database)
	require.Nil(t, parsed.TLSConfig)
}

func TestBuildPostgresDSNWithOptions(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.example.com",
		Port:     6543,
		Password: "p@ss word's",
		Options: map[string]string{
			"sslmode":     "require",
			"search_path": "public",
		},
	})
	require.NoError(t, err)

	parsed, err := pgconn.ParseConfig(dsn)
	require.NoError(t, err)
	require.Equal(t, "db.example.com", parsed.Host)
	require.Equal(t, uint16(6543), parsed.Port)
	require.Equal(t, "user", parsed.User)
	require.Equal(t, "db", parsed.Database)
	require.Equal(t, "p@ss word's", parsed.Password)
	require.Equal(t, "public", parsed.RuntimeParams["search_path"])
	require.NotNil(t, parsed.TLSConfig)
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{})
	require.Error(t, err)

	dsn, err := buildPostgresDSN(Config{DSN: "postgres://override"})
	require.NoError(t, err)
	require.Equal(t, "postgres://override", dsn)
}

func TestQuotePostgresValue(t *testing.T) {
	require.Equal(t, "plain", quotePostgresValue("plain"))
	require.Equal(t, "''", quotePostgresValue(""))
	require.Equal(t, `'a b'`, quotePostgresValue("a b"))
	require.Equal(t, `'it\'s'`, quotePostgresValue("it's"))
	require.Equal(t, `'c:\\tmp'`, quotePostgresValue(`c:\tmp`))
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "wattrewards", Name: "wattrewards"})
	require.NoError(t, err)

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "wattrewards", parsed.User)
	require.Equal(t, "tcp", parsed.Net)
	require.Equal(t, "127.0.0.1:3306", parsed.Addr)
	require.Equal(t, "wattrewards", parsed.DBName)
	require.True(t, parsed.ParseTime)
	require.Equal(t, time.UTC, parsed.Loc)
}

func TestBuildMySQLDSNWithOptions(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "user",
		Password: "secret",
		Name:     "db",
		Host:     "db.example.com",
		Port:     3307,
		Options: map[string]string{
			"tls": "skip-verify",
		},
	})
	require.NoError(t, err)

	parsed, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "user", parsed.User)
	require.Equal(t, "secret", parsed.Passwd)
	require.Equal(t, "db.example.com:3307", parsed.Addr)
	require.Equal(t, "db", parsed.DBName)
	require.Equal(t, "skip-verify", parsed.TLSConfig)
}

func TestBuildMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := buildMySQLDSN(Config{User: "user"})
	require.Error(t, err)
}
