package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect("oracle", "dsn")
	require.Error(t, err)
}

func TestConnectRequiresDSN(t *testing.T) {
	_, err := Connect("postgres", "")
	require.Error(t, err)

	_, err = Connect("sqlite", "")
	require.Error(t, err)
}

func TestConnectSQLiteInMemory(t *testing.T) {
	db, err := Connect("sqlite", "file:database_test?mode=memory&cache=shared")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())
}

func TestConnectNATSRequiresURL(t *testing.T) {
	_, err := ConnectNATS("", "test")
	require.Error(t, err)
}
