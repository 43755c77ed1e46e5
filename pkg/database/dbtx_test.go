package database

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// Both the production pool and the mock pool must satisfy DBTX so
// repositories can be exercised against either.
var _ DBTX = (*pgxpool.Pool)(nil)

func TestNewMockPool_SatisfiesDBTX(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	var _ DBTX = mock
}
