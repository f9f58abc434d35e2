package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTableColumns(t *testing.T) {
	db, err := Connect(Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)

	err = db.Exec("CREATE TABLE band (name VARCHAR(255) NOT NULL PRIMARY KEY, formed BIGINT, description TEXT)").Error
	require.NoError(t, err)

	columns, err := GetTableColumns(db, "band")
	require.NoError(t, err)
	require.Len(t, columns, 3)

	byField := make(map[string]ColumnInfo)
	for _, col := range columns {
		byField[col.Field] = col
	}

	assert.Equal(t, "varchar(255)", byField["name"].Type)
	assert.Equal(t, "PRI", byField["name"].Key)
	assert.Equal(t, "NO", byField["name"].Null)
	assert.Equal(t, "bigint", byField["formed"].Type)
	assert.Equal(t, "YES", byField["formed"].Null)
	assert.Equal(t, "text", byField["description"].Type)

	// PRAGMA table_info returns nothing for a missing table.
	cols, err := GetTableColumns(db, "non_existent")
	assert.NoError(t, err)
	assert.Empty(t, cols)
}
