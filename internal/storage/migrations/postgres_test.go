package migrations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	scripts []string
	failOn  int
}

func (e *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	e.scripts = append(e.scripts, sql)
	if e.failOn > 0 && len(e.scripts) == e.failOn {
		return pgconn.CommandTag{}, errors.New("syntax error")
	}
	return pgconn.CommandTag{}, nil
}

func TestPostgres_ListsFilesInOrder(t *testing.T) {
	files, err := Postgres()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_init.sql", files[0])
	assert.IsIncreasing(t, files)
}

func TestRunPostgres_AppliesEveryFile(t *testing.T) {
	db := &recordingExecer{}

	applied, err := RunPostgres(context.Background(), db)
	require.NoError(t, err)

	files, _ := Postgres()
	assert.Equal(t, files, applied)
	require.Len(t, db.scripts, len(files))
	assert.True(t, strings.Contains(db.scripts[0], "CREATE TABLE IF NOT EXISTS users"))
}

func TestRunPostgres_StopsOnError(t *testing.T) {
	db := &recordingExecer{failOn: 1}

	applied, err := RunPostgres(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_init.sql")
	assert.Empty(t, applied)
}
