package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "company_sectors", []string{"company_id", "value"}, [][]any{})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"company_sectors"}, []string{"company_id", "value"}).WillReturnResult(3)

	rows := [][]any{{"comp_a", "defense"}, {"comp_a", "technology"}, {"comp_b", "retail"}}
	n, err := CopyFrom(context.Background(), mock, "company_sectors", []string{"company_id", "value"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"company_sectors"}, []string{"company_id", "value"}).
		WillReturnError(fmt.Errorf("permission denied"))

	rows := [][]any{{"comp_a", "x"}}
	_, err = CopyFrom(context.Background(), mock, "company_sectors", []string{"company_id", "value"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO company_sectors")
	assert.NoError(t, mock.ExpectationsWereMet())
}
