package sequence

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryNextSequence(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO event_sequence").
		WithArgs("4").
		WillReturnRows(pgxmock.NewRows([]string{"last_sequence"}).AddRow(int64(7)))

	seq, err := NewRepository(mock).NextSequence(context.Background(), "4")
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryNextSequenceError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("db down")
	mock.ExpectQuery("INSERT INTO event_sequence").WithArgs("4").WillReturnError(boom)

	_, err = NewRepository(mock).NextSequence(context.Background(), "4")
	require.ErrorIs(t, err, boom)
}

func TestMemoryIsPerPartitionAndConcurrentSafe(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.NextSequence(ctx, "4")
		}()
	}
	wg.Wait()

	next, err := m.NextSequence(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, int64(51), next)

	first, err := m.NextSequence(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
}
