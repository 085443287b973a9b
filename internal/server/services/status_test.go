package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	c := newFakeCache()
	s := NewStatusService(db, newFakeRepoManager(), c)

	mock.ExpectPing()
	assert.Equal(t, Status{Redis: true, DB: true}, s.Status(context.Background()))

	c.err = errors.New("redis down")
	mock.ExpectPing().WillReturnError(errors.New("db down"))
	assert.Equal(t, Status{Redis: false, DB: false}, s.Status(context.Background()))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()
	rm := newFakeRepoManager()
	rm.u.add("a@b.com", "p")
	rm.u.add("c@d.com", "p")
	s := NewStatusService(db, rm, newFakeCache())

	got, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Stats{Users: 2, Files: 0}, got)

	rm.f.err = errBoom{}
	_, err = s.Stats(context.Background())
	assert.ErrorIs(t, err, errBoom{})
}
