package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/airchains-network/da-dispatcher/db"
	"github.com/stretchr/testify/require"
)

func TestReceipts(t *testing.T) {
	database, err := db.NewLevelDB(filepath.Join(t.TempDir(), "receipt_db"))
	require.NoError(t, err)
	defer database.Close()
	s := NewReceipts(database)

	missing, err := s.Get("nope")
	require.NoError(t, err)
	require.Nil(t, missing)

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Save(Receipt{BlobID: id, Backend: "near", BatchNumber: uint64(i), Size: 10 * i, SubmittedAt: at}))
	}

	r, err := s.Get("a")
	require.NoError(t, err)
	require.Equal(t, uint64(1), r.BatchNumber)
	require.True(t, at.Equal(r.SubmittedAt))

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "a", all[0].BlobID)
	require.Equal(t, "c", all[2].BlobID)

	two, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, two, 2)

	require.NoError(t, database.Put([]byte("receipt_zz"), []byte("{")))
	_, err = s.List(0)
	require.Error(t, err)
}
