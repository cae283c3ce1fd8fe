package objectstore

import (
	"context"
	"encoding/hex"
	"io"
	"testing"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/airchains-network/da-dispatcher/db"
	"github.com/airchains-network/da-dispatcher/dispatch"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testPipeline(t *testing.T, maxBlobSize int) (*dispatch.Pipeline[BlobID, *RawProof], *db.LevelDB) {
	store, err := db.NewMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	adapter := NewAdapter(store, maxBlobSize, quietLogger())
	return dispatch.NewPipeline[BlobID, *RawProof](adapter, Transcode, dispatch.Config{MaxRetries: 2}, quietLogger()), store
}

func TestBlobIDRoundTrip(t *testing.T) {
	id, err := NewBlobID([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, "bafkreibm6jg3ux5qumhcn2b3flc3tyu6dmlb4xa7u5bf44yegnrjhc4yeq", id.String())

	parsed, err := ParseBlobID(id.String())
	require.NoError(t, err)
	require.True(t, id.Equals(parsed.Cid))

	mh, err := multihash.Sum([]byte("hello"), multihash.SHA2_512, -1)
	require.NoError(t, err)
	for _, bad := range []string{
		"",
		"0x5a1f0c7e3f0e8a9d4b2c6d1e0f9a8b7c6d5e4f3a2b1c0d9e8f7a6b5c4d3e2f10:3",
		cid.NewCidV0(id.Hash()).String(),
		cid.NewCidV1(cid.DagProtobuf, id.Hash()).String(),
		cid.NewCidV1(cid.Raw, mh).String(),
	} {
		_, err := ParseBlobID(bad)
		require.ErrorIs(t, err, daerr.ErrInvalidBlobID, bad)
	}
}

func TestDispatchAndInclusion(t *testing.T) {
	p, _ := testPipeline(t, 0)
	require.Equal(t, DefaultMaxBlobSize, p.MaxBlobSize())

	res, err := p.Dispatch(context.Background(), 1, []byte("hello"))
	require.NoError(t, err)
	again, err := p.Dispatch(context.Background(), 2, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, res.BlobID, again.BlobID)

	data, err := p.GetInclusionData(context.Background(), res.BlobID)
	require.NoError(t, err)
	require.Equal(t, "1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8", hex.EncodeToString(data.Data))
}

func TestMissingBlobIsTerminal(t *testing.T) {
	p, _ := testPipeline(t, 0)
	id, err := NewBlobID([]byte("never stored"))
	require.NoError(t, err)

	_, err = p.GetInclusionData(context.Background(), id.String())
	require.Error(t, err)
	require.True(t, daerr.IsTerminal(err))
}

func TestOversizedBlob(t *testing.T) {
	p, store := testPipeline(t, 4)
	_, err := p.Dispatch(context.Background(), 1, []byte("hello"))
	require.ErrorIs(t, err, daerr.ErrBlobTooLarge)

	n := 0
	require.NoError(t, store.Iterate(nil, func(k, v []byte) bool { n++; return true }))
	require.Zero(t, n)
}

func TestTranscodeRejectsTamperedBlob(t *testing.T) {
	id, err := NewBlobID([]byte("hello"))
	require.NoError(t, err)
	_, err = Transcode(&RawProof{ID: id, Data: []byte("hellO")})
	require.ErrorIs(t, err, daerr.ErrIntegrity)

	_, err = Transcode(nil)
	require.ErrorIs(t, err, daerr.ErrMalformedProof)
}
