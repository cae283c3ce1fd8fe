package near

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"sync"
	"testing"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/airchains-network/da-dispatcher/dispatch"
	"github.com/airchains-network/da-dispatcher/internal/jsonrpc"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testHash(b byte) CryptoHash {
	var h CryptoHash
	for i := range h {
		h[i] = b + byte(i)
	}
	return h
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// testChain builds a consistent proof chain for txHash and the head that covers it.
func testChain(txHash CryptoHash) (*LightClientProof, BlockHeaderLite) {
	p := &LightClientProof{
		OutcomeProof: OutcomeProof{
			Proof:     []MerklePathItem{{Hash: testHash(2), Direction: Right}, {Hash: testHash(3), Direction: Left}},
			BlockHash: testHash(9),
			ID:        txHash,
			Outcome: ExecutionOutcome{
				Logs:        []string{"blob stored"},
				ReceiptIDs:  []CryptoHash{testHash(4)},
				GasBurnt:    2428050684172,
				TokensBurnt: U128{*big.NewInt(242805068417200000)},
				ExecutorID:  "da.testnet",
				Status:      ExecutionStatus{Kind: StatusSuccessReceiptID, ReceiptID: testHash(4)},
			},
		},
		OutcomeRootProof: []MerklePathItem{{Hash: testHash(5), Direction: Left}},
		BlockHeaderLite: BlockHeaderLite{
			PrevBlockHash: testHash(10),
			InnerRestHash: testHash(11),
			InnerLite: InnerLite{
				Height:          1000,
				EpochID:         testHash(12),
				NextEpochID:     testHash(13),
				PrevStateRoot:   testHash(14),
				Timestamp:       1700000000000000000,
				NextBPHash:      testHash(15),
				BlockMerkleRoot: testHash(16),
			},
		},
		BlockProof: []MerklePathItem{{Hash: testHash(6), Direction: Right}, {Hash: testHash(7), Direction: Left}},
	}

	shardRoot := ComputeRootFromPath(p.OutcomeProof.Proof, OutcomeHash(&p.OutcomeProof))
	p.BlockHeaderLite.InnerLite.OutcomeRoot = ComputeRootFromPath(p.OutcomeRootProof, sha256.Sum256(shardRoot[:]))

	head := BlockHeaderLite{
		PrevBlockHash: testHash(20),
		InnerRestHash: testHash(21),
		InnerLite: InnerLite{
			Height:          1010,
			OutcomeRoot:     testHash(22),
			Timestamp:       1700000010000000000,
			BlockMerkleRoot: ComputeRootFromPath(p.BlockProof, p.BlockHeaderLite.Hash()),
		},
	}
	return p, head
}

func testRawProof() *RawProof {
	tx := testHash(1)
	p, head := testChain(tx)
	return &RawProof{TxHash: tx, Proof: p, Head: head.Hash(), HeadHeader: head}
}

func TestComputeRootFromPath(t *testing.T) {
	item, a, b := testHash(1), testHash(2), testHash(3)
	path := []MerklePathItem{{Hash: a, Direction: Left}, {Hash: b, Direction: Right}}

	step := sha256.Sum256(append(a[:], item[:]...))
	want := sha256.Sum256(append(step[:], b[:]...))
	require.Equal(t, CryptoHash(want), ComputeRootFromPath(path, item))
	require.Equal(t, item, ComputeRootFromPath(nil, item))
}

func TestBlockHeaderHash(t *testing.T) {
	h := BlockHeaderLite{PrevBlockHash: testHash(1), InnerRestHash: testHash(2), InnerLite: InnerLite{Height: 7, Timestamp: 9}}

	inner := innerLiteBytes(&h.InnerLite)
	require.Len(t, inner, 8+32*4+8+32*2)
	require.Equal(t, uint64(7), binary.LittleEndian.Uint64(inner[:8]))
	require.Equal(t, uint64(9), binary.LittleEndian.Uint64(inner[8+32*4:8+32*4+8]))

	lite := sha256.Sum256(inner)
	rest := testHash(2)
	mid := sha256.Sum256(append(lite[:], rest[:]...))
	prev := testHash(1)
	want := sha256.Sum256(append(mid[:], prev[:]...))
	require.Equal(t, CryptoHash(want), h.Hash())
}

func TestPartialOutcomeBorsh(t *testing.T) {
	o := ExecutionOutcome{
		ReceiptIDs:  []CryptoHash{testHash(1)},
		GasBurnt:    5,
		TokensBurnt: U128{*big.NewInt(258)},
		ExecutorID:  "a.near",
		Status:      ExecutionStatus{Kind: StatusSuccessValue, Value: []byte{0xaa}},
	}
	b := partialOutcomeBytes(&o)

	require.Equal(t, []byte{1, 0, 0, 0}, b[:4])
	off := 4 + 32
	require.Equal(t, uint64(5), binary.LittleEndian.Uint64(b[off:]))
	off += 8
	require.Equal(t, []byte{2, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, b[off:off+16])
	off += 16
	require.Equal(t, []byte{6, 0, 0, 0, 'a', '.', 'n', 'e', 'a', 'r'}, b[off:off+10])
	off += 10
	require.Equal(t, []byte{2, 1, 0, 0, 0, 0xaa}, b[off:])
}

func TestVerifyProof(t *testing.T) {
	raw := testRawProof()
	require.NoError(t, VerifyProof(raw.Proof, raw.HeadHeader.InnerLite.BlockMerkleRoot))
}

func TestVerifyProofRejectsAnyFlippedSibling(t *testing.T) {
	paths := []func(p *LightClientProof) []MerklePathItem{
		func(p *LightClientProof) []MerklePathItem { return p.OutcomeProof.Proof },
		func(p *LightClientProof) []MerklePathItem { return p.OutcomeRootProof },
		func(p *LightClientProof) []MerklePathItem { return p.BlockProof },
	}
	for pi, path := range paths {
		for i := range path(testRawProof().Proof) {
			for _, bit := range []int{0, 77, 255} {
				raw := testRawProof()
				path(raw.Proof)[i].Hash[bit/8] ^= 1 << (bit % 8)
				err := VerifyProof(raw.Proof, raw.HeadHeader.InnerLite.BlockMerkleRoot)
				require.ErrorIs(t, err, daerr.ErrIntegrity, "path %d item %d bit %d", pi, i, bit)
				require.True(t, daerr.IsTerminal(err))
			}
		}
	}

	raw := testRawProof()
	raw.Proof.OutcomeProof.Outcome.Logs[0] = "blob stolen"
	require.ErrorIs(t, VerifyProof(raw.Proof, raw.HeadHeader.InnerLite.BlockMerkleRoot), daerr.ErrIntegrity)

	raw = testRawProof()
	raw.Proof.OutcomeProof.Proof[0].Direction = Left
	require.ErrorIs(t, VerifyProof(raw.Proof, raw.HeadHeader.InnerLite.BlockMerkleRoot), daerr.ErrIntegrity)
}

func TestTranscode(t *testing.T) {
	a, err := Transcode(testRawProof())
	require.NoError(t, err)
	b, err := Transcode(testRawProof())
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Zero(t, len(a)%32)

	// tuple offset, two path offsets, ten inline header words, one path offset, then the head root
	raw := testRawProof()
	root := raw.HeadHeader.InnerLite.BlockMerkleRoot
	require.Equal(t, big.NewInt(32), new(big.Int).SetBytes(a[:32]))
	require.Equal(t, root[:], a[32+13*32:32+14*32])
	height := raw.Proof.BlockHeaderLite.InnerLite.Height
	require.Equal(t, new(big.Int).SetUint64(height), new(big.Int).SetBytes(a[32+4*32:32+5*32]))

	raw.HeadHeader.InnerRestHash = testHash(99)
	_, err = Transcode(raw)
	require.ErrorIs(t, err, daerr.ErrIntegrity)

	raw = testRawProof()
	raw.TxHash = testHash(50)
	_, err = Transcode(raw)
	require.ErrorIs(t, err, daerr.ErrIntegrity)

	_, err = Transcode(&RawProof{})
	require.ErrorIs(t, err, daerr.ErrMalformedProof)
}

func TestLightClientProofJSON(t *testing.T) {
	h := func(b byte) string { return testHash(b).String() }
	body := fmt.Sprintf(`{
		"outcome_proof": {
			"proof": [{"hash": %q, "direction": "Right"}],
			"block_hash": %q,
			"id": %q,
			"outcome": {
				"logs": [],
				"receipt_ids": [%q],
				"gas_burnt": 2428050684172,
				"tokens_burnt": "242805068417200000000",
				"executor_id": "da.testnet",
				"status": {"SuccessReceiptId": %q},
				"metadata": {"version": 1, "gas_profile": null}
			}
		},
		"outcome_root_proof": [{"hash": %q, "direction": "Left"}],
		"block_header_lite": {
			"prev_block_hash": %q,
			"inner_rest_hash": %q,
			"inner_lite": {
				"height": 100,
				"epoch_id": %q,
				"next_epoch_id": %q,
				"prev_state_root": %q,
				"outcome_root": %q,
				"timestamp": 1700000000000000000,
				"timestamp_nanosec": "1700000000000000000",
				"next_bp_hash": %q,
				"block_merkle_root": %q
			}
		},
		"block_proof": []
	}`, h(1), h(2), h(3), h(4), h(4), h(5), h(6), h(7), h(8), h(9), h(10), h(11), h(12), h(13))

	var p LightClientProof
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	require.Equal(t, Right, p.OutcomeProof.Proof[0].Direction)
	require.Equal(t, testHash(3), p.OutcomeProof.ID)
	require.Equal(t, StatusSuccessReceiptID, p.OutcomeProof.Outcome.Status.Kind)
	require.Equal(t, "242805068417200000000", p.OutcomeProof.Outcome.TokensBurnt.String())
	require.Equal(t, Left, p.OutcomeRootProof[0].Direction)
	require.Equal(t, uint64(100), p.BlockHeaderLite.InnerLite.Height)
	require.Equal(t, U64String(1700000000000000000), p.BlockHeaderLite.InnerLite.Timestamp)
	require.Empty(t, p.BlockProof)

	var s ExecutionStatus
	require.NoError(t, json.Unmarshal([]byte(`{"SuccessValue":"AQI="}`), &s))
	require.Equal(t, []byte{1, 2}, s.Value)
	require.NoError(t, json.Unmarshal([]byte(`{"Failure":{"ActionError":{}}}`), &s))
	require.Equal(t, StatusFailure, s.Kind)
	require.Error(t, json.Unmarshal([]byte(`"Pending"`), &s))

	var d Direction
	require.Error(t, json.Unmarshal([]byte(`"Up"`), &d))
}

func TestParseBlobID(t *testing.T) {
	id := testHash(1)
	parsed, err := ParseBlobID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	for _, bad := range []string{
		"",
		"0x5a1f0c7e3f0e8a9d4b2c6d1e0f9a8b7c6d5e4f3a2b1c0d9e8f7a6b5c4d3e2f10:3",
		"000000000000002a" + "abababababababababababababababababababababababababababababababab",
		"bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy",
		base58.Encode([]byte("short")),
	} {
		_, err := ParseBlobID(bad)
		require.ErrorIs(t, err, daerr.ErrInvalidBlobID, bad)
	}
}

const testSeed = "0102030405060708091011121314151617181920212223242526272829303132"

func testSecretKey() string {
	return "ed25519:" + base58.Encode(ed25519.NewKeyFromSeed([]byte(testSeed[:32])))
}

func TestParseSecretKey(t *testing.T) {
	k, err := ParseSecretKey(testSecretKey())
	require.NoError(t, err)
	seedOnly, err := ParseSecretKey("ed25519:" + base58.Encode([]byte(testSeed[:32])))
	require.NoError(t, err)
	require.Equal(t, k.PublicKey(), seedOnly.PublicKey())

	_, err = ParseSecretKey("secp256k1:abc")
	require.Error(t, err)
	_, err = ParseSecretKey("ed25519:" + base58.Encode([]byte{1, 2, 3}))
	require.Error(t, err)
}

func TestTransactionSign(t *testing.T) {
	key, err := ParseSecretKey(testSecretKey())
	require.NoError(t, err)
	tx := newSubmitTransaction("alice.testnet", key, 8, "da.testnet", testHash(1), []byte("blob"))

	signed, hash := tx.Sign(key)
	body := signed[:len(signed)-65]
	require.Equal(t, tx.borsh(), body)
	require.Equal(t, CryptoHash(sha256.Sum256(body)), hash)
	require.Equal(t, hash, tx.Hash())
	require.Equal(t, byte(0), signed[len(body)])
	require.True(t, ed25519.Verify(key.PublicKey(), hash[:], signed[len(body)+1:]))

	// signer id, then key type and the 32 byte key
	require.Equal(t, uint32(13), binary.LittleEndian.Uint32(body[:4]))
	require.Equal(t, "alice.testnet", string(body[4:17]))
	require.Equal(t, byte(0), body[17])
	require.Equal(t, []byte(key.PublicKey()), body[18:50])
	require.Equal(t, uint64(8), binary.LittleEndian.Uint64(body[50:58]))

	// deposit is the trailing zero u128
	require.Equal(t, make([]byte, 16), body[len(body)-16:])
	gas := binary.LittleEndian.Uint64(body[len(body)-24 : len(body)-16])
	require.Equal(t, uint64(submitGas), gas)
}

func TestConfigEndpoint(t *testing.T) {
	url, err := Config{Network: "testnet"}.Endpoint()
	require.NoError(t, err)
	require.Equal(t, "https://rpc.testnet.near.org", url)

	url, err = Config{Network: "mainnet", RPCURL: "http://node:3030"}.Endpoint()
	require.NoError(t, err)
	require.Equal(t, "http://node:3030", url)

	_, err = Config{Network: "devnet"}.Endpoint()
	require.ErrorIs(t, err, daerr.ErrInvalidConfig)
}

type fakeRPC struct {
	mu       sync.Mutex
	nonce    uint64
	nonces   []uint64
	proof    *LightClientProof
	head     *BlockHeaderLite
	proofErr error
}

func (f *fakeRPC) AccessKey(ctx context.Context, accountID, publicKey string) (uint64, CryptoHash, error) {
	return f.nonce, testHash(30), nil
}

func (f *fakeRPC) BroadcastTxCommit(ctx context.Context, signedTx []byte) (CryptoHash, error) {
	body := signedTx[:len(signedTx)-65]
	signerLen := binary.LittleEndian.Uint32(body[:4])
	nonce := binary.LittleEndian.Uint64(body[4+signerLen+33:])
	f.mu.Lock()
	f.nonces = append(f.nonces, nonce)
	f.mu.Unlock()
	return sha256.Sum256(body), nil
}

func (f *fakeRPC) LightClientProof(ctx context.Context, txHash CryptoHash, senderID string, head CryptoHash) (*LightClientProof, error) {
	if f.proofErr != nil {
		return nil, f.proofErr
	}
	p, _ := testChain(txHash)
	return p, nil
}

func (f *fakeRPC) HeadHeader(ctx context.Context, head CryptoHash) (*BlockHeaderLite, error) {
	return f.head, nil
}

type fakeBridge struct{ head CryptoHash }

func (b *fakeBridge) LatestHeader(ctx context.Context) ([32]byte, error) { return b.head, nil }

func testConfig() Config {
	return Config{
		Network:        "localnet",
		EVMProviderURL: "http://127.0.0.1:8545",
		BridgeContract: "0x0000000000000000000000000000000000001234",
		Contract:       "da.test.near",
		AccountID:      "alice.test.near",
		SecretKey:      testSecretKey(),
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	rpc := &fakeRPC{nonce: 7}
	bridge := &fakeBridge{}
	adapter, err := NewAdapter(testConfig(), rpc, bridge, quietLogger())
	require.NoError(t, err)
	p := dispatch.NewPipeline[CryptoHash, *RawProof](adapter, Transcode, dispatch.Config{MaxRetries: 1}, quietLogger())

	res, err := p.Dispatch(context.Background(), 3, []byte("near blob"))
	require.NoError(t, err)
	require.Equal(t, []uint64{8}, rpc.nonces)

	id, err := ParseBlobID(res.BlobID)
	require.NoError(t, err)
	_, head := testChain(id)
	rpc.head = &head
	bridge.head = head.Hash()

	data, err := p.GetInclusionData(context.Background(), res.BlobID)
	require.NoError(t, err)
	require.NotNil(t, data)

	rpc.proofErr = classify("near light client proof", &jsonrpc.Error{Code: -32000, Message: "unknown transaction", Name: "HANDLER_ERROR"})
	require.True(t, daerr.IsTerminal(rpc.proofErr))

	var notFound jsonrpc.Error
	require.NoError(t, json.Unmarshal([]byte(`{"code":-32000,"message":"Server error","cause":{"name":"UNKNOWN_TRANSACTION_OR_RECEIPT"}}`), &notFound))
	rpc.proofErr = classify("near light client proof", &notFound)
	data, err = p.GetInclusionData(context.Background(), res.BlobID)
	require.NoError(t, err)
	require.Nil(t, data)
	rpc.proofErr = nil

	tampered := head
	tampered.InnerRestHash = testHash(77)
	rpc.head = &tampered
	_, err = p.GetInclusionData(context.Background(), res.BlobID)
	require.ErrorIs(t, err, daerr.ErrIntegrity)
	require.True(t, daerr.IsTerminal(err))

	_, err = p.GetInclusionData(context.Background(), "0xdeadbeef:1")
	require.ErrorIs(t, err, daerr.ErrInvalidBlobID)
}

func TestConcurrentSubmitsUseDistinctNonces(t *testing.T) {
	rpc := &fakeRPC{nonce: 41}
	adapter, err := NewAdapter(testConfig(), rpc, &fakeBridge{}, quietLogger())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := adapter.Submit(context.Background(), []byte{byte(i)})
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	seen := map[uint64]bool{}
	for _, n := range rpc.nonces {
		require.False(t, seen[n], "nonce %d reused", n)
		require.Greater(t, n, uint64(41))
		seen[n] = true
	}
	require.Len(t, seen, 8)
}

func TestNewAdapterValidates(t *testing.T) {
	cfg := testConfig()
	cfg.SecretKey = "ed25519:notbase58!"
	_, err := NewAdapter(cfg, &fakeRPC{}, &fakeBridge{}, quietLogger())
	require.ErrorIs(t, err, daerr.ErrInvalidConfig)

	cfg = testConfig()
	cfg.Contract = ""
	_, err = NewAdapter(cfg, &fakeRPC{}, &fakeBridge{}, quietLogger())
	require.ErrorIs(t, err, daerr.ErrInvalidConfig)
}
