package eth

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/stretchr/testify/require"
)

func evmServer(t *testing.T, result string) *httptest.Server {
	selector := hex.EncodeToString(parsedNearXABI.Methods["latestHeader"].ID)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "eth_call", req.Method)

		var call map[string]string
		require.NoError(t, json.Unmarshal(req.Params[0], &call))
		input := call["input"]
		if input == "" {
			input = call["data"]
		}
		require.True(t, strings.HasPrefix(input, "0x"+selector))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLatestHeader(t *testing.T) {
	want := strings.Repeat("ab", 32)
	srv := evmServer(t, "0x"+want)

	client, err := NewClient(context.Background(), srv.URL)
	require.NoError(t, err)
	defer client.Close()

	bridge, err := NewNearX(client, "0x0000000000000000000000000000000000001234")
	require.NoError(t, err)

	header, err := bridge.LatestHeader(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, hex.EncodeToString(header[:]))
}

func TestNewNearXRejectsBadAddress(t *testing.T) {
	_, err := NewNearX(&Client{}, "not-an-address")
	require.ErrorIs(t, err, daerr.ErrInvalidConfig)
}
