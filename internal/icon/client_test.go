package icon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContract = "cxa0af3165c08318e988cb30993b3048335b94af6c"

type capturedRequest struct {
	JSONRPC string                     `json:"jsonrpc"`
	ID      uint64                     `json:"id"`
	Method  string                     `json:"method"`
	Params  map[string]json.RawMessage `json:"params"`
}

// newNode starts a fake node answering every request with handle's result or error.
func newNode(t *testing.T, handle func(req capturedRequest) (status int, body string)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		var req capturedRequest
		if err := json.Unmarshal(data, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		status, body := handle(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)

	_, err = NewClient(Config{Endpoint: "ws://localhost:9000"}, nil)
	assert.Error(t, err)

	c, err := NewClient(Config{Endpoint: "https://ctz.solidwallet.io/api/v3", NetworkID: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.NetworkID())
}

func TestCallRequestShape(t *testing.T) {
	var got capturedRequest
	node, _ := newNode(t, func(req capturedRequest) (int, string) {
		got = req
		return http.StatusOK, fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":{"ok":"0x1"}}`, req.ID)
	})

	client, err := NewClient(Config{Endpoint: node.URL}, nil)
	require.NoError(t, err)

	height := uint64(58_586_000)
	raw, err := client.Call(context.Background(), CallRequest{
		To:     testContract,
		Method: "getPoolStats",
		Params: map[string]any{"_id": "0x1"},
		Height: &height,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":"0x1"}`, string(raw))

	assert.Equal(t, "2.0", got.JSONRPC)
	assert.Equal(t, "icx_call", got.Method)
	assert.NotZero(t, got.ID)
	assert.JSONEq(t, `"`+testContract+`"`, string(got.Params["to"]))
	assert.JSONEq(t, `"call"`, string(got.Params["dataType"]))
	assert.JSONEq(t, `{"method":"getPoolStats","params":{"_id":"0x1"}}`, string(got.Params["data"]))
	assert.JSONEq(t, `"0x37df390"`, string(got.Params["height"]))
}

func TestCallOmitsHeightForLatest(t *testing.T) {
	var got capturedRequest
	node, _ := newNode(t, func(req capturedRequest) (int, string) {
		got = req
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":"0x0"}`
	})

	client, err := NewClient(Config{Endpoint: node.URL}, nil)
	require.NoError(t, err)

	_, err = client.Call(context.Background(), CallRequest{To: testContract, Method: "name"})
	require.NoError(t, err)
	_, ok := got.Params["height"]
	assert.False(t, ok)
	assert.JSONEq(t, `{"method":"name"}`, string(got.Params["data"]))
}

func TestCallValidation(t *testing.T) {
	client, err := NewClient(Config{Endpoint: "http://127.0.0.1:1"}, nil)
	require.NoError(t, err)

	_, err = client.Call(context.Background(), CallRequest{To: "hx0000000000000000000000000000000000000001", Method: "x"})
	assert.Error(t, err)
	_, err = client.Call(context.Background(), CallRequest{To: testContract})
	assert.Error(t, err)
}

func TestCallErrors(t *testing.T) {
	t.Run("RPCError", func(t *testing.T) {
		node, _ := newNode(t, func(req capturedRequest) (int, string) {
			return http.StatusBadRequest, `{"jsonrpc":"2.0","id":1,"error":{"code":-30032,"message":"Reverted(0): Invalid pool ID"}}`
		})
		client, err := NewClient(Config{Endpoint: node.URL}, nil)
		require.NoError(t, err)

		_, err = client.Call(context.Background(), CallRequest{To: testContract, Method: "getPoolStats"})
		require.Error(t, err)

		var rpcErr *Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, CodeReverted, rpcErr.ErrorCode())
		assert.Equal(t, "Reverted(0): Invalid pool ID", rpcErr.Message)
		assert.True(t, IsSCOREError(rpcErr.Code))

		var gethErr rpc.Error
		require.ErrorAs(t, err, &gethErr)
		assert.Equal(t, CodeReverted, gethErr.ErrorCode())
	})

	t.Run("HTTPStatus", func(t *testing.T) {
		node, _ := newNode(t, func(req capturedRequest) (int, string) {
			return http.StatusBadGateway, `bad gateway`
		})
		client, err := NewClient(Config{Endpoint: node.URL}, nil)
		require.NoError(t, err)

		_, err = client.Call(context.Background(), CallRequest{To: testContract, Method: "x"})
		require.Error(t, err)
		var rpcErr *Error
		assert.False(t, errors.As(err, &rpcErr))

		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
		assert.False(t, httpErr.Permanent())
	})

	t.Run("EmptyResult", func(t *testing.T) {
		node, _ := newNode(t, func(req capturedRequest) (int, string) {
			return http.StatusOK, `{"jsonrpc":"2.0","id":1}`
		})
		client, err := NewClient(Config{Endpoint: node.URL}, nil)
		require.NoError(t, err)

		_, err = client.Call(context.Background(), CallRequest{To: testContract, Method: "x"})
		assert.Error(t, err)
	})

	t.Run("Timeout", func(t *testing.T) {
		node, _ := newNode(t, func(req capturedRequest) (int, string) {
			time.Sleep(200 * time.Millisecond)
			return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":"0x1"}`
		})
		client, err := NewClient(Config{Endpoint: node.URL, Timeout: 20 * time.Millisecond}, nil)
		require.NoError(t, err)

		_, err = client.Call(context.Background(), CallRequest{To: testContract, Method: "x"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestHeightPinnedCallsAreCached(t *testing.T) {
	node, hits := newNode(t, func(req capturedRequest) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"rate":"0x1"}}`
	})
	client, err := NewClient(Config{Endpoint: node.URL, CacheSize: 8}, nil)
	require.NoError(t, err)

	height := uint64(100)
	req := CallRequest{To: testContract, Method: "get_ref_data", Params: map[string]any{"_symbol": "ICX"}, Height: &height}
	for i := 0; i < 3; i++ {
		_, err := client.Call(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())

	req.Height = nil
	for i := 0; i < 2; i++ {
		_, err := client.Call(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), hits.Load(), "latest-state calls are never cached")
}

func TestBlocks(t *testing.T) {
	const block = `{
		"version": "2.0",
		"height": 58586000,
		"block_hash": "5c0ab5d7ed8b2a7f5b1c0d8c3a6c2b3e7f1e2d3c4b5a69788796a5b4c3d2e1f0",
		"prev_block_hash": "1c0ab5d7ed8b2a7f5b1c0d8c3a6c2b3e7f1e2d3c4b5a69788796a5b4c3d2e1f0",
		"peer_id": "hx9c63f73d3c564a54d0eed84f90718b1ebed16f09",
		"time_stamp": 1666000000000000,
		"confirmed_transaction_list": [{"txHash":"0x01"},{"txHash":"0x02"}]
	}`

	var methods []string
	var heights []string
	node, hits := newNode(t, func(req capturedRequest) (int, string) {
		methods = append(methods, req.Method)
		if h, ok := req.Params["height"]; ok {
			heights = append(heights, string(h))
		}
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":` + block + `}`
	})
	client, err := NewClient(Config{Endpoint: node.URL, CacheSize: 4}, nil)
	require.NoError(t, err)

	latest, err := client.LastBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(58586000), uint64(latest.Height))
	assert.Equal(t, uint64(1666000000000000), uint64(latest.TimeStamp))
	assert.Equal(t, 2, latest.TxCount())
	assert.NotEmpty(t, latest.Raw)

	for i := 0; i < 2; i++ {
		b, err := client.BlockByHeight(context.Background(), 58586000)
		require.NoError(t, err)
		assert.Equal(t, latest.BlockHash, b.BlockHash)
	}

	assert.Equal(t, []string{"icx_getLastBlock", "icx_getBlockByHeight"}, methods)
	assert.Equal(t, []string{`"0x37df390"`}, heights)
	assert.Equal(t, int32(2), hits.Load())
}

func TestNetworkInfo(t *testing.T) {
	node, _ := newNode(t, func(req capturedRequest) (int, string) {
		if req.Method != "icx_getNetworkInfo" {
			return http.StatusBadRequest, `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`
		}
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"platform":"icon","nid":"0x1","channel":"icon_dex","latest":"0x37df390"}}`
	})
	client, err := NewClient(Config{Endpoint: node.URL}, nil)
	require.NoError(t, err)

	info, err := client.NetworkInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), uint64(info.NID))
	assert.Equal(t, "icon", info.Platform)
	assert.Equal(t, uint64(58586000), uint64(info.Latest))
}

func TestRateLimit(t *testing.T) {
	node, hits := newNode(t, func(req capturedRequest) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":"0x1"}`
	})
	client, err := NewClient(Config{Endpoint: node.URL, RequestsPerSecond: 20}, nil)
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Call(context.Background(), CallRequest{To: testContract, Method: "x"})
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, int32(3), hits.Load())
}

func TestValidateAddresses(t *testing.T) {
	assert.NoError(t, ValidateContract(testContract))

	for _, bad := range []string{"", "cx", "cx1234", "hx9c63f73d3c564a54d0eed84f90718b1ebed16f09", "cxZZ63f73d3c564a54d0eed84f90718b1ebed16f09"} {
		assert.Error(t, ValidateContract(bad), bad)
	}
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsSCOREError(CodeReverted))
	assert.True(t, IsSCOREError(CodeSCOREBase))
	assert.False(t, IsSCOREError(CodeInvalidParams))

	assert.Equal(t, "Reverted(0): paused", (&Error{Code: CodeReverted, Message: "Reverted(0): paused"}).Error())
	assert.Equal(t, "jsonrpc error -32602", (&Error{Code: CodeInvalidParams}).Error())

	for code, permanent := range map[int]bool{
		http.StatusNotFound:              true,
		http.StatusRequestEntityTooLarge: true,
		http.StatusTooManyRequests:       false,
		http.StatusRequestTimeout:        false,
		http.StatusBadGateway:            false,
	} {
		assert.Equal(t, permanent, (&HTTPError{StatusCode: code}).Permanent(), code)
	}
}
