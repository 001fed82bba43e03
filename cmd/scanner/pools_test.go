package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dexPools = map[string]string{
	"0x1": `{"base":"0x24401c4c0b0eaf0bd3736","base_decimals":"0x12","base_token":"cx2609b924e33ef00b648a409245c7ea394c467824","min_quote":"0x8ac7230489e80000","name":"sICX/bnUSD","price":"0x2d49f768fb1b92d","quote":"0x764cd19f995e96ea3948","quote_decimals":"0x12","quote_token":"cx88fd7df7ddff82f7cc735c871dc519838cb235bb","total_supply":"0xdf8d79f78f8cd92da496"}`,
	"0x2": `{"base":"0xf4240","base_decimals":"0x6","base_token":"cx22319ac7f412f53eabe3c9827acf5e27e9c6a95f","min_quote":"0x8ac7230489e80000","name":"USDC/bnUSD","price":"0xc9f2c9cd04674edea40000000","quote":"0xde0b6b3a7640000","quote_decimals":"0x12","quote_token":"cx88fd7df7ddff82f7cc735c871dc519838cb235bb","total_supply":"0xde0b6b3a7640000"}`,
}

// newDexNode serves dexPools and answers unknown pool IDs with a revert
// carrying revertMessage.
func newDexNode(t *testing.T, revertMessage string) *httptest.Server {
	t.Helper()
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int    `json:"id"`
			Method string `json:"method"`
			Params struct {
				Data struct {
					Params map[string]string `json:"params"`
				} `json:"data"`
			} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		stats, ok := dexPools[req.Params.Data.Params["_id"]]
		if req.Method != "icx_call" || !ok {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"error":{"code":-30032,"message":%q}}`, req.ID, revertMessage)
			return
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":%s}`, req.ID, stats)
	}))
	t.Cleanup(node.Close)
	return node
}

func runScanner(args ...string) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.Execute()
}

func readJSONL(t *testing.T, path string) []map[string]any {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestPoolsCommandWritesJSONL(t *testing.T) {
	node := newDexNode(t, "Reverted(0): Invalid pool ID")
	out := filepath.Join(t.TempDir(), "data", "pools.jsonl")

	err := runScanner("pools",
		"--rpc", node.URL,
		"--network-id", "0",
		"--out", out,
		"--retry-backoff", "1ms",
		"--log-level", "error",
	)
	require.NoError(t, err)

	lines := readJSONL(t, out)
	require.Len(t, lines, 2)

	assert.Equal(t, "sICX/bnUSD", lines[0]["name"])
	assert.Equal(t, "0.203963214704261421", lines[0]["price"])
	assert.Equal(t, "10", lines[0]["min_quote"])
	assert.Equal(t, float64(18), lines[0]["base_decimals"])

	assert.Equal(t, "USDC/bnUSD", lines[1]["name"])
	assert.Equal(t, "1", lines[1]["price"])
	assert.Equal(t, "1", lines[1]["base"])
}

func TestPoolsCommandUnexpectedRevertFails(t *testing.T) {
	node := newDexNode(t, "Reverted(0): paused")
	out := filepath.Join(t.TempDir(), "pools.jsonl")

	err := runScanner("pools",
		"--rpc", node.URL,
		"--network-id", "0",
		"--out", out,
		"--not-found-message", "(?i)invalid pool",
		"--retry-backoff", "1ms",
		"--log-level", "error",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query pool 3")

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no partial scan is written")
}
