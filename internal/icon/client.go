package icon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ybbus/jsonrpc/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"balancedScope/internal/model"
)

const (
	methodCall          = "icx_call"
	methodLastBlock     = "icx_getLastBlock"
	methodBlockByHeight = "icx_getBlockByHeight"
	methodNetworkInfo   = "icx_getNetworkInfo"
)

// Config describes how to reach an ICON node.
type Config struct {
	Endpoint          string
	NetworkID         uint64
	Timeout           time.Duration
	RequestsPerSecond float64
	// CacheSize bounds the cache of height-pinned responses; 0 disables it.
	CacheSize  int
	HTTPClient *http.Client
}

// Client is a JSON-RPC v3 client for ICON nodes. It is safe for concurrent use.
type Client struct {
	rpc       jsonrpc.RPCClient
	networkID uint64
	timeout   time.Duration
	limiter   *rate.Limiter
	cache     *lru.Cache[string, json.RawMessage]
	logger    *zap.Logger
	nextID    atomic.Uint64
}

// NewClient creates a new ICON client from cfg.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") {
		return nil, fmt.Errorf("rpc url must be http(s): %s", cfg.Endpoint)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	c := &Client{
		rpc:       jsonrpc.NewClientWithOpts(cfg.Endpoint, &jsonrpc.RPCClientOpts{HTTPClient: httpClient}),
		networkID: cfg.NetworkID,
		timeout:   cfg.Timeout,
		logger:    logger,
	}

	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, json.RawMessage](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
		c.cache = cache
	}

	return c, nil
}

// NetworkID returns the configured network ID.
func (c *Client) NetworkID() uint64 {
	return c.networkID
}

// CallRequest is a read-only SCORE method call.
type CallRequest struct {
	To     string
	Method string
	Params map[string]any
	// Height pins the call to a past block; nil means latest.
	Height *uint64
}

type callData struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

type callParams struct {
	To       string   `json:"to"`
	DataType string   `json:"dataType"`
	Data     callData `json:"data"`
	Height   string   `json:"height,omitempty"`
}

// Call executes icx_call and returns the raw result.
func (c *Client) Call(ctx context.Context, req CallRequest) (json.RawMessage, error) {
	if err := ValidateContract(req.To); err != nil {
		return nil, err
	}
	if req.Method == "" {
		return nil, fmt.Errorf("method is required")
	}

	params := callParams{
		To:       req.To,
		DataType: "call",
		Data:     callData{Method: req.Method, Params: req.Params},
	}
	if req.Height != nil {
		params.Height = hexutil.EncodeUint64(*req.Height)
	}

	return c.do(ctx, methodCall, params, req.Height != nil)
}

// LastBlock returns the latest block.
func (c *Client) LastBlock(ctx context.Context) (model.Block, error) {
	raw, err := c.do(ctx, methodLastBlock, nil, false)
	if err != nil {
		return model.Block{}, err
	}
	return decodeBlock(raw)
}

// BlockByHeight returns the block at height. Results are cached.
func (c *Client) BlockByHeight(ctx context.Context, height uint64) (model.Block, error) {
	params := map[string]string{"height": hexutil.EncodeUint64(height)}
	raw, err := c.do(ctx, methodBlockByHeight, params, true)
	if err != nil {
		return model.Block{}, err
	}
	return decodeBlock(raw)
}

// NetworkInfo describes the network the node belongs to.
type NetworkInfo struct {
	Platform string       `json:"platform"`
	NID      model.Uint64 `json:"nid"`
	Channel  string       `json:"channel"`
	Latest   model.Uint64 `json:"latest"`
}

// NetworkInfo returns icx_getNetworkInfo.
func (c *Client) NetworkInfo(ctx context.Context) (NetworkInfo, error) {
	raw, err := c.do(ctx, methodNetworkInfo, nil, false)
	if err != nil {
		return NetworkInfo{}, err
	}
	var info NetworkInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return NetworkInfo{}, fmt.Errorf("decode network info: %w", err)
	}
	return info, nil
}

func decodeBlock(raw json.RawMessage) (model.Block, error) {
	var block model.Block
	if err := json.Unmarshal(raw, &block); err != nil {
		return model.Block{}, fmt.Errorf("decode block: %w", err)
	}
	block.Raw = raw
	return block, nil
}

func (c *Client) do(ctx context.Context, method string, params any, cacheable bool) (json.RawMessage, error) {
	var cacheKey string
	if cacheable && c.cache != nil {
		keyParams, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		cacheKey = method + ":" + string(keyParams)
		if raw, ok := c.cache.Get(cacheKey); ok {
			return raw, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.rpc.CallRaw(ctx, &jsonrpc.RPCRequest{
		JSONRPC: "2.0",
		ID:      int(c.nextID.Add(1)),
		Method:  method,
		Params:  params,
	})
	c.logger.Debug("rpc request",
		zap.String("method", method),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("ok", err == nil),
	)

	// A JSON-RPC error body wins over the HTTP status it came with.
	if resp != nil && resp.Error != nil {
		return nil, fmt.Errorf("%s: %w", method, &Error{
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
			Data:    resp.Error.Data,
		})
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", method, ctxErr)
		}
		var httpErr *jsonrpc.HTTPError
		if errors.As(err, &httpErr) {
			return nil, fmt.Errorf("%s: %w", method, &HTTPError{StatusCode: httpErr.Code, Status: http.StatusText(httpErr.Code)})
		}
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if resp == nil || resp.Result == nil {
		return nil, fmt.Errorf("%s: empty result", method)
	}

	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("%s: encode result: %w", method, err)
	}
	if cacheKey != "" {
		c.cache.Add(cacheKey, raw)
	}
	return raw, nil
}
