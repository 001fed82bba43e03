package icon

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/rpc"
)

// JSON-RPC error codes returned by ICON nodes.
const (
	CodeInvalidParams = -32602

	// SCORE failures are reported as CodeSCOREBase - status.
	CodeSCOREBase = -30000
	CodeSCOREMin  = -30999
	// CodeReverted is a SCORE revert with user code 0 (require/revert in the contract).
	CodeReverted = CodeSCOREBase - 32
)

// Error is a JSON-RPC error object returned by the node. It satisfies
// go-ethereum's rpc.Error and rpc.DataError, so callers classify it through
// those interfaces.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

var (
	_ rpc.Error     = (*Error)(nil)
	_ rpc.DataError = (*Error)(nil)
)

// Error returns the node message, like go-ethereum's own JSON-RPC errors.
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("jsonrpc error %d", e.Code)
	}
	return e.Message
}

func (e *Error) ErrorCode() int { return e.Code }

func (e *Error) ErrorData() interface{} { return e.Data }

// IsSCOREError reports whether code belongs to the contract failure range.
func IsSCOREError(code int) bool {
	return code <= CodeSCOREBase && code >= CodeSCOREMin
}

// HTTPError is returned when the node answers with a non-2xx status and no JSON-RPC error.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d %s", e.StatusCode, e.Status)
}

// Permanent reports whether retrying the request cannot help: a 4xx status
// other than request timeout and rate limiting.
func (e *HTTPError) Permanent() bool {
	if e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusTooManyRequests {
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}
