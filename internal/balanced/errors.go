package balanced

import (
	"errors"
	"regexp"
	"slices"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"balancedScope/internal/icon"
)

// NotFoundRule decides which node errors mean "no pool with this ID".
// An error matches when its code is listed and, if Message is set, its
// message matches Message.
type NotFoundRule struct {
	Codes   []int
	Message *regexp.Regexp
}

// defaultNotFoundCodes treats a contract revert as the end of the pool range.
func defaultNotFoundCodes() []int {
	return []int{icon.CodeReverted}
}

// NewNotFoundRule compiles a rule from config values. An empty pattern matches
// any message; an empty code list selects the default revert code and keeps
// the pattern.
func NewNotFoundRule(codes []int, pattern string) (NotFoundRule, error) {
	if len(codes) == 0 {
		codes = defaultNotFoundCodes()
	}
	rule := NotFoundRule{Codes: codes}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return NotFoundRule{}, err
		}
		rule.Message = re
	}
	return rule, nil
}

func (r NotFoundRule) Match(err error) bool {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	if !slices.Contains(r.Codes, rpcErr.ErrorCode()) {
		return false
	}
	if r.Message != nil && !r.Message.MatchString(rpcErr.Error()) {
		return false
	}
	return true
}

// isTransient reports whether retrying err may succeed: transport failures
// and 5xx, 408 or 429 responses. Node errors and other 4xx statuses are final.
func isTransient(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return false
	}
	var httpErr *icon.HTTPError
	if errors.As(err, &httpErr) {
		return !httpErr.Permanent()
	}
	return true
}

// errorFields describes a node error for logging.
func errorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		fields = append(fields,
			zap.Int("code", rpcErr.ErrorCode()),
			zap.Bool("score_error", icon.IsSCOREError(rpcErr.ErrorCode())),
		)
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		fields = append(fields, zap.Any("data", dataErr.ErrorData()))
	}
	return fields
}
