package dashboard

import (
	"errors"
	"fmt"

	"miner-hosting/internal/proxy"
)

// Result is the outcome of one sub-call. A failed call carries a warning and a zero Value.
type Result[T any] struct {
	Value   T
	Warning string
	OK      bool
}

func succeeded[T any](v T) Result[T] {
	return Result[T]{Value: v, OK: true}
}

func failed[T any](source string, err error) Result[T] {
	return Result[T]{Warning: warningText(source, err)}
}

// warningText renders err once, without repeating the source prefix loopback errors already carry.
func warningText(source string, err error) string {
	var callErr *proxy.CallError
	if errors.As(err, &callErr) {
		return callErr.Error()
	}
	return fmt.Sprintf("%s: %v", source, err)
}
