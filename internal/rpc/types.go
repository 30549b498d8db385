package rpc

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedEncoding = errors.New("rpc: account data is not base64 encoded")

// RPCError is the "error" member of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsAccountNotFound reports whether err is the node's "could not find account"
// response, returned e.g. by getTokenAccountBalance for a missing ATA.
func IsAccountNotFound(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "could not find account") || strings.Contains(msg, "account not found")
}

// withContext is the {context, value} shape of most account queries.
type withContext[T any] struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value T `json:"value"`
}

type accountValue struct {
	Data       []string `json:"data"`
	Owner      string   `json:"owner"`
	Lamports   uint64   `json:"lamports"`
	Executable bool     `json:"executable"`
}

func (v *accountValue) info() *AccountInfo {
	info := &AccountInfo{Owner: v.Owner, Lamports: v.Lamports}
	if len(v.Data) >= 2 {
		info.RawData, info.Encoding = v.Data[0], v.Data[1]
	}
	return info
}

// AccountInfo is an account as returned by getAccountInfo.
type AccountInfo struct {
	Owner    string
	Lamports uint64
	RawData  string
	Encoding string
}

// TokenAmount is the value of getTokenAccountBalance.
type TokenAmount struct {
	Amount         string  `json:"amount"`
	Decimals       int     `json:"decimals"`
	UIAmountString string  `json:"uiAmountString"`
	UIAmount       float64 `json:"uiAmount"`
}
