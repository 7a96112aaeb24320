package eth

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// CodeUserRejected is the EIP-1193 error code for a declined wallet prompt
const CodeUserRejected = 4001

const revertPrefix = "execution reverted"

// ErrorCode extracts the JSON-RPC error code from err, if any
func ErrorCode(err error) (int, bool) {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode(), true
	}
	return 0, false
}

// IsUserRejected reports whether err is a provider-side "user rejected" error
func IsUserRejected(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUserRejected
}

// RevertReason returns the human-readable reason of an execution revert.
// The second result is false when err is not a revert at all; a revert
// without a reason string yields ("", true).
func RevertReason(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		switch data := dataErr.ErrorData().(type) {
		case string:
			if reason, ok := unpackRevert(data); ok {
				return reason, true
			}
		case map[string]interface{}:
			// Wallet bridges wrap the node error as {code, message, data}
			// inside an "Internal JSON-RPC error"
			if hexData, ok := data["data"].(string); ok {
				if reason, ok := unpackRevert(hexData); ok {
					return reason, true
				}
			}
			if msg, ok := data["message"].(string); ok {
				if reason, ok := revertFromMessage(msg); ok {
					return reason, true
				}
			}
		}
	}
	return revertFromMessage(err.Error())
}

func unpackRevert(hexData string) (string, bool) {
	data, err := hexutil.Decode(hexData)
	if err != nil {
		return "", false
	}
	reason, err := abi.UnpackRevert(data)
	if err != nil {
		return "", false
	}
	return reason, true
}

func revertFromMessage(msg string) (string, bool) {
	idx := strings.Index(msg, revertPrefix)
	if idx < 0 {
		return "", false
	}
	reason := strings.TrimPrefix(msg[idx+len(revertPrefix):], ":")
	return strings.TrimSpace(reason), true
}

// ReplayRevertReason re-executes a mined but failed call at its block to
// recover the revert reason. Nodes that prune state return "".
func ReplayRevertReason(ctx context.Context, caller ethereum.ContractCaller, msg ethereum.CallMsg, blockNumber *big.Int) string {
	_, err := caller.CallContract(ctx, msg, blockNumber)
	reason, _ := RevertReason(err)
	return reason
}
