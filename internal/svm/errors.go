package svm

import (
	"net/http"

	xerrors "CCIP-Bridge/internal/errors"
)

// CodeRPCFailure marks an RPC call that failed on every configured endpoint.
const CodeRPCFailure xerrors.Code = "RPC_FAILURE"

// ErrRPCFailure matches any error carrying CodeRPCFailure.
var ErrRPCFailure = xerrors.New(CodeRPCFailure, "rpc failure")

func init() {
	xerrors.Register(CodeRPCFailure, xerrors.Attributes{
		Message:    "solana rpc request failed",
		Severity:   xerrors.SeverityWarning,
		Retryable:  true,
		Alert:      true,
		HTTPStatus: http.StatusBadGateway,
	})
}
