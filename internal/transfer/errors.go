package transfer

import (
	"net/http"

	xerrors "CCIP-Bridge/internal/errors"
)

const (
	CodeInvalidIntent     xerrors.Code = "INVALID_INTENT"
	CodeDispatchFailure   xerrors.Code = "DISPATCH_FAILURE"
	CodeTransferNotFound  xerrors.Code = "TRANSFER_NOT_FOUND"
	CodeTransferConflict  xerrors.Code = "TRANSFER_CONFLICT"
	CodeTransferFinalized xerrors.Code = "TRANSFER_FINALIZED"
)

// MetadataTransferID 是错误元数据中携带转账 ID 的键。
const MetadataTransferID = "transfer_id"

var (
	// ErrInvalidIntent 表示转账意图未通过校验。
	ErrInvalidIntent = xerrors.New(CodeInvalidIntent, "invalid intent")
	// ErrDispatchFailure 表示签名、广播或外部进程执行失败。
	ErrDispatchFailure = xerrors.New(CodeDispatchFailure, "dispatch failure")
	// ErrTransferNotFound 表示指定的转账记录不存在。
	ErrTransferNotFound = xerrors.New(CodeTransferNotFound, "transfer not found")
	// ErrTransferConflict 表示相同 ID 的记录已经存在。
	ErrTransferConflict = xerrors.New(CodeTransferConflict, "transfer conflict")
	// ErrTransferFinalized 表示记录已处于终态，拒绝再次写入。
	ErrTransferFinalized = xerrors.New(CodeTransferFinalized, "transfer finalized")
)

func init() {
	xerrors.Register(CodeInvalidIntent, xerrors.Attributes{
		Message:    "transfer intent is invalid",
		Severity:   xerrors.SeverityInfo,
		HTTPStatus: http.StatusBadRequest,
	})
	xerrors.Register(CodeDispatchFailure, xerrors.Attributes{
		Message:    "transfer dispatch failed",
		Severity:   xerrors.SeverityWarning,
		Retryable:  true,
		Alert:      true,
		HTTPStatus: http.StatusBadGateway,
	})
	xerrors.Register(CodeTransferNotFound, xerrors.Attributes{
		Message:    "transfer not found",
		Severity:   xerrors.SeverityInfo,
		HTTPStatus: http.StatusNotFound,
	})
	xerrors.Register(CodeTransferConflict, xerrors.Attributes{
		Message:    "transfer already exists",
		Severity:   xerrors.SeverityWarning,
		HTTPStatus: http.StatusConflict,
	})
	xerrors.Register(CodeTransferFinalized, xerrors.Attributes{
		Message:    "transfer already reached a terminal status",
		Severity:   xerrors.SeverityInfo,
		HTTPStatus: http.StatusConflict,
	})
}

func invalidIntentf(format string, args ...any) error {
	return xerrors.Newf(CodeInvalidIntent, format, args...)
}
