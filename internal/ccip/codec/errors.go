package codec

import (
	"net/http"

	xerrors "CCIP-Bridge/internal/errors"
)

const (
	CodeEncoding      xerrors.Code = "ENCODING_ERROR"
	CodeUnknownMethod xerrors.Code = "UNKNOWN_METHOD"
)

var (
	// ErrEncoding matches every field bound or layout violation.
	ErrEncoding = xerrors.New(CodeEncoding, "encoding error")
	// ErrUnknownMethod matches lookups outside the registered schema set.
	ErrUnknownMethod = xerrors.New(CodeUnknownMethod, "unknown method")
)

func init() {
	xerrors.Register(CodeEncoding, xerrors.Attributes{
		Message:    "instruction encoding failed",
		Severity:   xerrors.SeverityWarning,
		HTTPStatus: http.StatusUnprocessableEntity,
	})
	xerrors.Register(CodeUnknownMethod, xerrors.Attributes{
		Message:    "method is not registered",
		Severity:   xerrors.SeverityCritical,
		Alert:      true,
		HTTPStatus: http.StatusInternalServerError,
	})
}

func encodingErrorf(format string, args ...any) error {
	return xerrors.Newf(CodeEncoding, format, args...)
}
