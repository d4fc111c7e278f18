package accounts

import (
	"net/http"

	xerrors "CCIP-Bridge/internal/errors"
)

const (
	CodeMissingAccount   xerrors.Code = "MISSING_ACCOUNT"
	CodeNoValidBumpFound xerrors.Code = "NO_VALID_BUMP_FOUND"
)

var (
	// ErrMissingAccount matches a required account absent from the context.
	ErrMissingAccount = xerrors.New(CodeMissingAccount, "missing account")
	// ErrNoValidBumpFound matches an exhausted bump search.
	ErrNoValidBumpFound = xerrors.New(CodeNoValidBumpFound, "no valid bump found")
)

func init() {
	xerrors.Register(CodeMissingAccount, xerrors.Attributes{
		Message:    "required account is missing",
		Severity:   xerrors.SeverityWarning,
		Alert:      true,
		HTTPStatus: http.StatusInternalServerError,
	})
	xerrors.Register(CodeNoValidBumpFound, xerrors.Attributes{
		Message:    "no off-curve address in bump search space",
		Severity:   xerrors.SeverityCritical,
		Alert:      true,
		HTTPStatus: http.StatusInternalServerError,
	})
}

func missingAccount(name string) error {
	return xerrors.Newf(CodeMissingAccount, "account %q is required", name)
}
