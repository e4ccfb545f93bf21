package rpc

import (
	"errors"
	"fmt"
	"net/http"

	"nftlend/native/common"
)

// paramError reports a malformed or missing request parameter.
type paramError struct {
	msg string
}

func (e *paramError) Error() string { return e.msg }

func invalidParams(format string, args ...interface{}) error {
	return &paramError{msg: fmt.Sprintf(format, args...)}
}

// errorFor maps a handler failure onto an HTTP status and JSON-RPC error.
func errorFor(err error) (int, *RPCError) {
	var pe *paramError
	if errors.As(err, &pe) {
		return http.StatusBadRequest, &RPCError{Code: codeInvalidParams, Message: pe.msg}
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return http.StatusBadRequest, rpcErr
	}
	kind := common.KindName(err)
	data := map[string]string{"kind": kind}
	switch {
	case errors.Is(err, common.ErrModulePaused):
		return http.StatusServiceUnavailable, &RPCError{Code: codePaused, Message: err.Error(), Data: data}
	case errors.Is(err, common.ErrPreconditionViolation):
		return http.StatusBadRequest, &RPCError{Code: codePrecondition, Message: err.Error(), Data: data}
	case errors.Is(err, common.ErrNotYetEligible):
		return http.StatusConflict, &RPCError{Code: codeNotYetEligible, Message: err.Error(), Data: data}
	case errors.Is(err, common.ErrAlreadyExpired):
		return http.StatusConflict, &RPCError{Code: codeExpired, Message: err.Error(), Data: data}
	case errors.Is(err, common.ErrIdentityMismatch):
		return http.StatusForbidden, &RPCError{Code: codeIdentity, Message: err.Error(), Data: data}
	case errors.Is(err, common.ErrConflictingClaim):
		return http.StatusConflict, &RPCError{Code: codeConflict, Message: err.Error(), Data: data}
	case errors.Is(err, common.ErrArithmeticOverflow):
		return http.StatusUnprocessableEntity, &RPCError{Code: codeOverflow, Message: err.Error(), Data: data}
	}
	return http.StatusInternalServerError, &RPCError{Code: codeServerError, Message: "internal error", Data: data}
}
