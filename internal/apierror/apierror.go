/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrForbidden      ErrorCode = "FORBIDDEN"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"

	// Ledger invariant violations.
	ErrInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	ErrInsufficientFunds   ErrorCode = "INSUFFICIENT_FUNDS"
	ErrInvalidRecord       ErrorCode = "INVALID_RECORD"
	ErrInvalidLoanTerms    ErrorCode = "INVALID_LOAN_TERMS"
	ErrTransferFailed      ErrorCode = "TRANSFER_FAILED"
	ErrOverpaymentRejected ErrorCode = "OVERPAYMENT_REJECTED"
	ErrUnauthorizedPayer   ErrorCode = "UNAUTHORIZED_PAYER"
	ErrLoanAlreadyClosed   ErrorCode = "LOAN_ALREADY_CLOSED"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause when Details carries an error, so a
// TRANSFER_FAILED error still answers errors.As for the rejected leg.
func (e APIError) Unwrap() error {
	if cause, ok := e.Details.(error); ok {
		return cause
	}
	return nil
}

// NewAPIError builds an APIError. Infrastructure failures are logged here
// since they rarely carry enough context further up the stack.
func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if code == ErrInternalServer && details != nil {
		logrus.WithField("code", code).Error(details)
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap reports a failure of a nested operation under a new code while keeping
// the original error reachable through errors.Unwrap.
func Wrap(code ErrorCode, message string, cause error) APIError {
	return APIError{Code: code, Message: fmt.Sprintf("%s: %v", message, cause), Details: cause}
}

// CodeOf returns the code of the outermost APIError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	return "", false
}

// HasCode reports whether any APIError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var apiErr APIError
		if !errors.As(err, &apiErr) {
			return false
		}
		if apiErr.Code == code {
			return true
		}
		err = apiErr.Unwrap()
	}
	return false
}

func MapErrorToHTTPStatus(err error) int {
	code, ok := CodeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrBadRequest, ErrInvalidAmount, ErrInvalidRecord, ErrInvalidLoanTerms, ErrInsufficientFunds,
		ErrTransferFailed, ErrLoanAlreadyClosed:
		return http.StatusBadRequest
	case ErrOverpaymentRejected, ErrForbidden:
		return http.StatusForbidden
	case ErrUnauthorizedPayer:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
