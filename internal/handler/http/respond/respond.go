// Package respond centralizes JSON response writing for the management API,
// including sanitization so internal errors never leak storage DSNs or
// other sensitive detail to a client.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Default().Error("failed to encode JSON response", "status_code", code, "error", err)
		}
	}
}

// Error writes a {"error": msg} JSON body with the given status code.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, map[string]string{"error": err.Error()})
}

var safeErrorSubstrings = []string{
	"required", "invalid", "not found", "already exists",
	"must be", "cannot be", "too long", "too short",
}

// SafeError returns validation-shaped errors to the client as-is; anything
// else (especially 5xx) is logged with SanitizeError and replaced with a
// generic message so internals never leak.
func SafeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}
	msg := strings.ToLower(err.Error())
	isSafe := code < 500
	if isSafe {
		isSafe = false
		for _, s := range safeErrorSubstrings {
			if strings.Contains(msg, s) {
				isSafe = true
				break
			}
		}
	}
	if isSafe {
		JSON(w, code, map[string]string{"error": err.Error()})
		return
	}
	slog.Default().Error("internal server error", "status", http.StatusText(code), "code", code, "error", SanitizeError(err))
	JSON(w, code, map[string]string{"error": "internal server error"})
}

// AppError carries a user-facing message distinct from the wrapped internal
// error, so handlers can return a precise client message without leaking
// the internal detail into the response body.
type AppError struct {
	UserMsg string
	Err     error
	Code    int
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.UserMsg
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError constructs an AppError.
func NewAppError(code int, userMsg string, err error) *AppError {
	return &AppError{Code: code, UserMsg: userMsg, Err: err}
}

// SafeErrorV2 unwraps an AppError for its user-facing message and code,
// logging the wrapped internal error; anything else falls back to SafeError.
func SafeErrorV2(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Err != nil {
			slog.Default().Error("application error", "status", http.StatusText(appErr.Code), "code", appErr.Code, "user_message", appErr.UserMsg, "error", SanitizeError(appErr.Err))
		}
		JSON(w, appErr.Code, map[string]string{"error": appErr.UserMsg})
		return
	}
	SafeError(w, code, err)
}
