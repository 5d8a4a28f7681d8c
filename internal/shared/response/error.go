package response

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"marketsim-server/internal/shared/errors"
)

// ErrorResponse is the JSON body of every failed request.
// Reason carries the domain cause (for example "insufficient funds") so a client
// can tell a rejected allocation from a finished game without parsing Message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
	Code    int    `json:"code"`
}

var statusByType = map[errors.ErrorType]int{
	errors.ErrorTypeNotFound:         http.StatusNotFound,
	errors.ErrorTypeValidation:       http.StatusBadRequest,
	errors.ErrorTypeConflict:         http.StatusConflict,
	errors.ErrorTypeUnauthorized:     http.StatusUnauthorized,
	errors.ErrorTypeForbidden:        http.StatusForbidden,
	errors.ErrorTypeMethodNotAllowed: http.StatusMethodNotAllowed,
	errors.ErrorTypeExternal:         http.StatusServiceUnavailable,
	errors.ErrorTypeInternal:         http.StatusInternalServerError,
}

const internalMessage = "internal server error"

// Error logs err once and writes it as JSON. It is the only place HTTP errors are logged.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	errorType := errors.GetType(err)
	statusCode := statusCode(errorType)

	logError(logger, r, err, errorType, statusCode)

	body := ErrorResponse{
		Error:   string(errorType),
		Message: err.Error(),
		Code:    statusCode,
	}
	switch errorType {
	case errors.ErrorTypeInternal, errors.ErrorTypeExternal:
		// Storage and driver messages stay in the log.
		body.Message = internalMessage
	default:
		body.Reason = domainReason(err)
	}

	writeJSON(w, statusCode, body)
}

func statusCode(errorType errors.ErrorType) int {
	if code, ok := statusByType[errorType]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// domainReason returns the innermost error wrapped by an AppError, or "" when
// the AppError wraps nothing.
func domainReason(err error) string {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) || appErr.Err == nil {
		return ""
	}
	cause := appErr.Err
	for {
		next := stderrors.Unwrap(cause)
		if next == nil {
			return cause.Error()
		}
		cause = next
	}
}

func logError(logger *slog.Logger, r *http.Request, err error, errorType errors.ErrorType, statusCode int) {
	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"route", r.Pattern,
		"remote_addr", r.RemoteAddr,
		"error_type", errorType,
		"status_code", statusCode,
		"error", err,
	}
	for _, name := range []string{"id", "turn"} {
		if v := r.PathValue(name); v != "" {
			attrs = append(attrs, name, v)
		}
	}
	log := logger.With(attrs...)

	switch errorType {
	case errors.ErrorTypeNotFound:
		log.Debug("Resource not found")
	case errors.ErrorTypeValidation, errors.ErrorTypeMethodNotAllowed:
		log.Debug("Rejected request")
	case errors.ErrorTypeConflict:
		log.Info("Game action refused", "reason", domainReason(err))
	case errors.ErrorTypeUnauthorized, errors.ErrorTypeForbidden:
		log.Warn("Session rejected")
	case errors.ErrorTypeExternal:
		log.Error("Dependency unavailable")
	default:
		log.Error("Internal server error")
	}
}

// Success writes data as JSON with statusCode.
func Success(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, data)
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		// The status line is already out; an encode failure cannot be reported.
		_ = json.NewEncoder(w).Encode(data)
	}
}
