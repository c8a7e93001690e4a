// Пакет errors — конструкторы стандартных ошибок API.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	"net/http"
)

// Машиночитаемые коды ошибок.
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeCsrfValidationError = "CSRF_VALIDATION_ERROR"
	CodeMissingCode         = "MISSING_CODE"
	CodeProviderDenied      = "PROVIDER_DENIED"
	CodeUpstreamAuthError   = "UPSTREAM_AUTH_ERROR"
	CodeTransportError      = "TRANSPORT_ERROR"
	CodeInternalError       = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthenticated — 401 требуется вход через ТПУ.
func Unauthenticated(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthenticated, message)
}

// CsrfValidationError — 400 state callback не совпал с сессионным.
func CsrfValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeCsrfValidationError, message)
}

// MissingCode — 400 callback пришёл без authorization code.
func MissingCode(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeMissingCode, message)
}

// ProviderDenied — 400 провайдер вернул error в callback.
func ProviderDenied(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeProviderDenied, message)
}

// UpstreamAuthError — 502 провайдер вернул некорректный ответ.
func UpstreamAuthError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeUpstreamAuthError, message)
}

// TransportError — 502 сетевая ошибка при обращении к провайдеру.
func TransportError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeTransportError, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
