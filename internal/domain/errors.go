package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrChatNotFound       = errors.New("chat not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrCursorNotFound     = errors.New("pagination cursor not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrModelNotFound      = errors.New("model not found")
	ErrUnknownChatModel   = errors.New("unknown chat model")
	ErrCatalogUnavailable = errors.New("model catalog unavailable")
	ErrUpstream           = errors.New("model provider request failed")
	ErrUpstreamRateLimit  = errors.New("rate limited by model provider")
)

type ErrorType string

const (
	ErrorBadRequest   ErrorType = "bad_request"
	ErrorUnauthorized ErrorType = "unauthorized"
	ErrorForbidden    ErrorType = "forbidden"
	ErrorNotFound     ErrorType = "not_found"
	ErrorRateLimit    ErrorType = "rate_limit"
	ErrorOffline      ErrorType = "offline"
	ErrorBadGateway   ErrorType = "bad_gateway"
)

type Surface string

const (
	SurfaceAPI        Surface = "api"
	SurfaceChat       Surface = "chat"
	SurfaceAuth       Surface = "auth"
	SurfaceHistory    Surface = "history"
	SurfaceDocument   Surface = "document"
	SurfaceSuggestion Surface = "suggestions"
	SurfaceStream     Surface = "stream"
	SurfaceDatabase   Surface = "database"
)

// ChatError is the structured error returned to clients as {code, message}.
type ChatError struct {
	Type    ErrorType
	Surface Surface
	Cause   string
}

func NewChatError(t ErrorType, s Surface) *ChatError {
	return &ChatError{Type: t, Surface: s}
}

func (e *ChatError) WithCause(cause string) *ChatError {
	c := *e
	c.Cause = cause
	return &c
}

func (e *ChatError) Code() string {
	return string(e.Type) + ":" + string(e.Surface)
}

func (e *ChatError) Error() string {
	if e.Cause != "" {
		return fmt.Sprintf("%s: %s", e.Code(), e.Cause)
	}
	return e.Code()
}

// Logged reports whether the error is only logged and answered generically.
func (e *ChatError) Logged() bool {
	return e.Surface == SurfaceDatabase
}

func (e *ChatError) Message() string {
	if e.Surface == SurfaceDatabase {
		return "An error occurred while executing a database query."
	}
	switch e.Code() {
	case "bad_request:api":
		return "The request couldn't be processed. Please check your input and try again."
	case "unauthorized:auth":
		return "You need to sign in before continuing."
	case "forbidden:auth":
		return "Your account does not have access to this feature."
	case "rate_limit:chat":
		return "You have exceeded your maximum number of messages for the day. Please try again later."
	case "not_found:chat":
		return "The requested chat was not found. Please check the chat ID and try again."
	case "forbidden:chat":
		return "This chat belongs to another user. Please check the chat ID and try again."
	case "unauthorized:chat":
		return "You need to sign in to view this chat. Please sign in and try again."
	case "offline:chat":
		return "We're having trouble sending your message. Please check your internet connection and try again."
	case "bad_gateway:chat":
		return "The model provider is unavailable right now. Please try again later."
	case "not_found:document":
		return "The requested document was not found. Please check the document ID and try again."
	case "forbidden:document":
		return "This document belongs to another user. Please check the document ID and try again."
	case "unauthorized:document":
		return "You need to sign in to view this document. Please sign in and try again."
	case "bad_request:document":
		return "The request to create or update the document was invalid. Please check your input and try again."
	default:
		return "Something went wrong. Please try again later."
	}
}

func (e *ChatError) StatusCode() int {
	switch e.Type {
	case ErrorBadRequest:
		return http.StatusBadRequest
	case ErrorUnauthorized:
		return http.StatusUnauthorized
	case ErrorForbidden:
		return http.StatusForbidden
	case ErrorNotFound:
		return http.StatusNotFound
	case ErrorRateLimit:
		return http.StatusTooManyRequests
	case ErrorOffline:
		return http.StatusServiceUnavailable
	case ErrorBadGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AsChatError extracts a ChatError, mapping anything else to fallback.
func AsChatError(err error, fallback *ChatError) *ChatError {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce
	}
	return fallback
}
