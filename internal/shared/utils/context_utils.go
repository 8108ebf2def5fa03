package utils

import (
	"context"
	"errors"

	"thing-counter/internal/shared/contextkeys"
)

var (
	ErrUserIDNotFound    = errors.New("userID not found in context")
	ErrUserIDNotString   = errors.New("userID in context is not a string")
	ErrUserEmailNotFound = errors.New("userEmail not found in context")
	ErrRequestIDNotFound = errors.New("requestID not found in context")
)

func stringValue(ctx context.Context, key interface{}) (string, bool, bool) {
	val := ctx.Value(key)
	if val == nil {
		return "", false, false
	}
	s, ok := val.(string)
	return s, true, ok
}

// GetUserIDFromContext retrieves the authenticated uid from the context.
func GetUserIDFromContext(ctx context.Context) (string, error) {
	s, found, ok := stringValue(ctx, contextkeys.UserIDKey)
	if !found {
		return "", ErrUserIDNotFound
	}
	if !ok {
		return "", ErrUserIDNotString
	}
	if s == "" {
		return "", ErrUserIDNotFound
	}
	return s, nil
}

// GetUserEmailFromContext retrieves the authenticated email from the context.
func GetUserEmailFromContext(ctx context.Context) (string, error) {
	s, _, ok := stringValue(ctx, contextkeys.UserEmailKey)
	if !ok {
		return "", ErrUserEmailNotFound
	}
	return s, nil
}

// GetRequestIDFromContext retrieves the request id from the context.
func GetRequestIDFromContext(ctx context.Context) (string, error) {
	s, _, ok := stringValue(ctx, contextkeys.RequestIDKey)
	if !ok || s == "" {
		return "", ErrRequestIDNotFound
	}
	return s, nil
}

func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, contextkeys.UserIDKey, uid)
}

func WithUserEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, contextkeys.UserEmailKey, email)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, contextkeys.ComponentKey, component)
}

func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, contextkeys.OperationKey, operation)
}
