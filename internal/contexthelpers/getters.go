package contexthelpers

import (
	"context"
)

func CurrentPath(ctx context.Context) string {
	currentPath, ok := ctx.Value(currentPathContextKey).(string)
	if !ok {
		return ""
	}

	return currentPath
}

func CSRFToken(ctx context.Context) string {
	csrfToken, ok := ctx.Value(csrfTokenContextKey).(string)
	if !ok {
		return ""
	}

	return csrfToken
}

func CSPNonce(ctx context.Context) string {
	nonce, ok := ctx.Value(cspNonceContextKey).(string)
	if !ok {
		return ""
	}

	return nonce
}

// VisitorID identifies the browser session owning the active screen. Empty when the session middleware did not run.
func VisitorID(ctx context.Context) string {
	visitorID, ok := ctx.Value(visitorIDContextKey).(string)
	if !ok {
		return ""
	}

	return visitorID
}

func IsHxRequest(ctx context.Context) bool {
	isHxRequest, ok := ctx.Value(isHxRequestContextKey).(bool)
	if !ok {
		return false
	}

	return isHxRequest
}
