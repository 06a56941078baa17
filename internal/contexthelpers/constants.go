package contexthelpers

type contextKey string

const currentPathContextKey = contextKey("currentPath")
const csrfTokenContextKey = contextKey("csrfToken")
const cspNonceContextKey = contextKey("cspNonce")
const visitorIDContextKey = contextKey("visitorID")
const isHxRequestContextKey = contextKey("isHxRequest")
