package main

import (
	"net/http"
	"time"
)

const timeoutBody = `<!doctype html>
<html lang="es">
<head><meta charset="utf-8"><title>Tiempo de espera agotado · Aliada</title></head>
<body>
<h1>La página tardó demasiado en responder</h1>
<p>Inténtalo de nuevo en unos segundos.</p>
<p><a href="">Reintentar</a></p>
</body>
</html>
`

// timeoutHandler responds with a 503 Service Unavailable error when the handler does not meet the deadline.
func timeoutHandler(h http.Handler, defaultTimeout time.Duration) http.Handler {
	// We want the timeout to be a little shorter than the server's read timeout so that the
	// timeout handler has a chance to respond before the server closes the connection.
	httpHandlerTimeout := defaultTimeout - 500*time.Millisecond //nolint:mnd // 500ms
	return http.TimeoutHandler(h, httpHandlerTimeout, timeoutBody)
}
