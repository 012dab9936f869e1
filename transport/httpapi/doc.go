// Package httpapi exposes the Engine over a JSON HTTP API built on echo.
//
// Routes under /auth cover sign-up, sign-in, refresh rotation and the
// caller's own account; routes under /users are restricted to admins. Bearer
// checks reuse the net/http guards from package middleware. Engine errors are
// mapped by goIAM.KindOf onto status codes and rendered as {"error": "..."}.
package httpapi
