// Package micropy is a minimal synchronous-per-request web dispatch
// engine: an incoming HTTP request is matched against an ordered route
// table, run through a pipeline of before/after hooks, handed to a
// handler, and the handler's return value is resolved into a concrete
// status, header list, and body. A signed, stateless session travels
// with the client in a tamper-evident cookie.
//
// Usage:
//
//	app := micropy.New(micropy.DefaultConfig())
//	app.Get("/user/{name}", func(ctx *server.Ctx) (any, error) {
//	    return map[string]any{"user": ctx.Param("name")}, nil
//	})
//	http.ListenAndServe(":8000", app)
//
// The App is an http.Handler; any gateway that delivers buffered
// requests and collects a single buffered response can host it.
package micropy
