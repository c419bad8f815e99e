// Package api exposes the tally engine over HTTP with Fiber: the write
// path, stream queries and maintenance triggers for replay and reconcile.
package api

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/xraph/tally"
	"github.com/xraph/tally/stream"
)

// NewApp returns a Fiber app serving the engine's routes.
func NewApp(eng *tally.Engine) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Default to 500 if status code cannot be determined
			status := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
			return ErrorResponseJSON(c, status, "Internal Server Error", err.Error())
		},
	})
	app.Use(recover.New())

	app.Get("/healthz", Health(eng))
	Routes(app, eng)

	return app
}

// Routes registers the tally endpoints on r.
//
// Routes:
//   - GET    /streams                  : List stream keys, optionally ?kind=.
//   - POST   /streams/reconcile        : Reconcile keys, a kind, or everything.
//   - POST   /streams/:key/reconcile   : Reconcile one stream.
//   - GET    /streams/:key/replay      : Dry-run replay of one stream.
//   - GET    /streams/:key/balance     : Stored balance of the stream tail.
//   - GET    /streams/:key/entries     : Page through a stream, ?limit=&offset=.
//   - POST   /entries                  : Record an entry.
//   - GET    /entries/:id              : Fetch an entry.
//   - PUT    /entries/:id              : Edit an entry.
//   - DELETE /entries/:id              : Delete an entry.
func Routes(r fiber.Router, eng *tally.Engine) {
	r.Get("/streams", ListStreams(eng))
	r.Post("/streams/reconcile", ReconcileMany(eng))
	r.Post("/streams/:key/reconcile", ReconcileStream(eng))
	r.Get("/streams/:key/replay", ReplayStream(eng))
	r.Get("/streams/:key/balance", GetBalance(eng))
	r.Get("/streams/:key/entries", ListEntries(eng))

	r.Post("/entries", RecordEntry(eng))
	r.Get("/entries/:id", GetEntry(eng))
	r.Put("/entries/:id", UpdateEntry(eng))
	r.Delete("/entries/:id", DeleteEntry(eng))
}

// Health pings the store.
func Health(eng *tally.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := eng.Store().Ping(c.UserContext()); err != nil {
			return ProblemDetailsJSON(c, "Store unavailable", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// streamKey reads the :key path parameter. Clients path-escape the key,
// so escaped components arrive double-escaped.
func streamKey(c *fiber.Ctx) (stream.Key, error) {
	raw, err := url.PathUnescape(c.Params("key"))
	if err != nil {
		return "", errors.Join(stream.ErrInvalidKey, err)
	}
	return stream.ParseKey(raw)
}
