package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/xraph/tally"
	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/stream"
)

// ListStreams returns the stored stream keys.
func ListStreams(eng *tally.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		keys, err := eng.Streams(c.UserContext(), c.Query("kind"))
		if err != nil {
			log.Errorf("Failed to list streams: %v", err)
			return ProblemDetailsJSON(c, "Failed to list streams", err)
		}
		return SuccessResponseJSON(c, fiber.StatusOK, "Streams fetched", keys)
	}
}

// ReconcileMany reconciles the listed keys, every stream of a kind, or
// every stored stream when the body names neither.
func ReconcileMany(eng *tally.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input := &ReconcileRequest{}
		if len(c.Body()) > 0 {
			var err error
			input, err = BindAndValidate[ReconcileRequest](c)
			if input == nil {
				return err // error response already written
			}
		}

		var report *stream.CombinedReport
		switch {
		case len(input.Keys) > 0:
			keys := make([]stream.Key, 0, len(input.Keys))
			for _, raw := range input.Keys {
				key, err := stream.ParseKey(raw)
				if err != nil {
					return ProblemDetailsJSON(c, "Invalid stream key", err)
				}
				keys = append(keys, key)
			}
			report = eng.ReconcileKeys(c.UserContext(), keys...)
		case input.Kind != "":
			var err error
			report, err = eng.ReconcileKind(c.UserContext(), input.Kind)
			if err != nil {
				return ProblemDetailsJSON(c, "Failed to reconcile kind", err)
			}
		default:
			report = eng.ReconcileAll(c.UserContext())
		}

		return SuccessResponseJSON(c, fiber.StatusOK, report.Summary(), report)
	}
}

// ReconcileStream reconciles one stream.
func ReconcileStream(eng *tally.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := streamKey(c)
		if err != nil {
			return ProblemDetailsJSON(c, "Invalid stream key", err)
		}
		report, err := eng.Reconcile(c.UserContext(), key)
		if err != nil {
			log.Errorf("Failed to reconcile %s: %v", key, err)
			return ProblemDetailsJSON(c, "Failed to reconcile stream", err)
		}
		return SuccessResponseJSON(c, fiber.StatusOK, report.Summary(), report)
	}
}

// ReplayStream replays one stream without writing.
func ReplayStream(eng *tally.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := streamKey(c)
		if err != nil {
			return ProblemDetailsJSON(c, "Invalid stream key", err)
		}
		result, err := eng.Replay(c.UserContext(), key)
		if err != nil {
			return ProblemDetailsJSON(c, "Failed to replay stream", err)
		}
		return SuccessResponseJSON(c, fiber.StatusOK, "Stream replayed", result)
	}
}

// GetBalance returns the stored balance of a stream.
func GetBalance(eng *tally.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := streamKey(c)
		if err != nil {
			return ProblemDetailsJSON(c, "Invalid stream key", err)
		}
		bal, err := eng.Balance(c.UserContext(), key)
		if err != nil {
			return ProblemDetailsJSON(c, "Failed to fetch balance", err)
		}
		return SuccessResponseJSON(c, fiber.StatusOK, "Balance fetched", BalanceResponse{Stream: key, Balance: bal})
	}
}

// ListEntries returns one page of a stream.
func ListEntries(eng *tally.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := streamKey(c)
		if err != nil {
			return ProblemDetailsJSON(c, "Invalid stream key", err)
		}
		opts := entry.ListOpts{
			Limit:  c.QueryInt("limit"),
			Offset: c.QueryInt("offset"),
		}
		if opts.Limit < 0 || opts.Offset < 0 {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid paging", "limit and offset must not be negative")
		}
		entries, err := eng.Entries(c.UserContext(), key, opts)
		if err != nil {
			return ProblemDetailsJSON(c, "Failed to list entries", err)
		}
		return SuccessResponseJSON(c, fiber.StatusOK, "Entries fetched", entries)
	}
}
