package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/xraph/tally"
	"github.com/xraph/tally/id"
)

// RecordEntry records an entry. A backdated entry is answered with the
// reconcile report of its stream.
func RecordEntry(eng *tally.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := BindAndValidate[EntryRequest](c)
		if input == nil {
			return err // error response already written
		}
		en, err := input.toEntry()
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid quantity", err.Error())
		}

		en, report, err := eng.Record(c.UserContext(), en)
		if err != nil {
			if en != nil {
				log.Warnf("Entry %s stored but stream not reconciled: %v", en.ID, err)
			}
			return ProblemDetailsJSON(c, "Failed to record entry", err)
		}
		return SuccessResponseJSON(c, fiber.StatusCreated, "Entry recorded", RecordResponse{Entry: en, Report: report})
	}
}

// GetEntry fetches an entry by ID.
func GetEntry(eng *tally.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entryID, err := id.ParseEntryID(c.Params("id"))
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid entry ID", err.Error())
		}
		en, err := eng.Get(c.UserContext(), entryID)
		if err != nil {
			return ProblemDetailsJSON(c, "Failed to fetch entry", err)
		}
		return SuccessResponseJSON(c, fiber.StatusOK, "Entry fetched", en)
	}
}

// UpdateEntry edits an entry and reconciles the streams it touches.
func UpdateEntry(eng *tally.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entryID, err := id.ParseEntryID(c.Params("id"))
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid entry ID", err.Error())
		}
		input, err := BindAndValidate[EntryRequest](c)
		if input == nil {
			return err // error response already written
		}
		en, err := input.toEntry()
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid quantity", err.Error())
		}
		en.ID = entryID

		report, err := eng.Update(c.UserContext(), en)
		if err != nil {
			return ProblemDetailsJSON(c, "Failed to update entry", err)
		}
		return SuccessResponseJSON(c, fiber.StatusOK, report.Summary(), UpdateResponse{Entry: en, Report: report})
	}
}

// DeleteEntry removes an entry and reconciles its stream.
func DeleteEntry(eng *tally.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entryID, err := id.ParseEntryID(c.Params("id"))
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid entry ID", err.Error())
		}
		report, err := eng.Delete(c.UserContext(), entryID)
		if err != nil {
			if errors.Is(err, tally.ErrFetchFailed) {
				log.Warnf("Entry %s deleted but stream not reconciled: %v", entryID, err)
			}
			return ProblemDetailsJSON(c, "Failed to delete entry", err)
		}
		return SuccessResponseJSON(c, fiber.StatusOK, report.Summary(), report)
	}
}
