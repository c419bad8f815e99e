package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/tally"
	"github.com/xraph/tally/api"
	"github.com/xraph/tally/store/memory"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupApp(t *testing.T) (*fiber.App, *tally.Engine) {
	t.Helper()

	eng := tally.New(memory.New(), tally.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, eng.Start(context.Background()))
	t.Cleanup(func() { _ = eng.Stop() })

	return api.NewApp(eng), eng
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func record(t *testing.T, app *fiber.App, day, qty string) string {
	t.Helper()

	body := `{"kind":"stock","attributes":{"category":"widgets"},"quantity":"` + qty +
		`","occurred_at":"2024-01-` + day + `T00:00:00Z"}`
	status, resp := doRequest(t, app, fiber.MethodPost, "/entries", body)
	require.Equal(t, fiber.StatusCreated, status, string(resp))

	out := decode[struct {
		Entry struct {
			ID string `json:"id"`
		} `json:"entry"`
	}](t, resp)
	return out.Entry.ID
}

func TestRecordAndBalance(t *testing.T) {
	app, _ := setupApp(t)

	record(t, app, "01", "10")
	record(t, app, "02", "5")

	status, body := doRequest(t, app, fiber.MethodGet, "/streams/stock:widgets/balance", "")
	require.Equal(t, fiber.StatusOK, status, string(body))

	out := decode[struct {
		Stream  string `json:"stream"`
		Balance string `json:"balance"`
	}](t, body)
	assert.Equal(t, "stock:widgets", out.Stream)
	assert.Equal(t, "15", out.Balance)
}

func TestRecordBackdatedReturnsReport(t *testing.T) {
	app, _ := setupApp(t)

	record(t, app, "02", "10")
	record(t, app, "03", "5")

	body := `{"kind":"stock","attributes":{"category":"widgets"},"quantity":"-3","occurred_at":"2024-01-01T00:00:00Z"}`
	status, resp := doRequest(t, app, fiber.MethodPost, "/entries", body)
	require.Equal(t, fiber.StatusCreated, status, string(resp))

	out := decode[struct {
		Report struct {
			Status  string `json:"status"`
			Updated int    `json:"updated"`
		} `json:"report"`
	}](t, resp)
	assert.Equal(t, "updated", out.Report.Status)
	assert.Equal(t, 2, out.Report.Updated)
}

func TestRecordValidation(t *testing.T) {
	app, _ := setupApp(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"kind":`, fiber.StatusBadRequest},
		{"missing quantity", `{"kind":"stock","attributes":{"category":"a"},"occurred_at":"2024-01-01T00:00:00Z"}`, fiber.StatusBadRequest},
		{"non-numeric quantity", `{"kind":"stock","attributes":{"category":"a"},"quantity":"ten","occurred_at":"2024-01-01T00:00:00Z"}`, fiber.StatusBadRequest},
		{"unknown kind", `{"kind":"payroll","attributes":{},"quantity":"1","occurred_at":"2024-01-01T00:00:00Z"}`, fiber.StatusBadRequest},
		{"missing partition field", `{"kind":"stock","attributes":{},"quantity":"1","occurred_at":"2024-01-01T00:00:00Z"}`, fiber.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, app, fiber.MethodPost, "/entries", tt.body)
			assert.Equal(t, tt.status, status, string(body))

			var pd api.ProblemDetails
			require.NoError(t, json.Unmarshal(body, &pd))
			assert.Equal(t, tt.status, pd.Status)
			assert.NotEmpty(t, pd.Title)
		})
	}
}

func TestReconcileStream(t *testing.T) {
	app, _ := setupApp(t)

	record(t, app, "01", "10")

	status, body := doRequest(t, app, fiber.MethodPost, "/streams/stock:widgets/reconcile", "")
	require.Equal(t, fiber.StatusOK, status, string(body))

	out := decode[struct {
		Status   string `json:"status"`
		Examined int    `json:"examined"`
	}](t, body)
	assert.Equal(t, "consistent", out.Status)
	assert.Equal(t, 1, out.Examined)
}

func TestReconcileMany(t *testing.T) {
	app, _ := setupApp(t)

	record(t, app, "01", "10")

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"all", "", fiber.StatusOK},
		{"kind", `{"kind":"stock"}`, fiber.StatusOK},
		{"keys", `{"keys":["stock:widgets"]}`, fiber.StatusOK},
		{"unknown kind", `{"kind":"payroll"}`, fiber.StatusBadRequest},
		{"bad key", `{"keys":["nokind"]}`, fiber.StatusBadRequest},
		{"keys and kind", `{"keys":["stock:widgets"],"kind":"stock"}`, fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, app, fiber.MethodPost, "/streams/reconcile", tt.body)
			assert.Equal(t, tt.status, status, string(body))
		})
	}
}

func TestReplayUnknownStream(t *testing.T) {
	app, _ := setupApp(t)

	status, body := doRequest(t, app, fiber.MethodGet, "/streams/payroll:x/replay", "")
	assert.Equal(t, fiber.StatusBadRequest, status, string(body))
}

func TestListStreamsAndEntries(t *testing.T) {
	app, _ := setupApp(t)

	record(t, app, "01", "10")
	record(t, app, "02", "5")

	status, body := doRequest(t, app, fiber.MethodGet, "/streams?kind=stock", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []string{"stock:widgets"}, decode[[]string](t, body))

	status, body = doRequest(t, app, fiber.MethodGet, "/streams/stock:widgets/entries?limit=1&offset=1", "")
	require.Equal(t, fiber.StatusOK, status)
	entries := decode[[]struct {
		RunningBalance string `json:"running_balance"`
	}](t, body)
	require.Len(t, entries, 1)
	assert.Equal(t, "15", entries[0].RunningBalance)
}

func TestEntryLifecycle(t *testing.T) {
	app, _ := setupApp(t)

	first := record(t, app, "01", "10")
	record(t, app, "02", "5")

	status, _ := doRequest(t, app, fiber.MethodGet, "/entries/"+first, "")
	assert.Equal(t, fiber.StatusOK, status)

	body := `{"kind":"stock","attributes":{"category":"widgets"},"quantity":"20","occurred_at":"2024-01-01T00:00:00Z"}`
	status, resp := doRequest(t, app, fiber.MethodPut, "/entries/"+first, body)
	require.Equal(t, fiber.StatusOK, status, string(resp))

	status, resp = doRequest(t, app, fiber.MethodGet, "/streams/stock:widgets/balance", "")
	require.Equal(t, fiber.StatusOK, status)
	bal := decode[struct {
		Balance string `json:"balance"`
	}](t, resp)
	assert.Equal(t, "25", bal.Balance)

	status, _ = doRequest(t, app, fiber.MethodDelete, "/entries/"+first, "")
	require.Equal(t, fiber.StatusOK, status)

	status, _ = doRequest(t, app, fiber.MethodGet, "/entries/"+first, "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doRequest(t, app, fiber.MethodGet, "/entries/not-an-id", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHealth(t *testing.T) {
	app, eng := setupApp(t)

	status, _ := doRequest(t, app, fiber.MethodGet, "/healthz", "")
	assert.Equal(t, fiber.StatusNoContent, status)

	require.NoError(t, eng.Store().Close())
	status, _ = doRequest(t, app, fiber.MethodGet, "/healthz", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
}
