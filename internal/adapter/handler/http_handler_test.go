package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/smart-pantry/internal/core/domain"
)

func postJSON(t *testing.T, url string, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthCheck(t *testing.T) {
	env := setupTestEnv(t)

	resp, err := http.Get(env.url("/health"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestCommand_Add(t *testing.T) {
	env := setupTestEnv(t)

	resp := postJSON(t, env.url("/api/pantry/command"), `{"text":"milk in the fridge in 3 days"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[CommandHTTPResponse](t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, "add", body.Intent)
	require.NotNil(t, body.Item)
	assert.Equal(t, "milk", body.Item.Name)
	require.NotNil(t, body.Item.Location)
	assert.Equal(t, "fridge", *body.Item.Location)
	assert.Equal(t, "2026-02-03", body.Item.ExpirationDate)
	require.NotNil(t, body.Item.DaysUntilExpiry)
	assert.Equal(t, 3, *body.Item.DaysUntilExpiry)
	assert.Equal(t, "Added 1 milk (expires 2026-02-03) in fridge.", body.Message)
}

func TestCommand_DeleteShavedSteak(t *testing.T) {
	env := setupTestEnv(t)
	seeded := env.seed(t,
		domain.AddCommand{Name: "Shaved Steak", Quantity: 1, ExpirationDate: "2026-02-04"},
		domain.AddCommand{Name: "Yogurt", Quantity: 2, ExpirationDate: "2026-02-02"},
	)

	resp := postJSON(t, env.url("/api/pantry/command"), `{"text":"delete the shaved steak"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[CommandHTTPResponse](t, resp)
	assert.Equal(t, "delete", body.Intent)
	require.NotNil(t, body.Item)
	assert.Equal(t, seeded[0].ID, body.Item.ID)
	assert.Equal(t, "Removed Shaved Steak.", body.Message)
}

func TestCommand_ClarificationResponses(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t, domain.AddCommand{Name: "Milk", Quantity: 1, ExpirationDate: "2026-02-04"})

	tests := []struct {
		text       string
		wantStatus int
		wantMsg    string
	}{
		{"chicken expires", http.StatusUnprocessableEntity, msgClarifyAdd},
		{"", http.StatusUnprocessableEntity, msgClarifyAdd},
		{"remove", http.StatusUnprocessableEntity, msgClarifyDelete},
		{"delete the caviar", http.StatusNotFound, msgNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			payload, _ := json.Marshal(CommandHTTPRequest{Text: tt.text})
			resp := postJSON(t, env.url("/api/pantry/command"), string(payload), nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body := decode[CommandHTTPResponse](t, resp)
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestCommand_IdempotencyKey(t *testing.T) {
	env := setupTestEnv(t)
	headers := map[string]string{idempotencyHeader: "abc"}

	resp := postJSON(t, env.url("/api/pantry/command"), `{"text":"3 avocados"}`, headers)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, env.url("/api/pantry/command"), `{"text":"3 avocados"}`, headers)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCommand_ClarificationKeepsKeyReusable(t *testing.T) {
	env := setupTestEnv(t)
	headers := map[string]string{idempotencyHeader: "retry-me"}

	resp := postJSON(t, env.url("/api/pantry/command"), `{"text":"chicken expires"}`, headers)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = postJSON(t, env.url("/api/pantry/command"), `{"text":"chicken expires tomorrow"}`, headers)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCommand_InvalidBody(t *testing.T) {
	env := setupTestEnv(t)

	resp := postJSON(t, env.url("/api/pantry/command"), `{`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddItem(t *testing.T) {
	env := setupTestEnv(t)

	resp := postJSON(t, env.url("/api/pantry"), `{"name":"Rice","expiration_date":"2026-09-01","location":"pantry"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[AddItemHTTPResponse](t, resp)
	assert.Equal(t, "Item added successfully", body.Message)
	assert.Equal(t, "Rice", body.Item.Name)
	assert.Equal(t, 1, body.Item.Quantity)
	assert.Equal(t, string(domain.ToneSafe), body.Item.Tone)
}

func TestAddItem_Validation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing name", `{"expiration_date":"2026-09-01"}`, msgMissingFields},
		{"empty name", `{"name":"","expiration_date":"2026-09-01"}`, msgMissingFields},
		{"missing date", `{"name":"Rice"}`, msgMissingFields},
		{"not json", `nope`, msgInvalidBody},
		{"bad date format", `{"name":"Rice","expiration_date":"Sept 1"}`, ""},
		{"impossible date", `{"name":"Rice","expiration_date":"2026-02-30"}`, ""},
		{"negative quantity", `{"name":"Rice","quantity":-2,"expiration_date":"2026-09-01"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, env.url("/api/pantry"), tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			body := decode[ErrorHTTPResponse](t, resp)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body.Error)
			} else {
				assert.NotEmpty(t, body.Error)
			}
		})
	}
}

func TestAddItem_IdempotencyKey(t *testing.T) {
	env := setupTestEnv(t)
	headers := map[string]string{idempotencyHeader: "add-1"}
	payload := `{"name":"Rice","expiration_date":"2026-09-01"}`

	assert.Equal(t, http.StatusOK, postJSON(t, env.url("/api/pantry"), payload, headers).StatusCode)
	assert.Equal(t, http.StatusConflict, postJSON(t, env.url("/api/pantry"), payload, headers).StatusCode)
}

func TestAddItem_RejectedRequestKeepsKeyReusable(t *testing.T) {
	env := setupTestEnv(t)
	headers := map[string]string{idempotencyHeader: "add-2"}

	resp := postJSON(t, env.url("/api/pantry"), `{"name":"Rice","expiration_date":"2026-02-30"}`, headers)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, env.url("/api/pantry"), `{"name":"Rice","expiration_date":"2026-02-28"}`, headers)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListItems(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t,
		domain.AddCommand{Name: "Rice", Quantity: 1, ExpirationDate: "2026-09-01"},
		domain.AddCommand{Name: "Milk", Quantity: 1, ExpirationDate: "2026-02-01"},
		domain.AddCommand{Name: "Bread", Quantity: 1, ExpirationDate: "2026-01-29"},
	)

	resp, err := http.Get(env.url("/api/pantry"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[ListHTTPResponse](t, resp)
	require.Len(t, body.Items, 3)
	assert.Equal(t, "Bread", body.Items[0].Name)
	assert.Equal(t, "Expired 2d ago", body.Items[0].Label)
	assert.Equal(t, string(domain.ToneDanger), body.Items[0].Tone)
	assert.Equal(t, "Expires tomorrow", body.Items[1].Label)
	assert.Nil(t, body.Items[1].Location)
}

func TestListItems_ExpiringAndLimit(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t,
		domain.AddCommand{Name: "Rice", Quantity: 1, ExpirationDate: "2026-09-01"},
		domain.AddCommand{Name: "Milk", Quantity: 1, ExpirationDate: "2026-02-01"},
		domain.AddCommand{Name: "Eggs", Quantity: 1, ExpirationDate: "2026-02-05"},
		domain.AddCommand{Name: "Bread", Quantity: 1, ExpirationDate: "2026-01-29"},
	)

	resp, err := http.Get(env.url("/api/pantry?expiring=7"))
	require.NoError(t, err)
	defer resp.Body.Close()
	body := decode[ListHTTPResponse](t, resp)
	require.Len(t, body.Items, 2)
	assert.Equal(t, "Milk", body.Items[0].Name)
	assert.Equal(t, "Eggs", body.Items[1].Name)

	resp2, err := http.Get(env.url("/api/pantry?limit=1"))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Len(t, decode[ListHTTPResponse](t, resp2).Items, 1)

	resp3, err := http.Get(env.url("/api/pantry?expiring=soon"))
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp3.StatusCode)
}

func TestDeleteItem(t *testing.T) {
	env := setupTestEnv(t)
	seeded := env.seed(t, domain.AddCommand{Name: "Milk", Quantity: 1, ExpirationDate: "2026-02-01"})

	del := func(id string) *http.Response {
		req, err := http.NewRequest(http.MethodDelete, env.url("/api/pantry/"+id), nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusOK, del(seeded[0].ID).StatusCode)
	assert.Equal(t, http.StatusNotFound, del(seeded[0].ID).StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	postJSON(t, env.url("/api/pantry/command"), `{"text":"3 avocados"}`, nil)

	resp, err := http.Get(env.url("/metrics"))
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "pantry_http_request_duration_seconds")
	assert.Contains(t, buf.String(), "pantry_commands_total")
}
