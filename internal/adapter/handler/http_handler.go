package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/rl1809/smart-pantry/internal/core/domain"
	"github.com/rl1809/smart-pantry/internal/core/interpreter"
	"github.com/rl1809/smart-pantry/internal/core/service"
	"github.com/rl1809/smart-pantry/internal/logger"
)

const (
	msgClarifyAdd    = "I couldn't quite understand that. Try including the item and when it expires."
	msgClarifyDelete = `Tell me which item to delete, e.g. "delete the shaved steak".`
	msgNotFound      = "I couldn't find an item that matches that description to delete."
	msgDuplicate     = "duplicate request"
	msgMissingFields = "Missing required fields: name, expiration_date"
	msgInvalidBody   = "Invalid request body"
	msgInternal      = "Internal server error"

	idempotencyHeader = "Idempotency-Key"
	maxBodyBytes      = 1 << 20
)

var addItemSchema = gojsonschema.NewStringLoader(`{
	"type": "object",
	"required": ["name", "expiration_date"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"quantity": {"type": ["integer", "null"], "minimum": 0},
		"expiration_date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
		"location": {"type": ["string", "null"]}
	}
}`)

type HTTPHandler struct {
	pantryService *service.PantryService
	log           logger.Logger
}

type ItemResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Quantity        int     `json:"quantity"`
	ExpirationDate  string  `json:"expiration_date"`
	Location        *string `json:"location"`
	CreatedAt       string  `json:"created_at"`
	DaysUntilExpiry *int    `json:"days_until_expiry"`
	Label           string  `json:"label"`
	Tone            string  `json:"tone"`
}

type ListHTTPResponse struct {
	Items []ItemResponse `json:"items"`
}

type AddItemHTTPRequest struct {
	Name           string  `json:"name"`
	Quantity       *int    `json:"quantity"`
	ExpirationDate string  `json:"expiration_date"`
	Location       *string `json:"location"`
}

type AddItemHTTPResponse struct {
	Item    ItemResponse `json:"item"`
	Message string       `json:"message"`
}

type CommandHTTPRequest struct {
	Text      string `json:"text"`
	RequestID string `json:"request_id"`
}

type CommandHTTPResponse struct {
	Success bool          `json:"success"`
	Intent  string        `json:"intent,omitempty"`
	Message string        `json:"message"`
	Item    *ItemResponse `json:"item,omitempty"`
}

type ErrorHTTPResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(pantryService *service.PantryService, log logger.Logger) *HTTPHandler {
	return &HTTPHandler{pantryService: pantryService, log: log}
}

// ListItems serves GET /api/pantry?expiring=N&limit=M.
func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	filter := domain.ListFilter{Limit: domain.DefaultListLimit}

	q := r.URL.Query()
	if raw := q.Get("expiring"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: "invalid expiring parameter"})
			return
		}
		filter.ExpiringWithinDays = &days
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: "invalid limit parameter"})
			return
		}
		filter.Limit = limit
	}

	items, err := h.pantryService.ListItems(r.Context(), filter)
	if err != nil {
		h.log.Error("list items failed", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, ErrorHTTPResponse{Error: msgInternal})
		return
	}

	today := h.pantryService.Today()
	out := ListHTTPResponse{Items: make([]ItemResponse, 0, len(items))}
	for _, it := range items {
		out.Items = append(out.Items, toItemResponse(it, today))
	}
	writeJSON(w, http.StatusOK, out)
}

// AddItem serves POST /api/pantry with an already structured item.
func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: msgInvalidBody})
		return
	}

	if msg := validateAddItem(body); msg != "" {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: msg})
		return
	}

	var req AddItemHTTPRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: msgInvalidBody})
		return
	}

	key := itemKey(r)
	if err := h.pantryService.ReserveRequest(r.Context(), key); err != nil {
		h.writeServiceError(w, err)
		return
	}

	cmd := domain.AddCommand{
		Name:           req.Name,
		Quantity:       domain.DefaultQuantity,
		ExpirationDate: req.ExpirationDate,
	}
	if req.Quantity != nil && *req.Quantity > 0 {
		cmd.Quantity = *req.Quantity
	}
	if req.Location != nil {
		cmd.Location = *req.Location
	}

	item, err := h.pantryService.AddItem(r.Context(), cmd, domain.SourceAPI)
	if err != nil {
		h.pantryService.ReleaseRequest(r.Context(), key)
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AddItemHTTPResponse{
		Item:    toItemResponse(item, h.pantryService.Today()),
		Message: "Item added successfully",
	})
}

// DeleteItem serves DELETE /api/pantry/{id}.
func (h *HTTPHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: "missing item id"})
		return
	}

	item, err := h.pantryService.DeleteItem(r.Context(), id, domain.SourceAPI)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := toItemResponse(item, h.pantryService.Today())
	writeJSON(w, http.StatusOK, CommandHTTPResponse{
		Success: true,
		Intent:  string(interpreter.IntentDelete),
		Message: fmt.Sprintf("Removed %s.", item.Name),
		Item:    &resp,
	})
}

// Command serves POST /api/pantry/command, the free-text entry point.
func (h *HTTPHandler) Command(w http.ResponseWriter, r *http.Request) {
	var req CommandHTTPRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, CommandHTTPResponse{
			Success: false,
			Message: msgInvalidBody,
		})
		return
	}

	requestID := r.Header.Get(idempotencyHeader)
	if requestID == "" {
		requestID = req.RequestID
	}

	res, err := h.pantryService.ExecuteCommand(r.Context(), req.Text, requestID)
	if err != nil {
		status, message := commandErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error("command failed", map[string]interface{}{"error": err.Error()})
		}
		writeJSON(w, status, CommandHTTPResponse{
			Success: false,
			Intent:  string(res.Intent),
			Message: message,
		})
		return
	}

	item := toItemResponse(res.Item, h.pantryService.Today())
	writeJSON(w, http.StatusOK, CommandHTTPResponse{
		Success: true,
		Intent:  string(res.Intent),
		Message: commandMessage(res),
		Item:    &item,
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrDuplicateRequest):
		writeJSON(w, http.StatusConflict, ErrorHTTPResponse{Error: msgDuplicate})
	case errors.Is(err, service.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, ErrorHTTPResponse{Error: msgNotFound})
	case errors.Is(err, service.ErrInvalidItem):
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Error: err.Error()})
	default:
		h.log.Error("request failed", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, ErrorHTTPResponse{Error: msgInternal})
	}
}

func commandErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, interpreter.ErrAmbiguousExpiry), errors.Is(err, interpreter.ErrEmptyUtterance):
		return http.StatusUnprocessableEntity, msgClarifyAdd
	case errors.Is(err, interpreter.ErrEmptyDeletePhrase):
		return http.StatusUnprocessableEntity, msgClarifyDelete
	case errors.Is(err, interpreter.ErrDeleteNotFound), errors.Is(err, service.ErrItemNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict, msgDuplicate
	case errors.Is(err, service.ErrInvalidItem):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, msgInternal
}

func commandMessage(res service.CommandResult) string {
	if res.Intent == interpreter.IntentDelete {
		return fmt.Sprintf("Removed %s.", res.Item.Name)
	}
	msg := fmt.Sprintf("Added %d %s (expires %s)", res.Item.Quantity, res.Item.Name, res.Item.ExpirationDate)
	if res.Item.Location != "" {
		msg += " in " + res.Item.Location
	}
	return msg + "."
}

// validateAddItem returns a user facing message when body does not match the
// add item schema, or "" when it does.
func validateAddItem(body []byte) string {
	result, err := gojsonschema.Validate(addItemSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return msgInvalidBody
	}
	if result.Valid() {
		return ""
	}

	details := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		if e.Type() == "required" || (e.Field() == "name" && e.Type() == "string_gte") {
			return msgMissingFields
		}
		details = append(details, e.String())
	}
	return strings.Join(details, "; ")
}

func itemKey(r *http.Request) string {
	key := r.Header.Get(idempotencyHeader)
	if key == "" {
		return ""
	}
	return "item:" + key
}

func toItemResponse(item domain.PantryItem, today time.Time) ItemResponse {
	meta := domain.ExpirationStatus(item.ExpirationDate, today)
	resp := ItemResponse{
		ID:             item.ID,
		Name:           item.Name,
		Quantity:       item.Quantity,
		ExpirationDate: item.ExpirationDate,
		Label:          meta.Label,
		Tone:           string(meta.Tone),
	}
	if item.Location != "" {
		loc := item.Location
		resp.Location = &loc
	}
	if !item.CreatedAt.IsZero() {
		resp.CreatedAt = item.CreatedAt.UTC().Format(time.RFC3339)
	}
	if days, err := domain.DaysUntil(item.ExpirationDate, today); err == nil {
		resp.DaysUntilExpiry = &days
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
