package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rl1809/smart-pantry/internal/core/domain"
	"github.com/rl1809/smart-pantry/internal/core/interpreter"
	"github.com/rl1809/smart-pantry/internal/core/service"
	"github.com/rl1809/smart-pantry/internal/logger"
)

const (
	assistantListLimit = 10
	expiringSoonDays   = 3
)

// AssistantHandler fulfils voice assistant webhooks. Every outcome, including
// failures, is answered with HTTP 200 and a spoken prompt.
type AssistantHandler struct {
	pantryService *service.PantryService
	log           logger.Logger
}

type AssistantRequest struct {
	Handler *struct {
		Name string `json:"name"`
	} `json:"handler"`
	Intent *struct {
		Name string `json:"name"`
	} `json:"intent"`
	Session *struct {
		ID     string                 `json:"id"`
		Params map[string]interface{} `json:"params"`
	} `json:"session"`
}

type Simple struct {
	Speech string `json:"speech"`
	Text   string `json:"text"`
}

type Suggestion struct {
	Title string `json:"title"`
}

type Prompt struct {
	FirstSimple Simple       `json:"firstSimple"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

type Canvas struct {
	State bool                   `json:"state"`
	JSON  map[string]interface{} `json:"json"`
}

type AssistantResponse struct {
	Prompt Prompt  `json:"prompt"`
	Canvas *Canvas `json:"canvas,omitempty"`
}

type canvasItem struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Quantity        int     `json:"quantity"`
	ExpirationDate  string  `json:"expiration_date"`
	Location        *string `json:"location"`
	CreatedAt       string  `json:"created_at,omitempty"`
	DaysUntilExpiry *int    `json:"daysUntilExpiry"`
}

func NewAssistantHandler(pantryService *service.PantryService, log logger.Logger) *AssistantHandler {
	return &AssistantHandler{pantryService: pantryService, log: log}
}

func (h *AssistantHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	var req AssistantRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.log.Warn("assistant request rejected", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusOK, simpleResponse(
			"Sorry, something went wrong with Smart Pantry.",
			"Sorry, something went wrong. Try again.",
		))
		return
	}

	name := "unknown"
	switch {
	case req.Handler != nil && req.Handler.Name != "":
		name = req.Handler.Name
	case req.Intent != nil && req.Intent.Name != "":
		name = req.Intent.Name
	}

	params := map[string]interface{}{}
	if req.Session != nil && req.Session.Params != nil {
		params = req.Session.Params
	}

	h.log.Debug("assistant request", map[string]interface{}{"handler": name, "params": params})

	var resp AssistantResponse
	switch name {
	case "list_pantry", "ListPantryFulfillment":
		resp = h.listPantry(r)
	case "add_item", "AddItemFulfillment":
		resp = h.addItem(r, params)
	case "remove_item", "RemoveItemFulfillment":
		resp = h.removeItem(r, params)
	default:
		resp = welcome()
	}
	writeJSON(w, http.StatusOK, resp)
}

func welcome() AssistantResponse {
	return AssistantResponse{Prompt: Prompt{
		FirstSimple: Simple{
			Speech: "Welcome to Smart Pantry! You can ask me what's in your pantry, add items, or remove them. What would you like to do?",
			Text:   "Smart Pantry - Ask me what's in your pantry, add items, or remove them.",
		},
		Suggestions: []Suggestion{
			{Title: "What's in my pantry?"},
			{Title: "Add item"},
			{Title: "Remove item"},
		},
	}}
}

func (h *AssistantHandler) listPantry(r *http.Request) AssistantResponse {
	items, err := h.pantryService.ListItems(r.Context(), domain.ListFilter{Limit: assistantListLimit})
	if err != nil {
		h.log.Error("assistant list failed", map[string]interface{}{"error": err.Error()})
		return simpleResponse("Sorry, I couldn't access your pantry right now.", "Error accessing pantry.")
	}
	if len(items) == 0 {
		return simpleResponse("Your pantry is empty! Add some items to get started.", "Your pantry is empty.")
	}

	today := h.pantryService.Today()
	spoken := make([]string, 0, len(items))
	var expiring []string
	canvasItems := make([]canvasItem, 0, len(items))

	for _, it := range items {
		spoken = append(spoken, fmt.Sprintf("%d %s", it.Quantity, it.Name))

		ci := canvasItem{
			ID:             it.ID,
			Name:           it.Name,
			Quantity:       it.Quantity,
			ExpirationDate: it.ExpirationDate,
		}
		if it.Location != "" {
			loc := it.Location
			ci.Location = &loc
		}
		if !it.CreatedAt.IsZero() {
			ci.CreatedAt = it.CreatedAt.UTC().Format(time.RFC3339)
		}
		if days, err := domain.DaysUntil(it.ExpirationDate, today); err == nil {
			ci.DaysUntilExpiry = &days
			if days <= expiringSoonDays {
				expiring = append(expiring, it.Name)
			}
		}
		canvasItems = append(canvasItems, ci)
	}

	speech := fmt.Sprintf("You have %d items in your pantry: %s.", len(items), strings.Join(spoken, ", "))
	if len(expiring) > 0 {
		speech += fmt.Sprintf(" Warning: %s are expiring soon!", strings.Join(expiring, ", "))
	}

	return AssistantResponse{
		Prompt: Prompt{
			FirstSimple: Simple{
				Speech: speech,
				Text:   fmt.Sprintf("You have %d items.", len(items)),
			},
			Suggestions: []Suggestion{
				{Title: "What's expiring soon?"},
				{Title: "Add item"},
			},
		},
		Canvas: &Canvas{
			State: true,
			JSON:  map[string]interface{}{"items": canvasItems},
		},
	}
}

func (h *AssistantHandler) addItem(r *http.Request, params map[string]interface{}) AssistantResponse {
	name := firstString(params, "item_name", "name")
	if name == "" {
		return simpleResponse("What item would you like to add?", "What item would you like to add?")
	}

	quantity := paramInt(params["quantity"])
	days := paramInt(params["days"])
	if days <= 0 {
		days = h.pantryService.ShelfLifeDays()
	}
	expiration := paramDate(params["expiration_date"])
	if expiration == "" {
		expiration = paramDate(params["expiry"])
	}

	cmd := domain.NewAddCommand(name, quantity, expiration, days, firstString(params, "location"), h.pantryService.Today())
	item, err := h.pantryService.AddItem(r.Context(), cmd, domain.SourceAssistant)
	if err != nil {
		h.log.Warn("assistant add failed", map[string]interface{}{"error": err.Error(), "name": name})
		return simpleResponse("Sorry, I couldn't add that item. Please try again.", "Failed to add item.")
	}

	return simpleResponse(
		fmt.Sprintf("Added %d %s to your pantry. It'll expire on %s.", item.Quantity, item.Name, item.ExpirationDate),
		fmt.Sprintf("Added %s.", item.Name),
	)
}

func (h *AssistantHandler) removeItem(r *http.Request, params map[string]interface{}) AssistantResponse {
	name := firstString(params, "item_name", "name")
	if name == "" {
		return simpleResponse("Which item would you like to remove?", "Which item?")
	}

	item, err := h.pantryService.RemoveByName(r.Context(), name, domain.SourceAssistant)
	switch {
	case errors.Is(err, interpreter.ErrDeleteNotFound), errors.Is(err, service.ErrItemNotFound):
		return simpleResponse(
			fmt.Sprintf("I couldn't find %s in your pantry.", name),
			fmt.Sprintf("Can't find %s.", name),
		)
	case err != nil:
		h.log.Warn("assistant remove failed", map[string]interface{}{"error": err.Error(), "name": name})
		return simpleResponse("Sorry, I couldn't remove that item.", "Failed to remove item.")
	}

	return simpleResponse(
		fmt.Sprintf("Removed %s from your pantry.", item.Name),
		fmt.Sprintf("Removed %s.", item.Name),
	)
}

func simpleResponse(speech, text string) AssistantResponse {
	return AssistantResponse{Prompt: Prompt{FirstSimple: Simple{Speech: speech, Text: text}}}
}

func firstString(params map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := params[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// paramInt reads a slot value that may arrive as a JSON number or a numeric
// string. Anything else yields 0.
func paramInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return i
	}
	return 0
}

// paramDate accepts "YYYY-MM-DD", an ISO timestamp, or a {year, month, day}
// slot object.
func paramDate(v interface{}) string {
	switch d := v.(type) {
	case string:
		d = strings.TrimSpace(d)
		if len(d) > len(domain.DateLayout) && d[len(domain.DateLayout)] == 'T' {
			d = d[:len(domain.DateLayout)]
		}
		return d
	case map[string]interface{}:
		y, m, day := paramInt(d["year"]), paramInt(d["month"]), paramInt(d["day"])
		if y == 0 || m == 0 || day == 0 {
			return ""
		}
		return fmt.Sprintf("%04d-%02d-%02d", y, m, day)
	}
	return ""
}
