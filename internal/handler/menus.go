package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mycafe-pos/api/internal/database"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	CreateMenu(ctx context.Context, arg database.CreateMenuParams) (database.Menu, error)
	GetMenu(ctx context.Context, id uuid.UUID) (database.Menu, error)
	ListMenus(ctx context.Context, arg database.ListMenusParams) ([]database.Menu, error)
	CountMenus(ctx context.Context, arg database.CountMenusParams) (int64, error)
	UpdateMenu(ctx context.Context, arg database.UpdateMenuParams) (database.Menu, error)
	DeleteMenu(ctx context.Context, id uuid.UUID) error
}

// MenuHandler handles menu endpoints.
type MenuHandler struct {
	store MenuStore
	hub   Broadcaster
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, hub Broadcaster) *MenuHandler {
	return &MenuHandler{store: store, hub: hub}
}

// RegisterRoutes registers all menu endpoints on the given Chi router.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	h.RegisterReadRoutes(r)
	h.RegisterWriteRoutes(r)
}

// RegisterReadRoutes registers the read-only menu endpoints.
func (h *MenuHandler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterWriteRoutes registers the menu mutation endpoints.
func (h *MenuHandler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type menuRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       int64   `json:"price"`
	Discount    int64   `json:"discount"`
	Category    string  `json:"category"`
	ImageURL    *string `json:"image_url"`
	IsAvailable *bool   `json:"is_available"`
}

type menuResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       int64     `json:"price"`
	Discount    int64     `json:"discount"`
	Category    string    `json:"category"`
	ImageURL    *string   `json:"image_url"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type menuListResponse struct {
	Menus  []menuResponse `json:"menus"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func toMenuResponse(m database.Menu) menuResponse {
	return menuResponse{
		ID:          m.ID,
		Name:        m.Name,
		Description: textToPtr(m.Description),
		Price:       m.Price,
		Discount:    m.Discount,
		Category:    m.Category,
		ImageURL:    textToPtr(m.ImageURL),
		IsAvailable: m.IsAvailable,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// validateMenuRequest returns a field-level error message, or "".
func validateMenuRequest(req menuRequest) string {
	if req.Name == "" {
		return "name is required"
	}
	if req.Category == "" {
		return "category is required"
	}
	if req.Price <= 0 {
		return "price must be > 0"
	}
	if req.Discount < 0 || req.Discount > req.Price {
		return "discount must be between 0 and price"
	}
	return ""
}

// --- Handlers ---

// Create handles POST /menus.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := validateMenuRequest(req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	isAvailable := true
	if req.IsAvailable != nil {
		isAvailable = *req.IsAvailable
	}

	menu, err := h.store.CreateMenu(r.Context(), database.CreateMenuParams{
		Name:        req.Name,
		Description: ptrToText(req.Description),
		Price:       req.Price,
		Discount:    req.Discount,
		Category:    req.Category,
		ImageURL:    ptrToText(req.ImageURL),
		IsAvailable: isAvailable,
	})
	if err != nil {
		log.Printf("ERROR: create menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	notify(h.hub, "menus")
	writeJSON(w, http.StatusCreated, toMenuResponse(menu))
}

// List handles GET /menus.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	category := textFilter(r, "category")
	search := textFilter(r, "search")

	var isAvailable pgtype.Bool
	if s := r.URL.Query().Get("available"); s != "" {
		if s != "true" && s != "false" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "available must be true or false"})
			return
		}
		isAvailable = pgtype.Bool{Bool: s == "true", Valid: true}
	}

	menus, err := h.store.ListMenus(r.Context(), database.ListMenusParams{
		Category:    category,
		Search:      search,
		IsAvailable: isAvailable,
		Limit:       int32(limit),
		Offset:      int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list menus: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total, err := h.store.CountMenus(r.Context(), database.CountMenusParams{
		Category:    category,
		Search:      search,
		IsAvailable: isAvailable,
	})
	if err != nil {
		log.Printf("ERROR: count menus: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuResponse, len(menus))
	for i, m := range menus {
		resp[i] = toMenuResponse(m)
	}
	writeJSON(w, http.StatusOK, menuListResponse{Menus: resp, Total: total, Limit: limit, Offset: offset})
}

// Get handles GET /menus/{id}.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu ID"})
		return
	}

	menu, err := h.store.GetMenu(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu not found"})
			return
		}
		log.Printf("ERROR: get menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuResponse(menu))
}

// Update handles PUT /menus/{id}.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu ID"})
		return
	}

	var req menuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := validateMenuRequest(req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	isAvailable := true
	if req.IsAvailable != nil {
		isAvailable = *req.IsAvailable
	}

	menu, err := h.store.UpdateMenu(r.Context(), database.UpdateMenuParams{
		ID:          id,
		Name:        req.Name,
		Description: ptrToText(req.Description),
		Price:       req.Price,
		Discount:    req.Discount,
		Category:    req.Category,
		ImageURL:    ptrToText(req.ImageURL),
		IsAvailable: isAvailable,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu not found"})
			return
		}
		log.Printf("ERROR: update menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	notify(h.hub, "menus")
	writeJSON(w, http.StatusOK, toMenuResponse(menu))
}

// Delete handles DELETE /menus/{id}.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu ID"})
		return
	}

	if err := h.store.DeleteMenu(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu not found"})
			return
		}
		log.Printf("ERROR: delete menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	notify(h.hub, "menus")
	w.WriteHeader(http.StatusNoContent)
}
