package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mycafe-pos/api/internal/database"
	"github.com/mycafe-pos/api/internal/enum"
	"github.com/skip2/go-qrcode"
)

// TableStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	ListTables(ctx context.Context, arg database.ListTablesParams) ([]database.Table, error)
	CountTables(ctx context.Context, arg database.CountTablesParams) (int64, error)
	UpdateTable(ctx context.Context, arg database.UpdateTableParams) (database.Table, error)
	DeleteTable(ctx context.Context, id uuid.UUID) error
}

// TableHandler handles table endpoints.
type TableHandler struct {
	store   TableStore
	hub     Broadcaster
	baseURL string
}

// NewTableHandler creates a new TableHandler. baseURL is the public URL QR
// codes point customers at.
func NewTableHandler(store TableStore, hub Broadcaster, baseURL string) *TableHandler {
	return &TableHandler{store: store, hub: hub, baseURL: baseURL}
}

// RegisterRoutes registers all table endpoints on the given Chi router.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	h.RegisterReadRoutes(r)
	h.RegisterWriteRoutes(r)
}

// RegisterReadRoutes registers the read-only table endpoints.
func (h *TableHandler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/qrcode", h.QRCode)
}

// RegisterWriteRoutes registers the table mutation endpoints.
func (h *TableHandler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type tableRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Capacity    int32   `json:"capacity"`
	Status      string  `json:"status"`
}

type tableResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Capacity    int32     `json:"capacity"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type tableListResponse struct {
	Tables []tableResponse `json:"tables"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func toTableResponse(t database.Table) tableResponse {
	return tableResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: textToPtr(t.Description),
		Capacity:    t.Capacity,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// validateTableRequest returns a field-level error message, or "".
func validateTableRequest(req tableRequest) string {
	if req.Name == "" {
		return "name is required"
	}
	if req.Capacity <= 0 {
		return "capacity must be > 0"
	}
	if req.Status != "" && !enum.IsTableStatus(req.Status) {
		return "invalid status"
	}
	return ""
}

// --- Handlers ---

// Create handles POST /tables.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := validateTableRequest(req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	status := req.Status
	if status == "" {
		status = enum.TableStatusAvailable
	}

	table, err := h.store.CreateTable(r.Context(), database.CreateTableParams{
		Name:        req.Name,
		Description: ptrToText(req.Description),
		Capacity:    req.Capacity,
		Status:      status,
	})
	if err != nil {
		log.Printf("ERROR: create table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	notify(h.hub, "tables")
	writeJSON(w, http.StatusCreated, toTableResponse(table))
}

// List handles GET /tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	status := textFilter(r, "status")
	if status.Valid && !enum.IsTableStatus(status.String) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}
	search := textFilter(r, "search")

	tables, err := h.store.ListTables(r.Context(), database.ListTablesParams{
		Status: status,
		Search: search,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total, err := h.store.CountTables(r.Context(), database.CountTablesParams{Status: status, Search: search})
	if err != nil {
		log.Printf("ERROR: count tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = toTableResponse(t)
	}
	writeJSON(w, http.StatusOK, tableListResponse{Tables: resp, Total: total, Limit: limit, Offset: offset})
}

// Get handles GET /tables/{id}.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	table, err := h.store.GetTable(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// QRCode handles GET /tables/{id}/qrcode. Returns a PNG linking customers
// to the ordering page for this table.
func (h *TableHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	table, err := h.store.GetTable(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	size := 256
	if s := r.URL.Query().Get("size"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 64 && v <= 1024 {
			size = v
		}
	}

	png, err := qrcode.Encode(h.baseURL+"/order?table="+table.ID.String(), qrcode.Medium, size)
	if err != nil {
		log.Printf("ERROR: encode qrcode: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Update handles PUT /tables/{id}. Status edits here are the management
// override path; they bypass any order's claim on the table.
func (h *TableHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	var req tableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if msg := validateTableRequest(req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	table, err := h.store.UpdateTable(r.Context(), database.UpdateTableParams{
		ID:          id,
		Name:        req.Name,
		Description: ptrToText(req.Description),
		Capacity:    req.Capacity,
		Status:      req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: update table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	notify(h.hub, "tables")
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Delete handles DELETE /tables/{id}.
func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	if err := h.store.DeleteTable(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: delete table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	notify(h.hub, "tables")
	w.WriteHeader(http.StatusNoContent)
}
