package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/musicclub/apiserver/internal/services"
	"github.com/musicclub/apiserver/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// legacyFinanceTypes maps the localized labels older clients send.
var legacyFinanceTypes = map[string]types.FinanceType{
	"รายรับ":  types.FinanceIncome,
	"รายจ่าย": types.FinanceExpense,
}

type FinanceHandler struct {
	financeService *services.FinanceService
	logger         *zap.Logger
}

func NewFinanceHandler(financeService *services.FinanceService, logger *zap.Logger) *FinanceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinanceHandler{financeService: financeService, logger: logger}
}

func FinanceRouter(r chi.Router, financeService *services.FinanceService, gate *Gate, logger *zap.Logger) {
	handler := NewFinanceHandler(financeService, logger)

	authed := gate.RequireAuth()
	staff := gate.RequireAdminOrCommittee()

	r.With(authed).Get("/summary/monthly/{year}", handler.MonthlySummary)
	r.With(authed).Get("/", handler.ListFinances)
	r.With(staff).Post("/", handler.CreateFinance)
	r.With(staff).Post("/add", handler.CreateFinance)
	r.Route("/{financeID}", func(r chi.Router) {
		r.With(authed).Get("/", handler.GetFinance)
		r.With(staff).Put("/", handler.UpdateFinance)
		r.With(staff).Delete("/", handler.DeleteFinance)
	})
}

func (h *FinanceHandler) ListFinances(w http.ResponseWriter, r *http.Request) {
	finances, err := h.financeService.List(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, FinanceListResponse{Finances: finances, Total: len(finances)})
}

func (h *FinanceHandler) GetFinance(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "financeID")
	if err != nil {
		badRequest(w, err)
		return
	}

	finance, err := h.financeService.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, FinanceResponse{Finance: finance})
}

func (h *FinanceHandler) CreateFinance(w http.ResponseWriter, r *http.Request) {
	var req CreateFinanceRequest
	if !bind(w, r, &req) {
		return
	}
	if req.Amount == nil {
		badRequest(w, errors.New("amount is required"))
		return
	}

	id, err := h.financeService.Create(r.Context(), types.Finance{
		Type:        parseFinanceType(req.Type),
		Category:    req.Category,
		Amount:      *req.Amount,
		Date:        req.Date,
		Description: req.Description,
		Attachment:  req.Attachment,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{Message: "finance entry added", ID: id})
}

// UpdateFinance applies only the fields present in the body.
func (h *FinanceHandler) UpdateFinance(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "financeID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var req UpdateFinanceRequest
	if !bind(w, r, &req) {
		return
	}

	patch := types.FinancePatch{
		Category:    req.Category,
		Amount:      req.Amount,
		Date:        req.Date,
		Description: req.Description,
		Attachment:  req.Attachment,
	}
	if req.Type != nil {
		t := parseFinanceType(*req.Type)
		patch.Type = &t
	}

	if err := h.financeService.Update(r.Context(), id, patch); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "finance entry updated")
}

func (h *FinanceHandler) DeleteFinance(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "financeID")
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := h.financeService.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "finance entry deleted")
}

// MonthlySummary totals income and expense per month of the given year.
func (h *FinanceHandler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		badRequest(w, errors.New("invalid year"))
		return
	}

	summary, err := h.financeService.MonthlySummary(r.Context(), year)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MonthlySummaryResponse{Year: year, Summary: summary})
}

func parseFinanceType(raw string) types.FinanceType {
	raw = strings.TrimSpace(raw)
	if t, ok := legacyFinanceTypes[raw]; ok {
		return t
	}
	return types.FinanceType(strings.ToLower(raw))
}

// CreateFinanceRequest accepts amount as a JSON number or numeric string.
type CreateFinanceRequest struct {
	Type        string           `json:"type" validate:"required"`
	Category    string           `json:"category" validate:"required"`
	Amount      *decimal.Decimal `json:"amount"`
	Date        string           `json:"date" validate:"required"`
	Description *string          `json:"description"`
	Attachment  *string          `json:"attachment"`
}

type UpdateFinanceRequest struct {
	Type        *string          `json:"type"`
	Category    *string          `json:"category"`
	Amount      *decimal.Decimal `json:"amount"`
	Date        *string          `json:"date"`
	Description *string          `json:"description"`
	Attachment  *string          `json:"attachment"`
}

type FinanceListResponse struct {
	Finances []types.Finance `json:"finances"`
	Total    int             `json:"total"`
}

type FinanceResponse struct {
	Finance types.Finance `json:"finance"`
}

type MonthlySummaryResponse struct {
	Year    int                    `json:"year"`
	Summary []types.MonthlySummary `json:"summary"`
}

// CreatedResponse reports the id of a new record.
type CreatedResponse struct {
	Message string `json:"message"`
	ID      int    `json:"id"`
}
