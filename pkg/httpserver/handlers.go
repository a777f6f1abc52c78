package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/aaronwins356/voltrader/internal/audit"
	"github.com/aaronwins356/voltrader/internal/engine"
	"github.com/aaronwins356/voltrader/pkg/types"
	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

type apiHandler struct {
	engine   *engine.Engine
	recorder *audit.Recorder
	logger   *zap.Logger
}

func newAPIHandler(eng *engine.Engine, recorder *audit.Recorder, logger *zap.Logger) *apiHandler {
	return &apiHandler{
		engine:   eng,
		recorder: recorder,
		logger:   logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *apiHandler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("response-encode-failed", zap.Error(err))
	}
}

func (h *apiHandler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *apiHandler) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.GetConfig())
}

func (h *apiHandler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg types.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	applied, err := h.engine.UpdateConfig(cfg)
	if err != nil {
		var invalid *types.ConfigValidationError
		if errors.As(err, &invalid) {
			h.writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, applied)
}

func (h *apiHandler) handleStart(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Start())
}

func (h *apiHandler) handleStop(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Stop())
}

func (h *apiHandler) handleKill(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Kill(r.Context()))
}

func (h *apiHandler) handleClearKill(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.ClearKill())
}

type modeRequest struct {
	Mode    types.TradingMode `json:"mode"`
	Confirm string            `json:"confirm"`
}

type modeResponse struct {
	Mode  types.TradingMode `json:"mode"`
	Error string            `json:"error,omitempty"`
}

func (h *apiHandler) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	mode, err := h.engine.SetMode(req.Mode, req.Confirm)
	if err != nil {
		// Fail-closed result still reported so the client knows the
		// effective mode.
		h.writeJSON(w, http.StatusForbidden, modeResponse{Mode: mode, Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, modeResponse{Mode: mode})
}

type dryRunResponse struct {
	Scan      types.ScanSnapshot `json:"scan"`
	Decisions []dryRunDecision   `json:"decisions"`
}

type dryRunDecision struct {
	Action    types.ReasonCode `json:"action"`
	Side      types.Side       `json:"side,omitempty"`
	Price     float64          `json:"price,omitempty"`
	Quantity  int              `json:"quantity,omitempty"`
	Rationale string           `json:"rationale"`
}

func (h *apiHandler) handleDryRun(w http.ResponseWriter, r *http.Request) {
	scan, decisions := h.engine.DryRun(r.Context())
	out := dryRunResponse{Scan: scan, Decisions: make([]dryRunDecision, 0, len(decisions))}
	for _, d := range decisions {
		out.Decisions = append(out.Decisions, dryRunDecision{
			Action:    d.Action,
			Side:      d.Side,
			Price:     d.Price,
			Quantity:  d.Quantity,
			Rationale: d.Rationale,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *apiHandler) handleResetEvent(w http.ResponseWriter, _ *http.Request) {
	h.engine.ResetEvent()
	h.writeJSON(w, http.StatusOK, h.engine.Status())
}

func (h *apiHandler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Status())
}

func (h *apiHandler) handleScan(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Scan())
}

func (h *apiHandler) handleAccount(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Account(r.Context()))
}

func (h *apiHandler) handleActivity(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Activity())
}

func (h *apiHandler) handlePositions(w http.ResponseWriter, r *http.Request) {
	includeClosed := r.URL.Query().Get("include_closed") == "true"
	h.writeJSON(w, http.StatusOK, h.engine.Positions(includeClosed))
}

func (h *apiHandler) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")

	pos, err := h.engine.ManualClose(r.Context(), marketID)
	if err != nil {
		h.writeError(w, http.StatusConflict, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pos)
}

type flattenResponse struct {
	PositionsClosed int      `json:"positions_closed"`
	OrdersCancelled int      `json:"orders_cancelled"`
	Errors          []string `json:"errors,omitempty"`
}

func (h *apiHandler) handleFlatten(w http.ResponseWriter, r *http.Request) {
	closed, cancelled, errs := h.engine.FlattenAll(r.Context())
	resp := flattenResponse{PositionsClosed: closed, OrdersCancelled: cancelled}
	for _, err := range errs {
		resp.Errors = append(resp.Errors, err.Error())
	}

	status := http.StatusOK
	if len(errs) > 0 {
		status = http.StatusMultiStatus
	}
	h.writeJSON(w, status, resp)
}

func (h *apiHandler) handleOrders(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Orders())
}

func (h *apiHandler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	if err := h.engine.CancelOrder(r.Context(), orderID); err != nil {
		h.writeError(w, http.StatusConflict, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "status": "cancelled"})
}

func (h *apiHandler) handleFills(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Fills())
}

func (h *apiHandler) handleAudit(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if marketID := query.Get("market_id"); marketID != "" {
		h.writeJSON(w, http.StatusOK, h.recorder.ByMarket(marketID))
		return
	}

	fromStr, toStr := query.Get("from"), query.Get("to")
	if fromStr != "" || toStr != "" {
		from := time.Time{}
		to := time.Now().UTC().Add(time.Hour)
		var err error
		if fromStr != "" {
			if from, err = time.Parse(time.RFC3339, fromStr); err != nil {
				h.writeError(w, http.StatusBadRequest, err)
				return
			}
		}
		if toStr != "" {
			if to, err = time.Parse(time.RFC3339, toStr); err != nil {
				h.writeError(w, http.StatusBadRequest, err)
				return
			}
		}
		h.writeJSON(w, http.StatusOK, h.recorder.ByTimeRange(from, to))
		return
	}

	h.writeJSON(w, http.StatusOK, h.recorder.All())
}

func (h *apiHandler) handleAuditExport(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit.csv"`)
	if err := h.recorder.ExportCSV(w); err != nil {
		h.logger.Error("audit-export-failed", zap.Error(err))
	}
}
