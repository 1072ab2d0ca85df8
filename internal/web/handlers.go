package web

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/camuig/rus-portfolio/internal/errors"
)

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Портфель</title></head>
<body>
<h1>Портфель: {{.TotalValue.StringFixed 2}} ₽</h1>
<p>Вложено {{.TotalCost.StringFixed 2}} ₽, изменение {{.TotalChange.StringFixed 2}} ₽ ({{.TotalChangePct.StringFixed 2}}%)</p>
<table border="1" cellpadding="4">
<tr><th>Тикер</th><th>Кол-во</th><th>Средняя</th><th>Цена</th><th>Стоимость</th><th>P&amp;L %</th></tr>
{{range .Positions}}<tr><td>{{.Ticker}}</td><td>{{.Shares}}</td><td>{{.AverageCost.StringFixed 2}}</td><td>{{.Price}}</td><td>{{.MarketValue.StringFixed 2}}</td><td>{{.ChangePct.StringFixed 2}}</td></tr>
{{end}}</table>
{{if .Warnings}}<p>Без котировок: {{range .Warnings}}{{.Ticker}} {{end}}</p>{{end}}
</body></html>`))

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	v, err := s.ledger.CurrentValue(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, v); err != nil {
		s.logger.Error("execute template", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.ledger.Holdings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, holdings)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.Transactions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	v, err := s.ledger.CurrentValue(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	defs, err := s.alerts.Definitions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, defs)
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	series, err := s.tracker.Series(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	lookback := s.config.Lookback()
	if raw := r.URL.Query().Get("lookback_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 2 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "lookback_days must be an integer >= 2"})
			return
		}
		lookback = time.Duration(days) * 24 * time.Hour
	}

	alloc, err := s.allocator.Optimize(r.Context(), lookback)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, alloc)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidQuantity),
		errors.Is(err, apperrors.ErrInvalidPrice),
		errors.Is(err, apperrors.ErrInvalidTicker),
		errors.Is(err, apperrors.ErrInvalidAlert):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrInsufficientHistory),
		errors.Is(err, apperrors.ErrOptimizationDidNotConverge):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrQuoteUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
