package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytevault/server/internal/billing"
	"go.uber.org/zap"
)

type invoiceResponse struct {
	ID        string    `json:"id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func (g *Gateway) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	invoices, err := g.engine.ListInvoices(r.Context(), userID)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}

	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, invoiceResponse{
			ID:        inv.ID.String(),
			Year:      inv.Year,
			Month:     inv.Month,
			Amount:    inv.Amount.String(),
			CreatedAt: inv.CreatedAt,
		})
	}
	g.writeJSON(w, http.StatusOK, map[string]interface{}{"invoices": out})
}

// handleUsagePreview computes the caller's usage and would-be amount for a
// period on demand. Nothing is persisted.
func (g *Gateway) handleUsagePreview(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		g.writeError(w, http.StatusUnauthorized, "missing user in context")
		return
	}

	period, err := periodFromQuery(r)
	if err != nil {
		g.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	usage, amount, err := g.engine.PreviewAmount(r.Context(), userID, period)
	if err != nil {
		if errors.Is(err, billing.ErrNoPlan) {
			g.writeError(w, http.StatusNotFound, "no price plan configured")
			return
		}
		g.writeServiceError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, map[string]interface{}{
		"year":               period.Year,
		"month":              int(period.Month),
		"usage_byte_seconds": usage,
		"amount":             amount.String(),
	})
}

// handleRunBilling triggers a billing run for an explicit period, which
// makes backfills possible. Omitting the body runs the previous month.
func (g *Gateway) handleRunBilling(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}
	// An empty body means "previous month".
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		g.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var period billing.Period
	if req.Year == 0 && req.Month == 0 {
		period = billing.PreviousPeriod(time.Now().UTC())
	} else {
		if req.Month < 1 || req.Month > 12 || req.Year < 2000 {
			g.writeError(w, http.StatusBadRequest, "invalid year/month")
			return
		}
		period = billing.Period{Year: req.Year, Month: time.Month(req.Month)}
	}

	result, err := g.engine.RunForPeriod(r.Context(), period)
	if err != nil {
		if errors.Is(err, billing.ErrRunInProgress) {
			g.writeError(w, http.StatusConflict, "billing run already in progress for this period")
			return
		}
		g.logger.Error("billing run failed", zap.Error(err))
		g.writeError(w, http.StatusInternalServerError, "billing run failed")
		return
	}

	failures := make([]map[string]string, 0, len(result.Failures))
	for _, f := range result.Failures {
		failures = append(failures, map[string]string{
			"user_id": f.UserID.String(),
			"reason":  f.Reason,
		})
	}

	g.writeJSON(w, http.StatusOK, map[string]interface{}{
		"period":           result.Period.String(),
		"users_processed":  result.UsersProcessed,
		"invoices_created": result.InvoicesCreated,
		"already_billed":   result.AlreadyBilled,
		"skipped_zero":     result.SkippedZero,
		"failures":         failures,
		"duration_ms":      result.Duration().Milliseconds(),
	})
}

func periodFromQuery(r *http.Request) (billing.Period, error) {
	q := r.URL.Query()
	if q.Get("year") == "" && q.Get("month") == "" {
		return billing.PreviousPeriod(time.Now().UTC()), nil
	}

	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		return billing.Period{}, errors.New("invalid year")
	}
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil || month < 1 || month > 12 {
		return billing.Period{}, errors.New("invalid month")
	}
	return billing.Period{Year: year, Month: time.Month(month)}, nil
}
