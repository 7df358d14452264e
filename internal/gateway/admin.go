package gateway

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (g *Gateway) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if g.db == nil {
		g.writeError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}

	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		g.writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	userID := uuid.New()
	_, err := g.db.Pool.Exec(r.Context(), `
		INSERT INTO users (id, email, name, created_at)
		VALUES ($1, $2, $3, NOW())
	`, userID, req.Email, req.Name)
	if err != nil {
		g.logger.Error("failed to create user", zap.Error(err))
		g.writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	g.writeJSON(w, http.StatusCreated, map[string]string{
		"id":    userID.String(),
		"email": req.Email,
	})
}

func (g *Gateway) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	if g.db == nil {
		g.writeError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}

	var req struct {
		UserID uuid.UUID `json:"user_id"`
		Label  string    `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == uuid.Nil {
		g.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	key, err := generateAPIKey()
	if err != nil {
		g.logger.Error("failed to generate API key", zap.Error(err))
		g.writeError(w, http.StatusInternalServerError, "failed to generate API key")
		return
	}

	_, err = g.db.Pool.Exec(r.Context(), `
		INSERT INTO api_keys (key, user_id, label, created_at)
		VALUES ($1, $2, $3, NOW())
	`, key, req.UserID, req.Label)
	if err != nil {
		g.logger.Error("failed to store API key", zap.Error(err))
		g.writeError(w, http.StatusInternalServerError, "failed to store API key")
		return
	}

	// The full key is returned exactly once.
	g.writeJSON(w, http.StatusCreated, map[string]string{
		"key":     key,
		"user_id": req.UserID.String(),
		"label":   req.Label,
	})
}

// handleSetPlanPrice appends a price entry to the user's plan history.
// History is append-only; existing entries are never updated.
func (g *Gateway) handleSetPlanPrice(w http.ResponseWriter, r *http.Request) {
	if g.db == nil {
		g.writeError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req struct {
		PricePerByteSecond string     `json:"price_per_byte_second"`
		EffectiveFrom      *time.Time `json:"effective_from"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	price, err := decimal.NewFromString(req.PricePerByteSecond)
	if err != nil || price.IsNegative() {
		g.writeError(w, http.StatusBadRequest, "invalid price_per_byte_second")
		return
	}

	effectiveFrom := time.Now().UTC()
	if req.EffectiveFrom != nil {
		effectiveFrom = req.EffectiveFrom.UTC()
	}

	entryID := uuid.New()
	_, err = g.db.Pool.Exec(r.Context(), `
		INSERT INTO user_plan_prices (id, user_id, price_per_byte_second, effective_from)
		VALUES ($1, $2, $3, $4)
	`, entryID, userID, price, effectiveFrom)
	if err != nil {
		g.logger.Error("failed to store price entry", zap.Error(err))
		g.writeError(w, http.StatusInternalServerError, "failed to store price entry")
		return
	}

	g.writeJSON(w, http.StatusCreated, map[string]string{
		"id":                    entryID.String(),
		"user_id":               userID.String(),
		"price_per_byte_second": price.String(),
		"effective_from":        effectiveFrom.Format(time.RFC3339),
	})
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return "bv_" + hex.EncodeToString(buf), nil
}
