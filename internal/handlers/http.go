package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/agendaly/agendaly/internal/model"
)

var (
	errInvalidRange = errors.New("from must be before to, both RFC3339")
	errInvalidPrice = errors.New("price must be a non-negative decimal")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps the domain error taxonomy onto HTTP statuses: validation
// and configuration failures are client errors the caller can correct,
// conflicts tell the caller to re-query availability, invalid transitions are
// lifecycle rule violations.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case model.IsValidation(err), model.IsConfiguration(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case model.IsInvalidTransition(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// Money moves through the system as numeric(10,2) text. Arithmetic happens on
// integer cents so totals are exact.

func parseCents(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "-") || strings.HasPrefix(raw, "+") {
		return 0, errInvalidPrice
	}
	whole, frac, _ := strings.Cut(raw, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, errInvalidPrice
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseUint(whole, 10, 32)
	if err != nil {
		return 0, errInvalidPrice
	}
	f, err := strconv.ParseUint(frac, 10, 8)
	if err != nil {
		return 0, errInvalidPrice
	}
	return int64(w)*100 + int64(f), nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// sumPrices totals snapshot line prices.
func sumPrices(lines []model.ServiceLine) (string, error) {
	var total int64
	for _, l := range lines {
		c, err := parseCents(l.Price)
		if err != nil {
			return "", err
		}
		total += c
	}
	return formatCents(total), nil
}

// normalizePrice parses and re-renders a price with two decimal places.
func normalizePrice(raw string) (string, error) {
	c, err := parseCents(raw)
	if err != nil {
		return "", err
	}
	return formatCents(c), nil
}
