package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	logger "github.com/sirupsen/logrus"

	"phaseexecutor/src/model"
)

// ExceptionLister returns the most recent exceptions captured for a symbol.
type ExceptionLister interface {
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]model.Exception, error)
}

// ExceptionsHandler lists captured failures for ?symbol=, newest first.
func ExceptionsHandler(repo ExceptionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		symbol := strings.ToUpper(strings.TrimSpace(q.Get("symbol")))
		if symbol == "" {
			http.Error(w, "symbol is required", http.StatusBadRequest)
			return
		}

		limit := 50
		if limitParam := q.Get("limit"); limitParam != "" {
			parsed, err := strconv.Atoi(limitParam)
			if err != nil || parsed <= 0 || parsed > 500 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		exceptions, err := repo.ListBySymbol(r.Context(), symbol, limit)
		if err != nil {
			logger.WithError(err).WithField("symbol", symbol).Error("failed to list exceptions")
			http.Error(w, "failed to load exceptions", http.StatusInternalServerError)
			return
		}
		if exceptions == nil {
			exceptions = []model.Exception{}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"symbol":     symbol,
			"exceptions": exceptions,
		})
	}
}
