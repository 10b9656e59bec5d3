package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"phaseexecutor/src/ledger"
	"phaseexecutor/src/model"
	"phaseexecutor/src/repository"
)

// TradeSearcher lists trades matching the search options.
type TradeSearcher interface {
	Search(ctx context.Context, options repository.TradeSearchOptions) ([]model.Trade, error)
}

// TradesHandler lists trades, newest first.
// Supports pagination and filters (symbol, action, from, to).
func TradesHandler(repo TradeSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var opts repository.TradeSearchOptions

		if symbol := q.Get("symbol"); symbol != "" {
			symbol = strings.ToUpper(symbol)
			opts.Symbol = &symbol
		}

		if action := q.Get("action"); action != "" {
			if action != model.TradeActionOpen && action != model.TradeActionClose {
				http.Error(w, "invalid action", http.StatusBadRequest)
				return
			}
			opts.Action = &action
		}

		if from := q.Get("from"); from != "" {
			parsed, err := time.Parse(time.RFC3339, from)
			if err != nil {
				http.Error(w, "invalid from", http.StatusBadRequest)
				return
			}
			opts.After = &parsed
		}

		if to := q.Get("to"); to != "" {
			parsed, err := time.Parse(time.RFC3339, to)
			if err != nil {
				http.Error(w, "invalid to", http.StatusBadRequest)
				return
			}
			opts.Before = &parsed
		}

		page := 1
		if pageParam := q.Get("page"); pageParam != "" {
			parsedPage, err := strconv.Atoi(pageParam)
			if err != nil || parsedPage <= 0 {
				http.Error(w, "invalid page", http.StatusBadRequest)
				return
			}
			page = parsedPage
		}

		pageSize := 50
		if sizeParam := q.Get("pageSize"); sizeParam != "" {
			parsedSize, err := strconv.Atoi(sizeParam)
			if err != nil || parsedSize <= 0 || parsedSize > 500 {
				http.Error(w, "invalid pageSize", http.StatusBadRequest)
				return
			}
			pageSize = parsedSize
		}
		opts.Limit = pageSize
		opts.Offset = (page - 1) * pageSize

		trades, err := repo.Search(r.Context(), opts)
		if err != nil {
			logger.WithError(err).Error("failed to search trades")
			http.Error(w, "failed to load trades", http.StatusInternalServerError)
			return
		}
		if trades == nil {
			trades = []model.Trade{}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"page":     page,
			"pageSize": pageSize,
			"trades":   trades,
		})
	}
}

// LedgerTrades serves trade searches from the in-memory history when the
// journal database is disabled.
type LedgerTrades struct {
	Ledger *ledger.Ledger
}

func (l LedgerTrades) Search(_ context.Context, opts repository.TradeSearchOptions) ([]model.Trade, error) {
	history := l.Ledger.Snapshot().TradeHistory

	var out []model.Trade
	for i := len(history) - 1; i >= 0; i-- {
		t := history[i]
		if opts.Symbol != nil && t.Symbol != *opts.Symbol {
			continue
		}
		if opts.Action != nil && t.Action != *opts.Action {
			continue
		}
		if opts.After != nil && t.Timestamp.Before(*opts.After) {
			continue
		}
		if opts.Before != nil && t.Timestamp.After(*opts.Before) {
			continue
		}
		out = append(out, t)
	}

	if opts.Offset >= len(out) {
		return []model.Trade{}, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}
