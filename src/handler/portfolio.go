package handler

import (
	"context"
	"encoding/json"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"phaseexecutor/src/ledger"
)

type portfolioReader interface {
	Snapshot() ledger.Snapshot
	Summary() ledger.Summary
}

// PortfolioHandler returns the open positions, trade history and total value.
func PortfolioHandler(src portfolioReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, src.Snapshot())
	}
}

// TradeCounter reports how many trades the journal holds per symbol.
type TradeCounter interface {
	CountBySymbol(ctx context.Context) (map[string]int64, error)
}

type summaryResponse struct {
	ledger.Summary
	JournalTrades map[string]int64 `json:"journal_trades_by_symbol,omitempty"`
}

// SummaryHandler returns the performance summary. When counts is set the
// journaled trade count per symbol is included as well.
func SummaryHandler(src portfolioReader, counts TradeCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := summaryResponse{Summary: src.Summary()}
		if counts != nil {
			journal, err := counts.CountBySymbol(r.Context())
			if err != nil {
				logger.WithError(err).Error("failed to count journaled trades")
				http.Error(w, "failed to load journal counts", http.StatusInternalServerError)
				return
			}
			resp.JournalTrades = journal
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}
