package executors

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	logger "github.com/sirupsen/logrus"

	"phaseexecutor/src/model"
)

const serviceName = "phase_executor"

// ExceptionStore persists captured failures.
type ExceptionStore interface {
	Create(ctx context.Context, exc *model.Exception) error
}

// Capture records a per-symbol failure, logs it locally, and persists it when
// a store is configured.
func Capture(
	ctx context.Context,
	store ExceptionStore,
	method string,
	symbol string,
	level string,
	err error,
	contextData map[string]interface{},
) {
	if err == nil {
		return
	}

	var ctxJSON string
	if contextData != nil {
		if b, e := json.Marshal(contextData); e == nil {
			ctxJSON = string(b)
		}
	}

	exc := &model.Exception{
		Service:   serviceName,
		Module:    "executors",
		Method:    method,
		Symbol:    symbol,
		Message:   err.Error(),
		Stack:     string(debug.Stack()),
		Level:     level,
		Context:   ctxJSON,
		CreatedAt: time.Now(),
	}

	logger.WithFields(logger.Fields{
		"method": method,
		"symbol": symbol,
		"level":  level,
	}).WithError(err).Error("Symbol failure captured")

	if store != nil {
		// persisted with a fresh context so a cancelled cycle still leaves a record
		if e := store.Create(context.WithoutCancel(ctx), exc); e != nil {
			logger.WithError(e).Error("Failed to persist exception")
		}
	}
}
