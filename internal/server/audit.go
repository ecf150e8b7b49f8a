package server

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Auditor appends to the audit log. Writes are best-effort: a failure is
// logged and never propagated, so auditing can never fail the operation
// it records.
type Auditor struct {
	store  Store
	logger *slog.Logger
}

func NewAuditor(store Store, logger *slog.Logger) *Auditor {
	return &Auditor{store: store, logger: logger}
}

func (a *Auditor) Log(ctx context.Context, actorID, action string, details map[string]any) {
	data, err := json.Marshal(details)
	if err != nil {
		data = []byte("{}")
	}
	// The record should survive the request being cancelled mid-write.
	ctx = context.WithoutCancel(ctx)
	if err := a.store.AppendAudit(ctx, actorID, action, string(data)); err != nil {
		a.logger.Warn("audit write failed", "action", action, "error", err)
	}
}
