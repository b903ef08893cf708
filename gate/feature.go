package gate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Operation identifies an operation that requires the gate.
type Operation string

// OperationListTags is the admin tag listing.
const OperationListTags Operation = "list_tags"

// FeatureGate decides whether gated operations may run. Every operation is
// governed by the same reserved record.
type FeatureGate struct {
	store  Reader
	logger *slog.Logger
}

// NewFeatureGate builds a gate reading through store.
func NewFeatureGate(store Reader, opts ...Option) *FeatureGate {
	o := buildOptions(opts)
	return &FeatureGate{store: store, logger: o.logger}
}

// IsPermitted reports whether op may run: the record must be present and its
// active field loosely equal to 1.
func (g *FeatureGate) IsPermitted(ctx context.Context, op Operation) bool {
	rec, ok := g.store.Read(ctx)
	if ok && rec.IsActive() {
		return true
	}
	g.logger.DebugContext(ctx, "gated operation denied", "operation", string(op), "record_present", ok)
	return false
}

// Authorize returns a forbidden error when op is not permitted. The error
// message does not say why.
func (g *FeatureGate) Authorize(ctx context.Context, op Operation) error {
	if g.IsPermitted(ctx, op) {
		return nil
	}
	return goerrors.New("forbidden", goerrors.CategoryAuthz).
		WithCode(http.StatusForbidden).
		WithTextCode(TextCodeForbidden)
}

// IsForbidden reports whether err is a denial produced by Authorize.
func IsForbidden(err error) bool {
	var gerr *goerrors.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Category == goerrors.CategoryAuthz
}
