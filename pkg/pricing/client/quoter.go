package client

import (
	"context"

	"github.com/aguasol/aguasol-backend/pkg/logger"
	"github.com/aguasol/aguasol-backend/pkg/pricing"
	"github.com/google/uuid"
)

// Source records which path produced a quote.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Calculator is the remote half of a Quoter.
type Calculator interface {
	Calculate(ctx context.Context, productID uuid.UUID, quantity int) (pricing.Result, error)
}

// Quote is a priced quantity plus where the price came from. RemoteErr holds
// the failure that forced a local evaluation.
type Quote struct {
	pricing.Result
	Source    Source `json:"source"`
	RemoteErr error  `json:"-"`
}

// Quoter prefers server-side pricing and falls back to the product record the
// caller already holds.
type Quoter struct {
	remote Calculator
	logg   *logger.Logger
}

// NewQuoter builds a Quoter. A nil remote always evaluates locally.
func NewQuoter(remote Calculator, logg *logger.Logger) *Quoter {
	return &Quoter{remote: remote, logg: logg}
}

// Quote prices quantity units of product. It never fails: a remote error is
// logged and the local evaluator answers instead.
func (q *Quoter) Quote(ctx context.Context, product Product, quantity int) Quote {
	if q.remote != nil {
		result, err := q.remote.Calculate(ctx, product.ID, quantity)
		if err == nil {
			return Quote{Result: result, Source: SourceRemote}
		}
		if q.logg != nil {
			logCtx := q.logg.WithFields(ctx, map[string]any{
				"product_id": product.ID.String(),
				"quantity":   quantity,
				"error":      err.Error(),
			})
			q.logg.Warn(logCtx, "remote pricing failed, using local evaluator")
		}
		return Quote{Result: pricing.Evaluate(product.Pricing, quantity), Source: SourceLocal, RemoteErr: err}
	}
	return Quote{Result: pricing.Evaluate(product.Pricing, quantity), Source: SourceLocal}
}
