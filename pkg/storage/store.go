package storage

import (
	"context"
	"errors"

	"github.com/opscart/node-placeholder-scaler/pkg/models"
)

// ErrNotFound is returned when a decision does not exist
var ErrNotFound = errors.New("decision not found")

// Store records scaling decisions
type Store interface {
	SaveDecision(ctx context.Context, d *models.Decision) error
	GetDecision(ctx context.Context, id string) (*models.Decision, error)

	// ListDecisions returns the newest decisions first. An empty pool lists every pool.
	ListDecisions(ctx context.Context, pool string, limit int) ([]*models.Decision, error)

	Ping(ctx context.Context) error
	Close() error
}
