package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ms-visitors/internal/apperr"
	"ms-visitors/internal/kafka"
	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
	"ms-visitors/internal/utils"
)

// PriceReader looks up the current price row of a visitor type.
type PriceReader interface {
	GetPrice(ctx context.Context, t models.VisitorType) (*models.TicketPrice, error)
}

type TicketDBLayer interface {
	PriceReader
	ListPrices(ctx context.Context) ([]models.TicketPrice, error)
	UpdatePrice(ctx context.Context, t models.VisitorType, price decimal.Decimal, updatedBy string, at time.Time) (*models.TicketPrice, error)
}

// ResolvePrice returns the charge for one visitor record. Group records pay
// the unit price per member, with a missing size counted as one. Every other
// type pays the unit price whatever the group size.
func ResolvePrice(ctx context.Context, prices PriceReader, t models.VisitorType, groupSize int) (decimal.Decimal, error) {
	row, err := prices.GetPrice(ctx, t)
	if err != nil {
		return decimal.Zero, err
	}
	if t != models.VisitorGroup {
		return row.Price, nil
	}
	if groupSize < 1 {
		groupSize = 1
	}
	return row.Price.Mul(decimal.NewFromInt(int64(groupSize))), nil
}

type PriceService struct {
	DB     TicketDBLayer
	Events kafka.EventPublisher
	Logger *logger.Logger
	Now    func() time.Time
}

func NewPriceService(db TicketDBLayer, events kafka.EventPublisher, log *logger.Logger) *PriceService {
	return &PriceService{DB: db, Events: events, Logger: log, Now: time.Now}
}

// ResolvePrice resolves against the service's price table.
func (s *PriceService) ResolvePrice(ctx context.Context, t models.VisitorType, groupSize int) (decimal.Decimal, error) {
	return ResolvePrice(ctx, s.DB, t, groupSize)
}

func (s *PriceService) ListPrices(ctx context.Context) ([]models.TicketPrice, error) {
	prices, err := s.DB.ListPrices(ctx)
	if err != nil {
		s.Logger.Error("DATABASE", fmt.Sprintf("Failed to list ticket prices: %v", err))
		return nil, err
	}
	return prices, nil
}

// UpdatePriceRequest is the body of a price change.
type UpdatePriceRequest struct {
	Price *decimal.Decimal `json:"price" validate:"required"`
}

// UpdatePrice sets the unit price of an existing type.
func (s *PriceService) UpdatePrice(ctx context.Context, actor models.Identity, t models.VisitorType, price decimal.Decimal) (*models.TicketPrice, error) {
	if !t.Valid() {
		return nil, apperr.ErrTicketTypeNotFound
	}
	if price.IsNegative() {
		return nil, apperr.Validation("price must not be negative")
	}

	now := s.Now().UTC().Truncate(time.Second)
	updated, err := s.DB.UpdatePrice(ctx, t, price.Round(2), actor.Username, now)
	if err != nil {
		s.Logger.Error("DATABASE", fmt.Sprintf("Failed to update %s price: %v", t, err))
		return nil, err
	}
	s.Logger.LogDatabase("UPDATE", "ticket_prices", fmt.Sprintf("%s = %s by %s", t, updated.Price.StringFixed(2), actor.Username))

	evt := models.DomainEvent{
		ID:         utils.NewID(),
		Name:       models.EventTicketPriceUpdated,
		EntityID:   string(t),
		Actor:      actor.Username,
		OccurredAt: now,
		Payload:    updated,
	}
	if err := s.Events.PublishEvent(ctx, evt); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish %s: %v", evt.Name, err))
	}
	return updated, nil
}
