package visitors

import (
	"context"
	"fmt"
	"time"

	"ms-visitors/internal/apperr"
	"ms-visitors/internal/kafka"
	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
	tickets "ms-visitors/internal/tickets/service"
	"ms-visitors/internal/utils"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	arrivalLayout   = "15:04"
)

type VisitorDBLayer interface {
	CreateVisitor(ctx context.Context, v *models.Visitor) error
	GetVisitorByID(ctx context.Context, id string) (*models.Visitor, error)
	UpdateVisitor(ctx context.Context, v *models.Visitor) error
	DeleteVisitor(ctx context.Context, id string) error
	ListVisitors(ctx context.Context, f models.VisitorFilter) ([]models.Visitor, int, error)
}

// Transactor runs fn atomically. Stores called with the ctx passed to fn
// take part in the transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type VisitorService struct {
	DB       VisitorDBLayer
	Prices   tickets.PriceReader
	Tx       Transactor
	Events   kafka.EventPublisher
	Logger   *logger.Logger
	Location *time.Location
	Now      func() time.Time
}

func NewVisitorService(db VisitorDBLayer, prices tickets.PriceReader, tx Transactor, events kafka.EventPublisher, log *logger.Logger, loc *time.Location) *VisitorService {
	if loc == nil {
		loc = time.Local
	}
	return &VisitorService{DB: db, Prices: prices, Tx: tx, Events: events, Logger: log, Location: loc, Now: time.Now}
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func checkGroupSize(v *models.Visitor) error {
	if v.Type == models.VisitorGroup && v.GroupSize <= 1 {
		return apperr.Validation("group_size must be greater than 1 for group visitors")
	}
	return nil
}

// CreateVisitor records a check-in. The charged price comes from the price
// table and the arrival time from the clock.
func (s *VisitorService) CreateVisitor(ctx context.Context, actor models.Identity, in models.VisitorInput) (*models.Visitor, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	now := s.Now()
	visitDate := now
	if in.VisitDate != nil {
		visitDate = *in.VisitDate
	}

	v := &models.Visitor{
		ID:          utils.NewID(),
		FullName:    in.FullName,
		Type:        in.Type,
		Nationality: in.Nationality,
		VisitDate:   normalizeTime(visitDate),
		ArrivalTime: now.In(s.Location).Format(arrivalLayout),
		Phone:       in.Phone,
		Email:       in.Email,
		Comments:    in.Comments,
		GroupSize:   in.GroupSize,
		CreatedBy:   actor.Username,
		CreatedAt:   normalizeTime(now),
		UpdatedAt:   normalizeTime(now),
	}
	if err := checkGroupSize(v); err != nil {
		return nil, err
	}

	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		price, err := tickets.ResolvePrice(ctx, s.Prices, v.Type, v.GroupSize)
		if err != nil {
			return err
		}
		v.TicketPrice = price
		return s.DB.CreateVisitor(ctx, v)
	})
	if err != nil {
		s.logFailure("create", "", err)
		return nil, err
	}

	s.Logger.LogVisitor("CREATE", v.ID, fmt.Sprintf("%s %s charged %s", v.Type, v.FullName, v.TicketPrice.StringFixed(2)))
	s.publish(ctx, models.EventVisitorCreated, v.ID, actor, v)
	return v, nil
}

func (s *VisitorService) GetVisitor(ctx context.Context, id string) (*models.Visitor, error) {
	v, err := s.DB.GetVisitorByID(ctx, id)
	if err != nil {
		s.logFailure("get", id, err)
		return nil, err
	}
	return v, nil
}

// UpdateVisitor applies patch to a stored visitor. The price is resolved
// again when the type changes, or when the size of a group changes.
// Otherwise the stamped price is kept. The read, the price lookup and the
// write share one transaction.
func (s *VisitorService) UpdateVisitor(ctx context.Context, actor models.Identity, id string, patch models.VisitorPatch) (*models.Visitor, error) {
	if err := utils.Validate(patch); err != nil {
		return nil, err
	}

	var updated *models.Visitor
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := s.DB.GetVisitorByID(ctx, id)
		if err != nil {
			return err
		}
		prevType, prevSize := v.Type, v.GroupSize
		applyPatch(v, patch)

		switch {
		case patch.Type != nil && *patch.Type != prevType:
			size := prevSize
			if patch.GroupSize != nil && *patch.GroupSize > 0 {
				size = *patch.GroupSize
			}
			v.TicketPrice, err = tickets.ResolvePrice(ctx, s.Prices, v.Type, size)
		case patch.GroupSize != nil && *patch.GroupSize != prevSize && prevType == models.VisitorGroup:
			v.TicketPrice, err = tickets.ResolvePrice(ctx, s.Prices, models.VisitorGroup, *patch.GroupSize)
		}
		if err != nil {
			return err
		}
		if err := checkGroupSize(v); err != nil {
			return err
		}

		v.UpdatedAt = normalizeTime(s.Now())
		if err := s.DB.UpdateVisitor(ctx, v); err != nil {
			return err
		}
		updated = v
		return nil
	})
	if err != nil {
		s.logFailure("update", id, err)
		return nil, err
	}

	s.Logger.LogVisitor("UPDATE", id, fmt.Sprintf("by %s, price %s", actor.Username, updated.TicketPrice.StringFixed(2)))
	s.publish(ctx, models.EventVisitorUpdated, id, actor, updated)
	return updated, nil
}

// applyPatch overwrites the whitelisted fields present in patch.
func applyPatch(v *models.Visitor, p models.VisitorPatch) {
	if p.FullName != nil {
		v.FullName = *p.FullName
	}
	if p.Type != nil {
		v.Type = *p.Type
	}
	if p.Nationality != nil {
		v.Nationality = *p.Nationality
	}
	if p.VisitDate != nil {
		v.VisitDate = normalizeTime(*p.VisitDate)
	}
	if p.ArrivalTime != nil {
		v.ArrivalTime = *p.ArrivalTime
	}
	if p.Phone != nil {
		v.Phone = *p.Phone
	}
	if p.Email != nil {
		v.Email = *p.Email
	}
	if p.Comments != nil {
		v.Comments = *p.Comments
	}
	if p.GroupSize != nil {
		v.GroupSize = *p.GroupSize
	}
}

func (s *VisitorService) DeleteVisitor(ctx context.Context, actor models.Identity, id string) error {
	if err := s.DB.DeleteVisitor(ctx, id); err != nil {
		s.logFailure("delete", id, err)
		return err
	}
	s.Logger.LogVisitor("DELETE", id, "by "+actor.Username)
	s.publish(ctx, models.EventVisitorDeleted, id, actor, nil)
	return nil
}

// ListVisitors returns one page. Page defaults to 1 and limit to
// DefaultPageSize, capped at MaxPageSize.
func (s *VisitorService) ListVisitors(ctx context.Context, f models.VisitorFilter) (*models.VisitorPage, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, apperr.Validation("type must be one of adult, child, student, group")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}

	docs, total, err := s.DB.ListVisitors(ctx, f)
	if err != nil {
		s.logFailure("list", "", err)
		return nil, err
	}

	totalPages := (total + f.Limit - 1) / f.Limit
	return &models.VisitorPage{
		Docs:        docs,
		TotalDocs:   total,
		Limit:       f.Limit,
		Page:        f.Page,
		TotalPages:  totalPages,
		HasPrevPage: f.Page > 1,
		HasNextPage: f.Page < totalPages,
	}, nil
}

func (s *VisitorService) publish(ctx context.Context, name, id string, actor models.Identity, payload interface{}) {
	evt := models.DomainEvent{
		ID:         utils.NewID(),
		Name:       name,
		EntityID:   id,
		Actor:      actor.Username,
		OccurredAt: normalizeTime(s.Now()),
		Payload:    payload,
	}
	if err := s.Events.PublishEvent(ctx, evt); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", name, id, err))
	}
}

func (s *VisitorService) logFailure(op, id string, err error) {
	msg := fmt.Sprintf("Failed to %s visitor %s: %v", op, id, err)
	if utils.StatusFor(err) >= 500 {
		s.Logger.Error("VISITOR", msg)
		return
	}
	s.Logger.Debug("VISITOR", msg)
}
