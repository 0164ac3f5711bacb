package tickets_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-visitors/internal/apperr"
	"ms-visitors/internal/kafka"
	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
	tickets "ms-visitors/internal/tickets/service"
)

// MockTicketDBLayer is a mock implementation of the TicketDBLayer interface
type MockTicketDBLayer struct {
	mock.Mock
}

func (m *MockTicketDBLayer) GetPrice(ctx context.Context, t models.VisitorType) (*models.TicketPrice, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketPrice), args.Error(1)
}

func (m *MockTicketDBLayer) ListPrices(ctx context.Context) ([]models.TicketPrice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TicketPrice), args.Error(1)
}

func (m *MockTicketDBLayer) UpdatePrice(ctx context.Context, t models.VisitorType, price decimal.Decimal, updatedBy string, at time.Time) (*models.TicketPrice, error) {
	args := m.Called(ctx, t, price, updatedBy, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketPrice), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(ctx context.Context, evt models.DomainEvent) error {
	return m.Called(ctx, evt).Error(0)
}

// fixturePrices is an in-memory price table.
type fixturePrices map[models.VisitorType]string

func (f fixturePrices) GetPrice(_ context.Context, t models.VisitorType) (*models.TicketPrice, error) {
	p, ok := f[t]
	if !ok {
		return nil, apperr.ErrTicketTypeNotFound
	}
	return &models.TicketPrice{Type: t, Price: decimal.RequireFromString(p)}, nil
}

var defaultTable = fixturePrices{"adult": "10", "child": "5", "student": "7", "group": "8"}

func TestResolvePrice_NonGroupIgnoresGroupSize(t *testing.T) {
	for _, vt := range []models.VisitorType{models.VisitorAdult, models.VisitorChild, models.VisitorStudent} {
		for _, size := range []int{0, 1, 5, 40} {
			price, err := tickets.ResolvePrice(context.Background(), defaultTable, vt, size)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(defaultTable[vt]).Equal(price), "%s size %d", vt, size)
		}
	}
}

func TestResolvePrice_GroupMultipliesBySize(t *testing.T) {
	for n := 1; n <= 25; n++ {
		price, err := tickets.ResolvePrice(context.Background(), defaultTable, models.VisitorGroup, n)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(int64(8*n)).Equal(price), "size %d", n)
	}
}

func TestResolvePrice_GroupSizeDefaultsToOne(t *testing.T) {
	price, err := tickets.ResolvePrice(context.Background(), defaultTable, models.VisitorGroup, 0)
	require.NoError(t, err)
	assert.Equal(t, "8", price.String())
}

func TestResolvePrice_MissingRow(t *testing.T) {
	_, err := tickets.ResolvePrice(context.Background(), fixturePrices{"adult": "10"}, models.VisitorChild, 0)
	assert.ErrorIs(t, err, apperr.ErrTicketTypeNotFound)
}

func TestUpdatePrice(t *testing.T) {
	mockDB := new(MockTicketDBLayer)
	events := new(MockPublisher)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := &tickets.PriceService{DB: mockDB, Events: events, Logger: logger.NewNop(), Now: func() time.Time { return now }}
	admin := models.Identity{ID: "u1", Username: "admin", Role: models.RoleAdmin}

	want := &models.TicketPrice{Type: models.VisitorAdult, Price: decimal.RequireFromString("12.5"), LastUpdated: now, UpdatedBy: "admin"}
	mockDB.On("UpdatePrice", mock.Anything, models.VisitorAdult, mock.MatchedBy(func(p decimal.Decimal) bool {
		return p.Equal(decimal.RequireFromString("12.5"))
	}), "admin", now).Return(want, nil)
	events.On("PublishEvent", mock.Anything, mock.MatchedBy(func(evt models.DomainEvent) bool {
		return evt.Name == models.EventTicketPriceUpdated && evt.EntityID == "adult"
	})).Return(nil)

	got, err := svc.UpdatePrice(context.Background(), admin, models.VisitorAdult, decimal.RequireFromString("12.5"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	mockDB.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestUpdatePrice_Validation(t *testing.T) {
	mockDB := new(MockTicketDBLayer)
	svc := tickets.NewPriceService(mockDB, kafka.NopPublisher{}, logger.NewNop())
	admin := models.Identity{Username: "admin", Role: models.RoleAdmin}

	_, err := svc.UpdatePrice(context.Background(), admin, models.VisitorType("senior"), decimal.NewFromInt(3))
	assert.ErrorIs(t, err, apperr.ErrTicketTypeNotFound)

	_, err = svc.UpdatePrice(context.Background(), admin, models.VisitorChild, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	mockDB.AssertNotCalled(t, "UpdatePrice", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatePrice_PublishFailureDoesNotFail(t *testing.T) {
	mockDB := new(MockTicketDBLayer)
	events := new(MockPublisher)
	svc := tickets.NewPriceService(mockDB, events, logger.NewNop())

	mockDB.On("UpdatePrice", mock.Anything, models.VisitorGroup, mock.Anything, "admin", mock.Anything).
		Return(&models.TicketPrice{Type: models.VisitorGroup, Price: decimal.NewFromInt(9)}, nil)
	events.On("PublishEvent", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	_, err := svc.UpdatePrice(context.Background(), models.Identity{Username: "admin"}, models.VisitorGroup, decimal.NewFromInt(9))
	assert.NoError(t, err)
}

func TestListPrices_StorageError(t *testing.T) {
	mockDB := new(MockTicketDBLayer)
	svc := tickets.NewPriceService(mockDB, kafka.NopPublisher{}, logger.NewNop())
	mockDB.On("ListPrices", mock.Anything).Return(nil, apperr.Storage("list", errors.New("down")))

	_, err := svc.ListPrices(context.Background())
	assert.ErrorIs(t, err, apperr.ErrStorage)
}
