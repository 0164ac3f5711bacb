package visitors_test

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
	visitors "ms-visitors/internal/visitors/service"
)

// MockVisitorDBLayer is a mock implementation of the VisitorDBLayer interface
type MockVisitorDBLayer struct {
	mock.Mock
}

func (m *MockVisitorDBLayer) CreateVisitor(ctx context.Context, v *models.Visitor) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockVisitorDBLayer) GetVisitorByID(ctx context.Context, id string) (*models.Visitor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Hand out a copy so the service can mutate it freely.
	v := *args.Get(0).(*models.Visitor)
	return &v, args.Error(1)
}

func (m *MockVisitorDBLayer) UpdateVisitor(ctx context.Context, v *models.Visitor) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockVisitorDBLayer) DeleteVisitor(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockVisitorDBLayer) ListVisitors(ctx context.Context, f models.VisitorFilter) ([]models.Visitor, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Visitor), args.Int(1), args.Error(2)
}

// fixturePrices is an in-memory price table.
type fixturePrices map[models.VisitorType]int64

func (f fixturePrices) GetPrice(_ context.Context, t models.VisitorType) (*models.TicketPrice, error) {
	p, ok := f[t]
	if !ok {
		return nil, apperr.ErrTicketTypeNotFound
	}
	return &models.TicketPrice{Type: t, Price: decimal.NewFromInt(p)}, nil
}

// inlineTx runs fn directly and counts calls.
type inlineTx struct{ calls int }

func (tx *inlineTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.calls++
	return fn(ctx)
}

var (
	fixedNow = time.Date(2024, 4, 2, 13, 45, 30, 0, time.UTC)
	keeper   = models.Identity{ID: "u-staff", Username: "keeper", Role: models.RoleStaff}
	prices   = fixturePrices{"adult": 10, "child": 5, "student": 7, "group": 8}
)

func newService(db *MockVisitorDBLayer, table fixturePrices) (*visitors.VisitorService, *inlineTx) {
	tx := &inlineTx{}
	svc := visitors.NewVisitorService(db, table, tx, kafka.NopPublisher{}, logger.NewNop(), time.UTC)
	svc.Now = func() time.Time { return fixedNow }
	return svc, tx
}

func TestCreateVisitor_StampsPriceArrivalAndCreator(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, tx := newService(mockDB, prices)
	mockDB.On("CreateVisitor", mock.Anything, mock.AnythingOfType("*models.Visitor")).Return(nil)

	v, err := svc.CreateVisitor(context.Background(), keeper, models.VisitorInput{
		FullName: "Ada", Type: models.VisitorChild, Nationality: "UK", GroupSize: 9,
	})
	require.NoError(t, err)

	assert.Equal(t, "5", v.TicketPrice.String())
	assert.Equal(t, "13:45", v.ArrivalTime)
	assert.Equal(t, "keeper", v.CreatedBy)
	assert.True(t, v.VisitDate.Equal(fixedNow))
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, 1, tx.calls)
	mockDB.AssertExpectations(t)
}

func TestCreateVisitor_GroupPriceMultiplied(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, _ := newService(mockDB, prices)
	mockDB.On("CreateVisitor", mock.Anything, mock.Anything).Return(nil)

	v, err := svc.CreateVisitor(context.Background(), keeper, models.VisitorInput{
		FullName: "School trip", Type: models.VisitorGroup, Nationality: "FR", GroupSize: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, "96", v.TicketPrice.String())
}

func TestCreateVisitor_GroupNeedsMoreThanOneMember(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, _ := newService(mockDB, prices)

	_, err := svc.CreateVisitor(context.Background(), keeper, models.VisitorInput{
		FullName: "Pair", Type: models.VisitorGroup, Nationality: "FR", GroupSize: 1,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	mockDB.AssertNotCalled(t, "CreateVisitor", mock.Anything, mock.Anything)
}

func TestCreateVisitor_InvalidInput(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, _ := newService(mockDB, prices)

	_, err := svc.CreateVisitor(context.Background(), keeper, models.VisitorInput{FullName: "X", Type: "vip", Nationality: "NL"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.CreateVisitor(context.Background(), keeper, models.VisitorInput{Type: models.VisitorAdult})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateVisitor_MissingPriceRowPersistsNothing(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, _ := newService(mockDB, fixturePrices{"adult": 10})

	_, err := svc.CreateVisitor(context.Background(), keeper, models.VisitorInput{
		FullName: "Ada", Type: models.VisitorStudent, Nationality: "UK",
	})
	assert.ErrorIs(t, err, apperr.ErrTicketTypeNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	mockDB.AssertNotCalled(t, "CreateVisitor", mock.Anything, mock.Anything)
}

func storedAdult() *models.Visitor {
	return &models.Visitor{
		ID: "v1", FullName: "Ada", Type: models.VisitorAdult, Nationality: "UK",
		VisitDate: fixedNow, ArrivalTime: "09:00", TicketPrice: decimal.NewFromInt(10), CreatedBy: "keeper",
	}
}

func storedGroup() *models.Visitor {
	return &models.Visitor{
		ID: "g1", FullName: "Club", Type: models.VisitorGroup, Nationality: "DE",
		VisitDate: fixedNow, ArrivalTime: "09:00", GroupSize: 3, TicketPrice: decimal.NewFromInt(24), CreatedBy: "keeper",
	}
}

func ptr[T any](v T) *T { return &v }

func TestUpdateVisitor_AdultToGroupOfFour(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, tx := newService(mockDB, prices)
	mockDB.On("GetVisitorByID", mock.Anything, "v1").Return(storedAdult(), nil)
	mockDB.On("UpdateVisitor", mock.Anything, mock.Anything).Return(nil)

	v, err := svc.UpdateVisitor(context.Background(), keeper, "v1", models.VisitorPatch{
		Type: ptr(models.VisitorGroup), GroupSize: ptr(4),
	})
	require.NoError(t, err)
	assert.Equal(t, "32", v.TicketPrice.String())
	assert.Equal(t, models.VisitorGroup, v.Type)
	assert.Equal(t, 4, v.GroupSize)
	assert.Equal(t, 1, tx.calls)
}

func TestUpdateVisitor_TypeChangeUsesStoredGroupSize(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, _ := newService(mockDB, prices)
	stored := storedAdult()
	stored.GroupSize = 5
	mockDB.On("GetVisitorByID", mock.Anything, "v1").Return(stored, nil)
	mockDB.On("UpdateVisitor", mock.Anything, mock.Anything).Return(nil)

	v, err := svc.UpdateVisitor(context.Background(), keeper, "v1", models.VisitorPatch{Type: ptr(models.VisitorGroup)})
	require.NoError(t, err)
	assert.Equal(t, "40", v.TicketPrice.String())
}

func TestUpdateVisitor_GroupToChildIgnoresSize(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, _ := newService(mockDB, prices)
	mockDB.On("GetVisitorByID", mock.Anything, "g1").Return(storedGroup(), nil)
	mockDB.On("UpdateVisitor", mock.Anything, mock.Anything).Return(nil)

	v, err := svc.UpdateVisitor(context.Background(), keeper, "g1", models.VisitorPatch{Type: ptr(models.VisitorChild)})
	require.NoError(t, err)
	assert.Equal(t, "5", v.TicketPrice.String())
}

func TestUpdateVisitor_GroupSizeChangeOnGroup(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, _ := newService(mockDB, prices)
	mockDB.On("GetVisitorByID", mock.Anything, "g1").Return(storedGroup(), nil)
	mockDB.On("UpdateVisitor", mock.Anything, mock.Anything).Return(nil)

	v, err := svc.UpdateVisitor(context.Background(), keeper, "g1", models.VisitorPatch{GroupSize: ptr(7)})
	require.NoError(t, err)
	assert.Equal(t, "56", v.TicketPrice.String())
}

func TestUpdateVisitor_GroupSizeChangeOnNonGroupKeepsPrice(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, _ := newService(mockDB, fixturePrices{})
	mockDB.On("GetVisitorByID", mock.Anything, "v1").Return(storedAdult(), nil)
	mockDB.On("UpdateVisitor", mock.Anything, mock.Anything).Return(nil)

	v, err := svc.UpdateVisitor(context.Background(), keeper, "v1", models.VisitorPatch{GroupSize: ptr(3)})
	require.NoError(t, err)
	assert.Equal(t, "10", v.TicketPrice.String())
}

func TestUpdateVisitor_OtherFieldsKeepStampedPrice(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	// The price table changed since the visitor was stamped.
	svc, _ := newService(mockDB, fixturePrices{"adult": 99})
	mockDB.On("GetVisitorByID", mock.Anything, "v1").Return(storedAdult(), nil)
	mockDB.On("UpdateVisitor", mock.Anything, mock.Anything).Return(nil)

	v, err := svc.UpdateVisitor(context.Background(), keeper, "v1", models.VisitorPatch{
		FullName: ptr("Ada Lovelace"), Type: ptr(models.VisitorAdult), Comments: ptr("returning"),
	})
	require.NoError(t, err)
	assert.Equal(t, "10", v.TicketPrice.String())
	assert.Equal(t, "Ada Lovelace", v.FullName)
	assert.Equal(t, "returning", v.Comments)
	assert.Equal(t, "UK", v.Nationality)
}

func TestUpdateVisitor_NotFound(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, _ := newService(mockDB, prices)
	mockDB.On("GetVisitorByID", mock.Anything, "missing").Return(nil, apperr.ErrVisitorNotFound)

	_, err := svc.UpdateVisitor(context.Background(), keeper, "missing", models.VisitorPatch{FullName: ptr("x")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	mockDB.AssertNotCalled(t, "UpdateVisitor", mock.Anything, mock.Anything)
}

func TestUpdateVisitor_MissingPriceForNewType(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, _ := newService(mockDB, fixturePrices{"adult": 10})
	mockDB.On("GetVisitorByID", mock.Anything, "v1").Return(storedAdult(), nil)

	_, err := svc.UpdateVisitor(context.Background(), keeper, "v1", models.VisitorPatch{Type: ptr(models.VisitorStudent)})
	assert.ErrorIs(t, err, apperr.ErrTicketTypeNotFound)
	mockDB.AssertNotCalled(t, "UpdateVisitor", mock.Anything, mock.Anything)
}

func TestDeleteVisitor(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, _ := newService(mockDB, prices)
	mockDB.On("DeleteVisitor", mock.Anything, "v1").Return(nil)
	mockDB.On("DeleteVisitor", mock.Anything, "missing").Return(apperr.ErrVisitorNotFound)

	assert.NoError(t, svc.DeleteVisitor(context.Background(), keeper, "v1"))
	assert.ErrorIs(t, svc.DeleteVisitor(context.Background(), keeper, "missing"), apperr.ErrNotFound)
}

func TestListVisitors_PaginationDefaults(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, _ := newService(mockDB, prices)
	mockDB.On("ListVisitors", mock.Anything, models.VisitorFilter{Page: 1, Limit: 10}).
		Return([]models.Visitor{*storedAdult()}, 25, nil)

	page, err := svc.ListVisitors(context.Background(), models.VisitorFilter{})
	require.NoError(t, err)
	assert.Equal(t, 25, page.TotalDocs)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNextPage)
	assert.False(t, page.HasPrevPage)
}

func TestListVisitors_LimitCappedAndTypeChecked(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, _ := newService(mockDB, prices)
	mockDB.On("ListVisitors", mock.Anything, models.VisitorFilter{Page: 3, Limit: 100}).
		Return([]models.Visitor{}, 250, nil)

	page, err := svc.ListVisitors(context.Background(), models.VisitorFilter{Page: 3, Limit: 1000})
	require.NoError(t, err)
	assert.True(t, page.HasPrevPage)
	assert.False(t, page.HasNextPage)

	_, err = svc.ListVisitors(context.Background(), models.VisitorFilter{Type: "vip"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateVisitor_StorageErrorPropagates(t *testing.T) {
	mockDB := new(MockVisitorDBLayer)
	svc, _ := newService(mockDB, prices)
	mockDB.On("CreateVisitor", mock.Anything, mock.Anything).Return(apperr.Storage("insert visitor", errors.New("disk full")))

	_, err := svc.CreateVisitor(context.Background(), keeper, models.VisitorInput{FullName: "A", Type: models.VisitorAdult, Nationality: "NL"})
	assert.ErrorIs(t, err, apperr.ErrStorage)
}
