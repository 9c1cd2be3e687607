package service

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"sort"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parts-inventory-api/internal/models"
	"github.com/noah-isme/parts-inventory-api/pkg/database"
	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
)

type snapshotter interface {
	snapshot() func()
}

// txStub runs fn directly and restores registered stores when fn fails.
type txStub struct {
	stores []snapshotter
	calls  int
}

func (t *txStub) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	restores := make([]func(), 0, len(t.stores))
	for _, s := range t.stores {
		restores = append(restores, s.snapshot())
	}
	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

type stockRepoStub struct {
	parts        map[string]bool
	locations    map[models.LocationRef]bool
	entries      map[string]map[models.LocationRef]int
	history      []models.QuantityHistory
	incrementErr error
}

func newStockRepoStub() *stockRepoStub {
	return &stockRepoStub{
		parts:     map[string]bool{},
		locations: map[models.LocationRef]bool{},
		entries:   map[string]map[models.LocationRef]int{},
	}
}

func (r *stockRepoStub) addBox(boxNo, capacity int) {
	for loc := 1; loc <= capacity; loc++ {
		r.locations[models.LocationRef{BoxNo: boxNo, LocNo: loc}] = true
	}
}

func (r *stockRepoStub) snapshot() func() {
	entries := make(map[string]map[models.LocationRef]int, len(r.entries))
	for key, locs := range r.entries {
		copied := make(map[models.LocationRef]int, len(locs))
		for loc, qty := range locs {
			copied[loc] = qty
		}
		entries[key] = copied
	}
	history := append([]models.QuantityHistory(nil), r.history...)
	return func() {
		r.entries = entries
		r.history = history
	}
}

func (r *stockRepoStub) quantity(key string, boxNo, locNo int) (int, bool) {
	qty, ok := r.entries[key][models.LocationRef{BoxNo: boxNo, LocNo: locNo}]
	return qty, ok
}

func (r *stockRepoStub) PartExists(ctx context.Context, partKey string) (bool, error) {
	return r.parts[partKey], nil
}

func (r *stockRepoStub) LocationExists(ctx context.Context, boxNo, locNo int) (bool, error) {
	return r.locations[models.LocationRef{BoxNo: boxNo, LocNo: locNo}], nil
}

func (r *stockRepoStub) LockForUpdate(ctx context.Context, partKey string, boxNo, locNo int) (*models.StockEntry, error) {
	qty, ok := r.quantity(partKey, boxNo, locNo)
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.StockEntry{PartKey: partKey, BoxNo: boxNo, LocNo: locNo, Quantity: qty}, nil
}

func (r *stockRepoStub) Increment(ctx context.Context, partKey string, boxNo, locNo, qty int) (*models.StockEntry, error) {
	if r.incrementErr != nil {
		return nil, r.incrementErr
	}
	if r.entries[partKey] == nil {
		r.entries[partKey] = map[models.LocationRef]int{}
	}
	loc := models.LocationRef{BoxNo: boxNo, LocNo: locNo}
	r.entries[partKey][loc] += qty
	return &models.StockEntry{PartKey: partKey, BoxNo: boxNo, LocNo: locNo, Quantity: r.entries[partKey][loc]}, nil
}

func (r *stockRepoStub) SetQuantity(ctx context.Context, partKey string, boxNo, locNo, qty int) error {
	if _, ok := r.quantity(partKey, boxNo, locNo); !ok {
		return sql.ErrNoRows
	}
	r.entries[partKey][models.LocationRef{BoxNo: boxNo, LocNo: locNo}] = qty
	return nil
}

func (r *stockRepoStub) Delete(ctx context.Context, partKey string, boxNo, locNo int) error {
	if _, ok := r.quantity(partKey, boxNo, locNo); !ok {
		return sql.ErrNoRows
	}
	delete(r.entries[partKey], models.LocationRef{BoxNo: boxNo, LocNo: locNo})
	return nil
}

func (r *stockRepoStub) AppendHistory(ctx context.Context, entry *models.QuantityHistory) error {
	entry.ID = int64(len(r.history) + 1)
	r.history = append(r.history, *entry)
	return nil
}

func (r *stockRepoStub) TotalQuantity(ctx context.Context, partKey string) (int, error) {
	total := 0
	for _, qty := range r.entries[partKey] {
		total += qty
	}
	return total, nil
}

func (r *stockRepoStub) ListByPart(ctx context.Context, partKey string) ([]models.StockEntry, error) {
	result := make([]models.StockEntry, 0)
	for loc, qty := range r.entries[partKey] {
		result = append(result, models.StockEntry{PartKey: partKey, BoxNo: loc.BoxNo, LocNo: loc.LocNo, Quantity: qty})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].BoxNo != result[j].BoxNo {
			return result[i].BoxNo < result[j].BoxNo
		}
		return result[i].LocNo < result[j].LocNo
	})
	return result, nil
}

func (r *stockRepoStub) FirstFreeLocation(ctx context.Context, boxNo *int) (*models.LocationRef, error) {
	occupied := map[models.LocationRef]bool{}
	for _, locs := range r.entries {
		for loc := range locs {
			occupied[loc] = true
		}
	}
	candidates := make([]models.LocationRef, 0)
	for loc := range r.locations {
		if occupied[loc] || (boxNo != nil && loc.BoxNo != *boxNo) {
			continue
		}
		candidates = append(candidates, loc)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].BoxNo != candidates[j].BoxNo {
			return candidates[i].BoxNo < candidates[j].BoxNo
		}
		return candidates[i].LocNo < candidates[j].LocNo
	})
	return &candidates[0], nil
}

func (r *stockRepoStub) History(ctx context.Context, partKey string, limit int) ([]models.QuantityHistory, error) {
	result := make([]models.QuantityHistory, 0)
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].PartKey == partKey {
			result = append(result, r.history[i])
		}
	}
	return result, nil
}

type stockMetricsStub struct {
	operations []string
}

func (m *stockMetricsStub) RecordStockMutation(operation string) {
	m.operations = append(m.operations, operation)
}

func newStockServiceForTest() (*StockService, *stockRepoStub, *stockMetricsStub) {
	repo := newStockRepoStub()
	repo.parts["ABCD"] = true
	repo.parts["WXYZ"] = true
	repo.addBox(1, 3)
	repo.addBox(2, 2)
	metrics := &stockMetricsStub{}
	return NewStockService(repo, &txStub{stores: []snapshotter{repo}}, metrics, nil), repo, metrics
}

func requireCode(t *testing.T, err error, code string) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected typed error, got %v", err)
	require.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}

func TestStockServiceAddCreatesThenIncrements(t *testing.T) {
	svc, repo, metrics := newStockServiceForTest()
	ctx := context.Background()

	entry, err := svc.AddStock(ctx, "ABCD", 1, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, entry.Quantity)

	entry, err = svc.AddStock(ctx, "ABCD", 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 8, entry.Quantity)

	require.Len(t, repo.history, 2)
	assert.Equal(t, 3, repo.history[1].Delta)
	assert.Equal(t, models.StockOperationAdd, repo.history[1].Operation)
	assert.Equal(t, []string{"ADD", "ADD"}, metrics.operations)
}

func TestStockServiceAddValidation(t *testing.T) {
	svc, repo, _ := newStockServiceForTest()
	ctx := context.Background()

	for _, qty := range []int{0, -4} {
		appErr := requireCode(t, mustFailAdd(svc, ctx, "ABCD", 1, 1, qty), appErrors.CodeInvalidOperation)
		assert.Contains(t, appErr.Message, "quantity must be positive")
	}

	appErr := requireCode(t, mustFailAdd(svc, ctx, "NOPE", 1, 1, 1), appErrors.CodeNotFound)
	assert.Equal(t, "Part NOPE not found", appErr.Message)

	appErr = requireCode(t, mustFailAdd(svc, ctx, "ABCD", 1, 99, 1), appErrors.CodeNotFound)
	assert.Equal(t, "Location 1-99 not found", appErr.Message)

	assert.Empty(t, repo.history)
}

func mustFailAdd(svc *StockService, ctx context.Context, key string, box, loc, qty int) error {
	_, err := svc.AddStock(ctx, key, box, loc, qty)
	return err
}

func TestStockServiceRemove(t *testing.T) {
	svc, repo, _ := newStockServiceForTest()
	ctx := context.Background()
	_, err := svc.AddStock(ctx, "ABCD", 1, 1, 10)
	require.NoError(t, err)

	_, err = svc.RemoveStock(ctx, "ABCD", 1, 2, 1)
	appErr := requireCode(t, err, appErrors.CodeNotFound)
	assert.Equal(t, "Part location ABCD at 1-2 not found", appErr.Message)

	_, err = svc.RemoveStock(ctx, "ABCD", 1, 1, 11)
	appErr = requireCode(t, err, appErrors.CodeInsufficientQuantity)
	assert.Equal(t, 11, appErr.Details["requested"])
	assert.Equal(t, 10, appErr.Details["available"])
	assert.Equal(t, "1-1", appErr.Details["location"])

	left, err := svc.RemoveStock(ctx, "ABCD", 1, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, left.Quantity)

	left, err = svc.RemoveStock(ctx, "ABCD", 1, 1, 6)
	require.NoError(t, err)
	assert.Nil(t, left)
	_, exists := repo.quantity("ABCD", 1, 1)
	assert.False(t, exists, "an entry reaching zero must be deleted")

	total, err := svc.TotalQuantity(ctx, "ABCD")
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Equal(t, -6, repo.history[len(repo.history)-1].Delta)
}

func TestStockServiceMoveValidationOrder(t *testing.T) {
	svc, repo, _ := newStockServiceForTest()
	ctx := context.Background()
	_, err := svc.AddStock(ctx, "ABCD", 1, 1, 10)
	require.NoError(t, err)

	// Missing source is reported before a missing destination.
	_, err = svc.MoveStock(ctx, "ABCD", 1, 2, 9, 9, 1)
	appErr := requireCode(t, err, appErrors.CodeNotFound)
	assert.Equal(t, "Part location ABCD at 1-2 not found", appErr.Message)

	// Insufficient source never reveals whether the destination exists.
	_, err = svc.MoveStock(ctx, "ABCD", 1, 1, 9, 9, 11)
	appErr = requireCode(t, err, appErrors.CodeInsufficientQuantity)
	assert.Equal(t, "1-1", appErr.Details["location"])

	_, err = svc.MoveStock(ctx, "ABCD", 1, 1, 9, 9, 5)
	appErr = requireCode(t, err, appErrors.CodeNotFound)
	assert.Equal(t, "Location 9-9 not found", appErr.Message)

	_, err = svc.MoveStock(ctx, "ABCD", 1, 1, 2, 1, 0)
	requireCode(t, err, appErrors.CodeInvalidOperation)

	qty, _ := repo.quantity("ABCD", 1, 1)
	assert.Equal(t, 10, qty, "failed moves must not touch the source")
	assert.Len(t, repo.history, 1)
}

func TestStockServiceMoveTransfersAndRecordsBothSides(t *testing.T) {
	svc, repo, metrics := newStockServiceForTest()
	ctx := context.Background()
	_, err := svc.AddStock(ctx, "ABCD", 1, 1, 10)
	require.NoError(t, err)
	_, err = svc.AddStock(ctx, "ABCD", 2, 2, 1)
	require.NoError(t, err)

	result, err := svc.MoveStock(ctx, "ABCD", 1, 1, 2, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, result.Source.Quantity)
	assert.Equal(t, 5, result.Destination.Quantity)

	moves := repo.history[2:]
	require.Len(t, moves, 2)
	assert.Equal(t, models.QuantityHistory{ID: 3, PartKey: "ABCD", BoxNo: 1, LocNo: 1, Delta: -4, Operation: models.StockOperationMove}, moves[0])
	assert.Equal(t, 4, moves[1].Delta)
	assert.Equal(t, 2, moves[1].BoxNo)

	result, err = svc.MoveStock(ctx, "ABCD", 1, 1, 2, 1, 6)
	require.NoError(t, err)
	assert.Nil(t, result.Source)
	_, exists := repo.quantity("ABCD", 1, 1)
	assert.False(t, exists)

	total, err := svc.TotalQuantity(ctx, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	assert.Equal(t, []string{"ADD", "ADD", "MOVE", "MOVE"}, metrics.operations)
}

func TestStockServiceSameLocationMoveIsNoop(t *testing.T) {
	svc, repo, metrics := newStockServiceForTest()
	ctx := context.Background()
	_, err := svc.AddStock(ctx, "ABCD", 1, 1, 3)
	require.NoError(t, err)

	_, err = svc.MoveStock(ctx, "ABCD", 1, 1, 1, 1, 4)
	requireCode(t, err, appErrors.CodeInsufficientQuantity)

	result, err := svc.MoveStock(ctx, "ABCD", 1, 1, 1, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Destination.Quantity)

	qty, _ := repo.quantity("ABCD", 1, 1)
	assert.Equal(t, 3, qty)
	assert.Len(t, repo.history, 1)
	assert.Equal(t, []string{"ADD"}, metrics.operations)
}

func TestStockServiceMoveRollsBackOnLateFailure(t *testing.T) {
	svc, repo, _ := newStockServiceForTest()
	ctx := context.Background()
	_, err := svc.AddStock(ctx, "ABCD", 1, 1, 5)
	require.NoError(t, err)

	repo.incrementErr = errors.New("connection reset")
	_, err = svc.MoveStock(ctx, "ABCD", 1, 1, 1, 2, 5)
	appErr := requireCode(t, err, appErrors.CodeInvalidOperation)
	assert.Contains(t, appErr.Message, "connection reset")

	qty, ok := repo.quantity("ABCD", 1, 1)
	require.True(t, ok)
	assert.Equal(t, 5, qty)
	assert.Len(t, repo.history, 1)
}

func TestStockServiceSuggestLocation(t *testing.T) {
	svc, _, _ := newStockServiceForTest()
	ctx := context.Background()

	ref, err := svc.SuggestLocation(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, &models.LocationRef{BoxNo: 1, LocNo: 1}, ref)

	_, err = svc.AddStock(ctx, "ABCD", 1, 1, 1)
	require.NoError(t, err)
	_, err = svc.AddStock(ctx, "WXYZ", 1, 2, 1)
	require.NoError(t, err)

	ref, err = svc.SuggestLocation(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, &models.LocationRef{BoxNo: 1, LocNo: 3}, ref)

	box := 2
	ref, err = svc.SuggestLocation(ctx, &box)
	require.NoError(t, err)
	assert.Equal(t, &models.LocationRef{BoxNo: 2, LocNo: 1}, ref)

	for _, loc := range []models.LocationRef{{BoxNo: 1, LocNo: 3}, {BoxNo: 2, LocNo: 1}, {BoxNo: 2, LocNo: 2}} {
		_, err = svc.AddStock(ctx, "ABCD", loc.BoxNo, loc.LocNo, 1)
		require.NoError(t, err)
	}
	ref, err = svc.SuggestLocation(ctx, &box)
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestStockServiceTotalsForUnknownPart(t *testing.T) {
	svc, _, _ := newStockServiceForTest()
	total, err := svc.TotalQuantity(context.Background(), "ZZZZ")
	require.NoError(t, err)
	assert.Zero(t, total)

	entries, err := svc.LocationsFor(context.Background(), "ZZZZ")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStockServiceRandomOperationsKeepLedgerConsistent(t *testing.T) {
	svc, repo, _ := newStockServiceForTest()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	keys := []string{"ABCD", "WXYZ"}
	locs := make([]models.LocationRef, 0, len(repo.locations))
	for loc := range repo.locations {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i].String() < locs[j].String() })

	for i := 0; i < 500; i++ {
		key := keys[rng.Intn(len(keys))]
		src := locs[rng.Intn(len(locs))]
		dst := locs[rng.Intn(len(locs))]
		qty := rng.Intn(6) - 1
		switch rng.Intn(3) {
		case 0:
			_, _ = svc.AddStock(ctx, key, src.BoxNo, src.LocNo, qty)
		case 1:
			_, _ = svc.RemoveStock(ctx, key, src.BoxNo, src.LocNo, qty)
		default:
			_, _ = svc.MoveStock(ctx, key, src.BoxNo, src.LocNo, dst.BoxNo, dst.LocNo, qty)
		}

		for _, entries := range repo.entries {
			for loc, q := range entries {
				require.Positive(t, q, "zero or negative row at %s", loc)
			}
		}
	}

	for _, key := range keys {
		sum := 0
		for _, h := range repo.history {
			if h.PartKey == key {
				sum += h.Delta
			}
		}
		total, err := svc.TotalQuantity(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, sum, total, "history deltas must add up to the ledger total for %s", key)
	}
}

func TestStockServiceTransactionFailuresAreTyped(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db := sqlx.NewDb(sqlDB, "sqlmock")

	repo := newStockRepoStub()
	repo.parts["ABCD"] = true
	repo.addBox(1, 4)
	svc := NewStockService(repo, database.NewTransactor(db), nil, nil)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))
	_, err = svc.AddStock(context.Background(), "ABCD", 1, 1, 5)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.CodeInvalidOperation, appErr.Code)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("could not serialize access"))
	_, err = svc.AddStock(context.Background(), "ABCD", 1, 1, 5)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.CodeInvalidOperation, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
