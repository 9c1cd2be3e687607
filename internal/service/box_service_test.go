package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parts-inventory-api/internal/dto"
	"github.com/noah-isme/parts-inventory-api/internal/models"
	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
)

// boxRepoStub keeps boxes on top of a stockRepoStub so both services share one grid.
type boxRepoStub struct {
	stock  *stockRepoStub
	boxes  map[int]*models.Box
	nextNo int
}

func newBoxRepoStub(stock *stockRepoStub) *boxRepoStub {
	return &boxRepoStub{stock: stock, boxes: map[int]*models.Box{}, nextNo: 1}
}

func (r *boxRepoStub) snapshot() func() {
	boxes := make(map[int]*models.Box, len(r.boxes))
	for no, box := range r.boxes {
		copied := *box
		boxes[no] = &copied
	}
	locations := make(map[models.LocationRef]bool, len(r.stock.locations))
	for loc, ok := range r.stock.locations {
		locations[loc] = ok
	}
	nextNo := r.nextNo
	return func() {
		r.boxes = boxes
		r.stock.locations = locations
		r.nextNo = nextNo
	}
}

func (r *boxRepoStub) Create(ctx context.Context, box *models.Box) error {
	box.BoxNo = r.nextNo
	r.nextNo++
	copied := *box
	r.boxes[box.BoxNo] = &copied
	return nil
}

func (r *boxRepoStub) AddLocations(ctx context.Context, boxNo, from, to int) error {
	for loc := from; loc <= to; loc++ {
		r.stock.locations[models.LocationRef{BoxNo: boxNo, LocNo: loc}] = true
	}
	return nil
}

func (r *boxRepoStub) RemoveLocations(ctx context.Context, boxNo, from, to int) error {
	for loc := from; loc <= to; loc++ {
		delete(r.stock.locations, models.LocationRef{BoxNo: boxNo, LocNo: loc})
	}
	return nil
}

func (r *boxRepoStub) GetByNo(ctx context.Context, boxNo int) (*models.Box, error) {
	box, ok := r.boxes[boxNo]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *box
	return &copied, nil
}

func (r *boxRepoStub) LockByNo(ctx context.Context, boxNo int) (*models.Box, error) {
	return r.GetByNo(ctx, boxNo)
}

func (r *boxRepoStub) List(ctx context.Context) ([]models.BoxSummary, error) {
	result := make([]models.BoxSummary, 0, len(r.boxes))
	for _, box := range r.boxes {
		result = append(result, models.BoxSummary{Box: *box})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BoxNo < result[j].BoxNo })
	return result, nil
}

func (r *boxRepoStub) Update(ctx context.Context, box *models.Box) error {
	if _, ok := r.boxes[box.BoxNo]; !ok {
		return sql.ErrNoRows
	}
	copied := *box
	r.boxes[box.BoxNo] = &copied
	return nil
}

func (r *boxRepoStub) Delete(ctx context.Context, boxNo int) error {
	if _, ok := r.boxes[boxNo]; !ok {
		return sql.ErrNoRows
	}
	delete(r.boxes, boxNo)
	for loc := range r.stock.locations {
		if loc.BoxNo == boxNo {
			delete(r.stock.locations, loc)
		}
	}
	return nil
}

func (r *boxRepoStub) CountStockFrom(ctx context.Context, boxNo, fromLoc int) (int, error) {
	count := 0
	for _, locs := range r.stock.entries {
		for loc := range locs {
			if loc.BoxNo == boxNo && loc.LocNo >= fromLoc {
				count++
			}
		}
	}
	return count, nil
}

func (r *stockRepoStub) ListByBox(ctx context.Context, boxNo int) ([]models.StockEntry, error) {
	result := make([]models.StockEntry, 0)
	for key, locs := range r.entries {
		for loc, qty := range locs {
			if loc.BoxNo == boxNo {
				result = append(result, models.StockEntry{PartKey: key, BoxNo: loc.BoxNo, LocNo: loc.LocNo, Quantity: qty})
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LocNo != result[j].LocNo {
			return result[i].LocNo < result[j].LocNo
		}
		return result[i].PartKey < result[j].PartKey
	})
	return result, nil
}

type gridFixture struct {
	boxes *BoxService
	stock *StockService
	repo  *boxRepoStub
}

func newGridFixture() *gridFixture {
	stockRepo := newStockRepoStub()
	stockRepo.parts["ABCD"] = true
	stockRepo.parts["WXYZ"] = true
	boxRepo := newBoxRepoStub(stockRepo)
	tx := &txStub{stores: []snapshotter{stockRepo, boxRepo}}
	return &gridFixture{
		boxes: NewBoxService(boxRepo, stockRepo, tx, nil, nil),
		stock: NewStockService(stockRepo, tx, nil, nil),
		repo:  boxRepo,
	}
}

func (f *gridFixture) locationCount(boxNo int) int {
	count := 0
	for loc := range f.repo.stock.locations {
		if loc.BoxNo == boxNo {
			count++
		}
	}
	return count
}

func TestBoxServiceCreateAllocatesSequentialNumbers(t *testing.T) {
	f := newGridFixture()
	ctx := context.Background()

	first, err := f.boxes.Create(ctx, dto.CreateBoxRequest{Description: "Resistors", Capacity: 4})
	require.NoError(t, err)
	second, err := f.boxes.Create(ctx, dto.CreateBoxRequest{Description: "Caps", Capacity: 2})
	require.NoError(t, err)

	assert.Equal(t, 1, first.BoxNo)
	assert.Equal(t, 2, second.BoxNo)
	assert.Equal(t, 4, f.locationCount(1))
	assert.Equal(t, 2, f.locationCount(2))

	for _, capacity := range []int{0, -1} {
		_, err = f.boxes.Create(ctx, dto.CreateBoxRequest{Capacity: capacity})
		requireCode(t, err, appErrors.CodeInvalidOperation)
	}
}

func TestBoxServiceResize(t *testing.T) {
	f := newGridFixture()
	ctx := context.Background()
	box, err := f.boxes.Create(ctx, dto.CreateBoxRequest{Description: "Bin", Capacity: 3})
	require.NoError(t, err)

	grown, err := f.boxes.Resize(ctx, box.BoxNo, dto.UpdateBoxRequest{Description: "Big bin", Capacity: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, grown.Capacity)
	assert.Equal(t, "Big bin", grown.Description)
	assert.Equal(t, 5, f.locationCount(box.BoxNo))

	_, err = f.stock.AddStock(ctx, "ABCD", box.BoxNo, 4, 2)
	require.NoError(t, err)

	_, err = f.boxes.Resize(ctx, box.BoxNo, dto.UpdateBoxRequest{Description: "Small bin", Capacity: 2})
	appErr := requireCode(t, err, appErrors.CodeInvalidOperation)
	assert.Contains(t, appErr.Message, "must be moved or removed first")
	assert.Equal(t, 5, f.locationCount(box.BoxNo))
	assert.Equal(t, "Big bin", f.repo.boxes[box.BoxNo].Description)

	_, err = f.stock.RemoveStock(ctx, "ABCD", box.BoxNo, 4, 2)
	require.NoError(t, err)
	shrunk, err := f.boxes.Resize(ctx, box.BoxNo, dto.UpdateBoxRequest{Description: "Small bin", Capacity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, shrunk.Capacity)
	assert.Equal(t, 2, f.locationCount(box.BoxNo))

	// Locations stay contiguous from 1.
	_, err = f.stock.AddStock(ctx, "ABCD", box.BoxNo, 3, 1)
	appErr = requireCode(t, err, appErrors.CodeNotFound)
	assert.Equal(t, "Location 1-3 not found", appErr.Message)

	_, err = f.boxes.Resize(ctx, 99, dto.UpdateBoxRequest{Capacity: 1})
	appErr = requireCode(t, err, appErrors.CodeNotFound)
	assert.Equal(t, "Box 99 not found", appErr.Message)

	_, err = f.boxes.Resize(ctx, box.BoxNo, dto.UpdateBoxRequest{Capacity: 0})
	requireCode(t, err, appErrors.CodeInvalidOperation)
}

func TestBoxServiceDeleteChecksEveryLocation(t *testing.T) {
	f := newGridFixture()
	ctx := context.Background()
	box, err := f.boxes.Create(ctx, dto.CreateBoxRequest{Capacity: 10})
	require.NoError(t, err)

	// Stock far from location 1 and from a different part must still block deletion.
	_, err = f.stock.AddStock(ctx, "ABCD", box.BoxNo, 1, 1)
	require.NoError(t, err)
	_, err = f.stock.AddStock(ctx, "WXYZ", box.BoxNo, 9, 3)
	require.NoError(t, err)
	_, err = f.stock.RemoveStock(ctx, "ABCD", box.BoxNo, 1, 1)
	require.NoError(t, err)

	err = f.boxes.Delete(ctx, box.BoxNo)
	appErr := requireCode(t, err, appErrors.CodeInvalidOperation)
	assert.Contains(t, appErr.Message, "Box 1 contains parts")

	contents, err := f.boxes.Contents(ctx, box.BoxNo)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Equal(t, "WXYZ", contents[0].PartKey)

	_, err = f.stock.RemoveStock(ctx, "WXYZ", box.BoxNo, 9, 3)
	require.NoError(t, err)
	require.NoError(t, f.boxes.Delete(ctx, box.BoxNo))
	assert.Zero(t, f.locationCount(box.BoxNo))

	requireCode(t, f.boxes.Delete(ctx, box.BoxNo), appErrors.CodeNotFound)
	_, err = f.boxes.Get(ctx, box.BoxNo)
	requireCode(t, err, appErrors.CodeNotFound)
}

func dtoBox(description string, capacity int) dto.CreateBoxRequest {
	return dto.CreateBoxRequest{Description: description, Capacity: capacity}
}
