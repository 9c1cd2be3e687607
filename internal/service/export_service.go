package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/parts-inventory-api/internal/models"
	appErrors "github.com/noah-isme/parts-inventory-api/pkg/errors"
	"github.com/noah-isme/parts-inventory-api/pkg/export"
)

type boxContentsReader interface {
	Get(ctx context.Context, boxNo int) (*models.Box, error)
	Contents(ctx context.Context, boxNo int) ([]models.StockEntry, error)
}

type partStockReader interface {
	PartStock(ctx context.Context, partKey string) (*models.PartStock, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportResult is a rendered report ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders stock reports as CSV or PDF.
type ExportService struct {
	boxes  boxContentsReader
	stock  partStockReader
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(boxes boxContentsReader, stock partStockReader, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{boxes: boxes, stock: stock, csv: csv, pdf: pdf, logger: logger}
}

// BoxContents renders every stock entry held by a box, ordered by location.
func (s *ExportService) BoxContents(ctx context.Context, boxNo int, rawFormat string) (*ExportResult, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.InvalidOperation("export box contents", err.Error())
	}
	box, err := s.boxes.Get(ctx, boxNo)
	if err != nil {
		return nil, err
	}
	entries, err := s.boxes.Contents(ctx, boxNo)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Box %d contents", box.BoxNo)
	if box.Description != "" {
		title = fmt.Sprintf("%s (%s)", title, box.Description)
	}
	dataset := export.Dataset{
		Title:   title,
		Headers: []string{"Location", "Part", "Quantity"},
		Numeric: map[int]bool{2: true},
		Rows:    make([][]string, 0, len(entries)),
	}
	for _, entry := range entries {
		dataset.Rows = append(dataset.Rows, []string{
			entry.Location().String(),
			entry.PartKey,
			strconv.Itoa(entry.Quantity),
		})
	}
	return s.render(dataset, format, fmt.Sprintf("box-%d", box.BoxNo))
}

// PartStock renders the locations of one part with a trailing total row.
func (s *ExportService) PartStock(ctx context.Context, partKey string, rawFormat string) (*ExportResult, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.InvalidOperation("export part stock", err.Error())
	}
	stock, err := s.stock.PartStock(ctx, strings.ToUpper(partKey))
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Title:   fmt.Sprintf("Stock of part %s", stock.PartKey),
		Headers: []string{"Box", "Location", "Quantity"},
		Numeric: map[int]bool{0: true, 1: true, 2: true},
		Rows:    make([][]string, 0, len(stock.Locations)+1),
	}
	for _, entry := range stock.Locations {
		dataset.Rows = append(dataset.Rows, []string{
			strconv.Itoa(entry.BoxNo),
			strconv.Itoa(entry.LocNo),
			strconv.Itoa(entry.Quantity),
		})
	}
	dataset.Rows = append(dataset.Rows, []string{"Total", "", strconv.Itoa(stock.Total)})
	return s.render(dataset, format, "part-"+strings.ToLower(stock.PartKey))
}

func (s *ExportService) render(dataset export.Dataset, format export.Format, name string) (*ExportResult, error) {
	var (
		payload []byte
		err     error
	)
	switch format {
	case export.FormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.logger.Warn("render export failed", zap.String("name", name), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.WrapInvalid(err, "render export")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("%s.%s", name, format),
		ContentType: format.ContentType(),
		Data:        payload,
	}, nil
}
