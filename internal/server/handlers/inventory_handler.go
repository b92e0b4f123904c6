package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/medstock/internal/domain/models"
	"github.com/mamadbah2/medstock/internal/service/importer"
	"github.com/mamadbah2/medstock/internal/service/ledger"
	"github.com/mamadbah2/medstock/internal/service/sales"
)

const maxUploadBytes = 10 << 20

// Inventory is the ledger surface exposed over HTTP.
type Inventory interface {
	AllRecords() []models.MedicineRecord
	LowStock() []models.MedicineRecord
	Resolve(query string) (ledger.Match, bool)
	Adjust(ctx context.Context, id, quantity int, direction models.Direction) (models.MedicineRecord, error)
	AdjustByQuery(ctx context.Context, query string, quantity int, direction models.Direction) (ledger.AdjustResult, error)
	Classify(record models.MedicineRecord) models.StockStatus
}

// Importer reconciles uploaded tables with the ledger.
type Importer interface {
	ReplaceAll(ctx context.Context, table importer.Table) (importer.ReplaceReport, error)
	Merge(ctx context.Context, table importer.Table) (importer.MergeReport, error)
}

// SalesProcessor applies a multi-line sales message.
type SalesProcessor interface {
	ProcessMessage(ctx context.Context, text string, direction models.Direction) (sales.BatchResult, error)
}

// InventoryHandler serves the ledger, import and sales endpoints.
type InventoryHandler struct {
	inventory Inventory
	importer  Importer
	sales     SalesProcessor
	logger    *zap.Logger
}

// NewInventoryHandler constructs the inventory HTTP adapter.
func NewInventoryHandler(inventory Inventory, imp Importer, salesSvc SalesProcessor, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{inventory: inventory, importer: imp, sales: salesSvc, logger: logger}
}

type recordView struct {
	models.MedicineRecord
	Status models.StockStatus `json:"status"`
}

func (h *InventoryHandler) view(records []models.MedicineRecord) []recordView {
	out := make([]recordView, 0, len(records))
	for _, r := range records {
		out = append(out, recordView{MedicineRecord: r, Status: h.inventory.Classify(r)})
	}
	return out
}

// List returns every medicine with its stock status.
func (h *InventoryHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"medicines": h.view(h.inventory.AllRecords())})
}

// LowStock returns medicines at or below their warning level, lowest first.
func (h *InventoryHandler) LowStock(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"medicines": h.view(h.inventory.LowStock())})
}

// Resolve maps a free-text query to a medicine.
func (h *InventoryHandler) Resolve(c *gin.Context) {
	query := c.Query("q")
	if strings.TrimSpace(query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	match, ok := h.inventory.Resolve(query)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no matching medicine"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"medicine": recordView{MedicineRecord: match.Record, Status: h.inventory.Classify(match.Record)},
		"score":    match.Score,
	})
}

// Adjust applies one sale or purchase, by id or by query.
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req models.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid adjust payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	if req.ID > 0 {
		record, err := h.inventory.Adjust(ctx, req.ID, req.Quantity, req.Direction)
		if err != nil {
			h.adjustError(c, err)
			return
		}
		c.JSON(http.StatusOK, ledger.AdjustResult{Record: record, Score: ledger.ScoreExact, Status: h.inventory.Classify(record)})
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id or query is required"})
		return
	}
	result, err := h.inventory.AdjustByQuery(ctx, req.Query, req.Quantity, req.Direction)
	if err != nil {
		h.adjustError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *InventoryHandler) adjustError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrNoMatch), errors.Is(err, ledger.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidQuantity), errors.Is(err, ledger.ErrStockOverflow), errors.Is(err, ledger.ErrInvalidDirection):
		status = http.StatusBadRequest
	default:
		h.logger.Error("stock adjustment failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// Import loads a CSV body in replace or merge mode.
func (h *InventoryHandler) Import(c *gin.Context) {
	mode, ok := importer.ParseMode(c.DefaultQuery("mode", string(importer.ModeMerge)))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be replace or merge"})
		return
	}

	table, err := ReadCSVTable(http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	switch mode {
	case importer.ModeReplace:
		report, err := h.importer.ReplaceAll(ctx, table)
		if err != nil {
			h.importError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"mode": mode, "imported": report.Imported, "errors": rowErrorStrings(report.Errors)})
	default:
		report, err := h.importer.Merge(ctx, table)
		if err != nil {
			h.importError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"mode":    mode,
			"updated": report.Updated,
			"created": report.Created,
			"details": report.Details,
			"errors":  rowErrorStrings(report.Errors),
		})
	}
}

func (h *InventoryHandler) importError(c *gin.Context, err error) {
	if errors.Is(err, importer.ErrValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("import failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
}

// Sales applies a plain text sales message, one "<name> <qty> <price>" per line.
// direction=bought records purchases instead.
func (h *InventoryHandler) Sales(c *gin.Context) {
	direction := models.Direction(c.DefaultQuery("direction", string(models.DirectionSold)))
	if !direction.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction must be sold or bought"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read body"})
		return
	}

	result, err := h.sales.ProcessMessage(c.Request.Context(), string(body), direction)
	switch {
	case errors.Is(err, sales.ErrNoSaleLines):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("sales batch aborted", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sales batch aborted", "result": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReadCSVTable reads a CSV upload whose first record is the header.
func ReadCSVTable(r io.Reader) (importer.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return importer.Table{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return importer.Table{}, errors.New("csv body is empty")
	}
	return importer.Table{Header: records[0], Rows: records[1:]}, nil
}

func rowErrorStrings(rowErrors []importer.RowError) []string {
	out := make([]string, 0, len(rowErrors))
	for _, e := range rowErrors {
		out = append(out, e.Error())
	}
	return out
}
