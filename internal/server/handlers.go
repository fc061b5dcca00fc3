package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/converter"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/invoice"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/loader"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/qbowriter"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/resolver"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/types"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/validation"
	"github.com/ginjaninja78/qbo-invoice-converter/pkg/utils"
)

// errBadRequest marks malformed request parameters.
var errBadRequest = errors.New("bad request")

// ListCustomers handles POST /api/customers.
func (s *Server) ListCustomers(c *gin.Context) {
	table, ok := s.loadUpload(c)
	if !ok {
		return
	}

	list, err := s.conv.Customers(table)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"file":      list.Source,
		"customers": list.Customers,
		"roles":     list.Roles,
		"warnings":  nonNil(list.Warnings),
	})
}

// CreateInvoices handles POST /api/invoices.
func (s *Server) CreateInvoices(c *gin.Context) {
	table, ok := s.loadUpload(c)
	if !ok {
		return
	}

	params, err := parseParams(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.conv.Convert(table, params)
	if err != nil {
		s.fail(c, err)
		return
	}

	if c.PostForm("format") == "json" || c.Query("format") == "json" {
		c.JSON(http.StatusOK, gin.H{
			"file":                res.Source,
			"columns":             invoice.Columns,
			"rows":                invoice.Records(res.Lines),
			"next_invoice_number": res.NextInvoiceNumber,
			"warnings":            nonNil(res.Validation.Errors),
		})
		return
	}

	data, err := qbowriter.Bytes(res.Lines)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.sendCSV(c, res.Source, data)
}

// exportRequest is a reviewed invoice table sent back for download.
type exportRequest struct {
	File    string     `json:"file"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ExportInvoices handles POST /api/invoices/export: it writes a reviewed,
// possibly edited, table as the import CSV. Rows are in invoice.Columns
// order; columns, when present, must be exactly invoice.Columns.
func (s *Server) ExportInvoices(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bodyError(err))
		return
	}

	if req.Columns != nil && !slices.Equal(req.Columns, invoice.Columns) {
		s.fail(c, fmt.Errorf("%w: columns must be %s", errBadRequest, strings.Join(invoice.Columns, ",")))
		return
	}
	if len(req.Rows) == 0 {
		s.fail(c, fmt.Errorf("%w: rows must not be empty", errBadRequest))
		return
	}

	records := make([]qbowriter.Record, len(req.Rows))
	for i, row := range req.Rows {
		r, err := qbowriter.RecordFromFields(row)
		if err != nil {
			s.fail(c, fmt.Errorf("%w: row %d: %v", errBadRequest, i+1, err))
			return
		}
		records[i] = r
	}

	data, err := qbowriter.RecordBytes(records)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.sendCSV(c, req.File, data)
}

func (s *Server) sendCSV(c *gin.Context, source string, data []byte) {
	name := utils.GenerateOutputFileName(s.cfg.OutputNameFormat, source)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// loadUpload reads the "file" form field and loads it. On failure the error
// response is already written.
func (s *Server) loadUpload(c *gin.Context) (*types.Table, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		s.fail(c, uploadError(err))
		return nil, false
	}

	f, err := header.Open()
	if err != nil {
		s.fail(c, fmt.Errorf("failed to open upload: %w", err))
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, fmt.Errorf("failed to read upload: %w", err))
		return nil, false
	}

	table, err := s.conv.Load(header.Filename, data)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return table, true
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: body must be a JSON object with rows: %v", errBadRequest, err)
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: a report file is required in the 'file' field: %v", errBadRequest, err)
}

// parseParams reads the invoice parameters from the form.
func parseParams(c *gin.Context) (converter.Params, error) {
	var params converter.Params

	start, err := strconv.Atoi(strings.TrimSpace(c.PostForm("start_invoice_number")))
	if err != nil || start <= 0 {
		return params, fmt.Errorf("%w: start_invoice_number must be a positive integer", errBadRequest)
	}
	params.StartInvoiceNumber = start

	date, err := time.Parse("2006-01-02", strings.TrimSpace(c.PostForm("invoice_date")))
	if err != nil {
		return params, fmt.Errorf("%w: invoice_date must be YYYY-MM-DD", errBadRequest)
	}
	params.InvoiceDate = date

	if raw := strings.TrimSpace(c.PostForm("overrides")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params.CustomerOverrides); err != nil {
			return params, fmt.Errorf("%w: overrides must be a JSON object of names: %v", errBadRequest, err)
		}
	}

	return params, nil
}

// fail records err on the context and writes the matching JSON error.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest), errors.Is(err, invoice.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, resolver.ErrUnresolvedRequiredColumn),
		errors.Is(err, invoice.ErrNoValidRows),
		errors.Is(err, loader.ErrInvalidFilename),
		errors.Is(err, loader.ErrUnreadableSource):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func nonNil(findings []*validation.ValidationError) []*validation.ValidationError {
	if findings == nil {
		return []*validation.ValidationError{}
	}
	return findings
}
