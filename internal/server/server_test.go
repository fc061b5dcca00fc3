package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/config"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/converter"
	"github.com/ginjaninja78/qbo-invoice-converter/internal/qbowriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const report = "Id,Name,Cleaning Date,House,Code,Status,Price,Note\n" +
	"1,Alice,2024-03-01,H1,C1,Delivery,10,\n" +
	"2,Bob,2024-03-02,H2,C2,Cancelled,99,\n" +
	"3,Carol,2024-03-02,H3,C3,Open,abc,\n" +
	"4,Alice,2024-03-03,H1,C4,Production,20,ring bell\n"

func newTestServer(t *testing.T, cfg *config.MainConfig) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if cfg == nil {
		cfg = config.Default()
	}
	logger := zaptest.NewLogger(t)
	return New(cfg, converter.New(cfg, logger), logger).Handler()
}

func upload(t *testing.T, path, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := serve(h, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestListCustomers(t *testing.T) {
	h := newTestServer(t, nil)

	rec := serve(h, upload(t, "/api/customers", "report.csv", []byte(report), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Customers []string `json:"customers"`
		Roles     map[string]struct {
			Column string `json:"column"`
			Tier   string `json:"tier"`
		} `json:"roles"`
		Warnings []any `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, []string{"Alice", "Carol"}, body.Customers)
	assert.Equal(t, "Name", body.Roles["customer"].Column)
	assert.Equal(t, "exact", body.Roles["customer"].Tier)
	assert.NotNil(t, body.Warnings)
}

func TestListCustomers_Errors(t *testing.T) {
	h := newTestServer(t, nil)

	t.Run("missing file", func(t *testing.T) {
		rec := serve(h, upload(t, "/api/customers", "", nil, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		rec := serve(h, upload(t, "/api/customers", "report.pdf", []byte(report), nil))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("no price column", func(t *testing.T) {
		rec := serve(h, upload(t, "/api/customers", "report.csv", []byte("Name,House,Code\nAlice,H1,C1\n"), nil))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "price")
	})

	t.Run("nothing billable", func(t *testing.T) {
		data := "Id,Name,Status,Price\n1,Bob,Cancelled,10\n"
		rec := serve(h, upload(t, "/api/customers", "report.csv", []byte(data), nil))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestCreateInvoices_CSV(t *testing.T) {
	h := newTestServer(t, nil)

	rec := serve(h, upload(t, "/api/invoices", "report.csv", []byte(report), map[string]string{
		"start_invoice_number": "500",
		"invoice_date":         "2024-03-10",
		"overrides":            `{"Carol":"Carol Ltd"}`,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")

	body := rec.Body.Bytes()
	require.True(t, bytes.HasPrefix(body, qbowriter.BOM))

	lines := strings.Split(strings.TrimSpace(string(body[len(qbowriter.BOM):])), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "*InvoiceNo,*Customer"))
	assert.True(t, strings.HasPrefix(lines[1], "500,Alice,10/03/2024,14/03/2024,"))
	assert.True(t, strings.HasPrefix(lines[2], "500,,,,"))
	assert.True(t, strings.HasPrefix(lines[3], "501,Carol Ltd,"))
}

func TestCreateInvoices_JSON(t *testing.T) {
	h := newTestServer(t, nil)

	rec := serve(h, upload(t, "/api/invoices", "report.csv", []byte(report), map[string]string{
		"start_invoice_number": "7",
		"invoice_date":         "2024-03-10",
		"format":               "json",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Columns           []string   `json:"columns"`
		Rows              [][]string `json:"rows"`
		NextInvoiceNumber int        `json:"next_invoice_number"`
		Warnings          []struct {
			Severity string `json:"severity"`
			Rule     string `json:"rule"`
		} `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Len(t, body.Columns, 9)
	require.Len(t, body.Rows, 3)
	assert.Equal(t, "7", body.Rows[0][0])
	assert.Equal(t, "0.00", body.Rows[2][7])
	assert.Equal(t, 9, body.NextInvoiceNumber)

	require.NotEmpty(t, body.Warnings)
	assert.Equal(t, "warning", body.Warnings[0].Severity)
}

func TestCreateInvoices_BadParams(t *testing.T) {
	h := newTestServer(t, nil)

	cases := map[string]map[string]string{
		"missing start":  {"invoice_date": "2024-03-10"},
		"zero start":     {"start_invoice_number": "0", "invoice_date": "2024-03-10"},
		"bad date":       {"start_invoice_number": "1", "invoice_date": "10/03/2024"},
		"bad overrides":  {"start_invoice_number": "1", "invoice_date": "2024-03-10", "overrides": "[1,2]"},
		"text as number": {"start_invoice_number": "abc", "invoice_date": "2024-03-10"},
	}

	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(h, upload(t, "/api/invoices", "report.csv", []byte(report), fields))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxUploadBytes = 32
	h := newTestServer(t, cfg)

	rec := serve(h, upload(t, "/api/customers", "report.csv", []byte(report), nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func postJSON(t *testing.T, path string, v any) *http.Request {
	t.Helper()

	body, err := json.Marshal(v)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestExportInvoices_ReviewedTable(t *testing.T) {
	h := newTestServer(t, nil)

	rec := serve(h, upload(t, "/api/invoices", "report.csv", []byte(report), map[string]string{
		"start_invoice_number": "500",
		"invoice_date":         "2024-03-10",
		"format":               "json",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var review struct {
		File    string     `json:"file"`
		Columns []string   `json:"columns"`
		Rows    [][]string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &review))
	require.Len(t, review.Rows, 3)

	review.Rows[2][7] = "15.00"
	review.Rows[2][5] = "H3, / order id: 3 / Notes: priced by hand"

	rec = serve(h, postJSON(t, "/api/invoices/export", review))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	body := rec.Body.Bytes()
	require.True(t, bytes.HasPrefix(body, qbowriter.BOM))
	text := string(body[len(qbowriter.BOM):])

	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "*InvoiceNo,*Customer"))
	assert.Contains(t, lines[3], "priced by hand")
	assert.Contains(t, lines[3], "15.00")
}

func TestExportInvoices_Rejects(t *testing.T) {
	h := newTestServer(t, nil)

	row := []string{"1", "Alice", "10/03/2024", "14/03/2024", "Item", "desc", "1", "10.00", "05/03/2024"}

	cases := map[string]any{
		"short row":     map[string]any{"rows": [][]string{row[:5]}},
		"no rows":       map[string]any{"rows": [][]string{}},
		"wrong columns": map[string]any{"columns": []string{"a", "b"}, "rows": [][]string{row}},
		"not an object": []int{1, 2},
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(h, postJSON(t, "/api/invoices/export", body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}
