package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defectdesk/defectdesk-server/internal/catalog"
	"github.com/defectdesk/defectdesk-server/internal/domain"
	"github.com/defectdesk/defectdesk-server/internal/imageproxy"
	"github.com/defectdesk/defectdesk-server/internal/script"
	"github.com/defectdesk/defectdesk-server/internal/service"
	"github.com/defectdesk/defectdesk-server/internal/validation"
)

// fakeFetcher serves canned tables per sheet name.
type fakeFetcher struct {
	tables map[string]*domain.Table
}

func (f *fakeFetcher) Fetch(_ context.Context, sheet string) (*domain.Table, error) {
	if table, ok := f.tables[sheet]; ok {
		return table, nil
	}
	return &domain.Table{}, nil
}

func setupServer(t *testing.T, tables map[string]*domain.Table) *Server {
	t.Helper()

	scriptSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "[]")
	}))
	t.Cleanup(scriptSrv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := catalog.Default()
	fetcher := &fakeFetcher{tables: tables}

	dashboardService := service.NewDashboardService(fetcher, cat, logger)
	tableService := service.NewTableService(fetcher, cat, logger)
	imageFetcher := imageproxy.NewFetcher(5*time.Second, logger)
	exportService := service.NewExportService(tableService, imageFetcher, 100, logger)
	scriptClient := script.NewClient(scriptSrv.URL+"/report", scriptSrv.URL+"/process", "doc-123", 5*time.Second, logger)
	submitService := service.NewSubmitService(scriptClient, cat, validation.New(), logger)

	return NewServer(dashboardService, tableService, exportService, submitService, imageFetcher, cat, logger)
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Success bool            `json:"success"`
}

func doRequest(t *testing.T, srv *Server, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestHealthCheck(t *testing.T) {
	srv := setupServer(t, nil)

	rec, env := doRequest(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestListCategories(t *testing.T) {
	srv := setupServer(t, nil)

	rec, env := doRequest(t, srv, http.MethodGet, "/api/v1/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cats []catalog.Category
	require.NoError(t, json.Unmarshal(env.Data, &cats))
	assert.Len(t, cats, 4)
	assert.Equal(t, "QLHC", cats[0].ShortName)
}

func TestGetDashboard(t *testing.T) {
	tables := map[string]*domain.Table{
		"TPM, Kaizen": {
			Rows: [][]domain.RawCell{
				tableRow("Date(2024,2,10)", "Nguyen Van A", "Đã xử lý"),
			},
		},
	}
	srv := setupServer(t, tables)

	rec, env := doRequest(t, srv, http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var dash domain.Dashboard
	require.NoError(t, json.Unmarshal(env.Data, &dash))
	assert.Equal(t, 1, dash.Totals.Detected)
	assert.Equal(t, 1, dash.Totals.Processed)
}

func tableRow(timestamp, reporter, processed string) []domain.RawCell {
	cells := make([]domain.RawCell, 13)
	cells[domain.ColTimestamp] = domain.RawCell{V: timestamp}
	cells[domain.ColReporter] = domain.RawCell{V: reporter}
	cells[domain.ColProcessed] = domain.RawCell{V: processed}
	return cells
}

func TestGetTable(t *testing.T) {
	tables := map[string]*domain.Table{
		"Thiết bị công trình": {
			Headers: []string{"STT", "Thời gian"},
			Rows: [][]domain.RawCell{
				tableRow("Date(2024,2,10)", "A", ""),
			},
		},
	}
	srv := setupServer(t, tables)

	target := "/api/v1/tables/" + url.PathEscape("Thiết bị công trình") + "?status=pending"
	rec, env := doRequest(t, srv, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view domain.TableView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "Thiết bị công trình", view.Category)
	assert.Len(t, view.Rows, 1)
	assert.Equal(t, domain.StatusPending, view.Filter.Status)
}

func TestGetTable_EscapedCategoryPath(t *testing.T) {
	tables := map[string]*domain.Table{
		"TPM, Kaizen": {
			Headers: []string{"STT"},
			Rows:    [][]domain.RawCell{tableRow("Date(2024,2,10)", "A", "")},
		},
	}
	srv := setupServer(t, tables)

	// Clients using url.PathEscape send the comma as %2C; others send it
	// literally. Both spellings must reach the same category.
	paths := []string{
		"/api/v1/tables/" + url.PathEscape("TPM, Kaizen"),
		"/api/v1/tables/TPM,%20Kaizen",
	}
	for _, target := range paths {
		rec, env := doRequest(t, srv, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code, "path %s", target)

		var view domain.TableView
		require.NoError(t, json.Unmarshal(env.Data, &view))
		assert.Equal(t, "TPM, Kaizen", view.Category)
	}
}

func TestGetTable_UnknownCategoryIs404(t *testing.T) {
	srv := setupServer(t, nil)

	rec, env := doRequest(t, srv, http.MethodGet, "/api/v1/tables/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

func TestGetTable_BadStatusIs400(t *testing.T) {
	srv := setupServer(t, nil)

	target := "/api/v1/tables/" + url.PathEscape("TPM, Kaizen") + "?status=done"
	rec, _ := doRequest(t, srv, http.MethodGet, target, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLocateRow_BadRowIs400(t *testing.T) {
	srv := setupServer(t, nil)

	target := "/api/v1/tables/" + url.PathEscape("TPM, Kaizen") + "/locate?row=abc"
	rec, _ := doRequest(t, srv, http.MethodGet, target, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLocateRow_Found(t *testing.T) {
	tables := map[string]*domain.Table{
		"TPM, Kaizen": {
			Rows: [][]domain.RawCell{
				tableRow("Date(2024,2,10)", "A", ""),
				tableRow("Date(2024,2,11)", "B", ""),
			},
		},
	}
	srv := setupServer(t, tables)

	target := "/api/v1/tables/" + url.PathEscape("TPM, Kaizen") + "/locate?row=3"
	rec, env := doRequest(t, srv, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Found bool `json:"found"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Found)
}

func TestExportTable_StreamsWorkbook(t *testing.T) {
	tables := map[string]*domain.Table{
		"TPM, Kaizen": {
			Headers: []string{"STT"},
			Rows:    [][]domain.RawCell{{{V: "1"}}},
		},
	}
	srv := setupServer(t, tables)

	target := "/api/v1/tables/" + url.PathEscape("TPM, Kaizen") + "/export"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.NotZero(t, rec.Body.Len())
}

func TestCreateReport_InvalidBodyIs400(t *testing.T) {
	srv := setupServer(t, nil)

	rec, _ := doRequest(t, srv, http.MethodPost, "/api/v1/reports", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReport_ValidationErrorIs400(t *testing.T) {
	srv := setupServer(t, nil)

	rec, env := doRequest(t, srv, http.MethodPost, "/api/v1/reports", `{"category":"safety"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestCreateReport_Success(t *testing.T) {
	srv := setupServer(t, nil)

	body := `{
		"reporter_name": "Nguyen Van A",
		"category": "safety",
		"area": "Khu A",
		"equipment_name": "Máy bơm",
		"location": "Tầng 2",
		"description": "Rò rỉ"
	}`
	rec, env := doRequest(t, srv, http.MethodPost, "/api/v1/reports", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var receipt service.Receipt
	require.NoError(t, json.Unmarshal(env.Data, &receipt))
	assert.True(t, strings.HasPrefix(receipt.ID, "rpt-"))
}

func TestGetPending_RequiresCategory(t *testing.T) {
	srv := setupServer(t, nil)

	rec, _ := doRequest(t, srv, http.MethodGet, "/api/v1/pending", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPending_Success(t *testing.T) {
	srv := setupServer(t, nil)

	target := "/api/v1/pending?category=" + url.QueryEscape("TPM, Kaizen")
	rec, env := doRequest(t, srv, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestUpdateRow_Success(t *testing.T) {
	srv := setupServer(t, nil)

	target := "/api/v1/tables/" + url.PathEscape("TPM, Kaizen") + "/rows/5"
	rec, env := doRequest(t, srv, http.MethodPut, target, `{"row_data":["1","a"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var receipt service.Receipt
	require.NoError(t, json.Unmarshal(env.Data, &receipt))
	assert.True(t, strings.HasPrefix(receipt.ID, "edt-"))
}

func TestUpdateRow_BadRowIs400(t *testing.T) {
	srv := setupServer(t, nil)

	target := "/api/v1/tables/" + url.PathEscape("TPM, Kaizen") + "/rows/abc"
	rec, _ := doRequest(t, srv, http.MethodPut, target, `{"row_data":["a"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProxyImage_RequiresURL(t *testing.T) {
	srv := setupServer(t, nil)

	rec, _ := doRequest(t, srv, http.MethodGet, "/api/proxy-image", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProxyImage_RelaysBytes(t *testing.T) {
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer imgSrv.Close()

	srv := setupServer(t, nil)

	rec, _ := doRequest(t, srv, http.MethodGet, "/api/proxy-image?url="+url.QueryEscape(imgSrv.URL), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", rec.Body.String())
}
