package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defectdesk/defectdesk-server/internal/catalog"
	"github.com/defectdesk/defectdesk-server/internal/errors"
	"github.com/defectdesk/defectdesk-server/internal/script"
	"github.com/defectdesk/defectdesk-server/internal/validation"
)

func setupSubmit(t *testing.T, scriptStatus int, scriptBody string) (*SubmitService, *[]string) {
	t.Helper()

	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(data))
		w.WriteHeader(scriptStatus)
		io.WriteString(w, scriptBody)
	}))
	t.Cleanup(srv.Close)

	sc := script.NewClient(srv.URL+"/report", srv.URL+"/process", "doc-123", 5*time.Second, testLogger())
	svc := NewSubmitService(sc, catalog.Default(), validation.New(), testLogger())
	return svc, &bodies
}

func validReport() ReportRequest {
	return ReportRequest{
		ReporterName:  "Nguyen Van A",
		Category:      "safety",
		Area:          "Khu A",
		EquipmentName: "Máy bơm P-101",
		Location:      "Tầng 2",
		Description:   "Rò rỉ dầu",
	}
}

func TestSubmitReport_Success(t *testing.T) {
	svc, bodies := setupSubmit(t, http.StatusOK, "ok")

	receipt, err := svc.SubmitReport(context.Background(), validReport())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(receipt.ID, "rpt-"))

	require.Len(t, *bodies, 1)
	assert.Contains(t, (*bodies)[0], "Nguyen Van A")
}

func TestSubmitReport_ValidationFailure(t *testing.T) {
	svc, bodies := setupSubmit(t, http.StatusOK, "ok")

	req := validReport()
	req.ReporterName = ""
	req.Category = "invalid-category"

	_, err := svc.SubmitReport(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	// Nothing was dispatched.
	assert.Empty(t, *bodies)
}

func TestSubmitReport_ScriptFailureSurfaces(t *testing.T) {
	svc, _ := setupSubmit(t, http.StatusBadGateway, "down")

	_, err := svc.SubmitReport(context.Background(), validReport())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSubmit))
}

func TestSubmitProcessing_Success(t *testing.T) {
	svc, bodies := setupSubmit(t, http.StatusOK, "ok")

	receipt, err := svc.SubmitProcessing(context.Background(), ProcessingRequest{
		Sheet:     "Thiết bị công trình",
		Row:       7,
		TinhTrang: "Đã xử lý",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(receipt.ID, "prc-"))
	require.Len(t, *bodies, 1)
	assert.Contains(t, (*bodies)[0], `"uploadFiles"`)
}

func TestSubmitProcessing_UnknownSheet(t *testing.T) {
	svc, _ := setupSubmit(t, http.StatusOK, "ok")

	_, err := svc.SubmitProcessing(context.Background(), ProcessingRequest{
		Sheet: "Không tồn tại",
		Row:   7,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSubmitProcessing_HeaderRowRejected(t *testing.T) {
	svc, _ := setupSubmit(t, http.StatusOK, "ok")

	_, err := svc.SubmitProcessing(context.Background(), ProcessingRequest{
		Sheet: "TPM, Kaizen",
		Row:   1,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestPendingList_UnknownCategory(t *testing.T) {
	svc, _ := setupSubmit(t, http.StatusOK, "[]")

	_, err := svc.PendingList(context.Background(), "Không tồn tại")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestPendingList_Passthrough(t *testing.T) {
	svc, _ := setupSubmit(t, http.StatusOK, `[{"row":4,"colE":"Van","colF":"Khu B","colG":"Kẹt"}]`)

	pending, err := svc.PendingList(context.Background(), "TPM, Kaizen")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 4, pending[0].Row)
}

func TestUpdateRow_Success(t *testing.T) {
	svc, bodies := setupSubmit(t, http.StatusOK, "ok")

	receipt, err := svc.UpdateRow(context.Background(), "TPM, Kaizen", 5, RowEditRequest{
		RowData: []string{"1", "10/03/2024", "Nguyen Van A"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(receipt.ID, "edt-"))
	require.Len(t, *bodies, 1)
	assert.Contains(t, (*bodies)[0], `"updateRowData"`)
}

func TestUpdateRow_RejectsHeaderRow(t *testing.T) {
	svc, _ := setupSubmit(t, http.StatusOK, "ok")

	_, err := svc.UpdateRow(context.Background(), "TPM, Kaizen", 1, RowEditRequest{
		RowData: []string{"a"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestUpdateRow_EmptyRowDataRejected(t *testing.T) {
	svc, _ := setupSubmit(t, http.StatusOK, "ok")

	_, err := svc.UpdateRow(context.Background(), "TPM, Kaizen", 5, RowEditRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}
