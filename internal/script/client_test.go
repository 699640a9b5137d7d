package script

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defectdesk/defectdesk-server/internal/errors"
)

type recordedRequest struct {
	body        map[string]any
	contentType string
	correlation string
}

func newTestClient(t *testing.T, status int, responseBody string) (*Client, *recordedRequest) {
	t.Helper()

	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		_ = json.Unmarshal(data, &rec.body)
		rec.contentType = r.Header.Get("Content-Type")
		rec.correlation = r.Header.Get("X-Correlation-Id")

		w.WriteHeader(status)
		io.WriteString(w, responseBody)
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(srv.URL+"/report", srv.URL+"/process", "doc-123", 5*time.Second, logger)
	return client, rec
}

func TestCreateReport_AcknowledgedByStatus(t *testing.T) {
	client, rec := newTestClient(t, http.StatusOK, "ok")

	err := client.CreateReport(context.Background(), ReportPayload{
		ReporterName: "Nguyen Van A",
		Category:     "safety",
	})
	require.NoError(t, err)

	assert.Equal(t, "text/plain;charset=utf-8", rec.contentType)
	assert.NotEmpty(t, rec.correlation)
	assert.Equal(t, "Nguyen Van A", rec.body["reporterName"])
}

func TestCreateReport_Non2xxIsSubmitError(t *testing.T) {
	client, _ := newTestClient(t, http.StatusInternalServerError, "boom")

	err := client.CreateReport(context.Background(), ReportPayload{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSubmit))
}

func TestSubmitProcessing_WrapsFormWithAction(t *testing.T) {
	client, rec := newTestClient(t, http.StatusOK, "ok")

	err := client.SubmitProcessing(context.Background(), ProcessingForm{
		Sheet:     "Thiết bị công trình",
		Row:       7,
		TinhTrang: "Đã xử lý",
	})
	require.NoError(t, err)

	assert.Equal(t, "uploadFiles", rec.body["action"])
	form, ok := rec.body["form"].(map[string]any)
	require.True(t, ok)
	// The document ID is injected server-side, never taken from the caller.
	assert.Equal(t, "doc-123", form["sheetId"])
	assert.Equal(t, float64(7), form["row"])
}

func TestPendingList_DecodesAnswer(t *testing.T) {
	client, rec := newTestClient(t, http.StatusOK,
		`[{"row":5,"colE":"Máy bơm","colF":"Khu A","colG":"Rò rỉ"}]`)

	pending, err := client.PendingList(context.Background(), "Thiết bị công trình")
	require.NoError(t, err)

	assert.Equal(t, "getPendingList", rec.body["action"])
	assert.Equal(t, "Thiết bị công trình", rec.body["sheetName"])
	assert.Equal(t, "doc-123", rec.body["sheetId"])

	require.Len(t, pending, 1)
	assert.Equal(t, 5, pending[0].Row)
	assert.Equal(t, "Máy bơm", pending[0].ColE)
}

func TestPendingList_MalformedAnswerIsSubmitError(t *testing.T) {
	client, _ := newTestClient(t, http.StatusOK, "not json")

	_, err := client.PendingList(context.Background(), "TPM, Kaizen")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSubmit))
}

func TestUpdateRow_SendsRowData(t *testing.T) {
	client, rec := newTestClient(t, http.StatusOK, "ok")

	err := client.UpdateRow(context.Background(), "Quản lý hành chính", 4, []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, "updateRowData", rec.body["action"])
	assert.Equal(t, float64(4), rec.body["row"])
	assert.Equal(t, []any{"a", "b"}, rec.body["rowData"])
}
