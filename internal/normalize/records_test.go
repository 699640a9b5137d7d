package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defectdesk/defectdesk-server/internal/domain"
)

func testTable() *domain.Table {
	return &domain.Table{
		Headers: []string{"STT", "Thời gian", "Người báo cáo", "", "", "Tên thiết bị", "Vị trí", "", "", "", "", "Tình trạng xử lý", "NVVH"},
		Rows: [][]domain.RawCell{
			{
				{V: "1"},
				{V: "Date(2024,2,10)", F: "10/03/2024"},
				{V: "Nguyen Van A"},
				{}, {},
				{V: "Máy bơm P-101"},
				{V: "Khu A"},
				{}, {}, {}, {},
				{V: "Đã xử lý"},
				{V: "Ghi chú"},
			},
			{
				{V: "2"},
				{V: "Date(2024,2,12)", F: "12/03/2024"},
				{V: "  Tran Thi B  "},
				{}, {},
				{V: "Van xả"},
				{V: "Khu B"},
			},
		},
	}
}

func TestRecords_OnePerRow(t *testing.T) {
	records := Records(testTable(), "Thiết bị công trình")
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "Thiết bị công trình", first.Locator.Category)
	assert.Equal(t, 2, first.Locator.Row)
	assert.Equal(t, "10/03/2024", first.TimestampDisplay)
	require.True(t, first.HasTimestamp)
	assert.Equal(t, time.Date(2024, time.March, 10, 0, 0, 0, 0, time.Local), first.Timestamp)
	assert.Equal(t, "Nguyen Van A", first.ReporterName)
	assert.Equal(t, "Máy bơm P-101", first.Title)
	assert.Equal(t, "Khu A", first.Location)
	assert.True(t, first.IsProcessed)
	assert.True(t, first.HasOperatorNote)
}

func TestRecords_PhysicalRowPastHeader(t *testing.T) {
	records := Records(testTable(), "Thiết bị công trình")
	assert.Equal(t, 2, records[0].Locator.Row)
	assert.Equal(t, 3, records[1].Locator.Row)
}

func TestRecords_RaggedRowDegradesGracefully(t *testing.T) {
	records := Records(testTable(), "Thiết bị công trình")

	second := records[1]
	assert.Equal(t, "Tran Thi B", second.ReporterName)
	assert.False(t, second.IsProcessed)
	assert.False(t, second.HasOperatorNote)
}

func TestRecords_EmptyTable(t *testing.T) {
	records := Records(&domain.Table{}, "TPM, Kaizen")
	assert.Empty(t, records)
}
