package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/perdin/internal/domain/entity"
)

func sampleTrips() []*entity.TripRequestView {
	return []*entity.TripRequestView{
		{
			TripRequest: entity.TripRequest{
				ID:              4,
				Purpose:         "Regional summit",
				DepartureDate:   time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
				ReturnDate:      time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC),
				DurationDays:    5,
				DistanceKm:      878.456,
				AllowanceRule:   "foreign",
				PerDayAllowance: decimal.NewFromInt(850000),
				TotalAllowance:  decimal.NewFromInt(4250000),
				Status:          entity.StatusApproved,
			},
			RequesterName:       "Ani",
			OriginCityName:      "Jakarta",
			DestinationCityName: "Singapore",
		},
		{
			TripRequest: entity.TripRequest{
				ID:              3,
				Purpose:         "Rapat koordinasi",
				DepartureDate:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
				ReturnDate:      time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC),
				DurationDays:    3,
				DistanceKm:      116.2,
				AllowanceRule:   "same_island",
				PerDayAllowance: decimal.NewFromInt(250000),
				TotalAllowance:  decimal.NewFromInt(750000),
				Status:          entity.StatusPending,
			},
			RequesterName:       "Budi",
			OriginCityName:      "Jakarta",
			DestinationCityName: "Bandung",
		},
	}
}

func TestXLSXWriter_WriteTrips(t *testing.T) {
	var buf bytes.Buffer
	w := NewXLSXWriter(zap.NewNop())
	require.NoError(t, w.WriteTrips(&buf, sampleTrips()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "Ani", rows[1][2])
	assert.Equal(t, "Singapore", rows[1][5])
	assert.Equal(t, "2025-08-01", rows[1][6])
	assert.Equal(t, "878.46", rows[1][9])
	assert.Equal(t, "4250000", rows[1][12])
	assert.Equal(t, "pending", rows[2][13])

	formula, err := f.GetCellFormula(sheetName, "M4")
	require.NoError(t, err)
	assert.Equal(t, "SUM(M2:M3)", formula)
}

func TestXLSXWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewXLSXWriter(zap.NewNop()).WriteTrips(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestXLSXWriter_Format(t *testing.T) {
	w := NewXLSXWriter(zap.NewNop())
	assert.Equal(t, "xlsx", w.FileExtension())
	assert.Contains(t, w.ContentType(), "spreadsheetml")
}
