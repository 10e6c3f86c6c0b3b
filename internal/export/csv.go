package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/irfndi/synthseries/internal/models"
	"github.com/irfndi/synthseries/internal/utils"
)

var (
	csvHeader      = []string{"date", "series_values", "noise"}
	batchCSVHeader = []string{"job", "date", "series_values", "noise"}
)

// WriteCSV writes table as date,series_values,noise rows
func WriteCSV(w io.Writer, table models.SeriesTable, decimals int32) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range table.Rows() {
		if err := cw.Write(csvRecord(r, decimals)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBatchCSV writes several tables into one file, keyed by job index
func WriteBatchCSV(w io.Writer, tables []models.SeriesTable, decimals int32) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(batchCSVHeader); err != nil {
		return err
	}
	for job, table := range tables {
		idx := strconv.Itoa(job)
		for _, r := range table.Rows() {
			if err := cw.Write(append([]string{idx}, csvRecord(r, decimals)...)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRecord(r models.SeriesRow, decimals int32) []string {
	return []string{
		r.Date.Format(time.RFC3339),
		utils.FormatFloat(r.SeriesValue, decimals),
		utils.FormatFloat(r.Noise, decimals),
	}
}
