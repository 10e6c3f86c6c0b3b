package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/irfndi/synthseries/internal/models"
	"github.com/irfndi/synthseries/internal/utils"
)

// Row is one table row rounded for output. Non-finite values are null.
type Row struct {
	Date        time.Time           `json:"date"`
	SeriesValue decimal.NullDecimal `json:"series_values"`
	Noise       decimal.NullDecimal `json:"noise"`
}

// Rows rounds every row of table to decimals places
func Rows(table models.SeriesTable, decimals int32) []Row {
	rows := make([]Row, 0, table.Len())
	for _, r := range table.Rows() {
		rows = append(rows, Row{
			Date:        r.Date,
			SeriesValue: utils.RoundFloat(r.SeriesValue, decimals),
			Noise:       utils.RoundFloat(r.Noise, decimals),
		})
	}
	return rows
}

// Document is the serialized form of one generation
type Document struct {
	Seed       uint64                 `json:"seed"`
	Cached     bool                   `json:"cached"`
	Config     models.SeriesConfig    `json:"config"`
	Provenance models.BlendProvenance `json:"provenance"`
	Rows       []Row                  `json:"rows"`
}

// NewDocument builds the output document of gen
func NewDocument(gen models.Generation, seed uint64, cached bool, decimals int32) Document {
	return Document{
		Seed:       seed,
		Cached:     cached,
		Config:     gen.Config,
		Provenance: gen.Provenance,
		Rows:       Rows(gen.Table, decimals),
	}
}

// WriteJSON writes v as indented JSON followed by a newline
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
