package trajectory

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/rkadapt/internal/dynamo"
)

// CSV writes records with a header derived from the first record.
type CSV struct {
	w      *csv.Writer
	header bool
}

func NewCSV(w io.Writer) *CSV {
	return &CSV{w: csv.NewWriter(w)}
}

func Header(dim int) []string {
	header := []string{"time", "step", "error", "evaluations"}
	for i := 0; i < dim; i++ {
		header = append(header, fmt.Sprintf("y%d", i))
	}
	return header
}

func Row(rec dynamo.Record) []string {
	row := []string{
		strconv.FormatFloat(rec.Time, 'g', -1, 64),
		strconv.FormatFloat(rec.StepSize, 'g', -1, 64),
		strconv.FormatFloat(rec.Error, 'g', -1, 64),
		strconv.FormatInt(rec.Evaluations, 10),
	}
	for _, v := range rec.State {
		row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return row
}

func (c *CSV) OnStep(rec dynamo.Record) error {
	if !c.header {
		if err := c.w.Write(Header(len(rec.State))); err != nil {
			return err
		}
		c.header = true
	}
	return c.w.Write(Row(rec))
}

func (c *CSV) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// ParseRow is the inverse of Row. The step index is not stored in the row,
// so callers pass it in.
func ParseRow(step int, row []string) (dynamo.Record, error) {
	if len(row) < 4 {
		return dynamo.Record{}, fmt.Errorf("trajectory: row has %d fields, want at least 4", len(row))
	}
	rec := dynamo.Record{Step: step}
	var err error
	if rec.Time, err = strconv.ParseFloat(row[0], 64); err != nil {
		return rec, fmt.Errorf("trajectory: time: %w", err)
	}
	if rec.StepSize, err = strconv.ParseFloat(row[1], 64); err != nil {
		return rec, fmt.Errorf("trajectory: step: %w", err)
	}
	if rec.Error, err = strconv.ParseFloat(row[2], 64); err != nil {
		return rec, fmt.Errorf("trajectory: error: %w", err)
	}
	if rec.Evaluations, err = strconv.ParseInt(row[3], 10, 64); err != nil {
		return rec, fmt.Errorf("trajectory: evaluations: %w", err)
	}
	rec.State = make(dynamo.State, 0, len(row)-4)
	for j := 4; j < len(row); j++ {
		v, err := strconv.ParseFloat(row[j], 64)
		if err != nil {
			return rec, fmt.Errorf("trajectory: y%d: %w", j-4, err)
		}
		rec.State = append(rec.State, v)
	}
	return rec, nil
}
