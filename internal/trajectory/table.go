// Package trajectory holds the observers that receive records from a run:
// fixed-width text, CSV, an in-memory recorder and a structured-log sink.
package trajectory

import (
	"bufio"
	"fmt"
	"io"

	"github.com/san-kum/rkadapt/internal/dynamo"
)

// Table writes one fixed-width line per record:
// time, step size, error estimate, evaluations, then each state component.
type Table struct {
	w *bufio.Writer
}

func NewTable(w io.Writer) *Table {
	return &Table{w: bufio.NewWriter(w)}
}

func (t *Table) OnStep(rec dynamo.Record) error {
	if _, err := t.w.WriteString(FormatLine(rec)); err != nil {
		return err
	}
	return t.w.WriteByte('\n')
}

func (t *Table) Flush() error { return t.w.Flush() }

// FormatLine renders a record without the trailing newline. The initial
// record carries no estimate, so its error column is printed as an integer.
func FormatLine(rec dynamo.Record) string {
	var line string
	if rec.Step == 0 {
		line = fmt.Sprintf("%13.6f%13.6f%13d%13d", rec.Time, rec.StepSize, 0, rec.Evaluations)
	} else {
		line = fmt.Sprintf("%13.6f%13.6f%13.5e%13d", rec.Time, rec.StepSize, rec.Error, rec.Evaluations)
	}
	for _, v := range rec.State {
		line += fmt.Sprintf(" %12.6f", v)
	}
	return line
}
