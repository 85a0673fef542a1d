package trajectory

import (
	"log/slog"

	"github.com/san-kum/rkadapt/internal/dynamo"
)

type Recorder struct {
	Records []dynamo.Record
}

func NewRecorder() *Recorder {
	return &Recorder{Records: make([]dynamo.Record, 0, 64)}
}

func (r *Recorder) OnStep(rec dynamo.Record) error {
	r.Records = append(r.Records, rec)
	return nil
}

// Times and States split the records into parallel slices for plotting.
func (r *Recorder) Times() []float64 {
	ts := make([]float64, len(r.Records))
	for i, rec := range r.Records {
		ts[i] = rec.Time
	}
	return ts
}

func (r *Recorder) States() []dynamo.State {
	xs := make([]dynamo.State, len(r.Records))
	for i, rec := range r.Records {
		xs[i] = rec.State
	}
	return xs
}

// LogObserver emits one debug line per record.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver(l *slog.Logger) *LogObserver {
	return &LogObserver{logger: l}
}

func (o *LogObserver) OnStep(rec dynamo.Record) error {
	o.logger.Debug("trajectory",
		"step", rec.Step,
		"time", rec.Time,
		"h", rec.StepSize,
		"error", rec.Error,
		"evaluations", rec.Evaluations,
		"state", []float64(rec.State),
	)
	return nil
}
