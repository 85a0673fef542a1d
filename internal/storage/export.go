package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/rkadapt/internal/dynamo"
)

type ExportData struct {
	Meta    RunMetadata     `json:"meta"`
	Records []dynamo.Record `json:"records"`
}

func ExportJSON(w io.Writer, meta RunMetadata, records []dynamo.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Meta: meta, Records: records})
}
