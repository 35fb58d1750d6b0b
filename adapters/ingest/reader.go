// Package ingest loads experiment session data from CSV and Excel
// files and experiment manifests from YAML, producing typed datasets
// for the validation and analysis pipeline.
package ingest

import (
	"encoding/csv"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"ablab/domain/core"
	"ablab/domain/experiment"
	"ablab/internal/errors"
)

// Columns every session file must carry; everything else is a metric
var identityColumns = map[string]bool{
	"session_id":  true,
	"user_id":     true,
	"timestamp":   true,
	"variant":     true,
	"device_type": true,
	"browser":     true,
	"region":      true,
}

// Timestamp layouts accepted in session files, tried in order
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04",
}

// DataReader reads session rows from CSV or Excel files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a reader for the given file, inferring the
// format from the extension.
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadDataset reads the file into a typed dataset for one experiment.
// Rows with an unparsable timestamp keep a zero timestamp; rows with
// unparsable metric cells record NaN for that metric so the integrity
// check can count them as missing.
func (r *DataReader) ReadDataset(id core.ExperimentID) (*experiment.Dataset, error) {
	log.Printf("[Ingest] Reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.IngestError("file not found: "+r.filePath, err)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, errors.IngestError("unsupported file type: "+r.fileType, nil)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.IngestError("file must have a header row and at least one data row", nil)
	}

	sessions, err := parseSessions(rows)
	if err != nil {
		return nil, err
	}

	log.Printf("[Ingest] %s parsed (%d sessions, %d columns)",
		filepath.Base(r.filePath), len(sessions), len(rows[0]))
	return experiment.NewDataset(id, sessions), nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.IngestError("failed to open CSV file", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.IngestError("failed to read CSV file", err)
	}
	return rows, nil
}

func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.IngestError("failed to open Excel file", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.IngestError("failed to read sheet "+sheet, err)
	}
	return rows, nil
}

func parseSessions(rows [][]string) ([]experiment.Session, error) {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	col := make(map[string]int, len(headers))
	for i, h := range headers {
		col[h] = i
	}
	for _, required := range []string{"session_id", "variant"} {
		if _, ok := col[required]; !ok {
			return nil, errors.IngestError("missing required column: "+required, nil)
		}
	}

	var metricCols []int
	for i, h := range headers {
		if !identityColumns[h] && h != "" {
			metricCols = append(metricCols, i)
		}
	}

	cell := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	sessions := make([]experiment.Session, 0, len(rows)-1)
	for _, row := range rows[1:] {
		s := experiment.Session{
			SessionID:  core.SessionID(cell(row, "session_id")),
			UserID:     core.UserID(cell(row, "user_id")),
			Variant:    core.VariantKey(cell(row, "variant")),
			DeviceType: cell(row, "device_type"),
			Browser:    cell(row, "browser"),
			Region:     cell(row, "region"),
			Metrics:    make(map[core.MetricKey]float64, len(metricCols)),
		}
		if raw := cell(row, "timestamp"); raw != "" {
			s.Timestamp = parseTimestamp(raw)
		}
		for _, idx := range metricCols {
			key := core.MetricKey(headers[idx])
			if idx >= len(row) {
				s.Metrics[key] = math.NaN()
				continue
			}
			raw := strings.TrimSpace(row[idx])
			if raw == "" {
				s.Metrics[key] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				s.Metrics[key] = math.NaN()
				continue
			}
			s.Metrics[key] = v
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func parseTimestamp(raw string) core.Timestamp {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return core.NewTimestamp(t)
		}
	}
	return core.Timestamp{}
}
