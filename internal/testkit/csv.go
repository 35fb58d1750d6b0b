package testkit

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"ablab/domain/core"
	"ablab/domain/experiment"
	"ablab/internal/errors"
)

// WriteCSV exports a dataset in the session-file layout the ingest
// reader expects, so generated data round-trips through the pipeline.
func WriteCSV(ds *experiment.Dataset, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating CSV file")
	}
	defer file.Close()

	// Stable metric column order across rows
	metricSet := make(map[core.MetricKey]bool)
	for i := range ds.Sessions {
		for key := range ds.Sessions[i].Metrics {
			metricSet[key] = true
		}
	}
	metrics := make([]core.MetricKey, 0, len(metricSet))
	for key := range metricSet {
		metrics = append(metrics, key)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i] < metrics[j] })

	w := csv.NewWriter(file)
	header := []string{"session_id", "user_id", "timestamp", "variant", "device_type", "browser", "region"}
	for _, m := range metrics {
		header = append(header, string(m))
	}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "writing CSV header")
	}

	for i := range ds.Sessions {
		s := &ds.Sessions[i]
		row := []string{
			s.SessionID.String(),
			s.UserID.String(),
			s.Timestamp.String(),
			s.Variant.String(),
			s.DeviceType,
			s.Browser,
			s.Region,
		}
		for _, m := range metrics {
			row = append(row, fmt.Sprintf("%g", s.Metrics[m]))
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "writing CSV row")
		}
	}

	w.Flush()
	return w.Error()
}
