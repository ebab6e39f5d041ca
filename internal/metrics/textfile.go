package metrics

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
)

// WriteTextfile writes the registry in the text exposition format. The file
// is replaced atomically, as the textfile collector expects.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.reg)
}

// LoadTextfile seeds counters and the last success time from a textfile an
// earlier process wrote, so one-shot runs keep cumulative series. A missing
// file is not an error. The last run duration is not carried over.
func (c *Collector) LoadTextfile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open metrics textfile: %w", err)
	}
	defer f.Close()

	parser := expfmt.NewTextParser(model.UTF8Validation)
	fams, err := parser.TextToMetricFamilies(f)
	if err != nil {
		return fmt.Errorf("parse metrics textfile %s: %w", path, err)
	}

	for _, m := range fams["watchpost_activities_fetched_total"].GetMetric() {
		addCounter(c.fetched, m.GetCounter().GetValue())
	}
	for _, m := range fams["watchpost_run_failures_total"].GetMetric() {
		addCounter(c.runFailures, m.GetCounter().GetValue())
	}
	for _, m := range fams["watchpost_activities_total"].GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "outcome" {
				addCounter(c.outcomes.WithLabelValues(l.GetValue()), m.GetCounter().GetValue())
			}
		}
	}
	for _, m := range fams["watchpost_last_success_timestamp_seconds"].GetMetric() {
		c.lastSuccess.Set(m.GetGauge().GetValue())
	}
	return nil
}

// addCounter ignores values a counter cannot take.
func addCounter(ctr prometheus.Counter, v float64) {
	if v > 0 {
		ctr.Add(v)
	}
}
