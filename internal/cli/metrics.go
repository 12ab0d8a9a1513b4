package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSnapshot is the gathered state of a registry as printable rows.
type MetricsSnapshot struct {
	Samples []MetricSample `json:"samples"`
}

// MetricSample is one labelled series.
type MetricSample struct {
	Name   string `json:"name"`
	Labels string `json:"labels,omitempty"`
	Value  string `json:"value"`
}

// Snapshot gathers g. Histograms are reported as count and sum.
func Snapshot(g prometheus.Gatherer) (MetricsSnapshot, error) {
	families, err := g.Gather()
	if err != nil {
		return MetricsSnapshot{}, fmt.Errorf("failed to gather metrics: %w", err)
	}

	var snap MetricsSnapshot
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			pairs := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				pairs = append(pairs, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(pairs)
			sample := MetricSample{Name: mf.GetName(), Labels: strings.Join(pairs, ",")}

			switch {
			case m.GetCounter() != nil:
				sample.Value = fmt.Sprintf("%g", m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				sample.Value = fmt.Sprintf("%g", m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				sample.Value = fmt.Sprintf("count=%d sum=%.3f", h.GetSampleCount(), h.GetSampleSum())
			default:
				continue
			}
			snap.Samples = append(snap.Samples, sample)
		}
	}
	return snap, nil
}

func (s MetricsSnapshot) Columns() []string {
	return []string{"Metric", "Labels", "Value"}
}

func (s MetricsSnapshot) Rows() [][]string {
	rows := make([][]string, 0, len(s.Samples))
	for _, sample := range s.Samples {
		rows = append(rows, []string{sample.Name, sample.Labels, sample.Value})
	}
	return rows
}
