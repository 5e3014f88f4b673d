// Package stats aggregates scored result documents into per-category and
// overall statistics (count, mean, sample variance, standard deviation,
// min, max) for each metric.
package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Metrics are the aggregated record fields in display order.
var Metrics = []string{
	"f1_score",
	"bleu_score",
	"llm_score",
	"search_time",
	"response_time",
	"total_latency",
}

// Overall is the group holding every record.
const Overall = "overall"

// Summary describes one metric of one group.
type Summary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Report maps group name to metric name to summary.
type Report map[string]map[string]Summary

// Document is a scored result document: conversation index to records.
type Document map[string][]map[string]any

// Decode reads a Document.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode scored results: %w", err)
	}
	return doc, nil
}

// Compute summarizes values. Variance and standard deviation are the
// sample statistics and zero for fewer than two values.
func Compute(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{Count: len(values), Min: values[0], Max: values[0]}
	sum := 0.0
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))
	if len(values) > 1 {
		ss := 0.0
		for _, v := range values {
			d := v - s.Mean
			ss += d * d
		}
		s.Variance = ss / float64(len(values)-1)
		s.StdDev = math.Sqrt(s.Variance)
	}
	return s
}

// Collect gathers metric values per "category_<n>" group and for Overall.
// Absent, null and non-numeric values are skipped.
func Collect(doc Document) map[string]map[string][]float64 {
	groups := make(map[string]map[string][]float64)
	add := func(group, metric string, v float64) {
		if groups[group] == nil {
			groups[group] = make(map[string][]float64)
		}
		groups[group][metric] = append(groups[group][metric], v)
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return conversationLess(keys[i], keys[j]) })

	for _, k := range keys {
		for _, rec := range doc[k] {
			group := "category_" + categoryName(rec["category"])
			for _, metric := range Metrics {
				v, ok := number(rec[metric])
				if !ok {
					continue
				}
				add(group, metric, v)
				add(Overall, metric, v)
			}
		}
	}
	return groups
}

// Calculate computes the report of doc.
func Calculate(doc Document) Report {
	report := make(Report)
	for group, metrics := range Collect(doc) {
		report[group] = make(map[string]Summary, len(metrics))
		for metric, values := range metrics {
			report[group][metric] = Compute(values)
		}
	}
	return report
}

func conversationLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

func categoryName(v any) string {
	switch c := v.(type) {
	case nil:
		return "unknown"
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case string:
		return c
	default:
		return fmt.Sprint(c)
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func metricRank(name string) int {
	for i, m := range Metrics {
		if m == name {
			return i
		}
	}
	return len(Metrics)
}

func sortedGroups(r Report) []string {
	groups := make([]string, 0, len(r))
	for g := range r {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

func sortedMetrics(m map[string]Summary) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.SliceStable(names, func(i, j int) bool {
		ri, rj := metricRank(names[i]), metricRank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
	return names
}

// FormatTable renders the report as one fixed-width table per group.
func FormatTable(r Report) string {
	rule := strings.Repeat("=", 80)
	var b strings.Builder
	for _, group := range sortedGroups(r) {
		fmt.Fprintf(&b, "\n%s\n%s\n%s\n", rule, strings.ToUpper(group), rule)
		metrics := r[group]
		if len(metrics) == 0 {
			b.WriteString("No data available\n")
			continue
		}
		fmt.Fprintf(&b, "%-20s %-8s %-12s %-12s %-12s %-10s %-10s\n", "Metric", "Count", "Mean", "Variance", "Std Dev", "Min", "Max")
		b.WriteString(strings.Repeat("-", 80) + "\n")
		for _, name := range sortedMetrics(metrics) {
			s := metrics[name]
			fmt.Fprintf(&b, "%-20s %-8d %-12.4f %-12.4f %-12.4f %-10.4f %-10.4f\n", name, s.Count, s.Mean, s.Variance, s.StdDev, s.Min, s.Max)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// FormatSummary renders the key overall metrics and the per-category
// question counts.
func FormatSummary(r Report) string {
	rule := strings.Repeat("=", 80)
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nQUICK SUMMARY\n%s\n", rule, rule)

	if overall, ok := r[Overall]; ok && len(overall) > 0 {
		b.WriteString("\nKey Metrics (Overall):\n")
		lines := []struct{ metric, label, unit string }{
			{"f1_score", "F1 Score:      ", ""},
			{"bleu_score", "BLEU Score:    ", ""},
			{"llm_score", "LLM Accuracy:  ", ""},
			{"total_latency", "Total Latency: ", "s"},
		}
		for _, l := range lines {
			if s, ok := overall[l.metric]; ok {
				fmt.Fprintf(&b, "  %s %.4f%s ± %.4f%s\n", l.label, s.Mean, l.unit, s.StdDev, l.unit)
			}
		}
		fmt.Fprintf(&b, "\nTotal Questions: %d\n", questionCount(overall))
	}

	var categories []string
	for _, g := range sortedGroups(r) {
		if strings.HasPrefix(g, "category_") {
			categories = append(categories, g)
		}
	}
	if len(categories) > 0 {
		fmt.Fprintf(&b, "\nCategories Analyzed: %d\n", len(categories))
		for _, c := range categories {
			fmt.Fprintf(&b, "  Category %s: %d questions\n", strings.TrimPrefix(c, "category_"), questionCount(r[c]))
		}
	}
	b.WriteString("\n" + rule + "\n")
	return b.String()
}

// questionCount is the count of the first metric in display order.
func questionCount(m map[string]Summary) int {
	names := sortedMetrics(m)
	if len(names) == 0 {
		return 0
	}
	return m[names[0]].Count
}
