// Package evaluation scores the intent classifier against a labelled set of
// utterances, so keyword changes can be checked before they ship.
package evaluation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/iris-assistant/backend/internal/intent"
	"github.com/iris-assistant/backend/pkg/logger"
)

type Evaluator struct {
	classifier *intent.Classifier
}

type Dataset struct {
	Items []DatasetItem `json:"items"`
}

// DatasetItem is one utterance and the decision it should produce. An empty
// Param is not checked.
type DatasetItem struct {
	Text  string       `json:"text"`
	Route intent.Route `json:"route"`
	Param string       `json:"param,omitempty"`
}

type RouteStats struct {
	Expected  int
	Predicted int
	Correct   int
	Precision float64
	Recall    float64
}

type Miss struct {
	Text     string
	Expected intent.Route
	Got      intent.Route
	Param    string
	GotParam string
}

type Report struct {
	Total    int
	Correct  int
	Accuracy float64
	PerRoute map[intent.Route]*RouteStats
	Misses   []Miss
}

func NewEvaluator(classifier *intent.Classifier) *Evaluator {
	return &Evaluator{
		classifier: classifier,
	}
}

func (e *Evaluator) Run(dataset *Dataset) *Report {
	logger.Info("Running intent evaluation", zap.Int("items", len(dataset.Items)))

	report := &Report{
		Total:    len(dataset.Items),
		PerRoute: map[intent.Route]*RouteStats{},
	}

	stats := func(r intent.Route) *RouteStats {
		s, ok := report.PerRoute[r]
		if !ok {
			s = &RouteStats{}
			report.PerRoute[r] = s
		}
		return s
	}

	for _, item := range dataset.Items {
		d := e.classifier.Classify(item.Text)

		stats(item.Route).Expected++
		stats(d.Route).Predicted++

		paramOK := item.Param == "" || item.Param == d.Param
		if d.Route == item.Route && paramOK {
			report.Correct++
			stats(d.Route).Correct++
			continue
		}

		report.Misses = append(report.Misses, Miss{
			Text:     item.Text,
			Expected: item.Route,
			Got:      d.Route,
			Param:    item.Param,
			GotParam: d.Param,
		})
	}

	for _, s := range report.PerRoute {
		if s.Predicted > 0 {
			s.Precision = float64(s.Correct) / float64(s.Predicted)
		}
		if s.Expected > 0 {
			s.Recall = float64(s.Correct) / float64(s.Expected)
		}
	}
	if report.Total > 0 {
		report.Accuracy = float64(report.Correct) / float64(report.Total)
	}

	logger.Info("Intent evaluation completed",
		zap.Int("total", report.Total),
		zap.Int("correct", report.Correct),
		zap.Int("misses", len(report.Misses)),
	)

	return report
}

func LoadDatasetFromJSON(data []byte) (*Dataset, error) {
	var dataset Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}

	for i, item := range dataset.Items {
		if strings.TrimSpace(item.Text) == "" || item.Route == "" {
			return nil, fmt.Errorf("dataset item %d needs text and route", i)
		}
	}

	return &dataset, nil
}

func GenerateReport(report *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Intent Evaluation Report\n")
	fmt.Fprintf(&b, "========================\n\n")
	fmt.Fprintf(&b, "Utterances: %d\n", report.Total)
	fmt.Fprintf(&b, "Correct: %d (%.1f%%)\n\n", report.Correct, report.Accuracy*100)

	routes := make([]string, 0, len(report.PerRoute))
	for r := range report.PerRoute {
		routes = append(routes, string(r))
	}
	sort.Strings(routes)

	fmt.Fprintf(&b, "Per route:\n")
	for _, r := range routes {
		s := report.PerRoute[intent.Route(r)]
		fmt.Fprintf(&b, "- %s: expected %d, predicted %d, precision %.2f, recall %.2f\n",
			r, s.Expected, s.Predicted, s.Precision, s.Recall)
	}

	if len(report.Misses) > 0 {
		fmt.Fprintf(&b, "\nMisses:\n")
		for _, m := range report.Misses {
			fmt.Fprintf(&b, "- %q: expected %s", m.Text, m.Expected)
			if m.Param != "" {
				fmt.Fprintf(&b, " (%s)", m.Param)
			}
			fmt.Fprintf(&b, ", got %s", m.Got)
			if m.GotParam != "" {
				fmt.Fprintf(&b, " (%s)", m.GotParam)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
