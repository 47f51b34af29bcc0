package evaluate

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Labeler turns a class index into a display string.
type Labeler interface {
	Label(class int) string
}

// Metric is the accuracy of a classifier on one partition.
type Metric struct {
	Partition string       `yaml:"partition"`
	Accuracy  float64      `yaml:"accuracy"`
	Examples  int          `yaml:"examples"`
	Classes   []ClassScore `yaml:"classes,omitempty"`
}

// Report holds the metrics of one run.
type Report struct {
	RunID      string `yaml:"runId"`
	Classifier string `yaml:"classifier"`
	Validation Metric `yaml:"validation"`
	Test       Metric `yaml:"test"`
}

// WriteText writes the validation and test accuracy as percentages with two
// decimals. When the metrics carry per-class scores they are listed after
// each total, each class shown through labels.
func (r *Report) WriteText(w io.Writer, labels Labeler) error {
	for _, m := range []struct {
		title  string
		metric Metric
	}{
		{"Validation", r.Validation},
		{"Test", r.Test},
	} {
		if _, err := fmt.Fprintf(w, "%s accuracy: %.2f%%\n", m.title, m.metric.Accuracy*100); err != nil {
			return err
		}
		for _, c := range m.metric.Classes {
			name := "?"
			if labels != nil {
				name = labels.Label(c.Class)
			}
			if _, err := fmt.Fprintf(w, "  %3d %-2s %6.2f%% (%d/%d)\n",
				c.Class, name, c.Accuracy()*100, c.Correct, c.Total); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteYAML writes the report as a YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
