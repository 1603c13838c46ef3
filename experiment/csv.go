package experiment

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes one row per summary: the parameters, then precision, recall
// and F1 per threshold, in the order of the first summary's thresholds.
func WriteCSV(w io.Writer, summaries []Summary) error {
	cw := csv.NewWriter(w)
	header := []string{"epsilon", "rule_length", "k", "runs"}
	if len(summaries) > 0 {
		for _, metric := range []string{"precision", "recall", "f1"} {
			for _, t := range summaries[0].Thresholds {
				header = append(header, fmt.Sprintf("%s_%.1f", metric, t))
			}
		}
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("couldn't write the csv header, err = %w", err)
	}
	for _, s := range summaries {
		row := []string{
			strconv.FormatFloat(s.Epsilon, 'g', -1, 64),
			strconv.Itoa(s.RuleLength),
			strconv.Itoa(s.K),
			strconv.Itoa(s.Runs),
		}
		for _, vs := range [][]float64{s.Precision, s.Recall, s.F1} {
			for _, v := range vs {
				row = append(row, strconv.FormatFloat(v, 'f', 4, 64))
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("couldn't write the csv row for epsilon %g, err = %w", s.Epsilon, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
