package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/convsim/internal/results"
)

// WriteCSV writes res as a table with a time column followed by one column
// per variable in display order.
func WriteCSV(w io.Writer, res *results.Result) error {
	cw := csv.NewWriter(w)

	names := res.Names()
	header := append([]string{"time"}, names...)
	if err := cw.Write(header); err != nil {
		return err
	}

	cols := make([][]float64, len(names))
	for j, name := range names {
		cols[j], _ = res.Get(name)
	}

	row := make([]string, len(header))
	for i, t := range res.Time {
		row[0] = formatFloat(t)
		for j, col := range cols {
			row[j+1] = formatFloat(col[i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV.
func ReadCSV(r io.Reader) (*results.Result, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 || header[0] != "time" {
		return nil, fmt.Errorf("first column must be time, got %v", header)
	}

	names := header[1:]
	res := &results.Result{
		Variables: make(map[string][]float64, len(names)),
		Order:     append([]string(nil), names...),
	}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: time: %w", line, err)
		}
		res.Time = append(res.Time, t)

		for j, name := range names {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, name, err)
			}
			res.Variables[name] = append(res.Variables[name], v)
		}
	}

	for _, name := range names {
		if _, ok := res.Variables[name]; !ok {
			res.Variables[name] = []float64{}
		}
	}
	return res, res.Validate()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
