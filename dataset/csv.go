package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

/*
ReadCSV takes an io.Reader for a headerless CSV stream and the index
of the label column and returns the Dataset parsed from it or an
error. Every column but the label column is parsed as a float64
feature; the '?' string and empty fields denote missing values and
are parsed as NaN, leaving the sample to route through splits the way
NaN projections do. The label column must hold integer class labels.
*/
func ReadCSV(reader io.Reader, labelColumn int) (*Dataset, error) {
	r := csv.NewReader(reader)
	var x [][]float64
	var y []int
	row := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %v", row, err)
		}
		if labelColumn < 0 || labelColumn >= len(record) {
			return nil, fmt.Errorf("label column %d is out of bounds for csv row %d with %d columns",
				labelColumn, row, len(record))
		}
		features := make([]float64, 0, len(record)-1)
		var label int
		for col, field := range record {
			if col == labelColumn {
				label, err = strconv.Atoi(field)
				if err != nil {
					return nil, fmt.Errorf("parsing label at row %d column %d: %v", row, col, err)
				}
				continue
			}
			v, err := parseFeature(field)
			if err != nil {
				return nil, fmt.Errorf("parsing feature at row %d column %d: %v", row, col, err)
			}
			features = append(features, v)
		}
		x = append(x, features)
		y = append(y, label)
		row++
	}
	if row == 0 {
		return nil, fmt.Errorf("csv stream has no rows")
	}
	return New(x, y)
}

/*
ReadCSVFile takes the path of a headerless CSV file and the index of
the label column and returns the Dataset parsed from it, a
FileNotFoundError if the file cannot be opened, or another error if it
cannot be parsed.
*/
func ReadCSVFile(path string, labelColumn int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileNotFoundError{Path: path, Err: err}
	}
	defer f.Close()
	ds, err := ReadCSV(f, labelColumn)
	if err != nil {
		return nil, fmt.Errorf("reading dataset from %s: %v", path, err)
	}
	return ds, nil
}

/*
ReadCSVMatrix takes an io.Reader for a headerless CSV stream without
a label column and returns its rows as a feature matrix, with '?' and
empty fields parsed as NaN. Rows must all have the same width.
*/
func ReadCSVMatrix(reader io.Reader) ([][]float64, error) {
	r := csv.NewReader(reader)
	var x [][]float64
	row := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %v", row, err)
		}
		features := make([]float64, 0, len(record))
		for col, field := range record {
			v, err := parseFeature(field)
			if err != nil {
				return nil, fmt.Errorf("parsing feature at row %d column %d: %v", row, col, err)
			}
			features = append(features, v)
		}
		x = append(x, features)
		row++
	}
	if row == 0 {
		return nil, fmt.Errorf("csv stream has no rows")
	}
	return x, nil
}

func parseFeature(field string) (float64, error) {
	if field == "" || field == "?" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(field, 64)
}
