package dataset

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	in := strings.NewReader("1.5,2.5,0\n3.0,4.0,1\n5.5,6.5,0\n")
	ds, err := ReadCSV(in, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Count())
	assert.Equal(t, 2, ds.NumFeatures())
	assert.Equal(t, []int{0, 1, 0}, ds.Y)
	assert.Equal(t, []float64{1.5, 2.5}, ds.X[0])
}

// TestReadCSVLabelColumnFirst verifies the label column can sit
// anywhere in the row.
func TestReadCSVLabelColumnFirst(t *testing.T) {
	in := strings.NewReader("1,2.0,3.0\n0,4.0,5.0\n")
	ds, err := ReadCSV(in, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, ds.Y)
	assert.Equal(t, []float64{2.0, 3.0}, ds.X[0])
}

// TestReadCSVMissingValues verifies '?' and empty fields parse as
// NaN features.
func TestReadCSVMissingValues(t *testing.T) {
	in := strings.NewReader("?,2.0,0\n,4.0,1\n")
	ds, err := ReadCSV(in, 2)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(ds.X[0][0]))
	assert.True(t, math.IsNaN(ds.X[1][0]))
	assert.Equal(t, 2.0, ds.X[0][1])
}

func TestReadCSVErrors(t *testing.T) {
	cases := []struct {
		name        string
		in          string
		labelColumn int
	}{
		{"empty stream", "", 0},
		{"label column out of bounds", "1.0,2.0,0\n", 5},
		{"negative label column", "1.0,2.0,0\n", -1},
		{"non-integer label", "1.0,2.0,zero\n", 2},
		{"unparsable feature", "one,2.0,0\n", 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(c.in), c.labelColumn)
			require.Error(t, err)
		})
	}
}

func TestReadCSVFileNotFound(t *testing.T) {
	_, err := ReadCSVFile("testdata/does-not-exist.csv", 0)
	require.Error(t, err)
	_, ok := err.(*FileNotFoundError)
	assert.True(t, ok, "expected a FileNotFoundError, got %T", err)
}

func TestReadCSVMatrix(t *testing.T) {
	in := strings.NewReader("1.0,2.0\n?,4.0\n")
	x, err := ReadCSVMatrix(in)
	require.NoError(t, err)
	require.Len(t, x, 2)
	assert.Equal(t, []float64{1.0, 2.0}, x[0])
	assert.True(t, math.IsNaN(x[1][0]))

	_, err = ReadCSVMatrix(strings.NewReader(""))
	require.Error(t, err)
}
