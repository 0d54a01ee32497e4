package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/TrevorS/pointcluster"
)

// readPoints parses a headerless CSV table of dims coordinates plus an
// optional integer tag per row. Blank lines and lines starting with # are
// skipped; the point index is the data row number.
func readPoints(r io.Reader, dims int) ([]pointcluster.Point, error) {
	if dims < 1 || dims > pointcluster.MaxDims {
		return nil, fmt.Errorf("dims must be 1..%d, got %d", pointcluster.MaxDims, dims)
	}
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var points []pointcluster.Point
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return points, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) != dims && len(rec) != dims+1 {
			return nil, fmt.Errorf("line %d: want %d or %d columns, got %d", line, dims, dims+1, len(rec))
		}

		p := pointcluster.Point{Index: len(points), Coords: make([]float64, dims)}
		for d := 0; d < dims; d++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[d]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, d+1, err)
			}
			p.Coords[d] = v
		}
		if len(rec) == dims+1 {
			tag, err := strconv.Atoi(strings.TrimSpace(rec[dims]))
			if err != nil {
				return nil, fmt.Errorf("line %d tag: %w", line, err)
			}
			p.Tag = tag
		}
		points = append(points, p)
	}
}
