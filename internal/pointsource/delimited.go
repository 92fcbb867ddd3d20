package pointsource

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/lodtree/lodtree/internal/geom"
	"github.com/lodtree/lodtree/internal/schema"
)

// DelimitedPointSource reads one point per line, fields separated by
// any run of whitespace and/or commas, each field an 8-byte float64 in
// the order schema's dimensions declare. Blank lines are skipped.
type DelimitedPointSource struct {
	scanner          *bufio.Scanner
	schema           schema.Schema
	xIdx, yIdx, zIdx int
}

// NewDelimitedPointSource wraps r, reading points laid out per s. s
// must carry X, Y, and Z dimensions; any further dimensions are
// encoded in declared order after them.
func NewDelimitedPointSource(r io.Reader, s schema.Schema) (*DelimitedPointSource, error) {
	xIdx, err := dimIndex(s, "X")
	if err != nil {
		return nil, err
	}
	yIdx, err := dimIndex(s, "Y")
	if err != nil {
		return nil, err
	}
	zIdx, err := dimIndex(s, "Z")
	if err != nil {
		return nil, err
	}
	return &DelimitedPointSource{
		scanner: bufio.NewScanner(r),
		schema:  s,
		xIdx:    xIdx,
		yIdx:    yIdx,
		zIdx:    zIdx,
	}, nil
}

func dimIndex(s schema.Schema, name string) (int, error) {
	for i, d := range s.Dimensions {
		if d.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("pointsource: schema has no %q dimension", name)
}

func isFieldSep(r rune) bool {
	return r == ',' || r == ' ' || r == '\t'
}

// Next returns the next parsed point, or io.EOF once the underlying
// reader is exhausted.
func (d *DelimitedPointSource) Next() (geom.Point, []byte, error) {
	for d.scanner.Scan() {
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.FieldsFunc(line, isFieldSep)
		if len(fields) != len(d.schema.Dimensions) {
			return geom.Point{}, nil, fmt.Errorf("pointsource: line %q has %d fields, schema wants %d", line, len(fields), len(d.schema.Dimensions))
		}

		native := make([]byte, d.schema.PointSize())
		values := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return geom.Point{}, nil, fmt.Errorf("pointsource: parse field %q: %w", field, err)
			}
			values[i] = v
			binary.LittleEndian.PutUint64(native[d.schema.Dimensions[i].Offset:], math.Float64bits(v))
		}

		return geom.Point{X: values[d.xIdx], Y: values[d.yIdx], Z: values[d.zIdx]}, native, nil
	}
	if err := d.scanner.Err(); err != nil {
		return geom.Point{}, nil, fmt.Errorf("pointsource: scan: %w", err)
	}
	return geom.Point{}, nil, io.EOF
}
