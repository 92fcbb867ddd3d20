package pointsource

import (
	"io"
	"strings"
	"testing"

	"github.com/lodtree/lodtree/internal/geom"
	"github.com/lodtree/lodtree/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPointSchema() schema.Schema {
	return schema.New([]schema.Dimension{
		{Name: "X", Size: 8},
		{Name: "Y", Size: 8},
		{Name: "Z", Size: 8},
	})
}

func TestDelimitedPointSource_ParsesCommaAndWhitespace(t *testing.T) {
	input := "1,2,3\n4 5 6\n\n7,8 9\n"
	src, err := NewDelimitedPointSource(strings.NewReader(input), testPointSchema())
	require.NoError(t, err)

	var got []geom.Point
	for {
		p, native, err := src.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Len(t, native, 24)
		got = append(got, p)
	}

	assert.Equal(t, []geom.Point{
		{X: 1, Y: 2, Z: 3},
		{X: 4, Y: 5, Z: 6},
		{X: 7, Y: 8, Z: 9},
	}, got)
}

func TestDelimitedPointSource_RejectsWrongFieldCount(t *testing.T) {
	src, err := NewDelimitedPointSource(strings.NewReader("1,2\n"), testPointSchema())
	require.NoError(t, err)

	_, _, err = src.Next()
	assert.Error(t, err)
}

func TestDelimitedPointSource_RejectsSchemaMissingDimension(t *testing.T) {
	s := schema.New([]schema.Dimension{{Name: "X", Size: 8}, {Name: "Y", Size: 8}})
	_, err := NewDelimitedPointSource(strings.NewReader(""), s)
	assert.Error(t, err)
}

func TestDelimitedPointSource_EmptyInputReturnsEOFImmediately(t *testing.T) {
	src, err := NewDelimitedPointSource(strings.NewReader(""), testPointSchema())
	require.NoError(t, err)

	_, _, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}
