package store

import (
	"testing"

	"github.com/lodtree/lodtree/internal/octerr"
	"github.com/lodtree/lodtree/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTail_RoundTrip(t *testing.T) {
	body := []byte{1, 2, 3, 4, 5}
	blob := PushTail(append([]byte(nil), body...), 42, TailSparse)

	gotBody, numPoints, kind, err := PopTail(blob)
	require.NoError(t, err)
	assert.Equal(t, body, gotBody)
	assert.Equal(t, uint64(42), numPoints)
	assert.Equal(t, TailSparse, kind)
}

func TestPopTail_RejectsShortBlob(t *testing.T) {
	_, _, _, err := PopTail([]byte{1, 2, 3})
	assert.ErrorIs(t, err, octerr.ErrMalformedBlob)
}

func TestPopTail_RejectsUnknownType(t *testing.T) {
	blob := PushTail(nil, 1, 99)
	_, _, _, err := PopTail(blob)
	assert.ErrorIs(t, err, octerr.ErrMalformedBlob)
}

func TestPopTail_RejectsImplausiblePointCount(t *testing.T) {
	blob := PushTail(nil, utils.MaxPointsPerChunk+1, TailSparse)
	_, _, _, err := PopTail(blob)
	assert.ErrorIs(t, err, octerr.ErrMalformedBlob)
}
