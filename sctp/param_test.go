package sctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParam_RoundTrip(t *testing.T) {
	p := param{paramType: paramStateCookie, value: []byte("cookie-bytes")}
	raw := p.marshal()

	parsed, err := parseParams(raw)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, p, parsed[0])
}

func TestParam_PaddingToFourByteBoundary(t *testing.T) {
	p := param{paramType: 1, value: []byte{1, 2, 3}}
	raw := p.marshal()
	assert.Equal(t, 0, len(raw)%4)
}

func TestParam_MultipleParamsRoundTrip(t *testing.T) {
	ps := []param{
		{paramType: 1, value: []byte{1}},
		{paramType: 2, value: []byte{1, 2, 3, 4, 5}},
		{paramType: 3, value: nil},
	}
	raw := marshalParams(ps)

	parsed, err := parseParams(raw)
	require.NoError(t, err)
	require.Len(t, parsed, 3)
	for i := range ps {
		assert.Equal(t, ps[i].paramType, parsed[i].paramType)
		assert.Equal(t, ps[i].value, parsed[i].value)
	}
}

func TestParam_TruncatedHeaderRejected(t *testing.T) {
	_, err := parseParams([]byte{0, 1})
	assert.ErrorIs(t, err, ErrTruncatedParam)
}

func TestGetPadding(t *testing.T) {
	assert.Equal(t, 0, getPadding(4))
	assert.Equal(t, 3, getPadding(1))
	assert.Equal(t, 2, getPadding(2))
	assert.Equal(t, 1, getPadding(3))
}
