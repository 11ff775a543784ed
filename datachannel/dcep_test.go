package datachannel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDCEPOpen_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		open dcepOpen
	}{
		{"empty label and protocol", dcepOpen{channelType: channelTypeReliable}},
		{"label only", dcepOpen{channelType: channelTypeReliable, label: "chat"}},
		{"label and protocol", dcepOpen{channelType: channelTypeReliable, priority: 128, reliability: 3, label: "chat", protocol: "json"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			wire := marshalDCEPOpen(c.open)
			got, err := unmarshalDCEPOpen(wire)
			require.NoError(t, err)
			assert.Equal(t, c.open, got)
		})
	}
}

func TestDCEPOpen_TruncatedHeaderRejected(t *testing.T) {
	_, err := unmarshalDCEPOpen([]byte{dcepTypeOpen, 0, 0, 0})
	assert.ErrorIs(t, err, ErrTruncatedDCEP)
}

func TestDCEPOpen_TruncatedBodyRejected(t *testing.T) {
	open := dcepOpen{channelType: channelTypeReliable, label: "chat", protocol: "json"}
	wire := marshalDCEPOpen(open)

	_, err := unmarshalDCEPOpen(wire[:len(wire)-1])
	assert.ErrorIs(t, err, ErrTruncatedDCEP)
}

func TestDCEPAck_Marshal(t *testing.T) {
	assert.Equal(t, []byte{dcepTypeACK}, marshalDCEPAck())
}

func TestPayloadForData(t *testing.T) {
	cases := []struct {
		name     string
		data     []byte
		isString bool
		wantPPID uint32
		wantWire []byte
	}{
		{"empty string", nil, true, ppidStringEmpty, []byte{0}},
		{"non-empty string", []byte("hi"), true, ppidString, []byte("hi")},
		{"empty binary", nil, false, ppidBinaryEmpty, []byte{0}},
		{"non-empty binary", []byte{1, 2, 3}, false, ppidBinary, []byte{1, 2, 3}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ppid, wire := payloadForData(c.data, c.isString)
			assert.Equal(t, c.wantPPID, ppid)
			assert.Equal(t, c.wantWire, wire)
		})
	}
}

func TestDataForPayload(t *testing.T) {
	cases := []struct {
		name         string
		ppid         uint32
		wire         []byte
		wantData     []byte
		wantIsString bool
		wantOK       bool
	}{
		{"string", ppidString, []byte("hi"), []byte("hi"), true, true},
		{"string empty", ppidStringEmpty, []byte{0}, nil, true, true},
		{"binary", ppidBinary, []byte{9}, []byte{9}, false, true},
		{"binary empty", ppidBinaryEmpty, []byte{0}, nil, false, true},
		{"dcep is not a payload", ppidDCEP, []byte{3}, nil, false, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			data, isString, ok := dataForPayload(c.ppid, c.wire)
			assert.Equal(t, c.wantOK, ok)
			if ok {
				assert.Equal(t, c.wantData, data)
				assert.Equal(t, c.wantIsString, isString)
			}
		})
	}
}
