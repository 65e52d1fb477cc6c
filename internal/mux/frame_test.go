package mux

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{Version: 0, Type: TypeData, Flags: FlagSYN | FlagACK, StreamID: 7, Length: 1024}
	decoded, err := DecodeHeader(h.Encode())
	require.NoError(t, err)
	require.Equal(t, h, decoded)
}

func TestDecodeHeaderShort(t *testing.T) {
	_, err := DecodeHeader([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrShortHeader)
}

func TestDecodeHeaderRejectsOversizedDataFrame(t *testing.T) {
	h := Header{Type: TypeData, StreamID: 1, Length: MaxFrameLength + 1}
	_, err := DecodeHeader(h.Encode())
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestStreamIDParity(t *testing.T) {
	require.True(t, IsInitiatorStreamID(1))
	require.True(t, IsInitiatorStreamID(3))
	require.False(t, IsInitiatorStreamID(2))
	require.True(t, IsResponderStreamID(2))
	require.False(t, IsResponderStreamID(0))
	require.False(t, IsResponderStreamID(1))
}
