package protocol

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-server/internal/geom"
)

func TestLoginRoundTrip(t *testing.T) {
	in := Login{Login: "alice", Password: "secret", Field: 0, Level: 1}
	body, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDirectionRoundTrip(t *testing.T) {
	in := Direction{SnakeID: 3, X: 1.5, Y: -2.25, Boost: true, Split: false}
	body, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFieldRoundTrip(t *testing.T) {
	in := Field{
		SnakeID: 1,
		W:       42,
		Time:    12.5,
		Snakes: []SnakeView{
			{PlayerID: 1, SnakeID: 1, R: 2.5, HeadVisible: true, Skeleton: []geom.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}},
		},
		Foods: []FoodView{{P: geom.Point{X: 5, Y: 6}, W: 5}},
	}
	body, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body, err := Encode(Exit{})
	require.NoError(t, err)
	require.NoError(t, WriteFrame(&buf, body))

	got, err := ReadFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestFrameTooLargeRejected(t *testing.T) {
	var buf bytes.Buffer
	require.ErrorIs(t, WriteFrame(&buf, make([]byte, MaxFrameSize+1)), ErrFrameTooLarge)
}

func TestDecodeUnknownTag(t *testing.T) {
	_, err := Decode([]byte{255})
	assert.Error(t, err)
}

func TestDecodeTruncatedBody(t *testing.T) {
	_, err := Decode([]byte{byte(MsgLogin)})
	assert.Error(t, err)
}
