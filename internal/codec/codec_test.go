package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct {
	Seq  int    `json:"seq"`
	From string `json:"from"`
}

func TestJSONCodec(t *testing.T) {
	msg, err := Encode(JSONCodec{}, ping{Seq: 3, From: "a"})
	require.NoError(t, err)
	require.Equal(t, `{"seq":3,"from":"a"}`, msg)

	p, err := Decode[ping](JSONCodec{}, msg)
	require.NoError(t, err)
	require.Equal(t, ping{Seq: 3, From: "a"}, p)

	_, err = Decode[ping](JSONCodec{}, "not json")
	require.Error(t, err)
}
