// Package codec turns typed messages into the strings actors exchange.
package codec

import "encoding/json"

type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (JSONCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

func Encode(c Codec, v any) (string, error) {
	b, err := c.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func Decode[T any](c Codec, msg string) (T, error) {
	var v T
	err := c.Unmarshal([]byte(msg), &v)
	return v, err
}
