package store

import "github.com/vmihailenco/msgpack/v5"

// Codec abstracts the serialization format of stored revisions, so the
// store implementation never commits to one on its own. The default is
// MessagePack.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// DefaultCodec is MessagePack.
var DefaultCodec Codec = msgpackCodec{}

type msgpackCodec struct{}

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackCodec) Unmarshal(b []byte, v any) error {
	return msgpack.Unmarshal(b, v)
}
