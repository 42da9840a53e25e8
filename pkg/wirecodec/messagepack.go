package wirecodec

import (
	"github.com/vmihailenco/msgpack/v5"
)

func newMessagePackCodec() Codec {
	return &structuredCodec{
		name:      MessagePack,
		binary:    true,
		marshal:   msgpack.Marshal,
		unmarshal: msgpack.Unmarshal,
	}
}
