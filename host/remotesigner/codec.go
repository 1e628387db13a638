package remotesigner

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

const codecName = "malachite-rawbytes"

// wireMessage is implemented by every request/response type in this
// package; rawCodec defers to it instead of requiring generated
// protobuf messages, since no .proto toolchain runs in this build.
type wireMessage interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// rawCodec is a minimal grpc/encoding.Codec over wireMessage, the same
// role google.golang.org/grpc/encoding/proto plays for generated code.
type rawCodec struct{}

func (rawCodec) Name() string { return codecName }

func (rawCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("remotesigner: %T does not implement wireMessage", v)
	}
	return m.Marshal()
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("remotesigner: %T does not implement wireMessage", v)
	}
	return m.Unmarshal(data)
}

func init() {
	encoding.RegisterCodec(rawCodec{})
}
