package rpc

import (
	"encoding/json"
	"fmt"
	"io"

	"connectrpc.com/connect"
	"github.com/klauspost/compress/zstd"
)

const (
	// CodecName is registered as the "json" codec, so Connect requests use
	// Content-Type application/json.
	CodecName = "json"

	// CompressionZstd is the Connect compression name for zstd.
	CompressionZstd = "zstd"
)

var _ connect.Codec = JSONCodec{}

// JSONCodec marshals plain Go message structs with encoding/json.
type JSONCodec struct{}

func (JSONCodec) Name() string { return CodecName }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	// Empty bodies decode to the zero message.
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	return nil
}

type zstdDecompressor struct {
	*zstd.Decoder
}

func (d *zstdDecompressor) Close() error {
	// The decoder is returned to Connect's pool and reused via Reset.
	return nil
}

func newZstdDecompressor() connect.Decompressor {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
	if err != nil {
		return errDecompressor{err: err}
	}
	return &zstdDecompressor{Decoder: dec}
}

func newZstdCompressor() connect.Compressor {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return errCompressor{err: err}
	}
	return enc
}

type errDecompressor struct{ err error }

func (e errDecompressor) Read([]byte) (int, error) { return 0, e.err }
func (e errDecompressor) Close() error             { return nil }
func (e errDecompressor) Reset(io.Reader) error    { return e.err }

type errCompressor struct{ err error }

func (e errCompressor) Write([]byte) (int, error) { return 0, e.err }
func (e errCompressor) Close() error              { return e.err }
func (e errCompressor) Reset(io.Writer)           {}

// HandlerOptions configures handlers with the JSON codec and zstd support.
func HandlerOptions(opts ...connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{
		connect.WithCodec(JSONCodec{}),
		connect.WithCompression(CompressionZstd, newZstdDecompressor, newZstdCompressor),
	}, opts...)
}

// ClientOptions configures clients with the JSON codec and zstd support.
// Requests are sent uncompressed unless WithSendCompression(CompressionZstd) is added.
func ClientOptions(opts ...connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{
		connect.WithCodec(JSONCodec{}),
		connect.WithAcceptCompression(CompressionZstd, newZstdDecompressor, newZstdCompressor),
	}, opts...)
}
