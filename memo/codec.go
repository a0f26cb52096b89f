package memo

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Entries are stored as zstd-compressed JSON.

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func initCodec() {
	encoder, codecErr = zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if codecErr != nil {
		return
	}
	decoder, codecErr = zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(256<<20),
	)
}

// encodeEntry serializes a call result for storage. Results must hold
// only valid UTF-8 strings.
func encodeEntry(v any) ([]byte, error) {
	codecOnce.Do(initCodec)
	if codecErr != nil {
		return nil, codecErr
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("memo: encode result: %w", err)
	}
	if err := validUTF8(v); err != nil {
		return nil, fmt.Errorf("memo: encode result: %w", err)
	}
	return encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// decodeEntry restores a stored call result into out.
func decodeEntry(data []byte, out any) error {
	codecOnce.Do(initCodec)
	if codecErr != nil {
		return codecErr
	}

	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("decompress entry: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode entry: %w", err)
	}
	return nil
}
