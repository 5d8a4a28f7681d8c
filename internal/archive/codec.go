package archive

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

func compressLZ4(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, fmt.Errorf("lz4 write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("lz4 close: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressLZ4(src []byte) ([]byte, error) {
	var out bytes.Buffer
	if _, err := io.Copy(&out, lz4.NewReader(bytes.NewReader(src))); err != nil {
		return nil, fmt.Errorf("lz4 read: %w", err)
	}
	return out.Bytes(), nil
}

func hashBLAKE3(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// linkHash chains a turn to its predecessor. The compressed payload is part of
// the link, so tampering with the stored report breaks every later hash.
func linkHash(gameID string, turn int, prevHash, digest string, payload []byte) string {
	header := fmt.Sprintf("%s-%d-%s-%s-", gameID, turn, prevHash, digest)
	return hashBLAKE3(append([]byte(header), payload...))
}
