package manifest

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/kebairia/pgverify/internal/archive"
)

// FileCRC computes the IEEE CRC-32 of the file's content. Compressed
// payloads are decompressed on the fly so the checksum always covers the
// logical content, matching what the manifest records.
func FileCRC(path string, compressed bool) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		dec, err := archive.OpenReader(f)
		if err != nil {
			return 0, err
		}
		defer dec.Close()
		r = dec
	}

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, r); err != nil {
		return 0, fmt.Errorf("checksum %q: %w", path, err)
	}
	return h.Sum32(), nil
}
