// Package manifest reads and writes the per-backup file list: one line per
// captured file recording its relative path, size, mode, checksum and
// storage compression. The validation engine reloads the manifest for every
// run and discards it afterwards; entries are never persisted back.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// ErrBadManifest indicates an unparsable file-list line.
var ErrBadManifest = errors.New("malformed file manifest")

// SizeUnchanged marks entries skipped by an incremental backup because the
// file did not change since the parent; no payload exists for them.
const SizeUnchanged int64 = -1

// Entry describes one captured file.
type Entry struct {
	// Path is relative to the backup's data directory.
	Path string
	// Size is the stored payload size in bytes, SizeUnchanged when the
	// incremental backup skipped the file.
	Size int64
	Mode fs.FileMode
	CRC  uint32
	// Compressed marks payloads stored zstd-compressed; the checksum
	// always covers the uncompressed content.
	Compressed bool
}

// IsRegular reports whether the entry describes a plain file eligible for
// validation.
func (e *Entry) IsRegular() bool {
	return e.Mode.IsRegular()
}

const (
	compressionNone = "none"
	compressionZstd = "zstd"
)

// Load reads the manifest at path. Lines are tab-separated
// (path, size, mode octal, crc hex, compression); '#' lines are comments.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file manifest %q: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		entry, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %v", ErrBadManifest, path, lineno, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read file manifest %q: %w", path, err)
	}

	return entries, nil
}

func parseLine(line string) (Entry, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 5 {
		return Entry{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}

	size, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid size %q", fields[1])
	}
	mode, err := strconv.ParseUint(fields[2], 8, 32)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid mode %q", fields[2])
	}
	crc, err := strconv.ParseUint(fields[3], 16, 32)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid crc %q", fields[3])
	}

	var compressed bool
	switch fields[4] {
	case compressionNone:
	case compressionZstd:
		compressed = true
	default:
		return Entry{}, fmt.Errorf("unknown compression %q", fields[4])
	}

	return Entry{
		Path:       fields[0],
		Size:       size,
		Mode:       fs.FileMode(mode),
		CRC:        uint32(crc),
		Compressed: compressed,
	}, nil
}

// Write renders entries at path, one line per file in input order.
func Write(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file manifest %q: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range entries {
		compression := compressionNone
		if e.Compressed {
			compression = compressionZstd
		}
		fmt.Fprintf(w, "%s\t%d\t%o\t%08x\t%s\n",
			e.Path, e.Size, uint32(e.Mode), e.CRC, compression)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write file manifest %q: %w", path, err)
	}
	return nil
}
