package manifest

import (
	"errors"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/kebairia/pgverify/internal/archive"
)

func TestManifest_WriteLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.list")

	want := []Entry{
		{Path: "base/1/1234", Size: 8192, Mode: 0o644, CRC: 0xDEADBEEF},
		{Path: "base/1/5678.zst", Size: 512, Mode: 0o644, CRC: 0x0000BEEF, Compressed: true},
		{Path: "base/1/skipped", Size: SizeUnchanged, Mode: 0o644, CRC: 0},
	}
	if err := Write(path, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Load returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestManifest_CommentsSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.list")
	content := "# produced by backup run\n\nbase/1/1234\t42\t644\tcafebabe\tnone\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 || entries[0].CRC != 0xCAFEBABE {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestManifest_MalformedLines(t *testing.T) {
	cases := map[string]string{
		"too few fields":  "base/1/1234\t42\n",
		"bad size":        "p\tlots\t644\t0\tnone\n",
		"bad mode":        "p\t42\t9z9\t0\tnone\n",
		"bad crc":         "p\t42\t644\txyz\tnone\n",
		"bad compression": "p\t42\t644\t0\tgzip\n",
	}

	for name, content := range cases {
		path := filepath.Join(t.TempDir(), "database.list")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); !errors.Is(err, ErrBadManifest) {
			t.Fatalf("%s: want ErrBadManifest, got %v", name, err)
		}
	}
}

func TestFileCRC_Plain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data")
	content := []byte("the quick brown fox jumps over the lazy dog")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := FileCRC(path, false)
	if err != nil {
		t.Fatalf("FileCRC: %v", err)
	}
	if want := crc32.ChecksumIEEE(content); got != want {
		t.Fatalf("FileCRC = %08x, want %08x", got, want)
	}
}

func TestFileCRC_CompressedCoversLogicalContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data")
	content := []byte("compressible compressible compressible payload")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	compressed, err := archive.Compress(path)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	got, err := FileCRC(compressed, true)
	if err != nil {
		t.Fatalf("FileCRC: %v", err)
	}
	if want := crc32.ChecksumIEEE(content); got != want {
		t.Fatalf("FileCRC over compressed file = %08x, want %08x", got, want)
	}
}
