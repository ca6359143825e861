package archive

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Ext is the suffix of zstd-compressed payload files.
const Ext = ".zst"

// OpenReader wraps r with a zstd decoder. The caller must Close the
// returned reader to release decoder resources.
func OpenReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	return dec.IOReadCloser(), nil
}

// Compress rewrites the file at inputPath as inputPath+".zst" and removes
// the original. Returns the compressed path.
func Compress(inputPath string) (string, error) {
	outputPath := inputPath + Ext

	inFile, err := os.Open(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to open input file: %w", err)
	}
	defer inFile.Close()

	outFile, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer outFile.Close()

	writer, err := zstd.NewWriter(outFile)
	if err != nil {
		return "", fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if _, err := io.Copy(writer, inFile); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to compress file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to flush zstd writer: %w", err)
	}

	if err := os.Remove(inputPath); err != nil {
		return "", fmt.Errorf("failed to remove original file: %w", err)
	}

	return outputPath, nil
}

// Decompress is the inverse of Compress: it restores the original file next
// to the compressed one and leaves the compressed file in place.
func Decompress(inputPath string) (string, error) {
	if len(inputPath) <= len(Ext) || inputPath[len(inputPath)-len(Ext):] != Ext {
		return "", fmt.Errorf("not a %s file: %q", Ext, inputPath)
	}
	outputPath := inputPath[:len(inputPath)-len(Ext)]

	inFile, err := os.Open(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to open input file: %w", err)
	}
	defer inFile.Close()

	reader, err := OpenReader(inFile)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	outFile, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, reader); err != nil {
		return "", fmt.Errorf("failed to decompress file: %w", err)
	}

	return outputPath, nil
}
