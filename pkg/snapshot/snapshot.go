// Package snapshot saves and restores VM memory between runs.
package snapshot

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang/snappy"

	"limit/pkg/cpu"
)

const (
	metaEntry   = "meta.json"
	memoryEntry = "memory.sz"

	chunkWords = 64 * 1024
)

var ErrSizeMismatch = errors.New("snapshot word count does not match memory")

// Meta describes the saved memory. SourceSHA256 lets a host warn when a
// snapshot is restored under a different program.
type Meta struct {
	SourceSHA256 string    `json:"source_sha256"`
	Ticks        uint64    `json:"ticks"`
	Words        int       `json:"words"`
	Created      time.Time `json:"created"`
}

// SourceHash returns the hex SHA-256 of a program's source text.
func SourceHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Save writes mem and meta as a ZIP archive. meta.Words is filled in.
func Save(w io.Writer, mem cpu.Memory, meta Meta) error {
	zw := zip.NewWriter(w)

	meta.Words = len(mem)
	if meta.Created.IsZero() {
		meta.Created = time.Now().UTC()
	}
	jsonData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	if err := writeZipEntry(zw, metaEntry, jsonData); err != nil {
		return err
	}

	// snappy already compresses; store the entry as-is
	ew, err := zw.CreateHeader(&zip.FileHeader{Name: memoryEntry, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", memoryEntry, err)
	}
	sw := snappy.NewBufferedWriter(ew)
	buf := make([]byte, chunkWords*4)
	for start := 0; start < len(mem); start += chunkWords {
		end := min(start+chunkWords, len(mem))
		n := 0
		for _, word := range mem[start:end] {
			binary.LittleEndian.PutUint32(buf[n:], word)
			n += 4
		}
		if _, err := sw.Write(buf[:n]); err != nil {
			return fmt.Errorf("write memory: %w", err)
		}
	}
	if err := sw.Close(); err != nil {
		return fmt.Errorf("write memory: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

// Load reads an archive produced by Save and returns a newly allocated memory.
func Load(r io.ReaderAt, size int64) (cpu.Memory, Meta, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		fileMap[f.Name] = f
	}

	var meta Meta
	jsonData, err := readZipEntry(fileMap, metaEntry)
	if err != nil {
		return nil, Meta{}, err
	}
	if err := json.Unmarshal(jsonData, &meta); err != nil {
		return nil, Meta{}, fmt.Errorf("unmarshal meta: %w", err)
	}
	if meta.Words < 0 || meta.Words > cpu.AddressSpace {
		return nil, Meta{}, fmt.Errorf("invalid word count %d", meta.Words)
	}

	f, ok := fileMap[memoryEntry]
	if !ok {
		return nil, Meta{}, fmt.Errorf("zip entry %q not found", memoryEntry)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, Meta{}, fmt.Errorf("open zip entry %q: %w", memoryEntry, err)
	}
	defer rc.Close()

	mem := cpu.NewMemory(meta.Words)
	sr := snappy.NewReader(rc)
	buf := make([]byte, chunkWords*4)
	for start := 0; start < len(mem); start += chunkWords {
		end := min(start+chunkWords, len(mem))
		chunk := buf[:(end-start)*4]
		if _, err := io.ReadFull(sr, chunk); err != nil {
			return nil, Meta{}, fmt.Errorf("%w: %v", ErrSizeMismatch, err)
		}
		for i := range mem[start:end] {
			mem[start+i] = binary.LittleEndian.Uint32(chunk[i*4:])
		}
	}
	if n, _ := sr.Read(buf[:1]); n != 0 {
		return nil, Meta{}, ErrSizeMismatch
	}
	return mem, meta, nil
}

// Restore loads a snapshot into an existing memory of the same size.
func Restore(r io.ReaderAt, size int64, mem cpu.Memory) (Meta, error) {
	saved, meta, err := Load(r, size)
	if err != nil {
		return Meta{}, err
	}
	if len(saved) != len(mem) {
		return Meta{}, fmt.Errorf("%w: snapshot has %d words, memory has %d", ErrSizeMismatch, len(saved), len(mem))
	}
	copy(mem, saved)
	return meta, nil
}

// SaveFile writes a snapshot to path.
func SaveFile(path string, mem cpu.Memory, meta Meta) error {
	var buf bytes.Buffer
	if err := Save(&buf, mem, meta); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// RestoreFile reads the snapshot at path into mem.
func RestoreFile(path string, mem cpu.Memory) (Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, err
	}
	return Restore(bytes.NewReader(data), int64(len(data)), mem)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
