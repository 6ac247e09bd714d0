package snapshot

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limit/pkg/cpu"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	// span several chunks with a short tail
	mem := cpu.NewMemory(2*chunkWords + 17)
	for i := range mem {
		mem[i] = uint32(i) * 2654435761
	}
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	meta := Meta{SourceSHA256: SourceHash("add 1 1 -> [0]"), Ticks: 42, Created: created}

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, mem, meta))

	got, gotMeta, err := Load(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Equal(t, len(mem), len(got))
	if diff := cmp.Diff([]uint32(mem), []uint32(got)); diff != "" {
		t.Fatalf("memory mismatch (-want +got):\n%s", diff)
	}

	meta.Words = len(mem)
	assert.Equal(t, meta, gotMeta)
}

func TestRestoreSizeMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, cpu.NewMemory(16), Meta{}))

	mem := cpu.NewMemory(32)
	mem[0] = 5
	_, err := Restore(bytes.NewReader(buf.Bytes()), int64(buf.Len()), mem)
	require.ErrorIs(t, err, ErrSizeMismatch)
	assert.Equal(t, uint32(5), mem[0])
}

func TestLoadTruncatedMemory(t *testing.T) {
	// meta claims more words than the memory entry holds
	var good bytes.Buffer
	require.NoError(t, Save(&good, cpu.NewMemory(8), Meta{}))
	zr, err := zip.NewReader(bytes.NewReader(good.Bytes()), int64(good.Len()))
	require.NoError(t, err)
	files := make(map[string]*zip.File)
	for _, f := range zr.File {
		files[f.Name] = f
	}
	memData, err := readZipEntry(files, memoryEntry)
	require.NoError(t, err)

	var bad bytes.Buffer
	zw := zip.NewWriter(&bad)
	require.NoError(t, writeZipEntry(zw, metaEntry, []byte(`{"words": 9}`)))
	require.NoError(t, writeZipEntry(zw, memoryEntry, memData))
	require.NoError(t, zw.Close())

	_, _, err = Load(bytes.NewReader(bad.Bytes()), int64(bad.Len()))
	require.ErrorIs(t, err, ErrSizeMismatch)
}

func TestLoadMissingEntries(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	require.NoError(t, writeZipEntry(zw, metaEntry, []byte(`{"words": 4}`)))
	require.NoError(t, zw.Close())

	_, _, err := Load(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.Error(t, err)

	_, _, err = Load(bytes.NewReader([]byte("not a zip")), 9)
	require.Error(t, err)
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.zip")
	mem := cpu.NewMemory(64)
	mem[63] = 0xDEADBEEF
	require.NoError(t, SaveFile(path, mem, Meta{Ticks: 3}))

	restored := cpu.NewMemory(64)
	meta, err := RestoreFile(path, restored)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), meta.Ticks)
	assert.Equal(t, 64, meta.Words)
	assert.Equal(t, mem, restored)
}

func TestSourceHash(t *testing.T) {
	assert.Equal(t, SourceHash("a"), SourceHash("a"))
	assert.NotEqual(t, SourceHash("a"), SourceHash("b"))
	assert.Len(t, SourceHash(""), 64)
}
