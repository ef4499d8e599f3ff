package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the backup format.
type Compression uint8

const (
	// BackupNone disables backups.
	BackupNone Compression = iota
	// BackupZSTD writes <path>.bak.zst (better ratio).
	BackupZSTD
	// BackupLZ4 writes <path>.bak.lz4 (faster).
	BackupLZ4
)

// ParseCompression maps "none", "zstd" or "lz4" to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return BackupNone, nil
	case "zstd", "zst":
		return BackupZSTD, nil
	case "lz4":
		return BackupLZ4, nil
	default:
		return BackupNone, fmt.Errorf("unknown backup compression %q", s)
	}
}

func (c Compression) String() string {
	switch c {
	case BackupZSTD:
		return "zstd"
	case BackupLZ4:
		return "lz4"
	default:
		return "none"
	}
}

// BackupPath returns the backup file name for a document path.
func BackupPath(path string, c Compression) string {
	switch c {
	case BackupZSTD:
		return path + ".bak.zst"
	case BackupLZ4:
		return path + ".bak.lz4"
	default:
		return ""
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func compressBackup(data []byte, c Compression) ([]byte, error) {
	switch c {
	case BackupZSTD:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, nil), nil
	case BackupLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, errors.New("backup compression disabled")
	}
}

// DecompressBackup restores the document bytes from a backup file's content.
func DecompressBackup(data []byte, c Compression) ([]byte, error) {
	switch c {
	case BackupZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		return dec.DecodeAll(data, nil)
	case BackupLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	default:
		return nil, errors.New("backup compression disabled")
	}
}
