package adapters

import (
	"path/filepath"

	"github.com/jademcosta/courier/pkg/domain"
)

// ContentEncodingFromKey maps the compression extension of an object key to
// the Content-Encoding it should be stored with. Keys without a known
// extension get an empty encoding.
func ContentEncodingFromKey(key string) string {
	switch extensionOf(key) {
	case domain.CompressionGzipType:
		return "gzip"
	case domain.CompressionZstdType:
		return "zstd"
	case domain.CompressionSnappyType:
		return "x-snappy-framed"
	case domain.CompressionDeflateType, domain.CompressionZlibType:
		return "deflate"
	default:
		return ""
	}
}

func extensionOf(key string) string {
	ext := filepath.Ext(key)
	if len(ext) > 0 {
		return ext[1:]
	}
	return ""
}
