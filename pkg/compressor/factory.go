package compressor

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/jademcosta/courier/pkg/config"
	"github.com/jademcosta/courier/pkg/domain"
)

type CompressorReader interface {
	io.ReadCloser
}

type CompressorWriter interface {
	io.WriteCloser
}

func NewReader(conf *config.CompressionConfig, reader io.Reader) (CompressorReader, error) {
	var compressor CompressorReader
	var err error

	switch strings.ToLower(conf.Type) {
	case domain.CompressionGzipType:
		compressor, err = gzip.NewReader(reader)
	case domain.CompressionZlibType:
		compressor, err = zlib.NewReader(reader)
	case domain.CompressionDeflateType:
		compressor = flate.NewReader(reader)
	case domain.CompressionZstdType:
		var decoder *zstd.Decoder
		decoder, err = zstd.NewReader(reader)
		if err == nil {
			compressor = decoder.IOReadCloser()
		}
	case domain.CompressionSnappyType:
		compressor = io.NopCloser(snappy.NewReader(reader))
	case "":
		compressor = io.NopCloser(reader)
	default:
		err = fmt.Errorf("invalid compression type %s", conf.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("error creating %s reader: %w", conf.Type, err)
	}

	return compressor, nil
}

func NewWriter(conf *config.CompressionConfig, writer io.Writer) (CompressorWriter, error) {
	var compressor CompressorWriter
	var err error

	levelSet := conf.Level != ""
	level := 0
	if levelSet {
		level, err = strconv.Atoi(conf.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid compression level %s: %w", conf.Level, err)
		}
	}

	switch strings.ToLower(conf.Type) {
	case domain.CompressionGzipType:
		if levelSet {
			compressor, err = gzip.NewWriterLevel(writer, level)
		} else {
			compressor = gzip.NewWriter(writer)
		}
	case domain.CompressionZlibType:
		if levelSet {
			compressor, err = zlib.NewWriterLevel(writer, level)
		} else {
			compressor = zlib.NewWriter(writer)
		}
	case domain.CompressionDeflateType:
		if !levelSet {
			level = flate.DefaultCompression
		}
		compressor, err = flate.NewWriter(writer, level)
	case domain.CompressionZstdType:
		opts := []zstd.EOption{}
		if levelSet {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		}
		compressor, err = zstd.NewWriter(writer, opts...)
	case domain.CompressionSnappyType:
		// snappy has no levels
		compressor = snappy.NewBufferedWriter(writer)
	case "":
		compressor = nopWriteCloser{writer}
	default:
		err = fmt.Errorf("invalid compression type %s", conf.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("error creating %s writer: %w", conf.Type, err)
	}

	return compressor, nil
}

// Extension is appended to object keys so readers know how to decode them.
func Extension(conf *config.CompressionConfig) string {
	if conf.Type == "" {
		return ""
	}
	return "." + strings.ToLower(conf.Type)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
