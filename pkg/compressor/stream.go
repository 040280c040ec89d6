package compressor

import (
	"fmt"
	"io"
	"time"

	"github.com/jademcosta/courier/pkg/config"
)

// NewCompressingReader returns a reader of the compressed form of src. The
// compression runs on its own goroutine as the result is consumed; closing
// the returned reader stops it.
func NewCompressingReader(conf *config.CompressionConfig, src io.Reader) (io.ReadCloser, error) {
	if conf.Type == "" {
		return io.NopCloser(src), nil
	}

	pr, pw := io.Pipe()
	counter := &countingWriter{w: pw}
	compressorWriter, err := NewWriter(conf, counter)
	if err != nil {
		return nil, err
	}

	go func() {
		startTime := time.Now()
		read, err := io.Copy(compressorWriter, src)
		if err != nil {
			_ = compressorWriter.Close()
			pw.CloseWithError(fmt.Errorf("error compressing data: %w", err))
			return
		}

		if err := compressorWriter.Close(); err != nil {
			pw.CloseWithError(fmt.Errorf("error finishing compression: %w", err))
			return
		}

		if read > 0 {
			reportCompressionRatio(conf.Type, float64(counter.written)/float64(read))
		}
		reportCompressionDuration(conf.Type, time.Since(startTime))
		pw.Close()
	}()

	return pr, nil
}

type countingWriter struct {
	w       io.Writer
	written int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.written += int64(n)
	return n, err
}
