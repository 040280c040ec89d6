package worker

import (
	"context"
	"io"

	"github.com/jademcosta/courier/pkg/transfer"
)

// ProgressStepInBytes is how many bytes must be read between two progress
// reports. The end of the stream is always reported.
const ProgressStepInBytes = 64 * 1024

type progressReader struct {
	ctx          context.Context
	r            io.Reader
	total        int64
	read         int64
	lastReported int64
	progress     transfer.ProgressFunc
}

func newProgressReader(ctx context.Context, r io.Reader, total int64, progress transfer.ProgressFunc) *progressReader {
	return &progressReader{ctx: ctx, r: r, total: total, progress: progress}
}

func (pr *progressReader) Read(p []byte) (int, error) {
	if err := pr.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := pr.r.Read(p)
	pr.read += int64(n)

	if pr.read-pr.lastReported >= ProgressStepInBytes || (err == io.EOF && pr.read > pr.lastReported) {
		pr.lastReported = pr.read
		pr.progress(pr.read, pr.total)
	}

	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
