package domain

import "io"

const MsgSchemaVersion string = "0.1.0"

const (
	CompressionGzipType    = "gzip"
	CompressionZlibType    = "zlib"
	CompressionDeflateType = "deflate"
	CompressionZstdType    = "zstd"
	CompressionSnappyType  = "snappy"
)

// UploadResult is what an object storage backend reports after storing an
// object.
type UploadResult struct {
	Bucket      string
	Region      string
	Path        string
	URL         string
	SizeInBytes int64
}

// MessageContext is announced on the external queue after an upload
// succeeds.
type MessageContext struct {
	Source          string
	Bucket          string
	Region          string
	Path            string
	URL             string
	SizeInBytes     int64
	CompressionType string
	SavedAt         int64
}

// WorkUnit is a single object to be streamed into object storage.
type WorkUnit struct {
	Key  string
	Body io.Reader
	// Size is -1 when unknown, e.g. when the body is being compressed on the
	// fly.
	Size int64
}
