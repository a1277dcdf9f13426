package domain

import (
	"bytes"
	"fmt"
	"io"
	"time"
)

// Accepted image MIME types
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
)

// CapturedNamePrefix is the prefix for synthesized camera capture names
const CapturedNamePrefix = "dog-poop-"

// AssetSource records where an image came from
type AssetSource int

const (
	SourceCamera AssetSource = iota
	SourceFile
	SourceClipboard
)

func (s AssetSource) String() string {
	switch s {
	case SourceCamera:
		return "camera"
	case SourceFile:
		return "file"
	case SourceClipboard:
		return "clipboard"
	default:
		return "unknown"
	}
}

// ImageAsset is an in-memory image selected for upload.
// It lives for one workflow cycle and is owned by the workflow controller.
type ImageAsset struct {
	Data      []byte
	MIMEType  string
	Name      string
	Size      int64
	Source    AssetSource
	CreatedAt time.Time
}

// AcceptedTypes returns the MIME allow-list in a fresh slice
func AcceptedTypes() []string {
	return []string{MIMEJPEG, MIMEPNG, MIMEWebP}
}

// NewCapturedAsset wraps a camera frame encoded as JPEG
// Name format: dog-poop-<unix millis>.jpg
func NewCapturedAsset(jpeg []byte, at time.Time) *ImageAsset {
	return &ImageAsset{
		Data:      jpeg,
		MIMEType:  MIMEJPEG,
		Name:      fmt.Sprintf("%s%d.jpg", CapturedNamePrefix, at.UnixMilli()),
		Size:      int64(len(jpeg)),
		Source:    SourceCamera,
		CreatedAt: at,
	}
}

// Reader returns a fresh reader over the asset bytes
func (a *ImageAsset) Reader() io.Reader {
	return bytes.NewReader(a.Data)
}

// PreviewHandle references a locally generated preview of an asset.
// It must be released when the controller discards the asset.
type PreviewHandle struct {
	ID   string
	Path string
}

// IsZero reports whether the handle refers to nothing
func (h PreviewHandle) IsZero() bool {
	return h.ID == ""
}
