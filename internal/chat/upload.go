package chat

import (
	"github.com/planificaia/aliada/internal/errors"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
)

// MaxUploadSize caps class recordings and documents.
const MaxUploadSize = 50 << 20

var (
	ErrUnsupportedFile = errors.NewSentinel("unsupported file type")
	ErrFileTooLarge    = errors.NewSentinel("file too large")
	ErrEmptyFile       = errors.NewSentinel("empty file")
)

// FileDescriptor describes an uploaded file. The contents are never kept.
type FileDescriptor struct {
	Name     string
	MIMEType string
	Size     int64
}

var documentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

// Browsers often send application/octet-stream for recordings, so the extension decides then.
var extensionTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".webm": "audio/webm",
	".flac": "audio/flac",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}

// MediaType returns the effective media type without parameters.
func (f FileDescriptor) MediaType() string {
	mediaType, _, err := mime.ParseMediaType(f.MIMEType)
	if err != nil || mediaType == "" || mediaType == "application/octet-stream" {
		return extensionTypes[strings.ToLower(filepath.Ext(f.Name))]
	}
	return mediaType
}

// IsAudio reports whether the file is a class recording.
func (f FileDescriptor) IsAudio() bool {
	return strings.HasPrefix(f.MediaType(), "audio/")
}

// BaseName strips any client supplied directories from the name.
func (f FileDescriptor) BaseName() string {
	name := filepath.Base(strings.ReplaceAll(f.Name, `\`, "/"))
	if name == "." || name == "/" {
		return "archivo"
	}
	return name
}

// Validate accepts audio recordings and PDF, Word or plain text documents up to MaxUploadSize.
func (f FileDescriptor) Validate() error {
	attrs := []slog.Attr{slog.String("name", f.Name), slog.String("mimeType", f.MIMEType)}
	if f.Size <= 0 {
		return errors.Wrap(ErrEmptyFile, "validate upload", attrs...)
	}
	if f.Size > MaxUploadSize {
		return errors.Wrap(ErrFileTooLarge, "validate upload", append(attrs, slog.Int64("size", f.Size))...)
	}
	mediaType := f.MediaType()
	if !strings.HasPrefix(mediaType, "audio/") && !documentTypes[mediaType] {
		return errors.Wrap(ErrUnsupportedFile, "validate upload", attrs...)
	}
	return nil
}
