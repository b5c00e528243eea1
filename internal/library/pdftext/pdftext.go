// Package pdftext sniffs PDF payloads and extracts their plain text.
package pdftext

import (
	"bytes"
	"context"
	"io"
	"strings"
	"unicode/utf8"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"github.com/Laisky/dataroom/library/log"
)

const (
	// MimeType is the only content type accepted for uploads.
	MimeType = "application/pdf"
	// DefaultMaxChars caps extracted text.
	DefaultMaxChars = 1_000_000
	sniffBytes      = 3072
)

// IsPDF reports whether the leading bytes carry a PDF signature.
func IsPDF(head []byte) bool {
	if len(head) > sniffBytes {
		head = head[:sniffBytes]
	}
	return mimetype.Detect(head).Is(MimeType)
}

// HasPDFExtension is the fast-path filename check done before sniffing.
func HasPDFExtension(filename string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(filename)), ".pdf")
}

// Extractor turns PDF bytes into searchable text.
type Extractor interface {
	Extract(ctx context.Context, content []byte) string
}

// PDFExtractor extracts text with ledongthuc/pdf.
type PDFExtractor struct {
	maxChars int
	logger   logSDK.Logger
}

// NewPDFExtractor builds an extractor that truncates output at maxChars runes.
func NewPDFExtractor(maxChars int, logger logSDK.Logger) *PDFExtractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if logger == nil {
		logger = log.Logger.Named("pdftext")
	}
	return &PDFExtractor{maxChars: maxChars, logger: logger}
}

// Extract returns the document text, or "" when the document cannot be
// parsed. It never fails.
func (e *PDFExtractor) Extract(ctx context.Context, content []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("pdf parser panicked", zap.Any("recover", r))
			text = ""
		}
	}()

	if ctx != nil && ctx.Err() != nil {
		return ""
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		e.logger.Debug("open pdf for extraction", zap.Error(err))
		return ""
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		e.logger.Debug("extract pdf text", zap.Error(err))
		return ""
	}

	// a rune is at most 4 bytes, so this bound never cuts a kept rune
	raw, err := io.ReadAll(io.LimitReader(plain, int64(e.maxChars)*utf8.UTFMax))
	if err != nil {
		e.logger.Debug("read pdf text", zap.Error(err))
		return ""
	}

	return Truncate(sanitize(string(raw)), e.maxChars)
}

// Truncate keeps at most maxChars runes of text.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	count := 0
	for idx := range text {
		if count == maxChars {
			return text[:idx]
		}
		count++
	}
	return text
}

// sanitize drops invalid UTF-8 and NUL bytes that Postgres text columns reject.
func sanitize(text string) string {
	text = strings.ToValidUTF8(text, "")
	return strings.ReplaceAll(text, "\x00", "")
}
