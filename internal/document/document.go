// Package document turns uploaded contract files into normalized text.
//
// Only plain-text formats are accepted. Text is decoded from UTF-8 or, when
// the bytes are not valid UTF-8, from EUC-KR (CP949), which older Korean
// word processors still emit. Output is NFC so that decomposed Hangul jamo
// match the syllable ranges used by the anonymizer and the segmenter.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/unicode/norm"
)

// MaxFileSize is the largest accepted upload.
const MaxFileSize = 10 << 20

// Sentinel errors.
var (
	ErrUnsupportedFormat = errors.New("document: unsupported file format")
	ErrFileTooLarge      = errors.New("document: file too large")
	ErrEmptyDocument     = errors.New("document: no text content")
)

// Extensions lists the accepted file extensions.
var Extensions = []string{".txt", ".md"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Supported reports whether filename has an accepted extension.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Extract validates and decodes an uploaded file of at most MaxFileSize bytes.
func Extract(filename string, data []byte) (string, error) {
	return ExtractLimit(filename, data, MaxFileSize)
}

// ExtractLimit is Extract with a caller-supplied size limit. A limit <= 0
// means MaxFileSize.
func ExtractLimit(filename string, data []byte, limit int64) (string, error) {
	if limit <= 0 {
		limit = MaxFileSize
	}
	if !Supported(filename) {
		return "", fmt.Errorf("%w: %q (accepted: %s)", ErrUnsupportedFormat, filepath.Ext(filename), strings.Join(Extensions, ", "))
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(data), limit)
	}
	text, err := Decode(data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

// FormatSize renders a byte limit for user-facing messages: whole mebibytes
// as "10MB", anything else in bytes.
func FormatSize(n int64) string {
	if n > 0 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

// Decode converts raw bytes to NFC text. Line endings are normalized to \n.
func Decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := korean.EUCKR.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("document: decode euc-kr: %w", err)
		}
		data = decoded
	}
	text := norm.NFC.String(string(data))
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return text, nil
}
