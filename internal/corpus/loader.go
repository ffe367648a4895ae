package corpus

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// Loader extracts text blocks from corpus files, dispatching by extension.
type Loader struct {
	extensions map[string]bool
	logger     *zap.Logger
}

// NewLoader creates a loader for the given supported extensions
// (lowercase, with dot).
func NewLoader(extensions []string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	supported := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		supported[strings.ToLower(ext)] = true
	}
	return &Loader{extensions: supported, logger: logger}
}

// Supported reports whether the file's extension is in the supported set.
func (l *Loader) Supported(path string) bool {
	return l.extensions[strings.ToLower(filepath.Ext(path))]
}

// Load extracts an ordered sequence of text blocks from the file.
//
// Unsupported extensions yield an empty sequence, not an error; the
// pipeline silently skips unknown files. A corrupt or unreadable file
// also yields an empty sequence, with the failure logged, so one bad
// file cannot abort a whole sweep.
func (l *Loader) Load(path string) []TextBlock {
	if !l.Supported(path) {
		return nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return l.loadPDF(path)
	case ".txt", ".md":
		return l.loadText(path)
	default:
		return nil
	}
}

// loadPDF extracts one text block per page.
func (l *Loader) loadPDF(path string) (blocks []TextBlock) {
	// The pdf package panics on some malformed files; a corrupt PDF must
	// degrade to an empty block list, not take down the sweep.
	defer func() {
		if r := recover(); r != nil {
			l.logger.Warn("pdf extraction panicked", zap.String("path", path), zap.Any("panic", r))
			blocks = nil
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		l.logger.Warn("failed to open pdf", zap.String("path", path), zap.Error(err))
		return nil
	}
	defer f.Close()

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			l.logger.Warn("failed to extract pdf page",
				zap.String("path", path),
				zap.Int("page", i),
				zap.Error(err),
			)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		blocks = append(blocks, TextBlock{Page: i, Text: text})
	}
	return blocks
}

// loadText reads the whole file as a single block on page 1.
func (l *Loader) loadText(path string) []TextBlock {
	data, err := os.ReadFile(path)
	if err != nil {
		l.logger.Warn("failed to read file", zap.String("path", path), zap.Error(err))
		return nil
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []TextBlock{{Page: 1, Text: text}}
}
