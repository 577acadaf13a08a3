package extract

import "strings"

// Document is recognized receipt text prepared for the field extractors.
// The flat text serves whole-text pattern search (date, amount); the ordered
// lines and blocks preserve positional context for the merchant extractor.
type Document struct {
	Raw    string
	Lines  []string
	Blocks []string
}

// Normalize segments raw recognized text into trimmed non-empty lines.
// Blocks are the OCR engine's detected regions in top-to-bottom order; they
// may be empty when the engine only produced flat text.
func Normalize(raw string, blocks []string) Document {
	doc := Document{Raw: raw}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		doc.Lines = append(doc.Lines, line)
	}

	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		doc.Blocks = append(doc.Blocks, block)
	}

	return doc
}

// Empty returns true if the document contains no usable text.
func (d Document) Empty() bool {
	return len(d.Lines) == 0 && len(d.Blocks) == 0
}
