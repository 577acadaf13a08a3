package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// merchantBlockLimit caps how many top blocks are considered: merchant names
// sit at the head of a receipt.
const merchantBlockLimit = 3

// merchantMaxLen is the cleaned merchant name length cap.
const merchantMaxLen = 50

// nonMerchantHeaders are words a receipt header line may start with that rule
// it out as a business name.
var nonMerchantHeaders = []string{
	"receipt",
	"invoice",
	"date",
	"time",
	"tel",
	"fax",
	"www",
	"http",
	"vat",
	"tax",
	"cash",
	"order",
	"ticket",
	"welcome",
	"thank",
	"customer",
}

// legalSuffix strips a trailing legal-entity marker from a business name.
var legalSuffix = regexp.MustCompile(`(?i)[\s,]+(ltd|llc|inc|corp|gmbh|s\.a)\.?\s*$`)

// ExtractMerchant selects the most likely merchant name from the top of the
// receipt. Only the first three blocks are considered; a block is rejected
// when digits dominate it, when it starts with a known header word, or when
// it is too short. When no block qualifies, the first usable raw line serves
// as fallback. Nil means nothing qualified.
func ExtractMerchant(doc Document) *string {
	limit := merchantBlockLimit
	if len(doc.Blocks) < limit {
		limit = len(doc.Blocks)
	}

	for i := 0; i < limit; i++ {
		if candidate, ok := merchantCandidate(doc.Blocks[i]); ok {
			return &candidate
		}
	}

	for _, line := range doc.Lines {
		if len(line) > 2 {
			cleaned := cleanMerchant(line)
			if cleaned != "" {
				return &cleaned
			}
			break
		}
	}
	return nil
}

func merchantCandidate(block string) (string, bool) {
	if len(block) < 2 {
		return "", false
	}
	if digitHeavy(block) {
		return "", false
	}

	lower := strings.ToLower(block)
	for _, header := range nonMerchantHeaders {
		if strings.HasPrefix(lower, header) {
			return "", false
		}
	}

	cleaned := cleanMerchant(block)
	if cleaned == "" {
		return "", false
	}
	return cleaned, true
}

// digitHeavy reports whether more than half of the characters are digits;
// such blocks are phone numbers, totals or tax ids rather than names.
func digitHeavy(s string) bool {
	digits, total := 0, 0
	for _, r := range s {
		total++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return total > 0 && digits*2 > total
}

// cleanMerchant normalizes a candidate: first line only, legal-entity suffix
// stripped, clamped to the length cap.
func cleanMerchant(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	s = legalSuffix.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	if len(s) > merchantMaxLen {
		s = strings.TrimSpace(s[:merchantMaxLen])
	}
	return s
}
