package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// currencySignature matches a currency by symbol, ISO code or native word.
// The table is ordered: the first signature found anywhere in the text wins.
// Specific tokens come before the ambiguous bare "$".
type currencySignature struct {
	token string
	code  string
}

var currencySignatures = []currencySignature{
	{"€", "EUR"},
	{"£", "GBP"},
	{"₹", "INR"},
	{"¥", "JPY"},
	{"usd", "USD"},
	{"eur", "EUR"},
	{"gbp", "GBP"},
	{"jpy", "JPY"},
	{"chf", "CHF"},
	{"cad", "CAD"},
	{"aud", "AUD"},
	{"sek", "SEK"},
	{"nok", "NOK"},
	{"dkk", "DKK"},
	{"pln", "PLN"},
	{"czk", "CZK"},
	{"inr", "INR"},
	{"dollar", "USD"},
	{"euro", "EUR"},
	{"pound", "GBP"},
	{"yen", "JPY"},
	{"franc", "CHF"},
	{"krona", "SEK"},
	{"kronor", "SEK"},
	{"krone", "NOK"},
	{"zloty", "PLN"},
	{"rupee", "INR"},
	{"$", "USD"},
}

// totalKeywords anchor the amount search, in priority order. Multi-word and
// non-English variants come before the generic "total".
var totalKeywords = []string{
	"grand total",
	"total due",
	"amount due",
	"balance due",
	"amount payable",
	"to pay",
	"gesamtbetrag",
	"gesamtsumme",
	"zu zahlen",
	"summe",
	"montant total",
	"totale",
	"totaal",
	"suma",
	"итого",
	"合計",
	"总计",
	"total",
	"amount",
}

// amountPattern matches monetary values in either locale convention:
// grouped thousands ("1.234,56", "1,234.56") or a plain decimal fraction
// ("12.50", "1200,00"). Bare integers are deliberately excluded so years
// and quantities never win the largest-amount fallback.
var amountPattern = regexp.MustCompile(`\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{1,2})?|\d+[.,]\d{1,2}`)

// keywordWindow is how far past a matched keyword the amount search looks.
const keywordWindow = 100

// amountStripper removes currency symbols and whitespace before numeric parsing.
var amountStripper = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", "₹", "", " ", "", "\t", "")

// commaDecimal detects the European convention: a trailing comma followed by
// exactly two digits.
var commaDecimal = regexp.MustCompile(`,\d{2}$`)

// ExtractCurrency scans the text against the ordered signature table and
// returns the ISO code of the first match, or nil when no signature hits.
func ExtractCurrency(doc Document) *string {
	lower := strings.ToLower(doc.Raw)
	for _, sig := range currencySignatures {
		if strings.Contains(lower, sig.token) {
			code := sig.code
			return &code
		}
	}
	return nil
}

// ExtractAmount finds the most likely transaction total. A keyword-anchored
// match takes precedence; otherwise the numerically largest amount anywhere
// in the text is used. Nil means no parseable amount was found.
func ExtractAmount(doc Document) *decimal.Decimal {
	if total := keywordAnchoredAmount(doc.Raw); total != nil {
		return total
	}
	return largestAmount(doc.Raw)
}

// keywordAnchoredAmount looks for the first total-indicating keyword and
// returns the first positive amount within the window that follows it.
func keywordAnchoredAmount(text string) *decimal.Decimal {
	lower := strings.ToLower(text)
	for _, keyword := range totalKeywords {
		idx := keywordIndex(lower, keyword)
		if idx < 0 {
			continue
		}

		start := idx + len(keyword)
		end := start + keywordWindow
		if end > len(text) {
			end = len(text)
		}

		for _, candidate := range amountPattern.FindAllString(text[start:end], -1) {
			amount, ok := ParseAmount(candidate)
			if ok && amount.IsPositive() {
				return &amount
			}
		}
		// Keyword found but no amount after it; the fallback takes over.
		return nil
	}
	return nil
}

// keywordIndex finds the keyword at a word start, so "total" does not anchor
// inside "subtotal". The text must already be lowercased.
func keywordIndex(lower, keyword string) int {
	from := 0
	for {
		idx := strings.Index(lower[from:], keyword)
		if idx < 0 {
			return -1
		}
		idx += from
		if idx == 0 || !isLetter(lower[idx-1]) {
			return idx
		}
		from = idx + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// largestAmount collects every amount-shaped match in the text and keeps the
// numerically largest positive one.
func largestAmount(text string) *decimal.Decimal {
	var largest *decimal.Decimal
	for _, candidate := range amountPattern.FindAllString(text, -1) {
		amount, ok := ParseAmount(candidate)
		if !ok || !amount.IsPositive() {
			continue
		}
		if largest == nil || amount.GreaterThan(*largest) {
			value := amount
			largest = &value
		}
	}
	return largest
}

// ParseAmount converts a raw amount string to a decimal, resolving the
// decimal-vs-thousands separator ambiguity: a trailing comma with exactly
// two digits marks the comma as decimal separator ("1.234,56" -> 1234.56);
// otherwise the period is decimal and commas are thousands separators
// ("1,234.56" -> 1234.56).
func ParseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := amountStripper.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Decimal{}, false
	}

	if commaDecimal.MatchString(cleaned) {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil || amount.IsNegative() {
		return decimal.Decimal{}, false
	}
	return amount, true
}
