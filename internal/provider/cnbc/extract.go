package cnbc

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/tidwall/gjson"

	"securityprices/internal/provider"
)

// marker introduces the inline quote data assigned in a page script.
const marker = "var symbolInfo = ["

var (
	// ErrMalformedNumber reports a price field that is not plain decimal text.
	ErrMalformedNumber = errors.New("malformed number")
	// ErrMalformedBlock reports a data block that is not a JSON array.
	ErrMalformedBlock = errors.New("malformed data block")
)

var (
	symbolRE  = regexp.MustCompile(`"symbol":"([A-Z]+)"`)
	lastRE    = regexp.MustCompile(`"values":\{"A":"([0-9]+\.[0-9]+)"`)
	yearLowRE = regexp.MustCompile(`"yrloprice":"([0-9]+\.[0-9]+)"`)
	yearHiRE  = regexp.MustCompile(`"yrhiprice":"([0-9]+\.[0-9]+)"`)
	decimalRE = regexp.MustCompile(`^[0-9]+\.[0-9]+$`)
)

// Extraction holds the four field sequences found in one data block, each
// in document order. Nothing guarantees they line up; see Validate.
type Extraction struct {
	Symbols []string
	Lasts   []string
	Highs   []string
	Lows    []string
}

// Lens returns the sequence lengths in symbol, last, high, low order.
func (e Extraction) Lens() []int {
	return []int{len(e.Symbols), len(e.Lasts), len(e.Highs), len(e.Lows)}
}

// Validate returns ErrLengthMismatch unless all four sequences are the same length.
func (e Extraction) Validate() error {
	if !Check(e.Lens()...) {
		return fmt.Errorf("%w: symbols=%d last=%d high=%d low=%d",
			provider.ErrLengthMismatch, len(e.Symbols), len(e.Lasts), len(e.Highs), len(e.Lows))
	}
	return nil
}

// Check reports whether all lengths are pairwise equal.
func Check(lengths ...int) bool {
	for _, n := range lengths {
		if n != lengths[0] {
			return false
		}
	}
	return true
}

// Block isolates the inline quote array from a page body. Script elements
// are searched first; bodies that do not parse into one fall back to a
// plain text search. The returned text is the array literal only.
func Block(raw string) (string, bool) {
	if doc, err := htmlquery.Parse(strings.NewReader(raw)); err == nil {
		for _, n := range htmlquery.Find(doc, "//script") {
			if block, ok := cut(htmlquery.InnerText(n)); ok {
				return block, true
			}
		}
	}
	return cut(raw)
}

// cut returns the array literal following marker. Text that does not
// decode as JSON is kept up to the end of its line so the field patterns
// can still run over it.
func cut(text string) (string, bool) {
	i := strings.Index(text, marker)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(marker)-1:]
	var arr json.RawMessage
	if err := json.NewDecoder(strings.NewReader(rest)).Decode(&arr); err == nil {
		return string(arr), true
	}
	if j := strings.IndexByte(rest, '\n'); j >= 0 {
		rest = rest[:j]
	}
	return rest, true
}

// Extract applies the four field patterns to the data block of raw. A body
// without a block yields four empty sequences.
func Extract(raw string) Extraction {
	block, ok := Block(raw)
	if !ok {
		return Extraction{}
	}
	return Extraction{
		Symbols: findAll(symbolRE, block),
		Lasts:   findAll(lastRE, block),
		Highs:   findAll(yearHiRE, block),
		Lows:    findAll(yearLowRE, block),
	}
}

func findAll(re *regexp.Regexp, s string) []string {
	matches := re.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// Records parses the block as JSON and keys each element by its own symbol.
// The first element wins when a symbol repeats.
func Records(block string) (map[string]provider.Quote, error) {
	if !gjson.Valid(block) {
		return nil, ErrMalformedBlock
	}
	out := make(map[string]provider.Quote)
	var err error
	gjson.Parse(block).ForEach(func(_, el gjson.Result) bool {
		sym := el.Get("symbol").String()
		if sym == "" {
			return true
		}
		if _, dup := out[sym]; dup {
			return true
		}
		var q provider.Quote
		q, err = record(sym, el)
		if err != nil {
			return false
		}
		out[sym] = q
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func record(sym string, el gjson.Result) (provider.Quote, error) {
	return quoteOf(sym, el.Get("values.A").String(), el.Get("yrhiprice").String(), el.Get("yrloprice").String())
}

func quoteOf(sym, lastText, highText, lowText string) (provider.Quote, error) {
	last, err := ParseDecimal(lastText)
	if err != nil {
		return provider.Quote{}, fmt.Errorf("%s last: %w", sym, err)
	}
	high, err := ParseDecimal(highText)
	if err != nil {
		return provider.Quote{}, fmt.Errorf("%s 52-week high: %w", sym, err)
	}
	low, err := ParseDecimal(lowText)
	if err != nil {
		return provider.Quote{}, fmt.Errorf("%s 52-week low: %w", sym, err)
	}
	return provider.Quote{Symbol: sym, Last: last, YearHigh: high, YearLow: low}, nil
}

// Records pairs the sequences position by position and keys the result by
// symbol, first occurrence winning. It is meant for blocks that are not
// JSON and assumes Validate has passed.
func (e Extraction) Records() (map[string]provider.Quote, error) {
	out := make(map[string]provider.Quote, len(e.Symbols))
	for i, sym := range e.Symbols {
		if _, dup := out[sym]; dup {
			continue
		}
		q, err := quoteOf(sym, e.Lasts[i], e.Highs[i], e.Lows[i])
		if err != nil {
			return nil, err
		}
		out[sym] = q
	}
	return out, nil
}

// ParseDecimal parses digits, a point, digits. Signs, exponents and
// thousands separators are rejected.
func ParseDecimal(s string) (float64, error) {
	if !decimalRE.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedNumber, s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedNumber, s)
	}
	return v, nil
}
