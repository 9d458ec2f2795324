package cnbc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html><head>
<script>window.__page = {"symbol":"HEAD"};</script>
<script type="text/javascript">
var symbolInfo = [{"symbol":"A","name":"Alpha","values":{"A":"1.0","B":"0.9"},"yrloprice":"0.5","yrhiprice":"2.0"},{"symbol":"B","name":"Beta","values":{"A":"10.25","B":"10.00"},"yrloprice":"9.0","yrhiprice":"11.0"},{"symbol":"C","name":"Gamma","values":{"A":"3.3","B":"3.3"},"yrloprice":"3.3","yrhiprice":"3.3"}];
var related = [{"symbol":"ZZZ","values":{"A":"99.9"},"yrloprice":"1.1","yrhiprice":"100.1"}];
</script>
</head>
<body><div data-x='"symbol":"NOISE"'>"yrhiprice":"5.55"</div></body></html>`

func TestExtract_BlockScoped_DocumentOrder(t *testing.T) {
	t.Parallel()

	// Act: extract from a page carrying three records plus unrelated data
	ext := Extract(samplePage)

	// Assert: only the three records of the data block, in document order
	require.Equal(t, []string{"A", "B", "C"}, ext.Symbols)
	require.Equal(t, []string{"1.0", "10.25", "3.3"}, ext.Lasts)
	require.Equal(t, []string{"2.0", "11.0", "3.3"}, ext.Highs)
	require.Equal(t, []string{"0.5", "9.0", "3.3"}, ext.Lows)
	require.NoError(t, ext.Validate())
}

func TestExtract_NoBlock(t *testing.T) {
	t.Parallel()

	ext := Extract(`<html><body>"symbol":"A" "values":{"A":"1.0"}</body></html>`)
	require.Empty(t, ext.Symbols)
	require.Empty(t, ext.Lasts)
	require.Empty(t, ext.Highs)
	require.Empty(t, ext.Lows)
	require.Equal(t, []int{0, 0, 0, 0}, ext.Lens())
}

func TestExtract_DoesNotDeduplicateOrReorder(t *testing.T) {
	t.Parallel()

	raw := `var symbolInfo = [{"symbol":"B","values":{"A":"2.0"},"yrloprice":"1.0","yrhiprice":"3.0"},{"symbol":"A","values":{"A":"1.0"},"yrloprice":"0.5","yrhiprice":"1.5"},{"symbol":"B","values":{"A":"2.0"},"yrloprice":"1.0","yrhiprice":"3.0"}];`
	ext := Extract(raw)
	require.Equal(t, []string{"B", "A", "B"}, ext.Symbols)
	require.Equal(t, []string{"2.0", "1.0", "2.0"}, ext.Lasts)
}

func TestExtract_MismatchedCounts(t *testing.T) {
	t.Parallel()

	// Arrange: the second record has no 52-week high
	raw := `<script>var symbolInfo = [{"symbol":"A","values":{"A":"1.0"},"yrloprice":"0.5","yrhiprice":"2.0"},{"symbol":"B","values":{"A":"10.25"},"yrloprice":"9.0"}];</script>`

	ext := Extract(raw)
	require.Equal(t, []int{2, 2, 1, 2}, ext.Lens())

	err := ext.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "high=1")
}

func TestCheck(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		lengths []int
		want    bool
	}{
		{"all equal", []int{3, 3, 3, 3}, true},
		{"last differs", []int{3, 3, 3, 2}, false},
		{"first differs", []int{2, 3, 3, 3}, false},
		{"middle differs", []int{3, 4, 3, 3}, false},
		{"all zero", []int{0, 0, 0, 0}, true},
		{"no lengths", nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Check(tc.lengths...))
		})
	}
}

func TestBlock_ScriptAndPlainText(t *testing.T) {
	t.Parallel()

	// Assert: script element is found and only the array literal returned
	block, ok := Block(samplePage)
	require.True(t, ok)
	require.Equal(t, byte('['), block[0])
	require.Equal(t, byte(']'), block[len(block)-1])
	require.NotContains(t, block, "ZZZ")

	// Assert: bodies that are not HTML still work
	block, ok = Block(`var symbolInfo = [{"symbol":"A"}];` + "\nvar x = 1;")
	require.True(t, ok)
	require.Equal(t, `[{"symbol":"A"}]`, block)

	// Assert: no marker, no block
	_, ok = Block(`<html><script>var other = [];</script></html>`)
	require.False(t, ok)
}

func TestBlock_NonJSONFallsBackToLine(t *testing.T) {
	t.Parallel()

	block, ok := Block("var symbolInfo = [{symbol:'A'}, \"symbol\":\"B\"];\n\"symbol\":\"C\"")
	require.True(t, ok)
	require.Contains(t, block, `"symbol":"B"`)
	require.NotContains(t, block, `"symbol":"C"`)
}

func TestRecords_KeyedBySymbol(t *testing.T) {
	t.Parallel()

	block, ok := Block(samplePage)
	require.True(t, ok)

	recs, err := Records(block)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	require.InDelta(t, 10.25, recs["B"].Last, 1e-9)
	require.InDelta(t, 11.0, recs["B"].YearHigh, 1e-9)
	require.InDelta(t, 9.0, recs["B"].YearLow, 1e-9)
	require.Equal(t, "B", recs["B"].Symbol)
}

func TestRecords_FirstDuplicateWins(t *testing.T) {
	t.Parallel()

	recs, err := Records(`[{"symbol":"A","values":{"A":"1.0"},"yrloprice":"0.5","yrhiprice":"2.0"},{"symbol":"A","values":{"A":"9.0"},"yrloprice":"0.5","yrhiprice":"9.5"}]`)
	require.NoError(t, err)
	require.InDelta(t, 1.0, recs["A"].Last, 1e-9)
}

func TestRecords_Errors(t *testing.T) {
	t.Parallel()

	_, err := Records(`[{"symbol":"A"`)
	require.ErrorIs(t, err, ErrMalformedBlock)

	_, err = Records(`[{"symbol":"A","values":{"A":"1,000.00"},"yrloprice":"0.5","yrhiprice":"2.0"}]`)
	require.ErrorIs(t, err, ErrMalformedNumber)

	_, err = Records(`[{"symbol":"A","values":{"A":"1.0"},"yrloprice":"0.5"}]`)
	require.ErrorIs(t, err, ErrMalformedNumber)
}

func TestParseDecimal(t *testing.T) {
	t.Parallel()

	v, err := ParseDecimal("10.25")
	require.NoError(t, err)
	require.InDelta(t, 10.25, v, 1e-12)

	for _, bad := range []string{"", "10", "-1.0", "1e5", "1.0e5", "1,000.00", ".5", "5.", " 1.0"} {
		_, err := ParseDecimal(bad)
		require.Truef(t, errors.Is(err, ErrMalformedNumber), "expected malformed number for %q, got %v", bad, err)
	}
}

func TestExtractionRecords_PairsByPosition(t *testing.T) {
	t.Parallel()

	ext := Extract(`var symbolInfo = [{"symbol":"A","values":{"A":"1.0"},"yrloprice":"0.5","yrhiprice":"2.0",t:now()},{"symbol":"A","values":{"A":"7.0"},"yrloprice":"6.0","yrhiprice":"8.0"},{"symbol":"B","values":{"A":"10.25"},"yrloprice":"9.0","yrhiprice":"11.0"}];`)
	require.NoError(t, ext.Validate())

	recs, err := ext.Records()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.InDelta(t, 1.0, recs["A"].Last, 1e-9)
	require.InDelta(t, 0.5, recs["A"].YearLow, 1e-9)
	require.InDelta(t, 11.0, recs["B"].YearHigh, 1e-9)
}

func TestExtractionRecords_BadNumber(t *testing.T) {
	t.Parallel()

	ext := Extraction{Symbols: []string{"A"}, Lasts: []string{"1.0"}, Highs: []string{"2"}, Lows: []string{"0.5"}}
	_, err := ext.Records()
	require.ErrorIs(t, err, ErrMalformedNumber)
	require.ErrorContains(t, err, "A 52-week high")
}
