package renderer

import (
	"errors"
	"strings"
	"testing"

	"github.com/etnz/tracker"
	"github.com/google/go-cmp/cmp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// outline is what a markdown report looks like once parsed: its headings and
// the cells of its tables, header row included.
type outline struct {
	Headings []string
	Tables   [][][]string
}

func parse(t *testing.T, src string) outline {
	t.Helper()
	source := []byte(src)
	doc := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser().Parse(text.NewReader(source))

	var o outline
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			o.Headings = append(o.Headings, strings.Repeat("#", n.Level)+" "+inline(n, source))
			return ast.WalkSkipChildren, nil
		case *east.Table:
			o.Tables = append(o.Tables, nil)
		case *east.TableHeader, *east.TableRow:
			last := len(o.Tables) - 1
			var row []string
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				row = append(row, inline(c, source))
			}
			o.Tables[last] = append(o.Tables[last], row)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		t.Fatalf("walking markdown: %v", err)
	}
	return o
}

// inline concatenates the text under n.
func inline(n ast.Node, source []byte) string {
	var b strings.Builder
	ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(source))
		case *ast.String:
			b.Write(n.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func sampleValuation(display tracker.Display) tracker.Valuation {
	return tracker.Value([]tracker.Holding{
		{Ticker: "AAPL", AvgPrice: 150, Quantity: 10, CurrentPrice: 190, Sector: "Technology", MarketCapClass: tracker.MegaCap},
		{Ticker: "XOM", AvgPrice: 100, Quantity: 3, CurrentPrice: 120, Sector: "Energy", MarketCapClass: tracker.LargeCap},
	}, display)
}

func TestRenderValuation(t *testing.T) {
	got := parse(t, RenderValuation("Retirement", sampleValuation(tracker.Display{Currency: "KRW", Rate: 1400})))

	want := outline{
		Headings: []string{"# Retirement", "## Holdings", "## Totals", "## By Sector", "## By Market Cap"},
		Tables: [][][]string{
			{
				{"#", "Ticker", "Quantity", "Avg Price", "Current Price", "Invested", "Value", "P&L", "Return", "Sector", "Market Cap"},
				{"1", "AAPL", "10", "₩210,000", "₩266,000", "₩2,100,000", "₩2,660,000", "+₩560,000", "+26.67%", "Technology", "Mega Cap"},
				{"2", "XOM", "3", "₩140,000", "₩168,000", "₩420,000", "₩504,000", "+₩84,000", "+20.00%", "Energy", "Large Cap"},
			},
			{
				{"Currency", "Invested", "Value", "P&L", "Return"},
				{"KRW", "₩2,520,000", "₩3,164,000", "+₩644,000", "+25.56%"},
				{"USD", "$1,800.00", "$2,260.00", "+$460.00", "+25.56%"},
			},
			{
				{"Sector", "Positions", "Value", "Weight"},
				{"Technology", "1", "₩2,660,000", "84.07%"},
				{"Energy", "1", "₩504,000", "15.93%"},
			},
			{
				{"Market Cap", "Positions", "Value", "Weight"},
				{"Mega Cap", "1", "₩2,660,000", "84.07%"},
				{"Large Cap", "1", "₩504,000", "15.93%"},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RenderValuation() mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderValuation_Base(t *testing.T) {
	out := RenderValuation("Default", sampleValuation(tracker.BaseDisplay))
	if !strings.Contains(out, "Figures in USD.") {
		t.Errorf("RenderValuation() = %q, want the base currency note", out)
	}
	got := parse(t, out)
	totals := got.Tables[1]
	// no second currency row when the display is the base currency.
	if len(totals) != 2 {
		t.Fatalf("totals table has %d rows, want 2: %v", len(totals), totals)
	}
	if diff := cmp.Diff([]string{"USD", "$1,800.00", "$2,260.00", "+$460.00", "+25.56%"}, totals[1]); diff != "" {
		t.Errorf("totals row mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderValuation_Empty(t *testing.T) {
	out := RenderValuation("Empty", tracker.Value(nil, tracker.Display{Currency: "KRW", Rate: 1400}))
	if !strings.Contains(out, "No holdings in this profile.") {
		t.Errorf("RenderValuation() = %q, want the empty profile note", out)
	}
	got := parse(t, out)
	wantHeadings := []string{"# Empty", "## Holdings", "## Totals"}
	if diff := cmp.Diff(wantHeadings, got.Headings); diff != "" {
		t.Errorf("headings mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"KRW", "₩0", "₩0", "-", "-"}, got.Tables[0][1]); diff != "" {
		t.Errorf("totals row mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderValuation_EscapesCells(t *testing.T) {
	v := tracker.Value([]tracker.Holding{
		{Ticker: "X", Quantity: 1, CurrentPrice: 1, Sector: "Oil | Gas", MarketCapClass: tracker.UnknownCap},
	}, tracker.BaseDisplay)
	got := parse(t, RenderValuation("Default", v))
	row := got.Tables[0][1]
	if len(row) != 11 {
		t.Fatalf("holding row has %d cells, want 11: %v", len(row), row)
	}
	if !strings.HasPrefix(row[9], "Oil") || !strings.HasSuffix(row[9], "Gas") {
		t.Errorf("sector cell = %q, want the whole sector name", row[9])
	}
}

func TestRenderProfiles(t *testing.T) {
	s := tracker.NewStore()
	if err := s.CreateProfile("Kids"); err != nil {
		t.Fatal(err)
	}
	s.Append(tracker.Holding{Ticker: "AAPL", Quantity: 1})
	if err := s.SetActive("Kids"); err != nil {
		t.Fatal(err)
	}

	got := parse(t, RenderProfiles(NewProfiles(s)))
	want := [][]string{
		{"Profile", "Holdings", "Active"},
		{"Default", "1", ""},
		{"Kids", "0", "yes"},
	}
	if diff := cmp.Diff(want, got.Tables[0]); diff != "" {
		t.Errorf("RenderProfiles() mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderBatch(t *testing.T) {
	r := tracker.BatchResult{
		Attempted: 3,
		Succeeded: 1,
		Failures: []tracker.RowError{
			{Line: 2, Err: tracker.ErrInvalidRow},
			{Line: 3, Ticker: "ZZZ", Err: errors.New("quote unavailable")},
		},
	}
	out := RenderBatch(r)
	if !strings.Contains(out, "1 of 3 rows imported.") {
		t.Errorf("RenderBatch() = %q, want the summary line", out)
	}
	got := parse(t, out)
	want := [][]string{
		{"Line", "Ticker", "Error"},
		{"2", "", "invalid input row"},
		{"3", "ZZZ", "quote unavailable"},
	}
	if diff := cmp.Diff(want, got.Tables[0]); diff != "" {
		t.Errorf("RenderBatch() mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderBatch_NoFailures(t *testing.T) {
	got := parse(t, RenderBatch(tracker.BatchResult{Attempted: 2, Succeeded: 2}))
	if len(got.Tables) != 0 {
		t.Errorf("RenderBatch() has %d tables, want none", len(got.Tables))
	}
}

func TestRenderRefresh(t *testing.T) {
	tests := []struct {
		name string
		r    tracker.RefreshResult
		want []string
		not  []string
	}{
		{
			name: "all updated",
			r:    tracker.RefreshResult{Attempted: 2, Updated: 2},
			want: []string{"2 of 2 holdings updated."},
			not:  []string{"unchanged"},
		},
		{
			name: "partial",
			r:    tracker.RefreshResult{Attempted: 3, Updated: 1, Failed: []string{"ZZZ", "YYY"}},
			want: []string{"1 of 3 holdings updated.", "Prices unchanged for: ZZZ, YYY."},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := RenderRefresh(tc.r)
			for _, w := range tc.want {
				if !strings.Contains(out, w) {
					t.Errorf("RenderRefresh() = %q, want it to contain %q", out, w)
				}
			}
			for _, n := range tc.not {
				if strings.Contains(out, n) {
					t.Errorf("RenderRefresh() = %q, want it not to contain %q", out, n)
				}
			}
		})
	}
}
