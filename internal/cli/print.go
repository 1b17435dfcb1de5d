package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func day(t time.Time) string {
	return t.Format("2006-01-02")
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
}

// cutLast splits s at the last occurrence of sep.
func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

// parseLineSpec splits "description:quantity:unit_price". Splitting
// happens from the right so descriptions may contain colons.
func parseLineSpec(spec string) (desc string, qty, price decimal.Decimal, err error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 3 {
		return "", decimal.Zero, decimal.Zero, fmt.Errorf("invalid line %q (want DESCRIPTION:QTY:UNIT_PRICE)", spec)
	}
	qty, err = decimal.NewFromString(parts[len(parts)-2])
	if err != nil {
		return "", decimal.Zero, decimal.Zero, fmt.Errorf("invalid quantity in line %q", spec)
	}
	price, err = decimal.NewFromString(parts[len(parts)-1])
	if err != nil {
		return "", decimal.Zero, decimal.Zero, fmt.Errorf("invalid unit price in line %q", spec)
	}
	desc = strings.Join(parts[:len(parts)-2], ":")
	return desc, qty, price, nil
}
