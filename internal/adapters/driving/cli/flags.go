package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mitiak/raggy/internal/core/domain"
)

// filterFlags binds the retrieval filter flags shared by search and ask.
type filterFlags struct {
	product  string
	version  string
	lang     string
	source   string
	dateFrom string
	dateTo   string
	extra    []string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.product, "product", "", "only documents with metadata product=VALUE")
	flags.StringVar(&f.version, "version", "", "only documents with metadata version=VALUE")
	flags.StringVar(&f.lang, "lang", "", "only documents with metadata lang=VALUE")
	flags.StringVar(&f.source, "source", "", "metadata source=VALUE, or source location containing VALUE")
	flags.StringVar(&f.dateFrom, "date-from", "", "fetched on or after (YYYY-MM-DD or RFC 3339)")
	flags.StringVar(&f.dateTo, "date-to", "", "fetched on or before (YYYY-MM-DD or RFC 3339)")
	flags.StringArrayVar(&f.extra, "filter", nil, "extra metadata constraint KEY=VALUE (repeatable)")
}

func (f *filterFlags) reset() {
	*f = filterFlags{}
}

// filters parses the flags into search filters.
func (f *filterFlags) filters() (domain.SearchFilters, error) {
	extra, err := parsePairs(f.extra, "--filter")
	if err != nil {
		return domain.SearchFilters{}, err
	}
	return domain.FilterParams{
		Product:  f.product,
		Version:  f.version,
		Lang:     f.lang,
		Source:   f.source,
		DateFrom: f.dateFrom,
		DateTo:   f.dateTo,
		Extra:    extra,
	}.ToFilters()
}

// parsePairs parses KEY=VALUE arguments. Later keys win.
func parsePairs(pairs []string, flag string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: %s expects KEY=VALUE, got %q", domain.ErrInvalidInput, flag, p)
		}
		out[k] = v
	}
	return out, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data)) //nolint:errcheck
	return nil
}

// truncate shortens s to n runes with an ellipsis.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
