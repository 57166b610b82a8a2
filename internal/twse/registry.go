// Package twse resolves the Taiwan listing registry: every security code with
// its type and board. The registry is read live from the TWSE ISIN pages
// (ISIN, Directory); the twstock-layout CSV compiled into the binary is a
// small offline sample used when the pages cannot be reached, and
// twse.registry_paths can replace it with full twstock exports.
package twse

import (
	"context"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

//go:embed data/codes.csv
var snapshot embed.FS

const snapshotPath = "data/codes.csv"

// Values used by the registry's type and market columns.
const (
	TypeStock    = "股票"
	MarketListed = "上市"
	MarketOTC    = "上櫃"
)

// Code is one registry row.
type Code struct {
	Type   string
	Code   string
	Name   string
	ISIN   string
	Start  string
	Market string
	Group  string
	CFI    string
}

// IsCommonStock reports whether the row is an ordinary share on TWSE or TPEx.
func (c Code) IsCommonStock() bool {
	return c.Type == TypeStock && (c.Market == MarketListed || c.Market == MarketOTC)
}

// Registry is an immutable code -> listing lookup.
type Registry struct {
	codes map[string]Code
}

// Embedded returns the sample registry compiled into the binary. It covers
// a few dozen large caps, not the whole market.
func Embedded() (*Registry, error) {
	f, err := snapshot.Open(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("open embedded registry: %w", err)
	}
	defer f.Close()

	r := &Registry{codes: make(map[string]Code)}
	if err := r.read(f); err != nil {
		return nil, fmt.Errorf("embedded registry: %w", err)
	}
	return r, nil
}

// Load reads one or more twstock-format CSV files. Later files override
// earlier ones for the same code.
func Load(paths ...string) (*Registry, error) {
	if len(paths) == 0 {
		return Embedded()
	}

	r := &Registry{codes: make(map[string]Code)}
	for _, p := range paths {
		if err := r.readFile(p); err != nil {
			return nil, err
		}
	}
	if len(r.codes) == 0 {
		return nil, errors.New("registry files contain no codes")
	}
	return r, nil
}

func (r *Registry) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open registry %s: %w", path, err)
	}
	defer f.Close()

	if err := r.read(f); err != nil {
		return fmt.Errorf("registry %s: %w", path, err)
	}
	return nil
}

func (r *Registry) read(src io.Reader) error {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range []string{"type", "code", "name", "market"} {
		if _, ok := idx[col]; !ok {
			return fmt.Errorf("missing column %q", col)
		}
	}

	get := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		c := Code{
			Type:   get(rec, "type"),
			Code:   get(rec, "code"),
			Name:   get(rec, "name"),
			ISIN:   get(rec, "ISIN"),
			Start:  get(rec, "start"),
			Market: get(rec, "market"),
			Group:  get(rec, "group"),
			CFI:    get(rec, "CFI"),
		}
		if c.Code == "" {
			continue
		}
		r.codes[c.Code] = c
	}
}

// Lookup returns the registry row for code.
func (r *Registry) Lookup(code string) (Code, bool) {
	c, ok := r.codes[code]
	return c, ok
}

// Name returns the short name for code, or "" when unknown.
func (r *Registry) Name(code string) string {
	return r.codes[code].Name
}

// Tickers lists the common stocks on TWSE and TPEx, sorted by code.
func (r *Registry) Tickers(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(r.codes))
	for code, c := range r.codes {
		if c.IsCommonStock() {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Len is the number of rows in the registry, of any type.
func (r *Registry) Len() int {
	return len(r.codes)
}
