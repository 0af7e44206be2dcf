// Package universe supplies the ordered symbol set a scan walks through.
package universe

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/scout/backend/internal/contracts"
	"github.com/wonny/scout/backend/pkg/logger"
)

// Source fetches raw tickers from a backing listing (exchange page, DB
// snapshot, fixed list). Order and duplicates in the returned slice do not
// matter; the Provider canonicalizes.
type Source interface {
	Fetch(ctx context.Context) ([]string, error)
}

// Provider wraps a Source with snapshot semantics: the first successful List
// fixes the symbol set and order for the provider's lifetime, so a scan that
// resumes mid-run walks the same sequence it started with. Symbols are
// normalized, deduplicated and lexicographically ordered.
type Provider struct {
	source Source

	mu      sync.Mutex
	symbols []contracts.Symbol
	index   map[contracts.Symbol]int
}

// NewProvider creates a snapshotting provider over the source
func NewProvider(source Source) *Provider {
	return &Provider{source: source}
}

// List returns the snapshot, fetching it on first use
func (p *Provider) List(ctx context.Context) ([]contracts.Symbol, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureSnapshot(ctx); err != nil {
		return nil, err
	}

	out := make([]contracts.Symbol, len(p.symbols))
	copy(out, p.symbols)
	return out, nil
}

// PositionOf returns the index of symbol in List order
func (p *Provider) PositionOf(ctx context.Context, symbol contracts.Symbol) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureSnapshot(ctx); err != nil {
		return 0, err
	}

	pos, ok := p.index[contracts.NormalizeSymbol(symbol.String())]
	if !ok {
		return 0, fmt.Errorf("%w: %s", contracts.ErrSymbolNotFound, symbol)
	}
	return pos, nil
}

func (p *Provider) ensureSnapshot(ctx context.Context) error {
	if p.symbols != nil {
		return nil
	}

	raw, err := p.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrUniverseUnavailable, err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("%w: source returned no symbols", contracts.ErrUniverseUnavailable)
	}

	seen := make(map[contracts.Symbol]struct{}, len(raw))
	symbols := make([]contracts.Symbol, 0, len(raw))
	for _, r := range raw {
		sym := contracts.NormalizeSymbol(r)
		if sym.IsZero() {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}

	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })

	index := make(map[contracts.Symbol]int, len(symbols))
	for i, sym := range symbols {
		index[sym] = i
	}

	p.symbols = symbols
	p.index = index
	return nil
}

// Fallback chains sources: the first one that yields symbols wins. Wired as
// exchange listing first, stored Postgres snapshot second, so a scan can
// still run when the listing page is unreachable.
type Fallback struct {
	sources []Source
	logger  *logger.Logger
}

// NewFallback creates a Source that tries sources in order
func NewFallback(log *logger.Logger, sources ...Source) *Fallback {
	return &Fallback{sources: sources, logger: log}
}

// Fetch returns the first non-empty result
func (f *Fallback) Fetch(ctx context.Context) ([]string, error) {
	var lastErr error
	for i, src := range f.sources {
		symbols, err := src.Fetch(ctx)
		if err == nil && len(symbols) > 0 {
			return symbols, nil
		}
		if err == nil {
			err = fmt.Errorf("source returned no symbols")
		}
		lastErr = err

		if i < len(f.sources)-1 {
			f.logger.WithFields(map[string]interface{}{
				"source": i,
				"error":  err.Error(),
			}).Warn("Universe source failed, trying fallback")
		}
	}
	return nil, lastErr
}

// Static is a fixed-list Source, used by tests and the --symbols override.
type Static struct {
	symbols []string
}

// NewStatic creates a Source over a fixed ticker list
func NewStatic(symbols []string) *Static {
	return &Static{symbols: symbols}
}

// Fetch returns the fixed list
func (s *Static) Fetch(ctx context.Context) ([]string, error) {
	return s.symbols, nil
}
