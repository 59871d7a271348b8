package sheets

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Service used by tests across the codebase.
type Fake struct {
	mu     sync.Mutex
	sheets map[string][][]string
	order  []string

	// FailWith, when set, makes every call return the error.
	FailWith error
}

// NewFake creates an empty in-memory spreadsheet.
func NewFake() *Fake {
	return &Fake{sheets: make(map[string][][]string)}
}

// Seed replaces a sheet's contents wholesale.
func (f *Fake) Seed(sheet string, grid [][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sheets[sheet]; !ok {
		f.order = append(f.order, sheet)
	}
	copied := make([][]string, len(grid))
	for i, row := range grid {
		copied[i] = append([]string(nil), row...)
	}
	f.sheets[sheet] = copied
}

// Grid returns a copy of a sheet's current contents.
func (f *Fake) Grid(sheet string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	grid := f.sheets[sheet]
	copied := make([][]string, len(grid))
	for i, row := range grid {
		copied[i] = append([]string(nil), row...)
	}
	return copied
}

func (f *Fake) ListSheets(_ context.Context) ([]string, error) {
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...), nil
}

func (f *Fake) GetValues(_ context.Context, sheet string) ([][]string, error) {
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	grid, ok := f.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	copied := make([][]string, len(grid))
	for i, row := range grid {
		copied[i] = append([]string(nil), row...)
	}
	return copied, nil
}

func (f *Fake) UpdateCell(_ context.Context, sheet string, row, col int, value string) error {
	if f.FailWith != nil {
		return f.FailWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	grid, ok := f.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	for len(grid) < row {
		grid = append(grid, nil)
	}
	r := grid[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = value
	grid[row-1] = r
	f.sheets[sheet] = grid
	return nil
}

func (f *Fake) InsertRow(_ context.Context, sheet string, row int, values []string) error {
	if f.FailWith != nil {
		return f.FailWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	grid, ok := f.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	for len(grid) < row-1 {
		grid = append(grid, nil)
	}
	idx := row - 1
	grid = append(grid, nil)
	copy(grid[idx+1:], grid[idx:])
	grid[idx] = append([]string(nil), values...)
	f.sheets[sheet] = grid
	return nil
}

func (f *Fake) AppendRow(_ context.Context, sheet string, values []string) error {
	if f.FailWith != nil {
		return f.FailWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	grid, ok := f.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	f.sheets[sheet] = append(grid, append([]string(nil), values...))
	return nil
}

func (f *Fake) DeleteRow(_ context.Context, sheet string, row int) error {
	if f.FailWith != nil {
		return f.FailWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	grid, ok := f.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	if row < 1 || row > len(grid) {
		return fmt.Errorf("row %d out of range in %q", row, sheet)
	}
	f.sheets[sheet] = append(grid[:row-1], grid[row:]...)
	return nil
}

func (f *Fake) AddSheet(_ context.Context, title string) error {
	if f.FailWith != nil {
		return f.FailWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sheets[title]; ok {
		return fmt.Errorf("sheet %q already exists", title)
	}
	f.sheets[title] = [][]string{}
	f.order = append(f.order, title)
	return nil
}

// NewTestStore returns a Store over a fresh Fake with rate limiting tuned
// for tests.
func NewTestStore() (*Store, *Fake) {
	fake := NewFake()
	store := NewStore(fake, 0)
	store.limiter.limiter.SetLimit(1_000_000)
	store.limiter.limit = 1_000_000
	return store, fake
}
