package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// SheetInfo describes one discovered sheet.
type SheetInfo struct {
	Title   string
	Type    SheetType
	Headers []string
}

// RoomInfo is one room row read from a hotel sheet. Row is the 1-based
// spreadsheet row the data came from so writes can target it directly.
type RoomInfo struct {
	Sheet        string
	Row          int
	ID           string
	Name         string
	Type         string
	Price        string
	Capacity     string
	Availability string
	BookedDates  string
}

type cacheEntry struct {
	grid      [][]string
	fetchedAt time.Time
}

// Store layers a read cache, Google API rate limiting and sheet structure
// detection over a raw Service. All spreadsheet access in the system goes
// through it.
type Store struct {
	svc      Service
	limiter  *apiLimiter
	cacheTTL time.Duration

	mu            sync.Mutex
	cache         map[string]cacheEntry
	invalidations []time.Time
}

func NewStore(svc Service, cacheTTL time.Duration) *Store {
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	return &Store{
		svc:      svc,
		limiter:  newAPILimiter(),
		cacheTTL: cacheTTL,
		cache:    make(map[string]cacheEntry),
	}
}

// DiscoverSheets lists all sheets and classifies each one.
func (s *Store) DiscoverSheets(ctx context.Context) ([]SheetInfo, error) {
	if err := s.limiter.wait(ctx); err != nil {
		return nil, err
	}
	titles, err := s.svc.ListSheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering sheets: %w", err)
	}

	infos := make([]SheetInfo, 0, len(titles))
	for _, title := range titles {
		grid, err := s.Values(ctx, title)
		if err != nil {
			fmt.Printf("Warning: could not read sheet %q during discovery: %v\n", title, err)
			infos = append(infos, SheetInfo{Title: title, Type: SheetTypeGeneric})
			continue
		}
		var headers []string
		if len(grid) > 0 {
			headers = grid[0]
		}
		infos = append(infos, SheetInfo{
			Title:   title,
			Type:    DetectSheetType(title, headers),
			Headers: headers,
		})
	}
	return infos, nil
}

// Values returns the cached grid for a sheet, fetching when the cache is
// cold or stale.
func (s *Store) Values(ctx context.Context, sheet string) ([][]string, error) {
	s.mu.Lock()
	entry, ok := s.cache[sheet]
	if ok && time.Since(entry.fetchedAt) < s.cacheTTL {
		s.mu.Unlock()
		return entry.grid, nil
	}
	s.mu.Unlock()

	if err := s.limiter.wait(ctx); err != nil {
		return nil, err
	}
	grid, err := s.svc.GetValues(ctx, sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	s.mu.Lock()
	s.cache[sheet] = cacheEntry{grid: grid, fetchedAt: time.Now()}
	s.mu.Unlock()
	return grid, nil
}

// Headers returns the first row of a sheet.
func (s *Store) Headers(ctx context.Context, sheet string) ([]string, error) {
	grid, err := s.Values(ctx, sheet)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, nil
	}
	return grid[0], nil
}

// Rooms parses every hotel sheet into room rows. Section header rows and
// rows without a room name are skipped.
func (s *Store) Rooms(ctx context.Context) ([]RoomInfo, error) {
	infos, err := s.DiscoverSheets(ctx)
	if err != nil {
		return nil, err
	}

	var rooms []RoomInfo
	for _, info := range infos {
		if info.Type != SheetTypeHotel {
			continue
		}
		sheetRooms, err := s.RoomsFromSheet(ctx, info.Title)
		if err != nil {
			fmt.Printf("Warning: could not parse rooms from %q: %v\n", info.Title, err)
			continue
		}
		rooms = append(rooms, sheetRooms...)
	}
	return rooms, nil
}

// RoomsFromSheet parses room rows out of one hotel sheet.
func (s *Store) RoomsFromSheet(ctx context.Context, sheet string) ([]RoomInfo, error) {
	grid, err := s.Values(ctx, sheet)
	if err != nil {
		return nil, err
	}
	if len(grid) < 2 {
		return nil, nil
	}

	headers := grid[0]
	idCol := FindColumn(headers, "room id", "id")
	nameCol := FindColumn(headers, "room name", "name")
	typeCol := FindColumn(headers, "room type", "type", "category")
	priceCol := FindColumn(headers, "price", "rate", "cost")
	capCol := FindColumn(headers, "capacity", "guests", "max guests", "occupancy")
	availCol := FindColumn(headers, "available", "availability", "rooms available")
	datesCol := FindColumn(headers, "booked dates", "bookings", "occupied")

	var rooms []RoomInfo
	for i, row := range grid[1:] {
		name := cellAt(row, nameCol)
		if name == "" {
			continue
		}
		rooms = append(rooms, RoomInfo{
			Sheet:        sheet,
			Row:          i + 2,
			ID:           cellAt(row, idCol),
			Name:         name,
			Type:         cellAt(row, typeCol),
			Price:        cellAt(row, priceCol),
			Capacity:     cellAt(row, capCol),
			Availability: cellAt(row, availCol),
			BookedDates:  cellAt(row, datesCol),
		})
	}
	return rooms, nil
}

// SearchData returns rows from every sheet whose cells contain the query,
// case-insensitively. Header rows are excluded.
func (s *Store) SearchData(ctx context.Context, query string) (map[string][][]string, error) {
	infos, err := s.DiscoverSheets(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	results := make(map[string][][]string)
	for _, info := range infos {
		grid, err := s.Values(ctx, info.Title)
		if err != nil {
			continue
		}
		for i, row := range grid {
			if i == 0 {
				continue
			}
			for _, cell := range row {
				if strings.Contains(strings.ToLower(cell), needle) {
					results[info.Title] = append(results[info.Title], row)
					break
				}
			}
		}
	}
	return results, nil
}

// UpdateCell writes one cell and invalidates the sheet's cache.
func (s *Store) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	if err := s.limiter.wait(ctx); err != nil {
		return err
	}
	if err := s.svc.UpdateCell(ctx, sheet, row, col, value); err != nil {
		return err
	}
	s.invalidate(sheet)
	return nil
}

func (s *Store) InsertRow(ctx context.Context, sheet string, row int, values []string) error {
	if err := s.limiter.wait(ctx); err != nil {
		return err
	}
	if err := s.svc.InsertRow(ctx, sheet, row, values); err != nil {
		return err
	}
	s.invalidate(sheet)
	return nil
}

func (s *Store) AppendRow(ctx context.Context, sheet string, values []string) error {
	if err := s.limiter.wait(ctx); err != nil {
		return err
	}
	if err := s.svc.AppendRow(ctx, sheet, values); err != nil {
		return err
	}
	s.invalidate(sheet)
	return nil
}

func (s *Store) DeleteRow(ctx context.Context, sheet string, row int) error {
	if err := s.limiter.wait(ctx); err != nil {
		return err
	}
	if err := s.svc.DeleteRow(ctx, sheet, row); err != nil {
		return err
	}
	s.invalidate(sheet)
	return nil
}

// EnsureSheet creates the sheet if the spreadsheet does not already have it.
func (s *Store) EnsureSheet(ctx context.Context, title string, headers []string) error {
	if err := s.limiter.wait(ctx); err != nil {
		return err
	}
	titles, err := s.svc.ListSheets(ctx)
	if err != nil {
		return fmt.Errorf("listing sheets: %w", err)
	}
	for _, t := range titles {
		if t == title {
			return nil
		}
	}

	if err := s.limiter.wait(ctx); err != nil {
		return err
	}
	if err := s.svc.AddSheet(ctx, title); err != nil {
		return fmt.Errorf("creating sheet %q: %w", title, err)
	}
	if len(headers) > 0 {
		if err := s.limiter.wait(ctx); err != nil {
			return err
		}
		if err := s.svc.InsertRow(ctx, title, 1, headers); err != nil {
			return fmt.Errorf("writing headers for %q: %w", title, err)
		}
	}
	s.invalidate(title)
	return nil
}

// Invalidate drops the cached grid for a sheet so the next read refetches.
func (s *Store) Invalidate(sheet string) {
	s.invalidate(sheet)
}

// InvalidateAll drops every cached grid.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	s.cache = make(map[string]cacheEntry)
	s.invalidations = append(s.invalidations, time.Now())
	s.mu.Unlock()
}

// RecentInvalidations reports how many cache invalidations happened within
// the window. The background reindexer uses it to decide whether the
// spreadsheet changed since the last pass.
func (s *Store) RecentInvalidations(window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-window)
	n := 0
	for _, t := range s.invalidations {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

func (s *Store) invalidate(sheet string) {
	s.mu.Lock()
	delete(s.cache, sheet)
	now := time.Now()
	s.invalidations = append(s.invalidations, now)
	// Keep the invalidation log bounded.
	if len(s.invalidations) > 256 {
		s.invalidations = append([]time.Time(nil), s.invalidations[len(s.invalidations)-128:]...)
	}
	s.mu.Unlock()
}

// FindColumn returns the 0-based index of the first header containing any of
// the candidates, case-insensitively, or -1 when none match.
func FindColumn(headers []string, candidates ...string) int {
	for _, cand := range candidates {
		for i, h := range headers {
			if strings.Contains(strings.ToLower(h), cand) {
				return i
			}
		}
	}
	return -1
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
