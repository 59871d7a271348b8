package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tsheringpenjor/concierge/internal/sheets"
)

// RoomIndex caches the parsed room inventory so conversation turns do not
// hit the spreadsheet for every type lookup. The background reindexer
// rebuilds it when spreadsheet writes are detected.
type RoomIndex struct {
	store *sheets.Store

	mu      sync.RWMutex
	rooms   []sheets.RoomInfo
	builtAt time.Time
}

func NewRoomIndex(store *sheets.Store) *RoomIndex {
	return &RoomIndex{store: store}
}

// Rebuild refreshes the index from the hotel sheets.
func (idx *RoomIndex) Rebuild(ctx context.Context) error {
	rooms, err := idx.store.Rooms(ctx)
	if err != nil {
		return fmt.Errorf("rebuilding room index: %w", err)
	}
	idx.mu.Lock()
	idx.rooms = rooms
	idx.builtAt = time.Now()
	idx.mu.Unlock()
	fmt.Printf("Room index rebuilt: %d rooms\n", len(rooms))
	return nil
}

// Rooms returns the indexed inventory, building it on first use.
func (idx *RoomIndex) Rooms(ctx context.Context) ([]sheets.RoomInfo, error) {
	idx.mu.RLock()
	built := !idx.builtAt.IsZero()
	rooms := idx.rooms
	idx.mu.RUnlock()

	if !built {
		if err := idx.Rebuild(ctx); err != nil {
			return nil, err
		}
		idx.mu.RLock()
		rooms = idx.rooms
		idx.mu.RUnlock()
	}
	return rooms, nil
}

// Types returns the distinct room types in the inventory.
func (idx *RoomIndex) Types(ctx context.Context) ([]string, error) {
	rooms, err := idx.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var types []string
	for _, r := range rooms {
		t := r.Type
		if t == "" {
			t = r.Name
		}
		if t != "" && !seen[strings.ToLower(t)] {
			seen[strings.ToLower(t)] = true
			types = append(types, t)
		}
	}
	return types, nil
}

// MatchType finds the inventory room type a guest's wording refers to.
func (idx *RoomIndex) MatchType(ctx context.Context, text string) (string, bool) {
	types, err := idx.Types(ctx)
	if err != nil {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, t := range types {
		if strings.Contains(lower, strings.ToLower(t)) {
			return t, true
		}
		// Match on the distinguishing word, e.g. "twin" for "Twin Room".
		for _, word := range strings.Fields(strings.ToLower(t)) {
			if word == "room" || word == "the" {
				continue
			}
			if strings.Contains(lower, word) {
				return t, true
			}
		}
	}
	return "", false
}
