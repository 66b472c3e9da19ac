package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deusflow/ofertas/internal/deals"
)

// Reserved keys of the state document. Every other key is a posted id.
const (
	keyRecentCategories = "_ultimas_categorias"
	keyRecentTitles     = "_ultimos_titulos"
	keyWeekly           = "_categorias_semanales"
	keyLegacyCategory   = "_ultima_categoria"
)

// ErrCorruptState is wrapped by Load when the stored document cannot be read
// as a selection state. The accompanying state is empty and usable.
var ErrCorruptState = errors.New("corrupt selection state")

// naiveLayouts are accepted for timestamps written without a UTC offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Encode renders state as the JSON document shared by every backend.
func Encode(state *deals.SelectionState) ([]byte, error) {
	if state == nil {
		state = deals.NewSelectionState()
	}

	doc := make(map[string]any, len(state.PostedIDs)+4)
	for id, ts := range state.PostedIDs {
		if strings.HasPrefix(id, "_") {
			continue
		}
		doc[id] = ts.Format(time.RFC3339Nano)
	}

	weekly := make(map[string]string, len(state.WeeklyCategories))
	for name, ts := range state.WeeklyCategories {
		weekly[name] = ts.Format(time.RFC3339Nano)
	}

	doc[keyRecentCategories] = nonNil(state.RecentCategories)
	doc[keyRecentTitles] = nonNil(state.RecentTitles)
	doc[keyWeekly] = weekly
	if len(state.RecentCategories) > 0 {
		doc[keyLegacyCategory] = state.RecentCategories[0]
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return data, nil
}

// Decode parses a state document. Posted ids older than window at now are
// dropped. Empty input is an empty state. A malformed document yields an empty
// state together with an error wrapping ErrCorruptState.
func Decode(data []byte, now time.Time, window time.Duration) (*deals.SelectionState, error) {
	state := deals.NewSelectionState()
	if len(strings.TrimSpace(string(data))) == 0 {
		return state, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return deals.NewSelectionState(), fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	var legacy string
	for key, raw := range doc {
		var err error
		switch key {
		case keyRecentCategories:
			state.RecentCategories, err = decodeList(raw)
		case keyRecentTitles:
			state.RecentTitles, err = decodeList(raw)
		case keyWeekly:
			state.WeeklyCategories, err = decodeWeekly(raw)
		case keyLegacyCategory:
			err = json.Unmarshal(raw, &legacy)
		default:
			if strings.HasPrefix(key, "_") {
				continue
			}
			var s string
			if json.Unmarshal(raw, &s) != nil {
				continue
			}
			if ts, ok := parseTime(s); ok && now.Sub(ts) < window {
				state.PostedIDs[key] = ts
			}
		}
		if err != nil {
			return deals.NewSelectionState(), fmt.Errorf("%w: key %s: %v", ErrCorruptState, key, err)
		}
	}

	if len(state.RecentCategories) == 0 && legacy != "" {
		state.RecentCategories = []string{legacy}
	}
	return state, nil
}

func decodeList(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	if len(list) > deals.RecencyWindow {
		list = list[:deals.RecencyWindow]
	}
	return list, nil
}

func decodeWeekly(raw json.RawMessage) (map[string]time.Time, error) {
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(m))
	for name, s := range m {
		if ts, ok := parseTime(s); ok {
			out[name] = ts
		}
	}
	return out, nil
}

func parseTime(s string) (time.Time, bool) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, true
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
