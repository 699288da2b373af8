package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"IvyRanker/internal/strategy"
)

// File is the on-disk form of the incremental tracker states.
type File struct {
	UpdatedAt time.Time                        `json:"updated_at"`
	Trackers  map[string]strategy.TrackerState `json:"trackers"`
}

// Load reads tracker states from a JSON file. Returns an empty map if the file doesn't exist.
func Load(filePath string) (map[string]strategy.TrackerState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]strategy.TrackerState{}, nil
		}
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", filePath, err)
	}
	if f.Trackers == nil {
		f.Trackers = map[string]strategy.TrackerState{}
	}
	return f.Trackers, nil
}

// Save writes tracker states to a JSON file, replacing it atomically.
func Save(filePath string, states map[string]strategy.TrackerState) error {
	data, err := json.MarshalIndent(File{UpdatedAt: time.Now(), Trackers: states}, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".checkpoint-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}

// Trackers restores every state, skipping the ones that no longer fit the
// current windows.
func Trackers(states map[string]strategy.TrackerState) (map[string]*strategy.Tracker, []error) {
	out := make(map[string]*strategy.Tracker, len(states))
	var errs []error
	for symbol, st := range states {
		t, err := strategy.RestoreTracker(st)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[symbol] = t
	}
	return out, errs
}

// States captures every tracker for saving.
func States(trackers map[string]*strategy.Tracker) map[string]strategy.TrackerState {
	out := make(map[string]strategy.TrackerState, len(trackers))
	for symbol, t := range trackers {
		out[symbol] = t.State()
	}
	return out
}
