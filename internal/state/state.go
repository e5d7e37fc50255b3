// Package state persists what the provisioner last applied: a digest per
// resource and the last trigger value per build trigger. The engine compares
// declared stacks against this record to decide what needs work.
package state

import (
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Version is written into every state file; a future format change bumps it.
const Version = 1

// State is the on-disk record of the last successful apply.
type State struct {
	Version   int                 `json:"version"`
	RunID     string              `json:"run_id,omitempty"`
	AppliedAt time.Time           `json:"applied_at,omitempty"`
	Resources map[string]Resource `json:"resources"`
	Triggers  map[string]string   `json:"triggers"`
}

// Resource records the spec digest a resource address was last applied with.
type Resource struct {
	Digest    string    `json:"digest"`
	AppliedAt time.Time `json:"applied_at"`
}

// New returns an empty state.
func New() *State {
	return &State{
		Version:   Version,
		Resources: make(map[string]Resource),
		Triggers:  make(map[string]string),
	}
}

// Load reads a state file. A missing file is not an error; it yields an
// empty state, which makes the very first apply plan everything.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("read state file %s: %w", path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode state file %s: %w", path, err)
	}
	if st.Version != Version {
		return nil, fmt.Errorf("state file %s has unsupported version %d", path, st.Version)
	}
	if st.Resources == nil {
		st.Resources = make(map[string]Resource)
	}
	if st.Triggers == nil {
		st.Triggers = make(map[string]string)
	}
	return &st, nil
}

// Save writes the state atomically: the content lands in a temp file in the
// same directory and is renamed over the target, so a crash mid-write never
// leaves a truncated state behind.
func (s *State) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".docstack-state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace state file %s: %w", path, err)
	}
	return nil
}

// BeginRun stamps the state with a fresh run id and timestamp.
func (s *State) BeginRun(now time.Time) {
	s.RunID = uuid.NewString()
	s.AppliedAt = now.UTC()
}

// SpecDigest computes the stable digest of a declared resource spec: the
// SHA-512 of its JSON encoding. JSON encoding of the config structs is
// deterministic (struct field order is fixed and maps render sorted), so
// equal specs always digest equally.
func SpecDigest(spec any) (string, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("encode resource spec: %w", err)
	}
	sum := sha512.Sum512(data)
	return hex.EncodeToString(sum[:]), nil
}
