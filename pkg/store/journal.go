// Package store persists swap executions to a JSON journal file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"intent-swap/pkg/types"
)

// InterruptedReason is recorded on executions found in flight at startup
const InterruptedReason = "interrupted"

// Journal keeps every execution keyed by id
type Journal struct {
	filePath   string
	mu         sync.RWMutex
	executions map[string]*types.SwapExecution
	now        func() time.Time
}

// journalFile is the JSON structure on disk
type journalFile struct {
	Executions map[string]*types.SwapExecution `json:"executions"`
}

// Open loads the journal at filePath. A missing file is an empty journal
// that is created on first save.
func Open(filePath string) (*Journal, error) {
	if filePath == "" {
		return nil, fmt.Errorf("journal path is required")
	}

	j := &Journal{
		filePath:   filePath,
		executions: make(map[string]*types.SwapExecution),
		now:        time.Now,
	}

	if err := j.load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load journal: %w", err)
	}
	return j, nil
}

func (j *Journal) load() error {
	data, err := os.ReadFile(j.filePath)
	if err != nil {
		return err
	}

	var file journalFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal journal: %w", err)
	}
	if file.Executions != nil {
		j.executions = file.Executions
	}
	return nil
}

// saveLocked writes the journal; the caller holds the write lock
func (j *Journal) saveLocked() error {
	data, err := json.MarshalIndent(journalFile{Executions: j.executions}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(j.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := j.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	if err := os.Rename(tempFile, j.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Save inserts or replaces an execution
func (j *Journal) Save(exec types.SwapExecution) error {
	if exec.ID == "" {
		return fmt.Errorf("execution id is required")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.executions[exec.ID] = &exec
	return j.saveLocked()
}

// Get returns the execution with id
func (j *Journal) Get(id string) (types.SwapExecution, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	exec, ok := j.executions[id]
	if !ok {
		return types.SwapExecution{}, fmt.Errorf("execution '%s' not found", id)
	}
	return *exec, nil
}

// ListByWallet returns the wallet's executions, newest first. An empty
// wallet lists everything.
func (j *Journal) ListByWallet(wallet string) []types.SwapExecution {
	j.mu.RLock()
	defer j.mu.RUnlock()

	list := make([]types.SwapExecution, 0, len(j.executions))
	for _, exec := range j.executions {
		if wallet != "" && !strings.EqualFold(exec.Wallet, wallet) {
			continue
		}
		list = append(list, *exec)
	}

	sort.Slice(list, func(a, b int) bool {
		if list[a].CreatedAt.Equal(list[b].CreatedAt) {
			return list[a].ID > list[b].ID
		}
		return list[a].CreatedAt.After(list[b].CreatedAt)
	})
	return list
}

// Recover marks executions left in flight by a previous process as failed
// and returns them. Their allowance state is re-read from the chain by the
// next gate check.
func (j *Journal) Recover() ([]types.SwapExecution, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var recovered []types.SwapExecution
	for _, exec := range j.executions {
		if !exec.Status.InFlight() {
			continue
		}
		exec.FailedStep = types.StepSubmit
		if exec.Status == types.StatusGating {
			exec.FailedStep = types.StepGating
		}
		exec.Status = types.StatusFailed
		exec.Error = InterruptedReason
		exec.UpdatedAt = j.now()
		recovered = append(recovered, *exec)
	}
	if len(recovered) == 0 {
		return nil, nil
	}

	sort.Slice(recovered, func(a, b int) bool { return recovered[a].ID < recovered[b].ID })
	return recovered, j.saveLocked()
}

// Count returns the number of journaled executions
func (j *Journal) Count() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.executions)
}

// Path returns the journal file path
func (j *Journal) Path() string {
	return j.filePath
}
