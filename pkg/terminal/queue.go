// Package terminal is the partner-terminal client for the coupon API.
// It validates codes online and keeps a persisted queue of codes captured
// while offline, replaying them through the batch sync endpoint once
// connectivity returns.
package terminal

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
)

// Queue persists pending-sync codes as a single JSON array on disk.
// The file is read and written whole; a missing or corrupt file reads
// as an empty queue.
type Queue struct {
	mu   sync.Mutex
	path string
}

// NewQueue returns a queue backed by the given file path.
func NewQueue(path string) *Queue {
	return &Queue{path: path}
}

// Add appends the normalized code unless it is already queued.
func (q *Queue) Add(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	codes := q.read()
	for _, c := range codes {
		if c == code {
			return nil
		}
	}
	return q.write(append(codes, code))
}

// Codes returns a copy of the queued codes in insertion order.
func (q *Queue) Codes() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.read()
}

// Len reports the number of queued codes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.read())
}

// Clear empties the queue.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.write(nil)
}

func (q *Queue) read() []string {
	data, err := os.ReadFile(q.path)
	if err != nil {
		return nil
	}
	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return nil
	}
	return codes
}

func (q *Queue) write(codes []string) error {
	if codes == nil {
		codes = []string{}
	}
	data, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	return os.WriteFile(q.path, data, 0o644)
}
