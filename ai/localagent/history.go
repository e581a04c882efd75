package localagent

import (
	"sync"

	"github.com/doitpm/assist/ai/llm"
)

// maxHistoryTurns caps the per-user buffer to avoid context overflow; each
// turn is one user and one assistant entry.
const maxHistoryTurns = 20

// historyBuffer holds per-user chat history in process memory. Last writer
// wins; cleared explicitly on conversation delete or reset.
type historyBuffer struct {
	mu      sync.RWMutex
	entries map[int32][]llm.Message
}

func newHistoryBuffer() *historyBuffer {
	return &historyBuffer{entries: make(map[int32][]llm.Message)}
}

func (h *historyBuffer) get(userID int32) []llm.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	history := h.entries[userID]
	copied := make([]llm.Message, len(history))
	copy(copied, history)
	return copied
}

func (h *historyBuffer) append(userID int32, role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	history := append(h.entries[userID], llm.Message{Role: role, Content: content})
	if len(history) > maxHistoryTurns*2 {
		history = history[len(history)-maxHistoryTurns*2:]
	}
	h.entries[userID] = history
}

func (h *historyBuffer) clear(userID int32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, userID)
}

func (h *historyBuffer) size(userID int32) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries[userID])
}
