package localagent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryBufferAppendAndGet(t *testing.T) {
	buffer := newHistoryBuffer()

	buffer.append(1, "user", "hello")
	buffer.append(1, "assistant", "hi there")
	buffer.append(2, "user", "other user")

	history := buffer.get(1)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "hi there", history[1].Content)
	assert.Equal(t, 1, buffer.size(2))
}

func TestHistoryBufferTrimsOldestTurns(t *testing.T) {
	buffer := newHistoryBuffer()

	for i := 0; i < 30; i++ {
		buffer.append(1, "user", fmt.Sprintf("question %d", i))
		buffer.append(1, "assistant", fmt.Sprintf("answer %d", i))
	}

	history := buffer.get(1)
	require.Len(t, history, maxHistoryTurns*2)
	assert.Equal(t, "question 10", history[0].Content)
	assert.Equal(t, "answer 29", history[len(history)-1].Content)
}

func TestHistoryBufferGetReturnsCopy(t *testing.T) {
	buffer := newHistoryBuffer()
	buffer.append(1, "user", "original")

	history := buffer.get(1)
	history[0].Content = "mutated"

	assert.Equal(t, "original", buffer.get(1)[0].Content)
}

func TestHistoryBufferClear(t *testing.T) {
	buffer := newHistoryBuffer()
	buffer.append(1, "user", "hello")
	buffer.append(2, "user", "keep me")

	buffer.clear(1)

	assert.Empty(t, buffer.get(1))
	assert.Equal(t, 1, buffer.size(2))
}
