// Package localagent runs the fully on-premise chat agent: Ollama for
// generation, optional pgvector retrieval for grounding, and an in-memory
// per-user history buffer. No data leaves the deployment.
package localagent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/doitpm/assist/ai/llm"
	"github.com/doitpm/assist/ai/rag"
	"github.com/doitpm/assist/ai/usercontext"
)

const systemPrompt = `You are DOIT Local AI, a private, on-premise AI assistant
for the DOIT task management system. You have access to the user's real-time
task and project data which will be provided as context in their messages.

Guidelines:
- Be concise, actionable and data-driven.
- When referencing tasks, always include the ticket ID.
- If asked to create or update tasks, explain clearly what should be done (you
  cannot directly execute DB writes; that is handled by the DOIT backend).
- All data stays on-premise. You run entirely locally via Ollama.
- If you don't know something, say so. Do not hallucinate.`

// Reply is the agent's answer to one message.
type Reply struct {
	Response string
	Model    string
	RAGUsed  bool
	Tokens   *llm.CallStats
}

// Agent orchestrates one local chat turn.
type Agent struct {
	llm       llm.Service
	retriever rag.Retriever
	history   *historyBuffer
	model     string
	baseURL   string
	client    *http.Client
}

func New(llmService llm.Service, retriever rag.Retriever, model, baseURL string) *Agent {
	return &Agent{
		llm:       llmService,
		retriever: retriever,
		history:   newHistoryBuffer(),
		model:     model,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Send routes one user message through optional retrieval and the local
// model. The history buffer stores the original message, not the augmented
// one, so context blocks never compound across turns.
func (a *Agent) Send(ctx context.Context, userID int32, message string, snapshot *usercontext.Snapshot) (*Reply, error) {
	ragUsed := false
	contextBlock := ""

	if snapshot != nil {
		if retrieved := a.retrieveContext(ctx, userID, message, snapshot); retrieved != "" {
			contextBlock = "\n\n[Retrieved Context]\n" + retrieved
			ragUsed = true
		} else if raw, err := json.MarshalIndent(snapshot, "", "  "); err == nil {
			contextBlock = "\n\n[User Data]\n" + string(raw)
		}
	}

	messages := []llm.Message{{Role: "system", Content: systemPrompt}}
	messages = append(messages, a.history.get(userID)...)
	messages = append(messages, llm.Message{Role: "user", Content: message + contextBlock})

	response, stats, err := a.llm.Chat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("local agent call failed: %w", err)
	}
	response = strings.TrimSpace(response)

	a.history.append(userID, "user", message)
	a.history.append(userID, "assistant", response)

	return &Reply{
		Response: response,
		Model:    a.model,
		RAGUsed:  ragUsed,
		Tokens:   stats,
	}, nil
}

// retrieveContext indexes the fresh snapshot and retrieves the top slices
// for this query. Any failure degrades to raw-context injection.
func (a *Agent) retrieveContext(ctx context.Context, userID int32, message string, snapshot *usercontext.Snapshot) string {
	documents := snapshotDocuments(snapshot)
	if err := a.retriever.Index(ctx, userID, documents); err != nil {
		rag.LogDegradation("index", err)
		return ""
	}

	retrieved, err := a.retriever.Retrieve(ctx, userID, message, 3)
	if err != nil {
		rag.LogDegradation("retrieve", err)
		return ""
	}
	return strings.Join(retrieved, "\n")
}

// snapshotDocuments splits the snapshot into small focused documents so
// retrieval can pick only what the query needs.
func snapshotDocuments(s *usercontext.Snapshot) []string {
	documents := []string{
		fmt.Sprintf("%s (%s) has %d tasks across %d projects: %d overdue, %d due soon, %d completed this week, %d blocked. 30-day velocity: %d. Active sprints: %d.",
			s.UserName, s.UserRole, s.TasksTotal, s.ProjectsTotal,
			s.TasksOverdue, s.TasksDueSoon, s.TasksDoneWeek, s.BlockedTasks,
			s.Velocity30d, s.SprintsActive),
	}

	if len(s.StatusBreakdown) > 0 {
		parts := make([]string, 0, len(s.StatusBreakdown))
		for status, count := range s.StatusBreakdown {
			parts = append(parts, fmt.Sprintf("%s: %d", status, count))
		}
		documents = append(documents, "Task status breakdown: "+strings.Join(parts, ", "))
	}

	for _, t := range s.RecentTasks {
		doc := fmt.Sprintf("Task %s '%s' is %s", t.Ticket, t.Title, t.Status)
		if t.Due != "" {
			doc += ", due " + t.Due
		}
		documents = append(documents, doc)
	}
	return documents
}

// ResetHistory clears the user's in-memory conversation buffer.
func (a *Agent) ResetHistory(userID int32) {
	a.history.clear(userID)
}

// HistorySize returns the number of buffered history entries for a user.
func (a *Agent) HistorySize(userID int32) int {
	return a.history.size(userID)
}

// History returns a copy of the user's buffered turns.
func (a *Agent) History(userID int32) []llm.Message {
	return a.history.get(userID)
}

// Health reports whether Ollama is reachable and the model is pulled, via
// the tags endpoint.
type Health struct {
	Healthy         bool     `json:"healthy"`
	OllamaURL       string   `json:"ollama_url"`
	Model           string   `json:"model"`
	ModelAvailable  bool     `json:"model_available"`
	AvailableModels []string `json:"available_models,omitempty"`
	Error           string   `json:"error,omitempty"`
}

func (a *Agent) CheckHealth(ctx context.Context) *Health {
	health := &Health{OllamaURL: a.baseURL, Model: a.model}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tags", nil)
	if err != nil {
		health.Error = fmt.Sprintf("invalid ollama url: %v", err)
		return health
	}

	resp, err := a.client.Do(req)
	if err != nil {
		health.Error = fmt.Sprintf("Ollama not reachable: %v. Is Ollama running?", err)
		return health
	}
	defer resp.Body.Close()

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		health.Error = fmt.Sprintf("unexpected tags response: %v", err)
		return health
	}

	for _, m := range tags.Models {
		health.AvailableModels = append(health.AvailableModels, m.Name)
		if strings.Contains(m.Name, a.model) {
			health.ModelAvailable = true
		}
	}
	health.Healthy = health.ModelAvailable
	if !health.ModelAvailable {
		health.Error = fmt.Sprintf("Model '%s' not pulled yet. Run: ollama pull %s", a.model, a.model)
	}

	slog.Debug("local agent health checked", "healthy", health.Healthy, "models", len(tags.Models))
	return health
}
