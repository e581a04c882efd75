package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/doitpm/assist/ai/llm"
)

const parserSystemPrompt = `You are a task management command parser for DOIT.

Extract the action and parameters from the user's command.

Available actions:
- create_task: Create a new task
- assign_task: Assign an existing task to someone
- update_task: Update task properties (status, priority, etc)
- create_sprint: Create a new sprint
- start_sprint: Make a sprint active
- complete_sprint: Mark a sprint as done
- add_task_to_sprint: Add a task to a sprint
- remove_task_from_sprint: Remove a task from a sprint
- list_tasks: List tasks (optionally filtered)
- list_sprints: List sprints
- list_projects: List user's projects
- create_project: Create a new project
- add_member: Add a member to a project
- remove_member: Remove a member from a project
- list_members: List project members

IMPORTANT: Return ONLY valid JSON with no markdown code fences. Example:
{"action": "create_task", "params": {"title": "Fix login bug", "project_name": "Auth", "priority": "High"}}

For create_task params, extract:
- title (required) - task name
- description (optional)
- project_name (IMPORTANT: extract from "in X project", "in X", "your X project" - NEVER use null, always try to find project name)
- assignee_email or assignee_name (optional)
- priority: Low/Medium/High/Critical (optional, default Medium)
- issue_type: task/bug/story (optional, default task)
- due_date: YYYY-MM-DD format (optional)
- labels: array of strings (optional)

CRITICAL:
- Do NOT include null/None values in params
- Always extract project_name if visible in message
- Only include params that have actual values

For other actions, extract relevant parameters from context.`

var codeFencePattern = regexp.MustCompile("```json\\s*|\\s*```")

// Parser turns free text into a ParsedCommand. The LLM path covers the full
// action surface; any LLM or decode failure falls back to regex extraction.
type Parser struct {
	llm llm.Service
}

func NewParser(llmService llm.Service) *Parser {
	return &Parser{llm: llmService}
}

// Parse extracts a structured command from the message. The userContext is a
// small JSON-serializable hint object (name, email, project names).
func (p *Parser) Parse(ctx context.Context, message string, userContext map[string]any) (*ParsedCommand, error) {
	command, err := p.parseWithLLM(ctx, message, userContext)
	if err != nil {
		slog.Warn("llm command parsing failed, falling back to regex", "error", err)
		metricParseFallback.Inc()
		return ParseRegex(message)
	}
	metricParseSuccess.WithLabelValues("llm").Inc()
	return command, nil
}

func (p *Parser) parseWithLLM(ctx context.Context, message string, userContext map[string]any) (*ParsedCommand, error) {
	if p.llm == nil {
		return nil, fmt.Errorf("no llm service configured")
	}

	contextJSON, err := json.Marshal(userContext)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user context: %w", err)
	}

	userPrompt := fmt.Sprintf(
		"Parse this command: %s\n\nUser context: %s\n\nReturn ONLY valid JSON with action and params. NO markdown fences. NO null values.",
		message, string(contextJSON),
	)

	reply, _, err := p.llm.Chat(ctx, []llm.Message{
		{Role: "system", Content: parserSystemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return nil, err
	}

	return decodeCommand(reply)
}

// decodeCommand strictly decodes an LLM reply into a ParsedCommand. The reply
// is fence-stripped first; the action is re-validated against the closed set
// regardless of what the model claims.
func decodeCommand(reply string) (*ParsedCommand, error) {
	cleaned := strings.TrimSpace(codeFencePattern.ReplaceAllString(reply, ""))

	var raw struct {
		Action string         `json:"action"`
		Params map[string]any `json:"params"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("invalid command json: %w", err)
	}

	action := Action(raw.Action)
	if !action.IsKnown() {
		return nil, fmt.Errorf("unknown action: %s", raw.Action)
	}

	return &ParsedCommand{
		Action: action,
		Params: scrubParams(raw.Params),
	}, nil
}

// scrubParams drops null, empty, and literal "None" values and flattens the
// rest to strings. Models frequently emit "None" where they mean absent.
func scrubParams(raw map[string]any) map[string]string {
	params := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			if v == "" || v == "None" || v == "null" {
				continue
			}
			params[key] = v
		case float64:
			params[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			params[key] = fmt.Sprintf("%t", v)
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" && s != "None" {
					parts = append(parts, s)
				}
			}
			if len(parts) == 0 {
				continue
			}
			params[key] = strings.Join(parts, ",")
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				continue
			}
			params[key] = string(encoded)
		}
	}
	return params
}
