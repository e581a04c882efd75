package automation

import (
	"fmt"
	"regexp"
	"strings"
)

// Deterministic fallback patterns for the two highest-value actions. These
// keep create_task and list_tasks working with the LLM fully down.
var (
	createTaskTitlePattern = regexp.MustCompile(`(?i)(?:create|add|new)\s+(?:a\s+)?task\s+(?:(?:called|named|titled)\s+)?["']*([^,]+?)["']*(?:\s+(?:in|for|project)|\s+(?:with|priority|due)|\s*$)`)

	// Project phrasings tried in priority order. The keywords are anchored
	// with \b so a trailing "in" inside a word like "Login" cannot match.
	projectInPattern   = regexp.MustCompile(`(?i)\bin\s+(?:the\s+)?(?:project\s+)?["']*([a-zA-Z0-9\s\-_]+?)["']*(?:\s+project)?(?:\s|,|$)`)
	projectForPattern  = regexp.MustCompile(`(?i)\bfor\s+(?:project\s+)?["']*([a-zA-Z0-9\s\-_]+?)["']*(?:\s+project)?(?:\s|,|$)`)
	projectYourPattern = regexp.MustCompile(`(?i)\byour\s+([a-zA-Z0-9\s\-_]+?)\s+project`)

	assigneePattern = regexp.MustCompile(`(?i)\b(?:assign\s+to|assign|to)\s+([a-zA-Z\s\.@]+?)(?:\s+\b(?:in|for|project)\b|,|$)`)

	listTasksProjectPattern = regexp.MustCompile(`(?i)\b(?:in|for)\s+(?:project\s+)?["']*([a-zA-Z0-9\s\-_]+?)["']*(?:\s|,|$)`)
)

// ParseRegex extracts a command with pattern matching alone. It covers
// create_task and list_tasks; anything else is a structured failure echoing
// the input so the user gets actionable feedback.
func ParseRegex(message string) (*ParsedCommand, error) {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "create task") ||
		strings.Contains(lower, "create a task") ||
		strings.Contains(lower, "add task"):
		metricParseSuccess.WithLabelValues("regex").Inc()
		return parseCreateTaskRegex(message, lower), nil

	case strings.Contains(lower, "list task") ||
		strings.Contains(lower, "show task") ||
		strings.Contains(lower, "my tasks"):
		metricParseSuccess.WithLabelValues("regex").Inc()
		return parseListTasksRegex(message), nil

	default:
		metricParseFailure.Inc()
		return nil, fmt.Errorf("could not parse command: %s. Please be more specific", message)
	}
}

func parseCreateTaskRegex(message, lower string) *ParsedCommand {
	title := "New Task"
	if m := createTaskTitlePattern.FindStringSubmatch(message); m != nil {
		title = strings.TrimSpace(m[1])
	}

	var projectName string
	for _, pattern := range []*regexp.Regexp{projectInPattern, projectForPattern, projectYourPattern} {
		if m := pattern.FindStringSubmatch(message); m != nil {
			projectName = strings.TrimSpace(m[1])
			break
		}
	}

	priority := "Medium"
	switch {
	case strings.Contains(lower, "high") && strings.Contains(lower, "priority"):
		priority = "High"
	case strings.Contains(lower, "critical") || strings.Contains(lower, "urgent"):
		priority = "Critical"
	case strings.Contains(lower, "low") && strings.Contains(lower, "priority"):
		priority = "Low"
	}

	var assignee string
	if m := assigneePattern.FindStringSubmatch(message); m != nil {
		assignee = strings.TrimSpace(m[1])
	}

	params := map[string]string{
		"title":    title,
		"priority": priority,
	}
	if projectName != "" {
		params["project_name"] = projectName
	}
	if assignee != "" {
		if strings.Contains(assignee, "@") {
			params["assignee_email"] = assignee
		} else {
			params["assignee_name"] = assignee
		}
	}

	return &ParsedCommand{Action: ActionCreateTask, Params: params}
}

func parseListTasksRegex(message string) *ParsedCommand {
	params := map[string]string{}
	if m := listTasksProjectPattern.FindStringSubmatch(message); m != nil {
		params["project_name"] = strings.TrimSpace(m[1])
	}
	return &ParsedCommand{Action: ActionListTasks, Params: params}
}
