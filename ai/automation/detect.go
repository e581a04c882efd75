package automation

import "strings"

// automationKeywords is the detection vocabulary. A substring hit only means
// the message might be a command; the parser decides for real. False
// positives fall through cleanly, false negatives become ordinary chat.
var automationKeywords = []string{
	// Task operations
	"create task",
	"create a task",
	"make a task",
	"add task",
	"new task",
	"assign task",
	"assign to",
	"give task to",
	"update task",
	"change status",
	"mark as",
	"set status",
	"list tasks",
	"show tasks",
	"my tasks",
	"get tasks",
	"find tasks",
	"tasks in",
	"tasks for",
	"update priority",
	"change priority",
	// Sprint operations
	"create sprint",
	"start sprint",
	"new sprint",
	"make sprint",
	"add to sprint",
	"add task to sprint",
	"put in sprint",
	"remove from sprint",
	"start the sprint",
	"complete sprint",
	"end sprint",
	"finish sprint",
	"list sprints",
	"show sprints",
	// Project operations
	"list projects",
	"show projects",
	"my projects",
	"get projects",
	"create project",
	"new project",
	"make project",
	// Member management
	"add member",
	"add user",
	"invite user",
	"add to project",
	"remove member",
	"remove user",
	"remove from project",
	"list members",
	"show members",
	"team members",
}

// Detect reports whether the message contains an automation keyword.
func Detect(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range automationKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
