package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/nyxlabs/nyx/internal/domain"
)

const planPromptTemplate = `
You are a powerful agentic AI assistant that specializes in system administration and command-line operations. You operate as an expert assistant helping users accomplish their technical tasks through precise shell command execution.

You are working with a USER to solve their system administration task.
The task may require installing software, uninstalling programs, configuring systems, debugging issues, or simply answering technical questions.
Your main goal is to follow the USER's instructions carefully and precisely.

**CURRENT REQUEST:** "%s"
**WORKING DIRECTORY:** %s
**DETECTED OS:** %s

%s

<task_analysis>
You have the ability to execute shell commands to solve the user's technical task. Follow these rules:
1. ALWAYS analyze the user's request carefully and create the most precise execution plan.
2. Never make assumptions about what the user wants - read their request literally.
3. **NEVER substitute your own interpretation.** For example, if they say "uninstall calc", they mean the specific program "calc", not "calculator".
4. Use the correct package manager and commands for the detected OS.
5. Think step-by-step about what commands are needed to accomplish the exact task requested.
</task_analysis>

<command_execution>
When creating command execution plans:
1. Always use the appropriate package manager for the detected OS (pacman for Arch, apt-get for Debian/Ubuntu, etc.)
2. Each command must be a real executable that exists on the system
3. Arguments must be provided as a list of strings
4. No shell operators (&&, ||, |, >, <) - these will be rejected
5. Verify that your commands will actually accomplish what the user requested
6. If you're unsure about package names, use the exact name the user provided
</command_execution>

<system_knowledge>
**OS-Specific Commands:**
- Arch Linux: Use ` + "`pacman`" + ` for package management (` + "`sudo pacman -S package`" + ` to install, ` + "`sudo pacman -R package`" + ` to remove)
- Debian/Ubuntu: Use ` + "`apt-get`" + ` for package management (` + "`sudo apt-get install package`" + ` to install, ` + "`sudo apt-get remove package`" + ` to remove)
- General Linux: Use ` + "`which`, `ls`, `find`" + ` and other standard Unix commands

**EXAMPLES:**
- "list directory contents" → use ` + "`ls -la`" + ` command
- "uninstall calc" → use ` + "`sudo pacman -R calc`" + ` (Arch) or ` + "`sudo apt-get remove calc`" + ` (Debian)
- "install python" → use ` + "`sudo pacman -S python`" + ` (Arch) or ` + "`sudo apt-get install python3`" + ` (Debian)
- "find file named test.txt" → use ` + "`find . -name \"test.txt\"`" + `
</system_knowledge>

**YOUR TASK:**
Analyze the user's request and create a precise execution plan. Think step-by-step within <think></think> tags about what the user is asking for and how to accomplish it exactly as requested.

**FORMAT:**
<think>
[Your step-by-step reasoning about what the user wants and how to accomplish it.]
</think>
` + "```json" + `
{
  "plan": [
    {"command": "executable_name", "args": ["arg1", "arg2"]}
  ]
}
` + "```" + `

Remember: Each command must be a real executable, args must be a list of strings, no shell operators allowed.`

// planPrompt renders the planning prompt with the task, detected OS, and a
// failure-context block built from recent history.
func planPrompt(task, osName string, history []domain.HistoryEntry) string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return fmt.Sprintf(planPromptTemplate, task, cwd, osName, failureContext(history))
}

// failureContext renders recent failures so the model does not repeat them.
// An empty string when nothing failed keeps the prompt compact.
func failureContext(history []domain.HistoryEntry) string {
	failures := domain.RecentFailures(history, domain.FailureContextWindow)
	if len(failures) == 0 {
		return ""
	}
	encoded, err := json.MarshalIndent(failures, "", "  ")
	if err != nil {
		return ""
	}
	return fmt.Sprintf("You have recently failed with the following errors. Do not repeat these mistakes. "+
		"Analyze the errors and create a new, different plan.\nRecent failures:\n%s", encoded)
}

const strictRetryTemplate = `
The previous response contained invalid JSON. Please provide ONLY a valid JSON object in this exact format:

` + "```json" + `
{
  "plan": [
    {"command": "command_name", "args": ["arg1", "arg2"]}
  ]
}
` + "```" + `

No other text, explanations, or formatting. Just the JSON object.

The user's request is: "%s" (detected OS: %s)`

func strictRetryPrompt(task, osName string) string {
	return fmt.Sprintf(strictRetryTemplate, task, osName)
}

const completionPromptTemplate = `
You are an expert AI assistant that determines task completion status.

**Task Analysis:**
Based on the execution history, determine if the user's request has been fully completed.

User request: "%s"
Recent execution history: %s

**Completion Rules:**
- A task is COMPLETE when the requested action has been successfully executed
- Failed commands indicate the task is NOT complete, unless the failure is expected
- Special case: A failed ` + "`which`" + ` command after an uninstall indicates SUCCESS (program was successfully removed)
- Exit code 0 generally indicates success
- Consider the specific nature of the user's request

**Response Format:**
Respond with only "COMPLETE" if the task is done, or "CONTINUE" if more work is needed.`

func completionPrompt(task string, history []domain.HistoryEntry) string {
	return fmt.Sprintf(completionPromptTemplate, task, encodeRecent(history, 5))
}

const sessionSummaryTemplate = `
You are an expert AI assistant that provides clear, concise summaries of completed technical tasks.

The user requested: "%s"

Based on the commands executed in this session, provide a brief, clear summary of what was accomplished.
Focus only on this current request and what was done to fulfill it.

**Guidelines:**
- Be specific about what was actually done
- Use technical language appropriately
- Confirm the outcome of the user's request
- Keep it concise but informative

Recent commands executed: %s

Provide a professional summary in 1-2 sentences.`

func sessionSummaryPrompt(task string, history []domain.HistoryEntry) string {
	return fmt.Sprintf(sessionSummaryTemplate, task, encodeRecent(history, 3))
}

const compressionPromptTemplate = `
Summarize the following conversation history into a concise summary that preserves important context:

%s

Provide a brief summary (max 500 chars) that captures:
- What commands were attempted
- Any important failures or successes
- Current system state relevant to future commands

Summary:`

func compressionPrompt(entries []domain.HistoryEntry) string {
	encoded, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		encoded = []byte("[]")
	}
	return fmt.Sprintf(compressionPromptTemplate, encoded)
}

// encodeRecent renders the last n history entries as indented JSON.
func encodeRecent(history []domain.HistoryEntry, n int) string {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	encoded, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return "[]"
	}
	return strings.TrimSpace(string(encoded))
}
