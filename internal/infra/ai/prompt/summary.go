package prompt

import "fmt"

// GetSystemPrompt returns the system role prompt for report summaries.
func GetSystemPrompt() string {
	return `You are a senior software engineer reviewing automated repository
analysis reports. Given a report URL, produce one short plain-text sentence
describing the repository's size and dominant languages. Do not speculate
beyond the report contents.`
}

// GetUserPrompt returns the user role prompt for a stored report.
func GetUserPrompt(reportURL string) string {
	return fmt.Sprintf("Summarize the repository analysis report at %s in one sentence.", reportURL)
}
