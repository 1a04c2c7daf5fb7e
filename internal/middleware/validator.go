package middleware

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

// ValidateRepoURL validates repository URLs submitted for analysis.
func ValidateRepoURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("repository URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (allowed: http, https)", u.Scheme)
	}

	// Check for localhost/internal IPs (SSRF protection)
	host := strings.ToLower(u.Hostname())
	blocked := []string{"localhost", "127.0.0.1", "0.0.0.0", "[::]", "::1"}
	for _, b := range blocked {
		if strings.Contains(host, b) {
			return fmt.Errorf("localhost/internal IPs are not allowed")
		}
	}

	// Block private IP ranges (basic check)
	if strings.HasPrefix(host, "10.") ||
		strings.HasPrefix(host, "192.168.") ||
		strings.HasPrefix(host, "172.16.") ||
		strings.HasPrefix(host, "172.31.") {
		return fmt.Errorf("private IP ranges are not allowed")
	}

	return nil
}

// ValidateBranch validates git branch names passed to the analyzer.
func ValidateBranch(branch string) error {
	if branch == "" {
		return nil // Optional field
	}

	pattern := `^[a-zA-Z0-9._/-]{1,255}$`
	matched, _ := regexp.MatchString(pattern, branch)
	if !matched {
		return fmt.Errorf("invalid branch name")
	}
	if strings.Contains(branch, "..") || strings.HasPrefix(branch, "-") {
		return fmt.Errorf("invalid branch name")
	}
	return nil
}

// ValidateObjectKey validates caller-supplied storage keys.
func ValidateObjectKey(key string) error {
	if key == "" {
		return nil // Optional field, generator takes over
	}

	cleaned := path.Clean(key)

	// Block path traversal attempts
	if strings.Contains(cleaned, "..") || strings.HasPrefix(cleaned, "/") {
		return fmt.Errorf("path traversal detected")
	}

	// Block dangerous patterns
	dangerous := []string{"$(", "`", "&", "|", ";", "\n", "\r", "\x00"}
	for _, d := range dangerous {
		if strings.Contains(key, d) {
			return fmt.Errorf("invalid characters in key")
		}
	}

	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
