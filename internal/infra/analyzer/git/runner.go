package git

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	domain "github.com/bryanwahyu/repo-analyzer-api/internal/domain/jobs"
)

// languageByExt is a coarse mapping; anything unknown counts as "other".
var languageByExt = map[string]string{
	".go":   "Go",
	".rs":   "Rust",
	".js":   "JavaScript",
	".jsx":  "JavaScript",
	".ts":   "TypeScript",
	".tsx":  "TypeScript",
	".py":   "Python",
	".rb":   "Ruby",
	".java": "Java",
	".kt":   "Kotlin",
	".c":    "C",
	".h":    "C",
	".cpp":  "C++",
	".cs":   "C#",
	".php":  "PHP",
	".sh":   "Shell",
	".md":   "Markdown",
	".yml":  "YAML",
	".yaml": "YAML",
	".json": "JSON",
	".html": "HTML",
	".css":  "CSS",
	".sql":  "SQL",
}

// Report is the JSON analysis artifact uploaded to the object store.
type Report struct {
	RepoURL     string         `json:"repo_url"`
	Branch      string         `json:"branch,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
	Files       int            `json:"files"`
	Lines       int            `json:"lines"`
	Bytes       int64          `json:"bytes"`
	Languages   map[string]int `json:"languages"`
}

// Runner clones a repository shallowly with the git CLI and produces a local
// JSON report file. The caller owns uploading and removing the report.
type Runner struct{}

func NewRunner() *Runner { return &Runner{} }

func (r *Runner) Run(ctx context.Context, req domain.RunRequest, report domain.ProgressFunc) (domain.RunResult, error) {
	start := time.Now()

	workDir, err := os.MkdirTemp("", "repo-analyzer-*")
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("create work dir: %w", err)
	}
	cloneDir := filepath.Join(workDir, "repo")
	defer os.RemoveAll(cloneDir)

	report(10, "Cloning repository")

	args := []string{"clone", "--depth", "1", "--single-branch"}
	if req.Branch != "" {
		args = append(args, "--branch", req.Branch)
	}
	args = append(args, "--", req.RepoURL, cloneDir)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		os.RemoveAll(workDir)
		return domain.RunResult{}, fmt.Errorf("git clone: %v, output=%s", err, strings.TrimSpace(string(out)))
	}

	report(50, "Scanning repository")

	rep := Report{
		RepoURL:     req.RepoURL,
		Branch:      req.Branch,
		GeneratedAt: start.UTC(),
		Languages:   map[string]int{},
	}
	err = filepath.WalkDir(cloneDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rep.Files++
		rep.Bytes += info.Size()

		lang, ok := languageByExt[strings.ToLower(filepath.Ext(path))]
		if !ok {
			lang = "other"
		}
		rep.Languages[lang]++

		lines, err := countLines(path)
		if err != nil {
			return err
		}
		rep.Lines += lines
		return nil
	})
	if err != nil {
		os.RemoveAll(workDir)
		return domain.RunResult{}, fmt.Errorf("scan repository: %w", err)
	}

	report(90, "Writing analysis report")

	reportPath := filepath.Join(workDir, "analysis.json")
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		os.RemoveAll(workDir)
		return domain.RunResult{}, err
	}
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		os.RemoveAll(workDir)
		return domain.RunResult{}, fmt.Errorf("write report: %w", err)
	}

	return domain.RunResult{
		LocalReportPath: reportPath,
		RawFormat:       "json",
		DurationMS:      time.Since(start).Milliseconds(),
	}, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
	}
	if err := sc.Err(); err != nil {
		// Binary files trip the scanner; count them as zero lines.
		return 0, nil
	}
	return n, nil
}
