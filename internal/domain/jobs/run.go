package jobs

// RunRequest untuk Runner
type RunRequest struct {
	RepoURL string
	Branch  string
}

// RunResult hasil dari Runner
type RunResult struct {
	LocalReportPath string
	RawFormat       string
	DurationMS      int64
}
