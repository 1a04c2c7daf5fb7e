package artifacts

// UploadResult projects a completed, durable object-store write. The store
// itself is the source of truth; this struct is returned once and never
// mutated.
type UploadResult struct {
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Region string `json:"region"`
}
