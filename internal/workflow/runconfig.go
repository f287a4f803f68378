package workflow

// RunConfig is the derived per-run configuration artifact. It is created
// once by the configuration phase, persisted to the shared store, and read
// by every later job as read-only input. Mutation after configuration
// replaces the whole object via a fresh dump, never a partial edit.
type RunConfig struct {
	Name string `json:"name"`
	SHA  string `json:"sha"`

	DigestJobs    map[string]string `json:"digest_jobs"`
	DigestDockers map[string]string `json:"digest_dockers"`

	// Cache bookkeeping, filled in by the cache subsystem.
	CacheSuccess   []string          `json:"cache_success"`
	CacheArtifacts map[string]string `json:"cache_artifacts"`
	CacheJobs      map[string]string `json:"cache_jobs"`
}

// NewRunConfig returns an empty RunConfig for the given workflow run.
func NewRunConfig(name, sha string) *RunConfig {
	return &RunConfig{
		Name:           name,
		SHA:            sha,
		DigestJobs:     map[string]string{},
		DigestDockers:  map[string]string{},
		CacheSuccess:   []string{},
		CacheArtifacts: map[string]string{},
		CacheJobs:      map[string]string{},
	}
}

// IsCacheHit reports whether the named job was satisfied from cache.
func (rc *RunConfig) IsCacheHit(job string) bool {
	for _, name := range rc.CacheSuccess {
		if name == job {
			return true
		}
	}
	return false
}
