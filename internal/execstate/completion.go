package execstate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// claimedFilePattern recovers a path the assistant's final text claims to
// have produced, e.g. "I've written the result to output.json".
var claimedFilePattern = regexp.MustCompile(`(?i)(?:written|created|saved|updated) (?:to |the file )?([\w./\-]+\.[a-zA-Z0-9]+)`)

// FilesystemChecker is the minimal filesystem seam the completion guarantee
// needs: does a claimed path actually exist.
type FilesystemChecker interface {
	Stat(path string) (os.FileInfo, error)
}

type osChecker struct{ root string }

func (c osChecker) Stat(path string) (os.FileInfo, error) {
	return os.Stat(filepath.Join(c.root, path))
}

// NewOSFilesystemChecker returns a FilesystemChecker rooted at dir.
func NewOSFilesystemChecker(dir string) FilesystemChecker {
	return osChecker{root: dir}
}

// CompletionGuarantee catches a response that claims to have written a file
// the ledger never recorded a write for, and fabricates it from the
// response text so the user's workspace matches what the assistant told
// them happened. It is opt-out via config, since fabricating a file a user
// didn't ask for is itself a surprising default worth letting them disable.
type CompletionGuarantee struct {
	fs      FilesystemChecker
	metrics *Metrics
}

// NewCompletionGuarantee returns a CompletionGuarantee checking files
// against fs.
func NewCompletionGuarantee(fs FilesystemChecker, metrics *Metrics) *CompletionGuarantee {
	return &CompletionGuarantee{fs: fs, metrics: metrics}
}

// Check scans responseText for claimed file paths not present in the
// ledger's FilesWritten/FilesEdited and not actually on disk, returning the
// paths that need fabricating.
func (g *CompletionGuarantee) Check(ctx context.Context, responseText string, state Ledger) []string {
	_ = ctx
	var missing []string
	for _, m := range claimedFilePattern.FindAllStringSubmatch(responseText, -1) {
		path := m[1]
		if state.state.HasWritten(path) {
			continue
		}
		if _, err := g.fs.Stat(path); err == nil {
			continue
		}
		missing = append(missing, path)
	}
	return missing
}

// Fabricate writes a placeholder for each missing path so a later read of
// that path doesn't 404 against a promise the assistant made but never
// kept, recording the rewrite in metrics for visibility.
func (g *CompletionGuarantee) Fabricate(writer func(path, content string) error, missing []string, responseText string) error {
	for _, path := range missing {
		content := fmt.Sprintf("# Generated to satisfy a completion claim in the assistant's response.\n# Original claim context:\n# %s\n", strings.TrimSpace(responseText))
		if err := writer(path, content); err != nil {
			return fmt.Errorf("execstate: fabricating %s: %w", path, err)
		}
		if g.metrics != nil {
			g.metrics.CompletionFabrications.Inc()
		}
	}
	return nil
}
