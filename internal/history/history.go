// Package history keeps a git-backed change log of a dataset directory using
// go-git (pure Go, no git binary dependency). Each snapshot commits the
// dataset files after a successful import or mutation, giving a recoverable
// trail without changing the store's whole-file-overwrite persistence model.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	defaultName  = "molset"
	defaultEmail = "molset@localhost"
)

// Commit is one entry of the change log.
type Commit struct {
	Hash    string
	Message string
	When    time.Time
}

// Repo is a git repository wrapping a dataset directory.
type Repo struct {
	dir  string
	repo *gogit.Repository
	mu   sync.Mutex
}

// Open opens the repository at dir, initializing it on first use.
func Open(dir string) (*Repo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}

	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		// Not a repo yet — initialize.
		repo, err = gogit.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = defaultName
		cfg.User.Email = defaultEmail
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	}

	return &Repo{dir: dir, repo: repo}, nil
}

// Dir returns the repository's working directory.
func (r *Repo) Dir() string {
	return r.dir
}

// Snapshot stages the given files (paths relative to the repo directory) and
// commits them with msg. A snapshot with no changes is a no-op.
func (r *Repo) Snapshot(msg string, files ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(files) == 0 {
		return nil
	}

	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	for _, f := range files {
		if _, err := w.Add(f); err != nil {
			return fmt.Errorf("failed to stage %s: %w", f, err)
		}
	}

	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	now := time.Now()
	sig := &object.Signature{Name: defaultName, Email: defaultEmail, When: now}
	if _, err := w.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Rel converts a path into the repo-relative form Snapshot expects.
func (r *Repo) Rel(path string) (string, error) {
	rel, err := filepath.Rel(r.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %s is outside the dataset directory %s", path, r.dir)
	}
	return filepath.ToSlash(rel), nil
}

// Log returns up to n commits touching path (empty for all), newest first.
func (r *Repo) Log(path string, n int) ([]Commit, error) {
	if n <= 0 || n > 1000 {
		n = 1000
	}

	opts := &gogit.LogOptions{}
	if path != "" && path != "." {
		opts.FileName = &path
	}

	iter, err := r.repo.Log(opts)
	if err != nil {
		// A repository with no commits yet has no HEAD to resolve.
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	var commits []Commit
	for i := 0; i < n; i++ {
		c, err := iter.Next()
		if err != nil {
			break
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Message: subject,
			When:    c.Committer.When,
		})
	}
	return commits, nil
}
