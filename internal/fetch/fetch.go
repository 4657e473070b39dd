// Package fetch materialises a repository in a temporary workspace and
// enumerates its tracked files.
package fetch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/christikaes/macaroni-arch/internal/errors"
	"github.com/christikaes/macaroni-arch/internal/logging"
	"github.com/christikaes/macaroni-arch/internal/progress"
)

// Result describes a materialised repository.
type Result struct {
	// Root is the workspace directory holding the working tree. When the
	// input was a local directory, Root points at it and Workspace is empty.
	Root string

	// Workspace is the temporary directory owned by this fetch, "" when the
	// input was analysed in place. The caller destroys it via Cleanup.
	Workspace string

	// Files are the repo-relative tracked file paths, forward-slash form.
	Files []string

	// Branch is the current branch label reported by the VCS.
	Branch string
}

// Cleanup removes the temporary workspace, if any. Safe to call repeatedly.
func (r *Result) Cleanup() {
	if r != nil && r.Workspace != "" {
		_ = os.RemoveAll(r.Workspace)
		r.Workspace = ""
	}
}

// Fetcher acquires repositories via the git CLI.
type Fetcher struct {
	logger *logging.Logger
	depth  int
}

// New creates a fetcher performing shallow clones of the given depth.
func New(logger *logging.Logger, depth int) *Fetcher {
	if depth < 1 {
		depth = 1
	}
	return &Fetcher{logger: logger, depth: depth}
}

// Fetch materialises the repository at url. Remote URLs are shallow-cloned
// into a fresh temporary workspace; an existing local directory is analysed
// in place. Clone progress is parsed from git's stderr and forwarded to sink.
// On failure the workspace is cleaned up before returning.
func (f *Fetcher) Fetch(ctx context.Context, url string, sink *progress.Sink) (*Result, error) {
	if info, err := os.Stat(url); err == nil && info.IsDir() {
		return f.fetchLocal(url)
	}

	workspace, err := os.MkdirTemp("", "macaroni-*")
	if err != nil {
		return nil, errors.New(errors.FetchFailed, "failed to create workspace", err)
	}

	root := filepath.Join(workspace, "repo")
	if err := f.clone(ctx, url, root, sink); err != nil {
		_ = os.RemoveAll(workspace)
		return nil, err
	}

	result := &Result{Root: root, Workspace: workspace}
	result.Branch = f.currentBranch(ctx, root)
	result.Files, err = f.lsFiles(ctx, root)
	if err != nil {
		result.Cleanup()
		return nil, err
	}

	f.logger.Info("Repository fetched", logging.Fields{
		"url":    url,
		"branch": result.Branch,
		"files":  len(result.Files),
	})
	return result, nil
}

func (f *Fetcher) clone(ctx context.Context, url, dest string, sink *progress.Sink) error {
	args := []string{
		"clone",
		"--depth", fmt.Sprintf("%d", f.depth),
		"--single-branch",
		"--no-tags",
		"--progress",
		url,
		dest,
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.New(errors.FetchFailed, "failed to open clone stderr", err)
	}

	if err := cmd.Start(); err != nil {
		return errors.New(errors.FetchFailed, "failed to start git clone", err)
	}

	streamCloneProgress(stderr, sink)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return errors.New(errors.Cancelled, "clone cancelled", ctx.Err())
		}
		return errors.New(errors.FetchFailed, "git clone failed for "+url, err)
	}
	return nil
}

// streamCloneProgress parses git's phase lines ("Receiving objects: 42% ...")
// and emits a message at phase changes or when the percentage advances by at
// least 5 points.
func streamCloneProgress(stderr io.Reader, sink *progress.Sink) {
	scanner := bufio.NewScanner(stderr)
	scanner.Split(scanCloneLines)

	lastPhase := ""
	lastPercent := -100

	for scanner.Scan() {
		phase, percent, ok := parseCloneLine(scanner.Text())
		if !ok {
			continue
		}
		if phase != lastPhase || percent >= lastPercent+5 {
			lastPhase = phase
			lastPercent = percent
			if percent >= 0 {
				sink.Send(fmt.Sprintf("%s: %d%%", phase, percent))
			} else {
				sink.Send(phase)
			}
		}
	}
}

// scanCloneLines splits on both \n and \r; git rewrites progress lines with
// carriage returns.
func scanCloneLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// parseCloneLine extracts the phase name and percentage from a git progress
// line. Lines without a percentage yield percent -1.
func parseCloneLine(line string) (phase string, percent int, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", 0, false
	}

	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", 0, false
	}
	phase = line[:idx]

	switch phase {
	case "warning", "fatal", "error", "hint":
		return "", 0, false
	}

	rest := strings.TrimSpace(line[idx+1:])
	if pctEnd := strings.Index(rest, "%"); pctEnd > 0 {
		var pct int
		if _, err := fmt.Sscanf(rest[:pctEnd], "%d", &pct); err == nil {
			return phase, pct, true
		}
	}
	return phase, -1, true
}

func (f *Fetcher) currentBranch(ctx context.Context, root string) string {
	cmd := exec.CommandContext(ctx, "git", "-C", root, "rev-parse", "--abbrev-ref", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

// lsFiles lists tracked files via git, which respects ignore rules for free.
func (f *Fetcher) lsFiles(ctx context.Context, root string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", root, "ls-files")
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.New(errors.FetchFailed, "git ls-files failed", err)
	}

	var files []string
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files = append(files, filepath.ToSlash(line))
		}
	}
	sort.Strings(files)
	return files, nil
}

// fetchLocal analyses an existing directory in place: a git working tree is
// enumerated via ls-files, anything else with a gitignore-aware walk.
func (f *Fetcher) fetchLocal(dir string) (*Result, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.New(errors.FetchFailed, "cannot resolve local path", err)
	}

	result := &Result{Root: abs, Branch: "local"}

	if info, err := os.Stat(filepath.Join(abs, ".git")); err == nil && info.IsDir() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		result.Branch = f.currentBranch(ctx, abs)
		result.Files, err = f.lsFiles(ctx, abs)
		if err == nil {
			return result, nil
		}
		f.logger.Warn("git ls-files failed for local repo, falling back to walk", logging.Fields{
			"dir": abs,
		})
	}

	result.Files, err = walkLocal(abs)
	if err != nil {
		return nil, errors.New(errors.FetchFailed, "failed to enumerate local directory", err)
	}
	return result, nil
}

func walkLocal(root string) ([]string, error) {
	var gi *ignore.GitIgnore
	if compiled, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		gi = compiled
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if name == ".git" {
				return filepath.SkipDir
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr == nil && gi != nil && gi.MatchesPath(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// TreeSize sums the on-disk size of every regular file under root. Used to
// enforce the max-repo-size cap after the fetch and before analysis; the file
// listing has already run by then.
func TreeSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
