package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"atelier/internal/config"
	"atelier/internal/logging"
	"atelier/pkg/fileops"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
)

// PatternsSubdir is where the Fabric repository keeps its patterns.
var PatternsSubdir = filepath.Join("data", "patterns")

// DefaultDepth is the clone and fetch depth used by NewFabricRepo.
const DefaultDepth = 1

// DirectoryStatus represents the state of a target clone directory
type DirectoryStatus int

const (
	// DirectoryStatusEmpty indicates the directory doesn't exist or is empty - safe to clone
	DirectoryStatusEmpty DirectoryStatus = iota
	// DirectoryStatusSameRepo indicates the directory holds the same repository - safe to fetch
	DirectoryStatusSameRepo
	// DirectoryStatusDifferentRepo indicates the directory holds another repository
	DirectoryStatusDifferentRepo
	// DirectoryStatusConflict indicates the directory contains non-git content
	DirectoryStatusConflict
	// DirectoryStatusError indicates an error occurred during validation
	DirectoryStatusError
)

// String returns a human-readable description of the directory status
func (ds DirectoryStatus) String() string {
	switch ds {
	case DirectoryStatusEmpty:
		return "empty or doesn't exist"
	case DirectoryStatusSameRepo:
		return "same git repository"
	case DirectoryStatusDifferentRepo:
		return "different git repository"
	case DirectoryStatusConflict:
		return "contains non-git content"
	case DirectoryStatusError:
		return "validation error"
	default:
		return "unknown status"
	}
}

// SyncResult describes what Sync did.
type SyncResult struct {
	// PatternsDir is the patterns directory inside the checkout
	PatternsDir string
	// Cloned is true when the checkout was created by this call
	Cloned bool
	// Updated is true when a fetch moved the checkout to a new commit
	Updated bool
	// Skipped is true when local modifications prevented the update
	Skipped bool
}

// FabricRepo is a local checkout of the Fabric repository.
type FabricRepo struct {
	RemoteURL string // HTTPS, SSH (converted to HTTPS) or a local path
	Branch    string // Optional branch; empty follows the remote's HEAD
	Path      string // Checkout directory
	Depth     int    // Clone and fetch depth; 0 fetches full history

	credentials *CredentialManager
}

// NewFabricRepo builds a FabricRepo from the fabric configuration section.
func NewFabricRepo(cfg config.FabricConfig) FabricRepo {
	return FabricRepo{
		RemoteURL:   cfg.RepoURL,
		Branch:      cfg.RepoBranch,
		Path:        cfg.RepoPath,
		Depth:       DefaultDepth,
		credentials: NewCredentialManager(),
	}
}

// Sync clones or updates the checkout and returns its patterns directory.
func (r FabricRepo) Sync(ctx context.Context, logger *logging.AppLogger) (SyncResult, error) {
	if logger == nil {
		logger = logging.GetDefault()
	}
	logger.Info("Syncing Fabric repository",
		"remoteURL", r.RemoteURL,
		"branch", r.Branch,
		"localPath", r.Path)

	if err := r.validateInputs(); err != nil {
		return SyncResult{}, err
	}

	remoteURL, err := r.normalizeRemoteURL()
	if err != nil {
		return SyncResult{}, fmt.Errorf("invalid remote URL: %w", err)
	}

	localPath, err := r.localPath()
	if err != nil {
		return SyncResult{}, err
	}

	dirStatus, err := r.validateCloneDirectory(localPath, remoteURL)
	if dirStatus == DirectoryStatusConflict || dirStatus == DirectoryStatusDifferentRepo {
		return SyncResult{}, fmt.Errorf("directory conflict at %s (%s): please resolve manually by removing or relocating the existing directory",
			localPath, dirStatus.String())
	}
	if err != nil {
		return SyncResult{}, err
	}

	if err := ctx.Err(); err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{PatternsDir: filepath.Join(localPath, PatternsSubdir)}

	switch dirStatus {
	case DirectoryStatusEmpty:
		if err := withAuthFallback(r.credentials, logger, func(auth *http.BasicAuth) error {
			return r.clone(localPath, remoteURL, auth, logger)
		}); err != nil {
			return SyncResult{}, err
		}
		result.Cloned = true

	case DirectoryStatusSameRepo:
		var updated, skipped bool
		if err := withAuthFallback(r.credentials, logger, func(auth *http.BasicAuth) error {
			var ferr error
			updated, skipped, ferr = r.fetch(localPath, auth, logger)
			return ferr
		}); err != nil {
			return SyncResult{}, err
		}
		result.Updated = updated
		result.Skipped = skipped

	default:
		return SyncResult{}, fmt.Errorf("unexpected directory status: %s", dirStatus.String())
	}

	if !fileops.DirExists(result.PatternsDir) {
		return SyncResult{}, fmt.Errorf("repository has no %s directory: %s", PatternsSubdir, localPath)
	}

	logger.Info("Fabric repository ready", "patternsDir", result.PatternsDir,
		"cloned", result.Cloned, "updated", result.Updated, "skipped", result.Skipped)

	return result, nil
}

// validateInputs validates the FabricRepo configuration
func (r FabricRepo) validateInputs() error {
	if strings.TrimSpace(r.RemoteURL) == "" {
		return fmt.Errorf("remote URL cannot be empty")
	}
	if strings.TrimSpace(r.Path) == "" {
		return fmt.Errorf("local path cannot be empty")
	}
	return nil
}

// normalizeRemoteURL converts SSH URLs to HTTPS. Local paths and file://
// URLs pass through unchanged.
func (r FabricRepo) normalizeRemoteURL() (string, error) {
	remote := strings.TrimSpace(r.RemoteURL)

	if isLocalRemote(remote) {
		return remote, nil
	}

	info, err := ParseGitURL(remote)
	if err != nil {
		return "", fmt.Errorf("invalid Git URL format: %w", err)
	}

	return fmt.Sprintf("https://%s/%s/%s.git", info.Host, info.Owner, info.Repo), nil
}

func isLocalRemote(remote string) bool {
	return strings.HasPrefix(remote, "file://") || filepath.IsAbs(remote)
}

// localPath expands and absolutizes the checkout directory.
func (r FabricRepo) localPath() (string, error) {
	clean := filepath.Clean(fileops.ExpandPath(r.Path))

	abs, err := filepath.Abs(clean)
	if err != nil {
		return "", fmt.Errorf("cannot resolve absolute path: %w", err)
	}

	return abs, nil
}

// withAuthFallback runs op without credentials first and retries once with
// the GitHub token when the remote rejects anonymous access.
func withAuthFallback(creds *CredentialManager, logger *logging.AppLogger, op func(*http.BasicAuth) error) error {
	err := op(nil)
	if err == nil || !isAuthenticationError(err) {
		return err
	}

	logger.Debug("Public access failed, trying with authentication")

	if creds == nil {
		creds = NewCredentialManager()
	}
	token, tokenErr := creds.GitHubToken()
	if tokenErr != nil {
		return fmt.Errorf("GitHub authentication required: %w", tokenErr)
	}

	// GitHub PAT authentication uses "token" as username
	return op(&http.BasicAuth{Username: "token", Password: token})
}

func (r FabricRepo) clone(localPath, remoteURL string, auth *http.BasicAuth, logger *logging.AppLogger) error {
	logger.Info("Cloning repository", "remoteURL", remoteURL, "localPath", localPath)

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	cloneOpts := &git.CloneOptions{
		URL:   remoteURL,
		Depth: r.Depth,
	}
	if auth != nil {
		cloneOpts.Auth = auth
	}
	if r.Branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(r.Branch)
		cloneOpts.SingleBranch = true
	}

	if _, err := git.PlainClone(localPath, cloneOpts); err != nil {
		// go-git leaves a partial checkout behind on failure
		_ = os.RemoveAll(localPath)
		return r.translateCloneError(err)
	}

	logger.Info("Repository cloned successfully", "localPath", localPath)
	return nil
}

// fetch updates an existing checkout and hard-resets it to the remote branch.
// A dirty working tree is reported as skipped, not as an error.
func (r FabricRepo) fetch(localPath string, auth *http.BasicAuth, logger *logging.AppLogger) (updated, skipped bool, err error) {
	logger.Info("Fetching repository updates", "localPath", localPath)

	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return false, false, fmt.Errorf("failed to open existing repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return false, false, fmt.Errorf("failed to get working tree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return false, false, fmt.Errorf("failed to get working tree status: %w", err)
	}
	if !status.IsClean() {
		logger.Warn("Working tree has uncommitted changes, skipping sync", "localPath", localPath)
		return false, true, nil
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return false, false, fmt.Errorf("failed to get origin remote: %w", err)
	}

	err = remote.Fetch(&git.FetchOptions{
		Auth:  auth,
		Depth: r.Depth,
		Force: true, // Force update to handle force-pushes
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return false, false, r.translateFetchError(err)
	}

	branch := r.Branch
	if branch == "" {
		head, err := repo.Head()
		if err != nil {
			return false, false, fmt.Errorf("failed to get current branch: %w", err)
		}
		branch = head.Name().Short()
	} else if err := checkoutBranch(repo, worktree, branch, logger); err != nil {
		return false, false, err
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return false, false, fmt.Errorf("branch '%s' does not exist on remote 'origin'", branch)
	}

	head, err := repo.Head()
	if err != nil {
		return false, false, fmt.Errorf("failed to get HEAD: %w", err)
	}
	if head.Hash() == remoteRef.Hash() {
		logger.Debug("Repository already up to date")
		return false, false, nil
	}

	if err := worktree.Reset(&git.ResetOptions{
		Commit: remoteRef.Hash(),
		Mode:   git.HardReset,
	}); err != nil {
		return false, false, fmt.Errorf("failed to reset to remote branch: %w", err)
	}

	logger.Info("Repository updated successfully", "commit", remoteRef.Hash().String())
	return true, false, nil
}

// checkoutBranch switches to branchName, creating the local branch from
// origin when it doesn't exist yet.
func checkoutBranch(repo *git.Repository, worktree *git.Worktree, branchName string, logger *logging.AppLogger) error {
	head, err := repo.Head()
	if err != nil && !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("failed to get current branch: %w", err)
	}
	if head != nil && head.Name().Short() == branchName {
		return nil
	}

	logger.Debug("Checking out branch", "branch", branchName)

	localBranchRef := plumbing.NewBranchReferenceName(branchName)
	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", branchName), true)
	if err != nil {
		return fmt.Errorf("branch '%s' does not exist on remote 'origin'", branchName)
	}

	_, err = repo.Reference(localBranchRef, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		newRef := plumbing.NewHashReference(localBranchRef, remoteRef.Hash())
		if err := repo.Storer.SetReference(newRef); err != nil {
			return fmt.Errorf("failed to create local branch: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to get local branch reference: %w", err)
	}

	if err := worktree.Checkout(&git.CheckoutOptions{Branch: localBranchRef}); err != nil {
		return fmt.Errorf("failed to checkout branch: %w", err)
	}

	logger.Info("Checked out branch", "branch", branchName)
	return nil
}

// translateCloneError turns go-git clone failures into actionable messages.
func (r FabricRepo) translateCloneError(err error) error {
	errStr := strings.ToLower(err.Error())

	if containsAuthErrorPatterns(errStr) {
		if strings.Contains(errStr, "403") || strings.Contains(errStr, "forbidden") {
			return fmt.Errorf("GitHub token lacks required permissions: %w", err)
		}
		return fmt.Errorf("GitHub authentication failed: %w", err)
	}

	if strings.Contains(errStr, "404") || strings.Contains(errStr, "not found") {
		return fmt.Errorf("repository not found - check the URL or ensure you have access: %s: %w", r.RemoteURL, err)
	}

	if strings.Contains(errStr, "network") || strings.Contains(errStr, "connection") || strings.Contains(errStr, "timeout") {
		return fmt.Errorf("network error during clone - check your internet connection and try again: %w", err)
	}

	return fmt.Errorf("failed to clone repository: %w", err)
}

// translateFetchError turns go-git fetch failures into actionable messages.
func (r FabricRepo) translateFetchError(err error) error {
	errStr := strings.ToLower(err.Error())

	if containsAuthErrorPatterns(errStr) {
		return fmt.Errorf("GitHub token has expired or is invalid: %w", err)
	}

	if strings.Contains(errStr, "network") || strings.Contains(errStr, "connection") || strings.Contains(errStr, "timeout") {
		return fmt.Errorf("network error during fetch - existing patterns are unchanged: %w", err)
	}

	return fmt.Errorf("failed to fetch repository updates: %w", err)
}

func isAuthenticationError(err error) bool {
	if err == nil {
		return false
	}
	return containsAuthErrorPatterns(strings.ToLower(err.Error()))
}

func containsAuthErrorPatterns(errStr string) bool {
	for _, pattern := range []string{
		"authentication required",
		"401",
		"unauthorized",
		"403",
		"forbidden",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// GitURLInfo contains the parsed components of a Git repository URL.
type GitURLInfo struct {
	Host  string // Host (e.g., "github.com")
	Owner string // Repository owner/organization
	Repo  string // Repository name (without .git suffix)
}

var sshURLPattern = regexp.MustCompile(`^git@([^:]+):([^/]+)/(.+?)(?:\.git)?$`)

// ParseGitURL parses SSH (git@host:owner/repo.git) and HTTPS
// (https://host/owner/repo.git) repository URLs.
//
//	info, err := repository.ParseGitURL("https://github.com/danielmiessler/fabric.git")
//	// info.Host = "github.com", info.Owner = "danielmiessler", info.Repo = "fabric"
func ParseGitURL(gitURL string) (GitURLInfo, error) {
	gitURL = strings.TrimSpace(gitURL)

	if matches := sshURLPattern.FindStringSubmatch(gitURL); matches != nil {
		return GitURLInfo{
			Host:  matches[1],
			Owner: matches[2],
			Repo:  matches[3],
		}, nil
	}

	parsedURL, err := url.Parse(gitURL)
	if err != nil {
		return GitURLInfo{}, fmt.Errorf("invalid URL format: %w", err)
	}

	if parsedURL.Host == "" {
		return GitURLInfo{}, fmt.Errorf("URL missing host component")
	}

	pathParts := strings.Split(strings.Trim(parsedURL.Path, "/"), "/")
	if len(pathParts) < 2 {
		return GitURLInfo{}, fmt.Errorf("URL path should contain owner/repo: %s", parsedURL.Path)
	}

	owner := pathParts[0]
	repo := strings.TrimSuffix(pathParts[1], ".git")

	if owner == "" || repo == "" {
		return GitURLInfo{}, fmt.Errorf("could not extract owner/repo from URL path: %s", parsedURL.Path)
	}

	return GitURLInfo{
		Host:  parsedURL.Host,
		Owner: owner,
		Repo:  repo,
	}, nil
}

// validateCloneDirectory classifies clonePath relative to expectedRemoteURL.
// Only DirectoryStatusEmpty and DirectoryStatusSameRepo are safe to proceed.
func (r FabricRepo) validateCloneDirectory(clonePath, expectedRemoteURL string) (DirectoryStatus, error) {
	info, err := os.Stat(clonePath)
	if errors.Is(err, os.ErrNotExist) {
		return DirectoryStatusEmpty, nil
	}
	if err != nil {
		return DirectoryStatusError, fmt.Errorf("cannot access directory %s: %w", clonePath, err)
	}

	if !info.IsDir() {
		return DirectoryStatusConflict, fmt.Errorf("path exists but is not a directory: %s", clonePath)
	}

	isEmpty, err := fileops.IsDirEmpty(clonePath)
	if err != nil {
		return DirectoryStatusError, fmt.Errorf("cannot check if directory is empty: %w", err)
	}
	if isEmpty {
		return DirectoryStatusEmpty, nil
	}

	currentRemote, err := getGitRemoteURL(clonePath)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return DirectoryStatusConflict, fmt.Errorf("directory contains non-git content: %s", clonePath)
		}
		return DirectoryStatusError, fmt.Errorf("cannot get current git remote URL: %w", err)
	}

	if normalizeGitURL(currentRemote) == normalizeGitURL(expectedRemoteURL) {
		return DirectoryStatusSameRepo, nil
	}

	return DirectoryStatusDifferentRepo, fmt.Errorf("directory contains different git repository (current: %s, expected: %s)", currentRemote, expectedRemoteURL)
}

// getGitRemoteURL returns the first URL of the origin remote. A path that is
// not a repository yields an error wrapping git.ErrRepositoryNotExists.
func getGitRemoteURL(repoPath string) (string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("cannot open git repository %s: %w", repoPath, err)
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("cannot get origin remote: %w", err)
	}

	cfg := remote.Config()
	if cfg == nil || len(cfg.URLs) == 0 {
		return "", fmt.Errorf("no URLs configured for origin remote")
	}

	return cfg.URLs[0], nil
}

var sshNormalizePattern = regexp.MustCompile(`^git@([^:]+):(.+)$`)

// normalizeGitURL reduces SSH and HTTPS forms of the same repository to one
// comparable string.
func normalizeGitURL(gitURL string) string {
	gitURL = strings.TrimSpace(gitURL)
	gitURL = strings.TrimSuffix(gitURL, ".git")

	if matches := sshNormalizePattern.FindStringSubmatch(gitURL); matches != nil {
		return matches[1] + "/" + matches[2]
	}

	for _, scheme := range []string{"https://", "http://", "file://"} {
		if after, found := strings.CutPrefix(gitURL, scheme); found {
			return after
		}
	}

	return gitURL
}
