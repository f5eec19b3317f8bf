// Package archive keeps a git-backed, human-readable copy of the captured
// corpus: one markdown card per record, one commit per mutation. It is a
// durability supplement to the store, never a read path for the projection.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"orbit/api/internal/store"
)

const authorName = "orbit"

// CommitInfo describes one archive commit.
type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service owns a single repository for the whole corpus.
type Service struct {
	baseDir string
	mu      sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{baseDir: baseDir}
}

func (s *Service) repoPath() string {
	return filepath.Join(s.baseDir, "corpus")
}

func cardFile(recordID string) string {
	return filepath.Join("cards", recordID+".md")
}

// Ensure initializes the repository if it does not exist yet.
func (s *Service) Ensure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked()
}

func (s *Service) ensureLocked() error {
	path := s.repoPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat repo path: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(path, "cards"), 0o755); err != nil {
		return fmt.Errorf("create repo dir: %w", err)
	}

	repo, err := git.PlainInit(path, false)
	if err != nil {
		return fmt.Errorf("init repo: %w", err)
	}

	if err := os.WriteFile(filepath.Join(path, "README.md"), []byte("# Orbit corpus archive\n\nOne markdown card per captured record.\n"), 0o644); err != nil {
		return fmt.Errorf("write readme: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Add("README.md"); err != nil {
		return fmt.Errorf("git add readme: %w", err)
	}
	hash, err := worktree.Commit("Initialize corpus archive", commitOptions())
	if err != nil {
		return fmt.Errorf("commit baseline: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), hash)); err != nil {
		return fmt.Errorf("set main branch ref: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return fmt.Errorf("set HEAD to main: %w", err)
	}
	return nil
}

// RecordCaptured writes the record's card and commits it.
func (s *Service) RecordCaptured(rec store.KnowledgeRecord) (CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(); err != nil {
		return CommitInfo{}, err
	}
	repo, err := git.PlainOpen(s.repoPath())
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open repo: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}

	rel := cardFile(rec.ID)
	full := filepath.Join(s.repoPath(), rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return CommitInfo{}, fmt.Errorf("create cards dir: %w", err)
	}
	if err := os.WriteFile(full, []byte(renderCard(rec)), 0o644); err != nil {
		return CommitInfo{}, fmt.Errorf("write card: %w", err)
	}
	if _, err := worktree.Add(rel); err != nil {
		return CommitInfo{}, fmt.Errorf("git add card: %w", err)
	}
	return s.commit(repo, worktree, fmt.Sprintf("Capture %q", rec.Word))
}

// RecordDeleted removes the record's card and commits the removal. A card
// that was never archived is not an error.
func (s *Service) RecordDeleted(recordID, word string) (CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(); err != nil {
		return CommitInfo{}, err
	}
	repo, err := git.PlainOpen(s.repoPath())
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open repo: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}

	rel := cardFile(recordID)
	if _, err := os.Stat(filepath.Join(s.repoPath(), rel)); errors.Is(err, os.ErrNotExist) {
		return CommitInfo{}, nil
	}
	if _, err := worktree.Remove(rel); err != nil {
		return CommitInfo{}, fmt.Errorf("git rm card: %w", err)
	}
	message := fmt.Sprintf("Delete %q", word)
	if word == "" {
		message = fmt.Sprintf("Delete record %s", recordID)
	}
	return s.commit(repo, worktree, message)
}

// Reset removes every card and commits the purge.
func (s *Service) Reset() (CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(); err != nil {
		return CommitInfo{}, err
	}
	repo, err := git.PlainOpen(s.repoPath())
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open repo: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}

	cardsDir := filepath.Join(s.repoPath(), "cards")
	entries, err := os.ReadDir(cardsDir)
	if errors.Is(err, os.ErrNotExist) {
		return CommitInfo{}, nil
	}
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read cards dir: %w", err)
	}
	removed := false
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		if _, err := worktree.Remove(filepath.Join("cards", entry.Name())); err != nil {
			return CommitInfo{}, fmt.Errorf("git rm %s: %w", entry.Name(), err)
		}
		removed = true
	}
	if !removed {
		return CommitInfo{}, nil
	}
	return s.commit(repo, worktree, "Reset corpus")
}

// History lists the most recent archive commits, newest first.
func (s *Service) History(limit int) ([]CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	repo, err := git.PlainOpen(s.repoPath())
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("open repo: %w", err)
	}
	iter, err := repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	var history []CommitInfo
	err = iter.ForEach(func(c *object.Commit) error {
		history = append(history, toCommitInfo(c))
		if len(history) >= limit {
			return errStopIteration
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CreatedAt.After(history[j].CreatedAt)
	})
	return history, nil
}

var errStopIteration = errors.New("stop iteration")

func (s *Service) commit(repo *git.Repository, worktree *git.Worktree, message string) (CommitInfo, error) {
	hash, err := worktree.Commit(message, commitOptions())
	if err != nil {
		return CommitInfo{}, fmt.Errorf("commit: %w", err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

func commitOptions() *git.CommitOptions {
	return &git.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorName + "@local.orbit.dev",
			When:  time.Now(),
		},
	}
}

func toCommitInfo(commitObj *object.Commit) CommitInfo {
	return CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.TrimSpace(commitObj.Message),
		CreatedAt: commitObj.Author.When,
	}
}

func renderCard(rec store.KnowledgeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rec.Word)
	fmt.Fprintf(&b, "- Category: %s\n", rec.Category)
	if !rec.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- Captured: %s\n", rec.CreatedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "\n%s\n", rec.Summary)
	if rec.Analogy != "" {
		fmt.Fprintf(&b, "\n> %s\n", rec.Analogy)
	}
	if len(rec.KeyPlayers) > 0 {
		b.WriteString("\n## Key players\n\n")
		for _, p := range rec.KeyPlayers {
			if p.Role != "" {
				fmt.Fprintf(&b, "- %s: %s\n", p.Name, p.Role)
			} else {
				fmt.Fprintf(&b, "- %s\n", p.Name)
			}
		}
	}
	if len(rec.Connections) > 0 {
		b.WriteString("\n## Connections\n\n")
		for _, id := range rec.Connections {
			fmt.Fprintf(&b, "- %s\n", id)
		}
	}
	return b.String()
}
