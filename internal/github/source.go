package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"sort"
	"strings"
)

// RepoSource reads course documents (.txt files) from a directory of a
// GitHub repository. It satisfies the ingestion pipeline's Source
// interface.
type RepoSource struct {
	client   *Client
	owner    string
	repo     string
	basePath string
}

// NewRepoSource creates a source over owner/repo at basePath.
func NewRepoSource(client *Client, owner, repo, basePath string) *RepoSource {
	return &RepoSource{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: basePath,
	}
}

// List returns the names of all .txt documents under the base path, sorted.
// Subdirectories are not traversed; course documents live flat, one file
// per course.
func (s *RepoSource) List(ctx context.Context) ([]string, error) {
	_, dirContents, _, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, s.basePath, nil)
	if err != nil {
		return nil, fmt.Errorf("list contents of %s: %w", s.basePath, err)
	}

	var names []string
	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil || *item.Type != "file" {
			continue
		}
		if strings.HasSuffix(strings.ToLower(*item.Name), ".txt") {
			names = append(names, *item.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Fetch returns the decoded text of one document.
func (s *RepoSource) Fetch(ctx context.Context, name string) (string, error) {
	fullPath := path.Join(s.basePath, name)

	fileContent, _, _, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, fullPath, nil)
	if err != nil {
		return "", fmt.Errorf("get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return "", fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := base64.StdEncoding.DecodeString(*fileContent.Content)
	if err != nil {
		return "", fmt.Errorf("decode content of %s: %w", fullPath, err)
	}
	return string(content), nil
}
