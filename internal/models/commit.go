package models

import "time"

// CommitRecord is one physical commit scoped to one repository.
// The pair (Repository, SHA) is its natural key.
type CommitRecord struct {
	SHA             string             `json:"sha"`
	Repository      string             `json:"repository"`
	Message         string             `json:"message"`
	AuthorName      string             `json:"author_name"`
	AuthorEmail     *string            `json:"author_email,omitempty"`
	AuthorAvatarURL *string            `json:"author_avatar_url,omitempty"`
	CommittedAt     time.Time          `json:"committed_at"`
	Additions       int                `json:"additions"`
	Deletions       int                `json:"deletions"`
	FilesChanged    int                `json:"files_changed"`
	URL             string             `json:"url"`
	Files           []CommitFileRecord `json:"files,omitempty"`
}

// CommitFileRecord is one file touched by a commit
type CommitFileRecord struct {
	Filename  string  `json:"filename"`
	Status    string  `json:"status"` // added, removed, modified, renamed
	Additions int     `json:"additions"`
	Deletions int     `json:"deletions"`
	Changes   int     `json:"changes"`
	Patch     *string `json:"patch,omitempty"`
}

// CommitDetail holds the line-level statistics returned by a single-commit lookup
type CommitDetail struct {
	Additions int
	Deletions int
	Files     []CommitFileRecord
}

// HasStats reports whether the commit already carries line or file statistics.
func (c *CommitRecord) HasStats() bool {
	return c.Additions > 0 || c.Deletions > 0 || len(c.Files) > 0
}

// ApplyDetail back-fills statistics from a detail lookup.
func (c *CommitRecord) ApplyDetail(d *CommitDetail) {
	if d == nil {
		return
	}
	c.Additions = d.Additions
	c.Deletions = d.Deletions
	c.Files = d.Files
	c.FilesChanged = len(d.Files)
}

// Key returns the natural key of the commit.
func (c *CommitRecord) Key() string {
	return CommitKey(c.Repository, c.SHA)
}

// CommitKey builds the natural key for a (repository, sha) pair.
func CommitKey(repository, sha string) string {
	return repository + "@" + sha
}
