package dashboard

import "time"

const (
	repositoryTypeSubmoduleConstant = "Submodule"
	repositoryTypeEmbeddedConstant  = "Embedded"
)

// Repository is one discovered repository. It is never persisted.
type Repository struct {
	Path        string
	Registered  bool
	Revision    string
	Category    string
	Description string
}

// Type returns the label shown in the dashboard Type column.
func (repository Repository) Type() string {
	if repository.Registered {
		return repositoryTypeSubmoduleConstant
	}
	return repositoryTypeEmbeddedConstant
}

// Row is one rendered table row.
type Row struct {
	Name        string
	Path        string
	Type        string
	Commit      string
	Description string
}

// Section groups the rows of one category.
type Section struct {
	Title string
	Rows  []Row
}

// Report is everything the renderer needs.
type Report struct {
	GeneratedAt     time.Time
	Project         string
	Container       string
	CoreDirectories []string
	Sections        []Section
}
