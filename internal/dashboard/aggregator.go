package dashboard

import (
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	categoryOtherConstant     = "Other"
	categorySeparatorConstant = "/"
)

// Aggregator assigns categories and groups repositories into sorted sections.
type Aggregator struct {
	container       string
	categories      map[string]string
	coreDirectories map[string]string
	upperCaser      cases.Caser
	lowerCaser      cases.Caser
}

// NewAggregator constructs an Aggregator from the report configuration.
func NewAggregator(configuration ReportConfiguration) *Aggregator {
	return &Aggregator{
		container:       configuration.Container,
		categories:      configuration.Categories,
		coreDirectories: configuration.CoreDirectories,
		upperCaser:      cases.Upper(language.Und),
		lowerCaser:      cases.Lower(language.Und),
	}
}

// Category maps a repository path to its dashboard section title.
//
// container/<key>/... uses the category table and falls back to the
// capitalized key; <core>/... uses the core directory table; everything else
// is Other.
func (aggregator *Aggregator) Category(repositoryPath string) string {
	segments := strings.Split(repositoryPath, categorySeparatorConstant)
	if segments[0] == aggregator.container && len(segments) > 1 && len(segments[1]) > 0 {
		if label, found := aggregator.categories[segments[1]]; found {
			return label
		}
		return aggregator.capitalize(segments[1])
	}
	if label, found := aggregator.coreDirectories[segments[0]]; found {
		return label
	}
	return categoryOtherConstant
}

// capitalize upper-cases the first rune and lower-cases the rest.
func (aggregator *Aggregator) capitalize(key string) string {
	_, firstRuneWidth := utf8.DecodeRuneInString(key)
	return aggregator.upperCaser.String(key[:firstRuneWidth]) + aggregator.lowerCaser.String(key[firstRuneWidth:])
}

// Merge de-duplicates repositories by path. Registered entries replace embedded ones.
func Merge(registered []Repository, embedded []Repository) []Repository {
	merged := make([]Repository, 0, len(registered)+len(embedded))
	indexByPath := make(map[string]int, len(registered)+len(embedded))
	for _, repository := range append(append([]Repository{}, registered...), embedded...) {
		existingIndex, seen := indexByPath[repository.Path]
		if !seen {
			indexByPath[repository.Path] = len(merged)
			merged = append(merged, repository)
			continue
		}
		if repository.Registered && !merged[existingIndex].Registered {
			merged[existingIndex] = repository
		}
	}
	return merged
}

// Sections groups repositories by category. Sections are sorted by title and
// rows by name, then path.
func (aggregator *Aggregator) Sections(repositories []Repository) []Section {
	grouped := make(map[string][]Row)
	for _, repository := range repositories {
		category := repository.Category
		if len(category) == 0 {
			category = aggregator.Category(repository.Path)
		}
		grouped[category] = append(grouped[category], Row{
			Name:        path.Base(repository.Path),
			Path:        repository.Path,
			Type:        repository.Type(),
			Commit:      repository.Revision,
			Description: repository.Description,
		})
	}

	titles := make([]string, 0, len(grouped))
	for title := range grouped {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	sections := make([]Section, 0, len(titles))
	for _, title := range titles {
		rows := grouped[title]
		sort.SliceStable(rows, func(left int, right int) bool {
			if rows[left].Name != rows[right].Name {
				return rows[left].Name < rows[right].Name
			}
			return rows[left].Path < rows[right].Path
		})
		sections = append(sections, Section{Title: title, Rows: rows})
	}
	return sections
}

// SortedKeys returns the keys of table in lexical order.
func SortedKeys(table map[string]string) []string {
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
