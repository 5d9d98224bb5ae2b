package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

const (
	// DefaultFileNameConstant is the registry file name inside a working tree.
	DefaultFileNameConstant = ".gitmodules"

	sectionKindSubmoduleConstant       = "submodule"
	keyPathConstant                    = "path"
	keyURLConstant                     = "url"
	commentHashPrefixConstant          = "#"
	commentSemicolonPrefixConstant     = ";"
	keyValueSeparatorConstant          = "="
	quoteCharacterConstant             = `"`
	sectionOpenConstant                = "["
	currentDirectoryPrefixConstant     = "./"
	pathSeparatorConstant              = "/"
	blockTemplateConstant              = "\n[submodule \"%s\"]\n\tpath = %s\n\turl = %s\n"
	registryFilePermissionsConstant    = 0o644
	registryReadErrorTemplateConstant  = "unable to read registry %s: %w"
	registryParseErrorTemplateConstant = "unable to parse registry %s: %w"
	registryWriteErrorTemplateConstant = "unable to append to registry %s: %w"
)

// ErrRegistryMissing indicates the registry file does not exist.
var ErrRegistryMissing = errors.New("registry file not found")

// ErrFileSystemNotConfigured indicates the store was constructed without a filesystem.
var ErrFileSystemNotConfigured = errors.New("registry filesystem not configured")

var subsectionEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

var sectionHeaderPattern = regexp.MustCompile(`^\[\s*([A-Za-z0-9.-]+)(?:\s+"((?:[^"\\]|\\.)*)")?\s*\]$`)

// Entry is one well-formed [submodule] block.
type Entry struct {
	Name string
	Path string
	URL  string
}

// Addition is a declaration staged for the next append.
type Addition struct {
	Path string
	URL  string
}

// Snapshot is the set of declarations read from the registry at one point in time.
type Snapshot struct {
	entries []Entry
	paths   map[string]struct{}
}

// NewSnapshot builds a snapshot from entries. Entries without a path are
// ignored and the first entry wins when a path repeats.
func NewSnapshot(entries []Entry) Snapshot {
	snapshot := Snapshot{paths: make(map[string]struct{}, len(entries))}
	for _, entry := range entries {
		normalizedPath := NormalizePath(entry.Path)
		if len(normalizedPath) == 0 {
			continue
		}
		if _, duplicate := snapshot.paths[normalizedPath]; duplicate {
			continue
		}
		entry.Path = normalizedPath
		snapshot.paths[normalizedPath] = struct{}{}
		snapshot.entries = append(snapshot.entries, entry)
	}
	return snapshot
}

// Entries returns the declarations in file order.
func (snapshot Snapshot) Entries() []Entry {
	return append([]Entry(nil), snapshot.entries...)
}

// Contains reports whether candidatePath is declared.
func (snapshot Snapshot) Contains(candidatePath string) bool {
	_, declared := snapshot.paths[NormalizePath(candidatePath)]
	return declared
}

// Len returns the number of declarations.
func (snapshot Snapshot) Len() int {
	return len(snapshot.entries)
}

// NormalizePath converts a registry path to its canonical forward-slash form.
func NormalizePath(rawPath string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(rawPath), `\`, pathSeparatorConstant)
	for strings.HasPrefix(normalized, currentDirectoryPrefixConstant) {
		normalized = strings.TrimPrefix(normalized, currentDirectoryPrefixConstant)
	}
	if len(normalized) == 0 {
		return ""
	}
	cleaned := path.Clean(normalized)
	if cleaned == "." {
		return ""
	}
	return cleaned
}

// Parse reads registry content. Only path and url keys inside [submodule "..."]
// sections are considered; comments, blank lines, and other sections are ignored.
func Parse(reader io.Reader) (Snapshot, error) {
	var entries []Entry
	var current *Entry

	flush := func() {
		if current != nil {
			entries = append(entries, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, commentHashPrefixConstant) || strings.HasPrefix(line, commentSemicolonPrefixConstant) {
			continue
		}

		if strings.HasPrefix(line, sectionOpenConstant) {
			flush()
			headerMatch := sectionHeaderPattern.FindStringSubmatch(line)
			if headerMatch != nil && strings.EqualFold(headerMatch[1], sectionKindSubmoduleConstant) && len(headerMatch[2]) > 0 {
				current = &Entry{Name: unescapeSubsection(headerMatch[2])}
			}
			continue
		}

		if current == nil {
			continue
		}

		key, value, found := strings.Cut(line, keyValueSeparatorConstant)
		if !found {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case keyPathConstant:
			current.Path = parseValue(value)
		case keyURLConstant:
			current.URL = parseValue(value)
		}
	}
	flush()

	if scanError := scanner.Err(); scanError != nil {
		return Snapshot{}, scanError
	}
	return NewSnapshot(entries), nil
}

// FormatBlock renders the block appended for addition.
func FormatBlock(addition Addition) string {
	normalizedPath := NormalizePath(addition.Path)
	return fmt.Sprintf(blockTemplateConstant, escapeSubsection(normalizedPath), formatValue(normalizedPath), formatValue(strings.TrimSpace(addition.URL)))
}

// Store reads and appends one registry file.
type Store struct {
	fileSystem afero.Fs
	filePath   string
}

// NewStore constructs a Store for filePath on fileSystem.
func NewStore(fileSystem afero.Fs, filePath string) (*Store, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	return &Store{fileSystem: fileSystem, filePath: filePath}, nil
}

// FilePath returns the registry file location.
func (store *Store) FilePath() string {
	return store.filePath
}

// Load parses the registry. A missing or empty file yields an empty snapshot.
func (store *Store) Load() (Snapshot, error) {
	snapshot, loadError := store.LoadRequired()
	if errors.Is(loadError, ErrRegistryMissing) {
		return NewSnapshot(nil), nil
	}
	return snapshot, loadError
}

// LoadRequired parses the registry and returns ErrRegistryMissing when the file does not exist.
func (store *Store) LoadRequired() (Snapshot, error) {
	file, openError := store.fileSystem.Open(store.filePath)
	if openError != nil {
		if os.IsNotExist(openError) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrRegistryMissing, store.filePath)
		}
		return Snapshot{}, fmt.Errorf(registryReadErrorTemplateConstant, store.filePath, openError)
	}
	defer file.Close()

	snapshot, parseError := Parse(file)
	if parseError != nil {
		return Snapshot{}, fmt.Errorf(registryParseErrorTemplateConstant, store.filePath, parseError)
	}
	return snapshot, nil
}

// Plan filters additions down to the ones Append would write: already declared
// paths, repeated paths, and additions without a URL are dropped.
func Plan(snapshot Snapshot, additions []Addition) []Addition {
	planned := make([]Addition, 0, len(additions))
	staged := make(map[string]struct{}, len(additions))
	for _, addition := range additions {
		normalizedPath := NormalizePath(addition.Path)
		trimmedURL := strings.TrimSpace(addition.URL)
		if len(normalizedPath) == 0 || len(trimmedURL) == 0 {
			continue
		}
		if snapshot.Contains(normalizedPath) {
			continue
		}
		if _, alreadyStaged := staged[normalizedPath]; alreadyStaged {
			continue
		}
		staged[normalizedPath] = struct{}{}
		planned = append(planned, Addition{Path: normalizedPath, URL: trimmedURL})
	}
	return planned
}

// Append writes every planned addition in a single append and returns what was written.
func (store *Store) Append(snapshot Snapshot, additions []Addition) ([]Addition, error) {
	planned := Plan(snapshot, additions)
	if len(planned) == 0 {
		return nil, nil
	}

	var content strings.Builder
	for _, addition := range planned {
		content.WriteString(FormatBlock(addition))
	}

	file, openError := store.fileSystem.OpenFile(store.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, registryFilePermissionsConstant)
	if openError != nil {
		return nil, fmt.Errorf(registryWriteErrorTemplateConstant, store.filePath, openError)
	}
	if _, writeError := file.WriteString(content.String()); writeError != nil {
		_ = file.Close()
		return nil, fmt.Errorf(registryWriteErrorTemplateConstant, store.filePath, writeError)
	}
	if closeError := file.Close(); closeError != nil {
		return nil, fmt.Errorf(registryWriteErrorTemplateConstant, store.filePath, closeError)
	}
	return planned, nil
}

func escapeSubsection(value string) string {
	return subsectionEscaper.Replace(value)
}

func unescapeSubsection(value string) string {
	return strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(value)
}

// formatValue escapes quotes and backslashes and quotes values git would otherwise
// trim or read as a comment.
func formatValue(value string) string {
	escaped := subsectionEscaper.Replace(value)
	if escaped != strings.TrimSpace(escaped) || strings.ContainsAny(escaped, commentHashPrefixConstant+commentSemicolonPrefixConstant) {
		return quoteCharacterConstant + escaped + quoteCharacterConstant
	}
	return escaped
}

// parseValue follows git config value rules: double quotes group text, a backslash
// escapes the next character, and an unquoted # or ; starts a comment.
func parseValue(rawValue string) string {
	var builder strings.Builder
	quoted := false
	pendingSpace := 0
	started := false
	for index := 0; index < len(rawValue); index++ {
		character := rawValue[index]
		switch {
		case character == '\\' && index+1 < len(rawValue):
			index++
			flushPendingSpace(&builder, &pendingSpace, started)
			builder.WriteByte(escapedCharacter(rawValue[index]))
			started = true
		case character == '"':
			flushPendingSpace(&builder, &pendingSpace, started)
			quoted = !quoted
			started = true
		case !quoted && (character == '#' || character == ';'):
			return builder.String()
		case !quoted && (character == ' ' || character == '\t'):
			pendingSpace++
		default:
			flushPendingSpace(&builder, &pendingSpace, started)
			builder.WriteByte(character)
			started = true
		}
	}
	return builder.String()
}

func flushPendingSpace(builder *strings.Builder, pendingSpace *int, started bool) {
	if started {
		builder.WriteString(strings.Repeat(" ", *pendingSpace))
	}
	*pendingSpace = 0
}

func escapedCharacter(character byte) byte {
	switch character {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	default:
		return character
	}
}
