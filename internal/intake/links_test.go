package intake_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/subkeep/internal/intake"
)

const linksDocumentConstant = `# Links

## MCP Directories
- [ ] [Awesome MCP](https://github.com/punkpeye/awesome-mcp-servers)
- [x] https://github.com/wong2/awesome-mcp-servers/tree/main
Some prose https://github.com/ignored/prose
## Skills
- [ ] Skill pack (https://gitlab.com/acme/skills)
- [ ] no link here
* [ ] https://github.com/star/ignored
`

func TestParseChecklist(testInstance *testing.T) {
	testCases := []struct {
		name     string
		document string
		expected []intake.Section
	}{
		{
			name:     "sections_with_links",
			document: linksDocumentConstant,
			expected: []intake.Section{
				{Heading: "MCP Directories", URLs: []string{"https://github.com/punkpeye/awesome-mcp-servers", "https://github.com/wong2/awesome-mcp-servers/tree/main"}},
				{Heading: "Skills", URLs: []string{"https://gitlab.com/acme/skills"}},
			},
		},
		{
			name:     "headings_without_links_are_kept",
			document: "## Empty\n## Tools\n- [ ] https://github.com/acme/tool\n## Trailing\n",
			expected: []intake.Section{
				{Heading: "Empty"},
				{Heading: "Tools", URLs: []string{"https://github.com/acme/tool"}},
				{Heading: "Trailing"},
			},
		},
		{
			name:     "links_before_any_heading",
			document: "- [ ] https://github.com/acme/loose\n## Tools\n",
			expected: []intake.Section{
				{Untitled: true, URLs: []string{"https://github.com/acme/loose"}},
				{Heading: "Tools"},
			},
		},
		{
			name:     "empty_document",
			document: "",
			expected: nil,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			sections, parseError := intake.ParseChecklist(strings.NewReader(testCase.document))
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expected, sections)
		})
	}
}

func TestTargetDirectory(testInstance *testing.T) {
	settings := intake.DefaultImportConfiguration()
	testCases := []struct {
		name     string
		heading  string
		expected string
	}{
		{name: "exact", heading: "MCP Directories", expected: "mcp-hubs"},
		{name: "case_insensitive_substring", heading: "Useful memory systems (2025)", expected: "memory"},
		{name: "first_match_wins", heading: "CLIs and Skills", expected: "skills"},
		{name: "nested_directory", heading: "MCP reduce context", expected: "mcp-servers/optimization"},
		{name: "fallback", heading: "Unsorted", expected: "misc"},
		{name: "empty_heading", heading: "", expected: "misc"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, settings.TargetDirectory(testCase.heading))
		})
	}
}

func TestImportConfigurationSanitize(testInstance *testing.T) {
	sanitized := intake.ImportConfiguration{
		LinksFile:        "  ",
		LogFile:          " ",
		DefaultDirectory: " /other/ ",
		Mappings: []intake.Mapping{
			{Match: " Tools ", Directory: "/tools/"},
			{Match: "", Directory: "ignored"},
			{Match: "Blank", Directory: " "},
		},
	}.Sanitize()

	require.Equal(testInstance, "LINKS_TO_PROCESS.md", sanitized.LinksFile)
	require.Empty(testInstance, sanitized.LogFile)
	require.Equal(testInstance, "other", sanitized.DefaultDirectory)
	require.Equal(testInstance, []intake.Mapping{{Match: "Tools", Directory: "tools"}}, sanitized.Mappings)
}
