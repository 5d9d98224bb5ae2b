package intake

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

const (
	sectionHeadingPrefixConstant = "##"
	uncheckedItemPrefixConstant  = "- [ ]"
	checkedItemPrefixConstant    = "- [x]"
)

var linkPattern = regexp.MustCompile(`\((https?://[^)]+)\)|(https?://\S+)`)

// Section is the run of checklist links under one "##" heading. Links that
// precede every heading form a leading Untitled section.
type Section struct {
	Heading  string
	Untitled bool
	URLs     []string
}

// ParseChecklist reads a markdown checklist. Every "##" line opens a section,
// even one without links, and every "- [ ]" or "- [x]" item contributes its
// first http(s) URL to the open section.
func ParseChecklist(reader io.Reader) ([]Section, error) {
	var sections []Section

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, sectionHeadingPrefixConstant):
			heading := strings.TrimSpace(strings.ReplaceAll(line, sectionHeadingPrefixConstant, ""))
			sections = append(sections, Section{Heading: heading})
		case strings.HasPrefix(line, uncheckedItemPrefixConstant), strings.HasPrefix(line, checkedItemPrefixConstant):
			match := linkPattern.FindStringSubmatch(line)
			if match == nil {
				continue
			}
			linkURL := match[1]
			if len(linkURL) == 0 {
				linkURL = match[2]
			}
			if len(sections) == 0 {
				sections = append(sections, Section{Untitled: true})
			}
			sections[len(sections)-1].URLs = append(sections[len(sections)-1].URLs, linkURL)
		}
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return sections, nil
}
