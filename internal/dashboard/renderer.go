package dashboard

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"
)

const (
	commitDisplayLengthConstant   = 7
	timestampLayoutConstant       = "2006-01-02 15:04:05"
	renderErrorTemplateConstant   = "unable to render dashboard: %w"
	cellPipeReplacementConstant   = `\|`
	cellPipeConstant              = "|"
	cellLineBreakReplacement      = " "
	dashboardTemplateNameConstant = "dashboard"
)

const dashboardTemplateConstant = `# Submodule Dashboard

**Last Updated:** {{ timestamp .GeneratedAt }}

This document tracks the status of all submodules and repositories in the {{ .Project }} project.

{{ range .Sections -}}
## {{ .Title }}

| Name | Path | Type | Commit | Description |
|------|------|------|--------|-------------|
{{ range .Rows -}}
| **{{ cell .Name }}** | ` + "`{{ cell .Path }}`" + ` | {{ .Type }} | ` + "`{{ shortCommit .Commit }}`" + ` | {{ cell .Description }} |
{{ end }}
{{ end -}}
## Directory Structure

- **{{ .Container }}/**: Contains third-party or decoupled components organized by category.
{{ range .CoreDirectories -}}
- **{{ . }}/**: Contains core integrated components.
{{ end -}}
`

var cellReplacer = strings.NewReplacer(cellPipeConstant, cellPipeReplacementConstant, "\r\n", cellLineBreakReplacement, "\n", cellLineBreakReplacement, "\r", cellLineBreakReplacement)

var dashboardTemplate = template.Must(template.New(dashboardTemplateNameConstant).Funcs(template.FuncMap{
	"cell":        escapeCell,
	"shortCommit": shortCommit,
	"timestamp":   formatTimestamp,
}).Parse(dashboardTemplateConstant))

// Render writes report as markdown to writer.
func Render(writer io.Writer, report Report) error {
	if renderError := dashboardTemplate.Execute(writer, report); renderError != nil {
		return fmt.Errorf(renderErrorTemplateConstant, renderError)
	}
	return nil
}

func escapeCell(value string) string {
	return cellReplacer.Replace(value)
}

func shortCommit(commit string) string {
	if len(commit) <= commitDisplayLengthConstant {
		return commit
	}
	return commit[:commitDisplayLengthConstant]
}

func formatTimestamp(moment time.Time) string {
	return moment.Format(timestampLayoutConstant)
}
