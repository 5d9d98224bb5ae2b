package shared

import (
	"fmt"
	"io"
	"os"
	"strings"

	fcolor "github.com/fatih/color"
)

// Reporter emits formatted service events to an underlying sink.
type Reporter interface {
	Printf(format string, args ...any)
}

type writerReporter struct {
	writer io.Writer
}

// NewWriterReporter constructs a Reporter that writes to the provided io.Writer.
func NewWriterReporter(writer io.Writer) Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return writerReporter{writer: writer}
}

func (reporter writerReporter) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(reporter.writer, format, args...)
}

type colorRule struct {
	prefixes []string
	color    *fcolor.Color
}

type colorReporter struct {
	writer io.Writer
	rules  []colorRule
}

// NewColorReporter constructs a Reporter that colors lines by their leading keyword:
// successes green, skips and plans yellow, failures red. Colors follow fatih/color's
// terminal detection, so redirected output stays plain.
func NewColorReporter(writer io.Writer) Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return colorReporter{
		writer: writer,
		rules: []colorRule{
			{prefixes: []string{"SUCCESS", "Restoring", "Removing", "Removed", "Dashboard updated", "Done", "Imported"}, color: fcolor.New(fcolor.FgGreen)},
			{prefixes: []string{"FAILED", "Could not", "No remote", "Directory not found", "Failed"}, color: fcolor.New(fcolor.FgRed)},
			{prefixes: []string{"EXISTS", "Skipping", "PLAN-"}, color: fcolor.New(fcolor.FgYellow)},
		},
	}
}

func (reporter colorReporter) Printf(format string, args ...any) {
	for _, rule := range reporter.rules {
		for _, prefix := range rule.prefixes {
			if strings.HasPrefix(format, prefix) {
				_, _ = rule.color.Fprintf(reporter.writer, format, args...)
				return
			}
		}
	}
	_, _ = fmt.Fprintf(reporter.writer, format, args...)
}
