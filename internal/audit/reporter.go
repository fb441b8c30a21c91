package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/temirov/rtfr/internal/execshell"
)

const (
	commitLabelConstant           = "Commit:"
	userLabelConstant             = "User:"
	readmeLabelConstant           = "README:"
	fileLabelConstant             = "File:"
	userCellSuffixConstant        = ","
	readmeCellPrefixConstant      = "./"
	columnSeparatorConstant       = "  "
	lineTerminatorConstant        = "\n"
	fingerprintFieldSeparatorByte = 0
)

type reportCell struct {
	text    string
	painter *color.Color
}

// ViolationReporter collects violations, drops duplicates by fingerprint, and renders them as an aligned table.
type ViolationReporter struct {
	granularity DedupGranularity

	commitColor *color.Color
	userColor   *color.Color
	readmeColor *color.Color
	fileColor   *color.Color

	mutex        sync.Mutex
	fingerprints map[string]struct{}
	violations   []Violation
}

// NewViolationReporter constructs a reporter. Colours are written only when colorOutput is set.
func NewViolationReporter(granularity DedupGranularity, colorOutput bool) *ViolationReporter {
	if len(granularity) == 0 {
		granularity = DedupGranularityReadme
	}
	reporter := &ViolationReporter{
		granularity:  granularity,
		commitColor:  color.New(color.FgMagenta),
		userColor:    color.New(color.FgGreen),
		readmeColor:  color.New(color.FgYellow),
		fileColor:    color.New(color.FgCyan),
		fingerprints: map[string]struct{}{},
	}
	for _, painter := range []*color.Color{reporter.commitColor, reporter.userColor, reporter.readmeColor, reporter.fileColor} {
		if colorOutput {
			painter.EnableColor()
		} else {
			painter.DisableColor()
		}
	}
	return reporter
}

// Fingerprint hashes the violation fields selected by granularity.
func Fingerprint(granularity DedupGranularity, violation Violation) string {
	fields := []string{violation.Identity.Name, violation.Identity.Email, violation.ReadmePath}
	switch granularity {
	case DedupGranularityFile:
		fields = append(fields, violation.File)
	case DedupGranularityCommit:
		fields = append(fields, violation.Commit, violation.File)
	}

	hasher := sha256.New()
	for _, field := range fields {
		hasher.Write([]byte(field))
		hasher.Write([]byte{fingerprintFieldSeparatorByte})
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// Record stores the violation unless one with the same fingerprint was recorded. It reports whether it was stored.
func (reporter *ViolationReporter) Record(violation Violation) bool {
	fingerprint := Fingerprint(reporter.granularity, violation)

	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	if _, seen := reporter.fingerprints[fingerprint]; seen {
		return false
	}
	reporter.fingerprints[fingerprint] = struct{}{}
	reporter.violations = append(reporter.violations, violation)
	return true
}

// HasViolations reports whether anything was recorded.
func (reporter *ViolationReporter) HasViolations() bool {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	return len(reporter.violations) > 0
}

// Violations returns the recorded violations in recording order.
func (reporter *ViolationReporter) Violations() []Violation {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	return append([]Violation{}, reporter.violations...)
}

// Flush writes every recorded violation to writer. Each violation takes two rows: the commit, then who read what.
func (reporter *ViolationReporter) Flush(writer io.Writer) error {
	rows := reporter.buildRows()
	if len(rows) == 0 {
		return nil
	}

	columnWidths := measureColumns(rows)
	var builder strings.Builder
	for _, row := range rows {
		for cellIndex, cell := range row {
			if cellIndex > 0 {
				builder.WriteString(columnSeparatorConstant)
			}
			text := cell.text
			if cellIndex < len(row)-1 {
				text = runewidth.FillRight(text, columnWidths[cellIndex])
			}
			if cell.painter != nil {
				padding := text[len(cell.text):]
				text = cell.painter.Sprint(cell.text) + padding
			}
			builder.WriteString(text)
		}
		builder.WriteString(lineTerminatorConstant)
	}

	_, writeError := io.WriteString(writer, builder.String())
	return writeError
}

func (reporter *ViolationReporter) buildRows() [][]reportCell {
	violations := reporter.Violations()
	rows := make([][]reportCell, 0, len(violations)*2)
	for _, violation := range violations {
		rows = append(rows, []reportCell{
			{text: commitLabelConstant},
			{text: execshell.AbbreviateRevision(violation.Commit), painter: reporter.commitColor},
		})
		rows = append(rows, []reportCell{
			{text: userLabelConstant},
			{text: violation.Identity.String() + userCellSuffixConstant, painter: reporter.userColor},
			{text: readmeLabelConstant},
			{text: readmeCellPrefixConstant + violation.ReadmePath, painter: reporter.readmeColor},
			{text: fileLabelConstant},
			{text: violation.File, painter: reporter.fileColor},
		})
	}
	return rows
}

func measureColumns(rows [][]reportCell) []int {
	var widths []int
	for _, row := range rows {
		for cellIndex, cell := range row {
			if cellIndex >= len(widths) {
				widths = append(widths, 0)
			}
			if cellWidth := runewidth.StringWidth(cell.text); cellWidth > widths[cellIndex] {
				widths[cellIndex] = cellWidth
			}
		}
	}
	return widths
}
