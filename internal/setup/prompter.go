package setup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
)

const (
	linePromptTemplateConstant  = "%s "
	lineRetryTemplateConstant   = "%v\n"
	inputClosedTemplateConstant = "%w: %v"
	lineTerminatorConstant      = '\n'
	maximumLineAttemptsConstant = 3
)

// ErrInputClosed indicates the input ended before a valid answer was given.
var ErrInputClosed = errors.New("input closed before a valid answer was given")

// Question is one value init asks for.
type Question struct {
	Title       string
	Description string
	Validate    func(string) error
}

// Prompter asks questions and returns validated answers.
type Prompter interface {
	Ask(question Question) (string, error)
}

// IOLinePrompter reads answers line by line from an io.Reader.
type IOLinePrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewIOLinePrompter constructs a prompter from the provided reader and writer.
func NewIOLinePrompter(input io.Reader, output io.Writer) *IOLinePrompter {
	return &IOLinePrompter{reader: bufio.NewReader(input), writer: output}
}

// Ask writes the question and reads a line, asking again when validation fails.
func (prompter *IOLinePrompter) Ask(question Question) (string, error) {
	var lastValidationError error
	for attempt := 0; attempt < maximumLineAttemptsConstant; attempt++ {
		if prompter.writer != nil {
			if _, writeError := fmt.Fprintf(prompter.writer, linePromptTemplateConstant, question.Title); writeError != nil {
				return "", writeError
			}
		}

		response, readError := prompter.reader.ReadString(lineTerminatorConstant)
		if readError != nil && readError != io.EOF {
			return "", readError
		}
		answer := strings.TrimSpace(response)
		if question.Validate == nil {
			return answer, nil
		}
		lastValidationError = question.Validate(answer)
		if lastValidationError == nil {
			return answer, nil
		}
		if readError == io.EOF {
			break
		}
		if prompter.writer != nil {
			fmt.Fprintf(prompter.writer, lineRetryTemplateConstant, lastValidationError)
		}
	}
	return "", fmt.Errorf(inputClosedTemplateConstant, ErrInputClosed, lastValidationError)
}

// FormPrompter asks questions through an interactive terminal form.
type FormPrompter struct {
	output io.Writer
}

// NewFormPrompter constructs a FormPrompter rendering to output.
func NewFormPrompter(output io.Writer) *FormPrompter {
	return &FormPrompter{output: output}
}

// Ask renders a single-field form and returns the trimmed answer.
func (prompter *FormPrompter) Ask(question Question) (string, error) {
	var answer string
	input := huh.NewInput().Title(question.Title).Description(question.Description).Value(&answer)
	if question.Validate != nil {
		input = input.Validate(func(value string) error {
			return question.Validate(strings.TrimSpace(value))
		})
	}

	form := huh.NewForm(huh.NewGroup(input))
	if prompter.output != nil {
		form = form.WithOutput(prompter.output)
	}
	if runError := form.Run(); runError != nil {
		return "", runError
	}
	return strings.TrimSpace(answer), nil
}
