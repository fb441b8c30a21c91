package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	startTemplateConstant                  = "%s %s%s"
	successTemplateConstant                = "%s %s%s"
	failureTemplateConstant                = "Failed to %s %s%s (exit code %d%s)"
	executionFailureTemplateConstant       = "Unable to %s %s%s: %s"
	workingDirectorySuffixTemplateConstant = " in %s"
	standardErrorSuffixTemplateConstant    = ": %s"
	argumentsJoinSeparatorConstant         = " "
	pathListJoinSeparatorConstant          = ", "
	unknownFailureMessageConstant          = "unknown error"
	emptyStringConstant                    = ""
	abbreviatedHashLengthConstant          = 8
	fullHashLengthConstant                 = 40
	revisionRangeSeparatorConstant         = ".."
	revisionPathSeparatorConstant          = ":"
	pathSpecSeparatorConstant              = "--"
	flagPrefixConstant                     = "-"
	standardErrorLineLimitConstant         = 1
)

const (
	gitLogSubcommandNameConstant      = "log"
	gitShowSubcommandNameConstant     = "show"
	gitDiffSubcommandNameConstant     = "diff"
	gitRevListSubcommandNameConstant  = "rev-list"
	gitConfigSubcommandNameConstant   = "config"
	gitRevParseSubcommandNameConstant = "rev-parse"
	gitNoPatchFlagConstant            = "--no-patch"
	gitSuppressDiffFlagConstant       = "-s"
	gitCountFlagConstant              = "--count"
	gitHeadReferenceConstant          = "HEAD"
	gitEmptyTreeHashConstant          = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	emptyTreeLabelConstant            = "the empty tree"
)

const (
	listCommitsSubjectConstant              = "commit history"
	pathHistorySubjectTemplateConstant      = "history of %s at %s"
	commitDetailsSubjectTemplateConstant    = "details of commit %s"
	fileContentSubjectTemplateConstant      = "%s at %s"
	changedFilesSubjectTemplateConstant     = "files changed between %s and %s"
	ancestryDistanceSubjectTemplateConstant = "commits between %s and %s"
	configurationSubjectTemplateConstant    = "git configuration %s"
	repositoryCheckSubjectConstant          = "repository layout"
	genericSubjectTemplateConstant          = "%s %s"
	readProgressiveVerbConstant             = "Reading"
	readPastVerbConstant                    = "Read"
	readBaseVerbConstant                    = "read"
	listProgressiveVerbConstant             = "Listing"
	listPastVerbConstant                    = "Listed"
	listBaseVerbConstant                    = "list"
	countProgressiveVerbConstant            = "Counting"
	countPastVerbConstant                   = "Counted"
	countBaseVerbConstant                   = "count"
	checkProgressiveVerbConstant            = "Checking"
	checkPastVerbConstant                   = "Checked"
	checkBaseVerbConstant                   = "check"
	runProgressiveVerbConstant              = "Running"
	runPastVerbConstant                     = "Completed"
	runBaseVerbConstant                     = "run"
)

type operationDescription struct {
	progressiveVerb string
	pastVerb        string
	baseVerb        string
	subject         string
}

// CommandMessageFormatter renders git invocations as short human-readable sentences.
type CommandMessageFormatter struct{}

// BuildStartedMessage describes a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage describes a command that exited with status zero.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage describes a command that exited with a non-zero status.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage describes a command that could not be run at all.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	description := formatter.describeCommand(command)
	workingDirectorySuffix := formatter.formatWorkingDirectorySuffix(command)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(startTemplateConstant, description.progressiveVerb, description.subject, workingDirectorySuffix)
	case messageStageSuccess:
		return fmt.Sprintf(successTemplateConstant, description.pastVerb, description.subject, workingDirectorySuffix)
	case messageStageFailure:
		return fmt.Sprintf(failureTemplateConstant, description.baseVerb, description.subject, workingDirectorySuffix, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(executionFailureTemplateConstant, description.baseVerb, description.subject, workingDirectorySuffix, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeCommand(command ShellCommand) operationDescription {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.describeGenericCommand(command)
	}

	arguments := command.Details.Arguments
	switch arguments[0] {
	case gitLogSubcommandNameConstant:
		return formatter.describeGitLog(arguments[1:])
	case gitShowSubcommandNameConstant:
		return formatter.describeGitShow(arguments[1:])
	case gitDiffSubcommandNameConstant:
		return formatter.describeGitDiff(arguments[1:])
	case gitRevListSubcommandNameConstant:
		return formatter.describeGitRevList(command, arguments[1:])
	case gitConfigSubcommandNameConstant:
		return operationDescription{
			progressiveVerb: readProgressiveVerbConstant,
			pastVerb:        readPastVerbConstant,
			baseVerb:        readBaseVerbConstant,
			subject:         fmt.Sprintf(configurationSubjectTemplateConstant, formatter.lastNonFlagArgument(arguments[1:])),
		}
	case gitRevParseSubcommandNameConstant:
		return operationDescription{
			progressiveVerb: checkProgressiveVerbConstant,
			pastVerb:        checkPastVerbConstant,
			baseVerb:        checkBaseVerbConstant,
			subject:         repositoryCheckSubjectConstant,
		}
	default:
		return formatter.describeGenericCommand(command)
	}
}

func (formatter CommandMessageFormatter) describeGitLog(arguments []string) operationDescription {
	revisionArguments, pathArguments := splitPathSpec(arguments)
	if len(pathArguments) == 0 {
		return operationDescription{
			progressiveVerb: listProgressiveVerbConstant,
			pastVerb:        listPastVerbConstant,
			baseVerb:        listBaseVerbConstant,
			subject:         listCommitsSubjectConstant,
		}
	}

	revision := formatter.lastNonFlagArgument(revisionArguments)
	if len(revision) == 0 {
		revision = gitHeadReferenceConstant
	}
	return operationDescription{
		progressiveVerb: readProgressiveVerbConstant,
		pastVerb:        readPastVerbConstant,
		baseVerb:        readBaseVerbConstant,
		subject:         fmt.Sprintf(pathHistorySubjectTemplateConstant, strings.Join(pathArguments, pathListJoinSeparatorConstant), AbbreviateRevision(revision)),
	}
}

func (formatter CommandMessageFormatter) describeGitShow(arguments []string) operationDescription {
	target := formatter.lastNonFlagArgument(arguments)
	description := operationDescription{
		progressiveVerb: readProgressiveVerbConstant,
		pastVerb:        readPastVerbConstant,
		baseVerb:        readBaseVerbConstant,
	}

	if containsArgument(arguments, gitSuppressDiffFlagConstant) || containsArgument(arguments, gitNoPatchFlagConstant) {
		description.subject = fmt.Sprintf(commitDetailsSubjectTemplateConstant, AbbreviateRevision(target))
		return description
	}

	revision, path, found := strings.Cut(target, revisionPathSeparatorConstant)
	if !found {
		description.subject = fmt.Sprintf(commitDetailsSubjectTemplateConstant, AbbreviateRevision(target))
		return description
	}
	description.subject = fmt.Sprintf(fileContentSubjectTemplateConstant, path, AbbreviateRevision(revision))
	return description
}

func (formatter CommandMessageFormatter) describeGitDiff(arguments []string) operationDescription {
	revisions := nonFlagArguments(arguments)
	baseRevision := gitHeadReferenceConstant
	targetRevision := gitHeadReferenceConstant
	if len(revisions) > 0 {
		baseRevision = revisions[0]
	}
	if len(revisions) > 1 {
		targetRevision = revisions[1]
	}
	return operationDescription{
		progressiveVerb: listProgressiveVerbConstant,
		pastVerb:        listPastVerbConstant,
		baseVerb:        listBaseVerbConstant,
		subject:         fmt.Sprintf(changedFilesSubjectTemplateConstant, AbbreviateRevision(baseRevision), AbbreviateRevision(targetRevision)),
	}
}

func (formatter CommandMessageFormatter) describeGitRevList(command ShellCommand, arguments []string) operationDescription {
	if !containsArgument(arguments, gitCountFlagConstant) {
		return formatter.describeGenericCommand(command)
	}
	revisionRange := formatter.lastNonFlagArgument(arguments)
	fromRevision, toRevision, found := strings.Cut(revisionRange, revisionRangeSeparatorConstant)
	if !found {
		fromRevision, toRevision = emptyTreeLabelConstant, revisionRange
	} else {
		fromRevision = AbbreviateRevision(fromRevision)
	}
	return operationDescription{
		progressiveVerb: countProgressiveVerbConstant,
		pastVerb:        countPastVerbConstant,
		baseVerb:        countBaseVerbConstant,
		subject:         fmt.Sprintf(ancestryDistanceSubjectTemplateConstant, fromRevision, AbbreviateRevision(toRevision)),
	}
}

func (formatter CommandMessageFormatter) describeGenericCommand(command ShellCommand) operationDescription {
	return operationDescription{
		progressiveVerb: runProgressiveVerbConstant,
		pastVerb:        runPastVerbConstant,
		baseVerb:        runBaseVerbConstant,
		subject:         strings.TrimSpace(fmt.Sprintf(genericSubjectTemplateConstant, command.Name, strings.Join(command.Details.Arguments, argumentsJoinSeparatorConstant))),
	}
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	firstLines := strings.SplitN(trimmedStandardError, "\n", standardErrorLineLimitConstant+1)
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, strings.TrimSpace(firstLines[0]))
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) lastNonFlagArgument(arguments []string) string {
	candidates := nonFlagArguments(arguments)
	if len(candidates) == 0 {
		return emptyStringConstant
	}
	return candidates[len(candidates)-1]
}

// AbbreviateRevision shortens full commit hashes for display and leaves other revisions untouched.
func AbbreviateRevision(revision string) string {
	if revision == gitEmptyTreeHashConstant {
		return emptyTreeLabelConstant
	}
	if len(revision) != fullHashLengthConstant {
		return revision
	}
	return revision[:abbreviatedHashLengthConstant]
}

func splitPathSpec(arguments []string) ([]string, []string) {
	for argumentIndex, argument := range arguments {
		if argument == pathSpecSeparatorConstant {
			return arguments[:argumentIndex], arguments[argumentIndex+1:]
		}
	}
	return arguments, nil
}

func nonFlagArguments(arguments []string) []string {
	candidates := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		if argument == pathSpecSeparatorConstant {
			break
		}
		if strings.HasPrefix(argument, flagPrefixConstant) {
			continue
		}
		candidates = append(candidates, argument)
	}
	return candidates
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if argument == value {
			return true
		}
	}
	return false
}
