package ui

import (
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"golang.org/x/term"
)

// Action represents the user's choice after an answer
type Action int

const (
	ActionAskAnother Action = iota
	ActionCopy
	ActionSources
	ActionNewConversation
	ActionQuit
)

const (
	choiceAskAnother = "Ask another question"
	choiceCopy       = "Copy answer to clipboard"
	choiceSources    = "Show retrieved context"
	choiceNew        = "Start a new conversation"
	choiceQuit       = "Quit"
)

// Provider choices offered by ConfigureProvider
const (
	ProviderChoiceNIM    = "NVIDIA NIM (hosted)"
	ProviderChoiceOllama = "Ollama (local)"
)

// IsInteractive reports whether stdin is a terminal; piped input skips the prompts
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ConfigureProvider prompts the user to select an embedding provider
func ConfigureProvider(current string) (string, error) {
	def := ProviderChoiceNIM
	if current == "ollama" {
		def = ProviderChoiceOllama
	}

	var choice string
	prompt := &survey.Select{
		Message: "Select an embedding provider:",
		Options: []string{ProviderChoiceNIM, ProviderChoiceOllama},
		Default: def,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", err
	}

	if choice == ProviderChoiceOllama {
		return "ollama", nil
	}
	return "nim", nil
}

// PromptPassword asks for a secret without echoing it. An empty reply keeps current.
func PromptPassword(message, current string) (string, error) {
	var value string
	prompt := &survey.Password{Message: message}
	if err := survey.AskOne(prompt, &value); err != nil {
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return current, nil
	}
	return strings.TrimSpace(value), nil
}

// PromptInput asks for a free-form value with a default
func PromptInput(message, def string) (string, error) {
	var value string
	prompt := &survey.Input{Message: message, Default: def}
	if err := survey.AskOne(prompt, &value); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// PromptQuestion asks the student for their next question
func PromptQuestion() (string, error) {
	var question string
	prompt := &survey.Input{
		Message: "Your question:",
	}

	if err := survey.AskOne(prompt, &question, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}

	return strings.TrimSpace(question), nil
}

// PromptYesNo asks a yes/no question
func PromptYesNo(message string, def bool) (bool, error) {
	answer := def
	prompt := &survey.Confirm{Message: message, Default: def}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return false, err
	}
	return answer, nil
}

// ShowMenu lets the user pick one of options
func ShowMenu(message string, options []string) (string, error) {
	var choice string
	prompt := &survey.Select{
		Message: message,
		Options: options,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", err
	}
	return choice, nil
}

// ConfirmAnswer shows the answer and asks the user what to do next
func ConfirmAnswer(answer string, hasSources bool) (Action, error) {
	ShowAnswer(answer)
	return NextAction(hasSources)
}

// NextAction asks what to do with the answer already on screen
func NextAction(hasSources bool) (Action, error) {
	choice, err := ShowMenu("What would you like to do?", answerOptions(hasSources))
	if err != nil {
		return ActionQuit, err
	}
	return parseAction(choice), nil
}

func answerOptions(hasSources bool) []string {
	options := []string{choiceAskAnother, choiceCopy}
	if hasSources {
		options = append(options, choiceSources)
	}
	return append(options, choiceNew, choiceQuit)
}

func parseAction(choice string) Action {
	switch choice {
	case choiceAskAnother:
		return ActionAskAnother
	case choiceCopy:
		return ActionCopy
	case choiceSources:
		return ActionSources
	case choiceNew:
		return ActionNewConversation
	default:
		return ActionQuit
	}
}
