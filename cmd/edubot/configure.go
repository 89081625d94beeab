package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"

	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/config"
	"github.com/sudo-anshul/agentic-ai-aws-nvidia/internal/ui"
)

func runConfigure(cmd *cobra.Command, args []string) error {
	if !ui.IsInteractive() {
		return fmt.Errorf("configure needs an interactive terminal; set NVIDIA_API_KEY and EDUBOT_* variables instead")
	}

	path := configPath
	if path == "" {
		var err error
		if path, err = config.GetConfigPath(); err != nil {
			return err
		}
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ui.ShowSection("EDU Bot Configuration", path)

	if err := promptSettings(cfg); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			ui.ShowInfo("Configuration cancelled")
			return nil
		}
		return err
	}

	if err := cfg.Validate(); err != nil {
		ui.ShowWarning(err.Error())
		keep, err := ui.PromptYesNo("Save anyway?", false)
		if err != nil || !keep {
			ui.ShowInfo("Configuration not saved")
			return nil
		}
	}

	if err := config.SaveFile(cfg, path); err != nil {
		return err
	}
	ui.ShowSuccess("Configuration saved to " + path)

	ui.ShowInfo("Run 'edubot index' to embed the knowledge base")
	return nil
}

// promptSettings walks through every persisted setting, defaulting to the current value
func promptSettings(cfg *config.Config) error {
	provider, err := ui.ConfigureProvider(cfg.EmbeddingProvider)
	if err != nil {
		return err
	}
	if provider != cfg.EmbeddingProvider {
		// models and endpoints are provider specific
		cfg.EmbeddingModel = ""
		cfg.EmbeddingEndpoint = ""
	}
	cfg.EmbeddingProvider = provider

	message := "NVIDIA API key (leave empty to keep current):"
	if cfg.APIKey == "" {
		message = "NVIDIA API key (nvapi-...):"
	}
	if cfg.APIKey, err = ui.PromptPassword(message, cfg.APIKey); err != nil {
		return err
	}

	if cfg.KnowledgePath, err = ui.PromptInput("Knowledge base file:", cfg.KnowledgePath); err != nil {
		return err
	}

	topK, err := ui.PromptInput("Documents to retrieve per question:", strconv.Itoa(cfg.TopK))
	if err != nil {
		return err
	}
	if n, convErr := strconv.Atoi(topK); convErr == nil {
		cfg.TopK = n
	} else {
		ui.ShowWarning(fmt.Sprintf("%q is not a number, keeping %d", topK, cfg.TopK))
	}

	if cfg.UseRAG, err = ui.PromptYesNo("Use the knowledge base by default?", cfg.UseRAG); err != nil {
		return err
	}

	return nil
}
