package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Ramsey-B/enygma/internal/services/engine"
	"github.com/Ramsey-B/enygma/pkg/alphabet"
	"github.com/Ramsey-B/enygma/pkg/chain"
	"github.com/Ramsey-B/enygma/pkg/models"
	"github.com/Ramsey-B/enygma/pkg/pipeline"
	"github.com/spf13/cobra"
)

func newEncryptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Run text through a preset or a chain file",
		Long: `Run text through a cipher chain. Every message starts from the initial
rotor positions, so the same input always gives the same output.

INPUT METHODS:
  enygma encrypt --text "HELLO"           # Direct text
  enygma encrypt --file message.txt       # From file
  echo "HELLO" | enygma encrypt           # From stdin

CHAIN:
  enygma encrypt --preset Vigenère --text "ATTACK"
  enygma encrypt --chain chain.yaml --text "ATTACK"

CLASSIC:
  --classic runs the chain's first rotors and plugboard modules as a
  three-part machine with a fixed reflector. Running its output through the
  same command gives the input back.`,
		RunE: runEncrypt,
	}

	cmd.Flags().StringP("text", "t", "", "Text to process")
	cmd.Flags().StringP("file", "f", "", "File to process")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringP("preset", "p", chain.PresetEnigma, "Built-in preset to use")
	cmd.Flags().StringP("chain", "c", "", "YAML chain file, overrides --preset")
	cmd.Flags().String("charset", "", "Character set (uppercase, full, extended)")
	cmd.Flags().Bool("trace", false, "Print every module step to stderr")
	cmd.Flags().Bool("classic", false, "Use the reciprocal classic machine built from the chain's rotors and plugboard")
	return cmd
}

func runEncrypt(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, flush, err := newLogger(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		return err
	}
	defer flush()

	text, err := readInput(cmd)
	if err != nil {
		return fmt.Errorf("failed to get input text: %w", err)
	}
	if text == "" {
		return fmt.Errorf("no input text provided. Use --text, --file, or pipe to stdin")
	}

	service := engine.NewService(logger)
	if chainPath, _ := cmd.Flags().GetString("chain"); chainPath != "" {
		f, err := os.Open(chainPath)
		if err != nil {
			return fmt.Errorf("failed to open chain file: %w", err)
		}
		set, modules, err := ReadChainFile(f)
		_ = f.Close()
		if err != nil {
			return err
		}
		service.Apply(ctx, chainConfiguration(chainPath, set, modules, time.Now()))
	} else {
		preset, _ := cmd.Flags().GetString("preset")
		if err := service.LoadPreset(ctx, preset); err != nil {
			return err
		}
	}

	if charset, _ := cmd.Flags().GetString("charset"); charset != "" {
		if err := service.SetCharacterSet(ctx, alphabet.CharacterSet(charset)); err != nil {
			return err
		}
	}

	if classic, _ := cmd.Flags().GetBool("classic"); classic {
		output, err := classicMessage(service.State().Modules, text)
		if err != nil {
			return err
		}
		return writeOutput(cmd, output)
	}

	result := service.ProcessMessage(ctx, text)

	if trace, _ := cmd.Flags().GetBool("trace"); trace {
		for _, record := range result.History {
			fmt.Fprintf(cmd.ErrOrStderr(), "%4d %-14s %-24s %q -> %q\n",
				record.Position, record.ModuleKind, record.ModuleID, record.InputSymbol, record.OutputSymbol)
		}
	}

	return writeOutput(cmd, result.Output)
}

// classicMessage runs text through the first enabled rotors and plugboard
// modules of the chain as a ClassicCipher machine.
func classicMessage(modules []models.ModuleConfig, text string) (string, error) {
	var rotors []models.RotorSetting
	var plugboard map[string]string
	for _, module := range modules {
		if !module.Enabled {
			continue
		}
		switch payload := module.Payload.(type) {
		case models.RotorSetPayload:
			if rotors == nil {
				rotors = payload.RotorSettings
			}
		case models.PlugboardPayload:
			if plugboard == nil {
				plugboard = payload.Mapping
			}
		}
	}
	if len(rotors) == 0 {
		return "", fmt.Errorf("--classic needs a chain with an enabled rotors module")
	}
	return pipeline.ClassicMessage(text, rotors, plugboard), nil
}

func readInput(cmd *cobra.Command) (string, error) {
	if text, _ := cmd.Flags().GetString("text"); text != "" {
		return text, nil
	}

	if filename, _ := cmd.Flags().GetString("file"); filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", filename, err)
		}
		return string(data), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		// only read stdin when it is piped
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func writeOutput(cmd *cobra.Command, text string) error {
	outputFile, _ := cmd.Flags().GetString("output")
	if outputFile == "" {
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}
	return os.WriteFile(outputFile, []byte(text), 0600)
}
