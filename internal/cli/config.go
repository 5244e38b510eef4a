package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/testbench/internal/output"
	"github.com/wesleyorama2/testbench/pkg/jsonpath"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change the resolved configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every configuration section",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}
		withSources, _ := cmd.Flags().GetBool("sources")

		m := manager(cmd)
		p := &output.ConfigPrinter{Format: format, Scheme: output.SchemeFor(noColorFlag(cmd))}
		if err := p.Print(cmd.OutOrStdout(), m.Get()); err != nil {
			return err
		}
		if withSources {
			if format == output.FormatText {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return p.PrintSources(cmd.OutOrStdout(), m.Sources())
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get PATH",
	Short: "Print one value, e.g. api.timeout or $.api.headers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := output.ConfigMap(manager(cmd).Get())
		if err != nil {
			return err
		}
		result, err := jsonpath.LookupValue(tree, args[0])
		if err != nil {
			return err
		}
		if result.IsObject() || result.IsArray() {
			return output.Encode(cmd.OutOrStdout(), output.FormatJSON, result.Value())
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.String())
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration against its invariants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := manager(cmd)
		if err := m.Validate(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration is valid (environment: %s, %d sources)\n",
			output.SuccessIcon(noColorFlag(cmd)), m.Environment(), len(m.Sources()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set SECTION.KEY VALUE",
	Short: "Change one value, optionally saving the result",
	Long: `Change one value of the in-memory configuration. VALUE is read as YAML,
so 45 is a number, true is a boolean and [a, b] is a list. The changed tree
is validated before it is saved.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		section, key, ok := strings.Cut(args[0], ".")
		if !ok || section == "" || key == "" {
			return fmt.Errorf("invalid target %q, expected SECTION.KEY", args[0])
		}
		value, err := parseValue(args[1])
		if err != nil {
			return err
		}

		m := manager(cmd)
		if err := m.UpdateField(cmd.Context(), section, key, value); err != nil {
			return err
		}
		if err := m.Validate(); err != nil {
			return err
		}

		noColor := noColorFlag(cmd)
		current, _ := m.Field(section, key)
		if section == "database" && key == "password" {
			current = output.Mask
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s.%s = %s\n", output.SuccessIcon(noColor), section, key, output.FormatValue(current))

		save, _ := cmd.Flags().GetBool("save")
		if !save {
			return nil
		}
		target, _ := cmd.Flags().GetString("output")
		path, err := m.Save(cmd.Context(), target)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Saved to %s\n", output.SuccessIcon(noColor), path)
		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save [PATH]",
	Short: "Write the resolved configuration to a file",
	Long: `Write the resolved configuration to PATH, or to
<config-dir>/config.<environment>.yaml when PATH is omitted. The database
password is never written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) == 1 {
			target = args[0]
		}
		path, err := manager(cmd).Save(cmd.Context(), target)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Saved to %s\n", output.SuccessIcon(noColorFlag(cmd)), path)
		return nil
	},
}

// parseValue reads a command line value as a YAML scalar, list or map.
func parseValue(raw string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("invalid value %q: %w", raw, err)
	}
	if v == nil {
		return raw, nil
	}
	return v, nil
}

func formatFlag(cmd *cobra.Command) (output.Format, error) {
	raw, _ := cmd.Flags().GetString("format")
	return output.ParseFormat(raw)
}

func init() {
	configShowCmd.Flags().StringP("format", "f", "text", "Output format (text, json, yaml)")
	configShowCmd.Flags().Bool("sources", false, "Also list the layers that contributed")

	configSetCmd.Flags().Bool("save", false, "Save the configuration after the change")
	configSetCmd.Flags().StringP("output", "o", "", "File to save to (default <config-dir>/config.<environment>.yaml)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSaveCmd)
}
