package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"suggestbot/internal/evidence"
)

func newEvidenceCommand() *cobra.Command {
	var format string
	var notes string
	var output string

	cmd := &cobra.Command{
		Use:         "evidence <text>",
		Short:       "Preview the evidence packet the bot would extract from a suggestion",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			packet := evidence.Build(evidence.Input{
				OmniInput:        strings.Join(args, " "),
				FormatPreference: format,
				Notes:            notes,
			})
			switch strings.ToLower(strings.TrimSpace(output)) {
			case "", "json":
				return writeJSON(cmd, &packet)
			case "yaml", "yml":
				data, err := packet.Marshal()
				if err != nil {
					return err
				}
				return writeYAML(cmd.OutOrStdout(), data)
			default:
				return fmt.Errorf("unsupported output %q (use json or yaml)", output)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Format preference to include")
	cmd.Flags().StringVar(&notes, "notes", "", "Patron notes to include")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format: json or yaml")
	return cmd
}

// writeYAML re-encodes JSON as block-style YAML. Decoding into a yaml.Node
// keeps the packet's key order.
func writeYAML(out io.Writer, data []byte) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("decode packet: %w", err)
	}
	clearStyle(&node)
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func clearStyle(node *yaml.Node) {
	if node.Kind == yaml.MappingNode || node.Kind == yaml.SequenceNode {
		node.Style = 0
	}
	if node.Kind == yaml.ScalarNode && node.Style == yaml.DoubleQuotedStyle && node.Tag == "!!str" {
		node.Style = 0
	}
	for _, child := range node.Content {
		clearStyle(child)
	}
}
