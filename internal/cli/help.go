package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// annotationKeys holds a comma-separated list of dotted keys a parent command
// documents under "Keys:".
const annotationKeys = "entropool/keys"

// walkCommands visits every command in the tree depth-first.
func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// enrichParentLong appends the visible subcommands, and any annotated keys, to
// a parent command's Long description.
func enrichParentLong(cmd *cobra.Command) {
	if !cmd.HasSubCommands() {
		return
	}

	var sb strings.Builder
	sb.WriteString(cmd.Long)
	sb.WriteString("\n\nSubcommands:\n")

	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			fmt.Fprintf(&sb, "  %-16s %s\n", sub.Name(), sub.Short)
		}
	}

	if keys := cmd.Annotations[annotationKeys]; keys != "" {
		sb.WriteString("\nKeys:\n")
		sb.WriteString(formatKeySections(strings.Split(keys, ",")))
	}

	cmd.Long = sb.String()
}

// formatKeySections groups dotted keys by section, keeping first-seen order.
func formatKeySections(keys []string) string {
	var order []string
	sections := make(map[string][]string)
	for _, k := range keys {
		section, name, ok := strings.Cut(k, ".")
		if !ok {
			section, name = "", k
		}
		if _, seen := sections[section]; !seen {
			order = append(order, section)
		}
		sections[section] = append(sections[section], name)
	}

	var sb strings.Builder
	for _, s := range order {
		label := s
		if label == "" {
			label = "(top)"
		}
		fmt.Fprintf(&sb, "  %-10s %s\n", label+":", strings.Join(sections[s], ", "))
	}
	return sb.String()
}
