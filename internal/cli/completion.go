package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/prereqgraph/pkg/pipeline"
)

func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for prereqgraph.

Completions cover subcommands, flags and flag values such as --format,
--engine, --store and --cache.

  bash:        source <(prereqgraph completion bash)
  zsh:         prereqgraph completion zsh > "${fpath[1]}/_prereqgraph"
  fish:        prereqgraph completion fish > ~/.config/fish/completions/prereqgraph.fish
  powershell:  prereqgraph completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}
}

// registerCompletions attaches value completions to the flags of every
// subcommand of root that defines them.
func registerCompletions(root *cobra.Command) {
	values := map[string]cobra.CompletionFunc{
		"format": completeFormats,
		"engine": fixedValues(keys(pipeline.ValidEngines)...),
		"store":  fixedValues(backendMemory, backendFile, backendRedis),
		"cache":  fixedValues(backendFile, backendRedis, backendNone),
	}
	_ = root.RegisterFlagCompletionFunc("config", fileExtensions("toml", "yaml", "yml"))

	for _, cmd := range root.Commands() {
		for name, fn := range values {
			if cmd.Flags().Lookup(name) != nil {
				_ = cmd.RegisterFlagCompletionFunc(name, fn)
			}
		}
		switch cmd.Name() {
		case "layout", "inspect", "render":
			cmd.ValidArgsFunction = fileExtensions("json")
		}
	}
}

func fixedValues(vals ...string) cobra.CompletionFunc {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return vals, cobra.ShellCompDirectiveNoFileComp
	}
}

func fileExtensions(exts ...string) cobra.CompletionFunc {
	return func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return exts, cobra.ShellCompDirectiveFilterFileExt
	}
}

// completeFormats completes the last entry of a comma-separated format list,
// skipping formats already given.
func completeFormats(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix := ""
	given := []string{}
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix = toComplete[:i+1]
		given = parseFormats(toComplete[:i])
	}
	var out []string
	for _, f := range keys(pipeline.ValidFormats) {
		if !slices.Contains(given, f) {
			out = append(out, prefix+f)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
