// Package cli implements the promptkeep command line interface, a thin
// shell over the service layer.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/promptkeep/promptkeep/internal/config"
	"github.com/promptkeep/promptkeep/internal/models"
	"github.com/promptkeep/promptkeep/internal/service"
)

// Execute runs the root command.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	var svc *service.Service

	root := &cobra.Command{
		Use:     "promptkeep",
		Short:   "Manage and render a library of prompt templates",
		Version: version,
		Long: `promptkeep manages a directory of prompt template files. Each file
carries YAML frontmatter (title, description, categories, author,
parameters) followed by a Jinja-style template body. Templates are
rendered with caller-supplied parameters and a filtered view of the
process environment.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			svc = service.New(cfg, slog.Default())
			return svc.Init()
		},
	}

	root.AddCommand(
		newListCmd(&svc),
		newShowCmd(&svc),
		newAddCmd(&svc),
		newEditCmd(&svc),
		newDeleteCmd(&svc),
		newRenderCmd(&svc),
		newSearchCmd(&svc),
		newCategoriesCmd(&svc),
	)
	return root
}

func newListCmd(svc **service.Service) *cobra.Command {
	var asJSON bool
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all prompts in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			var prompts []models.PromptTemplate
			var err error
			if category != "" {
				prompts, err = (*svc).ListPromptsByCategory(category)
			} else {
				prompts, err = (*svc).ListPrompts()
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), prompts)
			}
			for _, tpl := range prompts {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s [%s]\n",
					tpl.Name, tpl.Metadata.Title, strings.Join(tpl.Metadata.Categories, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	cmd.Flags().StringVar(&category, "category", "", "only list prompts declaring this category")
	return cmd
}

func newShowCmd(svc **service.Service) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a prompt's metadata and template body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := (*svc).LoadPrompt(args[0])
			if err != nil {
				return err
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "# %s\n\n%s\n\n", tpl.Metadata.Title, tpl.Metadata.Description)
			fmt.Fprintf(&sb, "- **Author:** %s\n- **Categories:** %s\n",
				tpl.Metadata.Author, strings.Join(tpl.Metadata.Categories, ", "))
			if len(tpl.Metadata.Parameters) > 0 {
				sb.WriteString("- **Parameters:**\n")
				for _, p := range tpl.Metadata.Parameters {
					required := ""
					if p.Required {
						required = " (required)"
					}
					fmt.Fprintf(&sb, "  - `%s` %s%s: %s\n", p.Name, p.Type, required, p.Description)
				}
			}
			fmt.Fprintf(&sb, "\n---\n\n%s\n", tpl.Content)

			if raw {
				fmt.Fprint(cmd.OutOrStdout(), sb.String())
				return nil
			}
			r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(100),
			)
			if err != nil {
				// No usable terminal style; fall back to plain output.
				fmt.Fprint(cmd.OutOrStdout(), sb.String())
				return nil
			}
			out, err := r.Render(sb.String())
			if err != nil {
				fmt.Fprint(cmd.OutOrStdout(), sb.String())
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print without terminal markdown styling")
	return cmd
}

func newAddCmd(svc **service.Service) *cobra.Command {
	var fromFile string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new prompt from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(cmd.InOrStdin(), fromFile)
			if err != nil {
				return err
			}
			if err := (*svc).AddPrompt(args[0], content); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added prompt '%s'\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "read template content from file instead of stdin")
	return cmd
}

func newEditCmd(svc **service.Service) *cobra.Command {
	var fromFile string
	cmd := &cobra.Command{
		Use:   "edit <name>",
		Short: "Replace an existing prompt's content from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(cmd.InOrStdin(), fromFile)
			if err != nil {
				return err
			}
			if err := (*svc).EditPrompt(args[0], content); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated prompt '%s'\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "read template content from file instead of stdin")
	return cmd
}

func newDeleteCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := (*svc).DeletePrompt(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted prompt '%s'\n", args[0])
			return nil
		},
	}
}

func newRenderCmd(svc **service.Service) *cobra.Command {
	var paramFlags []string
	var paramsJSON string
	cmd := &cobra.Command{
		Use:   "render <name>",
		Short: "Render a prompt with parameters",
		Long: `Render a prompt with parameters. Parameters are given either as
repeated --param key=value flags (values are parsed as JSON when
possible, otherwise taken as strings) or as a single --params JSON
object.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := collectParams(paramFlags, paramsJSON)
			if err != nil {
				return err
			}
			out, err := (*svc).RenderPrompt(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&paramFlags, "param", "p", nil, "parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&paramsJSON, "params", "", "all parameters as one JSON object")
	return cmd
}

func newSearchCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search prompts by name, title, description and categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompts, err := (*svc).SearchPrompts(args[0])
			if err != nil {
				return err
			}
			for _, tpl := range prompts {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", tpl.Name, tpl.Metadata.Title)
			}
			return nil
		},
	}
}

func newCategoriesCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the distinct categories across the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := (*svc).ListCategories()
			if err != nil {
				return err
			}
			for _, category := range categories {
				fmt.Fprintln(cmd.OutOrStdout(), category)
			}
			return nil
		},
	}
}

func readContent(stdin io.Reader, fromFile string) (string, error) {
	if fromFile != "" {
		data, err := os.ReadFile(fromFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// collectParams merges --params JSON with repeated --param flags; the
// latter win on key collisions.
func collectParams(paramFlags []string, paramsJSON string) (map[string]any, error) {
	params := make(map[string]any)
	if paramsJSON != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
			return nil, fmt.Errorf("invalid --params JSON: %w", err)
		}
	}
	for _, flag := range paramFlags {
		key, value, found := strings.Cut(flag, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --param %q: expected key=value", flag)
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			params[key] = parsed
		} else {
			params[key] = value
		}
	}
	return params, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
