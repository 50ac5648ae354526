package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/assistants"
	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/config"
	"github.com/effective-security/mcpchat/mcp/client"
	"github.com/effective-security/mcpchat/pkg/llmfactory"
	"github.com/effective-security/mcpchat/pkg/llmutils"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/mcpchat/tools/notion"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat/cmd", "mcpchat")

// EnvConfig is the environment variable with the location of the config file
const EnvConfig = "MCPCHAT_CONFIG"

var logLevels = map[string]xlog.LogLevel{
	"TRACE":    xlog.TRACE,
	"DEBUG":    xlog.DEBUG,
	"INFO":     xlog.INFO,
	"NOTICE":   xlog.NOTICE,
	"WARNING":  xlog.WARNING,
	"ERROR":    xlog.ERROR,
	"CRITICAL": xlog.CRITICAL,
}

type cli struct {
	cfgFile  string
	logLevel string
	verbose  bool

	cfg *config.Configuration
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "mcpchat",
		Short:         "Chat with an LLM using the Notion tools of a MCP host",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "cfg", os.Getenv(EnvConfig), "location of the config file")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: TRACE|DEBUG|INFO|NOTICE|WARNING|ERROR|CRITICAL")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "print the tool calls")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat",
		Long:  "The chat command reads the messages from stdin, commands: /reset, /tools, /quit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, mcp, err := c.assistant()
			if err != nil {
				return err
			}
			return runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), &replEnv{
				Chat:  a.Chat,
				Tools: mcp.ListTools,
				Reset: mcp.Session().Reset,
			})
		},
	}

	askCmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Answer a single message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := c.assistant()
			if err != nil {
				return err
			}
			res, err := a.Run(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), chatmodel.UserMessage(err))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Answer)
			if c.verbose {
				llmutils.PrintMessages(cmd.ErrOrStderr(), res.Messages)
			}
			return nil
		},
	}

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools of the MCP host",
		RunE: func(cmd *cobra.Command, args []string) error {
			mcp := client.New(&c.cfg.MCP)
			list, err := mcp.ListTools(cmd.Context())
			if err != nil {
				return err
			}
			printTools(cmd.OutOrStdout(), list)
			return nil
		},
	}

	callCmd := &cobra.Command{
		Use:   "call <tool> [arguments]",
		Short: "Call a tool of the MCP host with JSON arguments",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := notion.NewRegistry()
			if err != nil {
				return err
			}
			var input string
			if len(args) > 1 {
				input = args[1]
			}
			tool := reg.Tool(args[0], client.New(&c.cfg.MCP))
			runCall(cmd.Context(), cmd.OutOrStdout(), tool, input)
			return nil
		},
	}

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the tool schema sent to the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := notion.NewRegistry()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), llmutils.ToJSONIndent(reg.Tools()))
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the loaded configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *c.cfg
			cfg.LLM.Providers = nil
			for _, p := range c.cfg.LLM.Providers {
				masked := *p
				if masked.Token != "" {
					masked.Token = "***"
				}
				cfg.LLM.Providers = append(cfg.LLM.Providers, &masked)
			}
			fmt.Fprint(cmd.OutOrStdout(), llmutils.ToYAML(&cfg))
			return nil
		},
	}

	rootCmd.AddCommand(chatCmd, askCmd, callCmd, toolsCmd, schemaCmd, configCmd)
	return rootCmd
}

// runCall prints the indented result of the tool,
// or the message describing the failure.
func runCall(ctx context.Context, w io.Writer, tool tools.ITool, args string) {
	out, err := tool.Call(ctx, args)
	if err != nil {
		fmt.Fprintln(w, chatmodel.UserMessage(err))
		return
	}
	fmt.Fprintln(w, llmutils.JSONIndent(out))
}

func (c *cli) load() error {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return err
	}
	c.cfg = cfg

	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	level := strings.ToUpper(values.StringsCoalesce(c.logLevel, cfg.LogLevel, "WARNING"))
	l, ok := logLevels[level]
	if !ok {
		return errors.Newf("invalid log level: %s", level)
	}
	xlog.SetGlobalLogLevel(l)
	return nil
}

func (c *cli) assistant() (*assistants.Assistant, *client.Client, error) {
	factory := llmfactory.New(&c.cfg.LLM)
	model, err := factory.AssistantModel(c.cfg.Assistant.GetName(), c.cfg.Assistant.Models...)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "failed to create model")
	}

	registry, err := notion.NewRegistry()
	if err != nil {
		return nil, nil, err
	}

	mcp := client.New(&c.cfg.MCP)

	opts := c.cfg.Assistant.Options()
	if c.verbose {
		opts = append(opts, assistants.WithCallback(assistants.NewPrinterCallback(os.Stderr)))
	} else {
		opts = append(opts, assistants.WithCallback(assistants.NewPackageLoggerCallback(logger)))
	}

	logger.KV(xlog.INFO,
		"status", "assistant_created",
		"model", model.GetName(),
		"provider", model.GetProviderType(),
		"mcp", mcp.URL(),
		"tools", registry.Names(),
	)
	return assistants.NewAssistant(model, mcp, registry, opts...), mcp, nil
}
