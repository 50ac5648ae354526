package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/mcp/client"
)

const (
	prompt = "> "

	cmdQuit  = "/quit"
	cmdExit  = "/exit"
	cmdReset = "/reset"
	cmdTools = "/tools"
)

// replEnv is the chat backend of the REPL
type replEnv struct {
	Chat  func(ctx context.Context, input string) string
	Tools func(ctx context.Context) ([]client.ToolInfo, error)
	Reset func()
}

// runREPL reads the messages line by line and prints the answers,
// until /quit or the end of input.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, env *replEnv) error {
	chatCtx := chatmodel.WithChatContext(ctx, chatmodel.NewChatContext(""))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprint(out, prompt)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case cmdQuit, cmdExit:
			return nil
		case cmdReset:
			if env.Reset != nil {
				env.Reset()
			}
			chatCtx = chatmodel.WithChatContext(ctx, chatmodel.NewChatContext(""))
			fmt.Fprintln(out, "session reset")
		case cmdTools:
			list, err := env.Tools(chatCtx)
			if err != nil {
				fmt.Fprintln(out, chatmodel.UserMessage(err))
			} else {
				printTools(out, list)
			}
		default:
			fmt.Fprintln(out, env.Chat(chatCtx, line))
		}
		fmt.Fprint(out, prompt)
	}
	return scanner.Err()
}

func printTools(out io.Writer, list []client.ToolInfo) {
	for _, t := range list {
		if t.Description == "" {
			fmt.Fprintf(out, "- %s\n", t.Name)
		} else {
			fmt.Fprintf(out, "- %s: %s\n", t.Name, t.Description)
		}
	}
}
