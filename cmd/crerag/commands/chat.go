package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"crerag/internal/chat"
)

var chatUser string

// NewChatCmd creates the chat command.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the assistant",
		Long: `Ask the assistant a question grounded in the knowledge base.

With a message argument a single exchange is printed. Without one, lines are
read from stdin and answered in one session until EOF.`,
		Example: `  crerag chat "Which suites are above 15,000 SF?"
  crerag chat`,
		RunE: runChat,
	}
	cmd.Flags().StringVarP(&chatUser, "user", "u", "cli", "User id recorded on the session")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{withChat: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ask := func(sessionID, message string) (string, error) {
		resp, err := a.chat.Chat(cmd.Context(), chat.Request{UserID: chatUser, Message: message, SessionID: sessionID})
		if err != nil {
			return sessionID, err
		}
		if outputJSON {
			return resp.SessionID, writeJSON(cmd.OutOrStdout(), resp)
		}
		cmd.Printf("%s\n", resp.Response)
		return resp.SessionID, nil
	}

	if len(args) > 0 {
		_, err := ask("", strings.Join(args, " "))
		return err
	}

	sessionID := ""
	sc := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(cmd.ErrOrStderr(), "> ")
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if sessionID, err = ask(sessionID, line); err != nil {
			return err
		}
	}
	return sc.Err()
}
