// Package main provides a terminal client for the smartdoc server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var (
	serverURL      string
	userID         string
	requestTimeout time.Duration
	plainOutput    bool
	wrapWidth      int
)

var rootCmd = &cobra.Command{
	Use:           "smartdoc-cli",
	Short:         "Terminal client for the Smart Doc assistant",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant about a knowledge subject",
	RunE:  runChat,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Upload a document and print its simulated analysis",
	RunE:  runAnalyze,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List subjects, companies, document types and dashboard figures",
	RunE:  runCatalog,
}

var eventsCmd = &cobra.Command{
	Use:   "events <session_id>",
	Short: "Print the call journal of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvents,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "smartdoc server URL")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "user id sent when creating sessions")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 2*time.Minute, "HTTP request timeout")
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "print markdown without terminal styling")
	rootCmd.PersistentFlags().IntVar(&wrapWidth, "width", 100, "word-wrap width for rendered markdown")

	chatCmd.Flags().String("subject", "", "knowledge subject (server default when empty)")

	analyzeCmd.Flags().String("file", "", "document to upload")
	analyzeCmd.Flags().String("company", "", "company the document belongs to")
	analyzeCmd.Flags().String("type", "", "document type, e.g. NDA")
	analyzeCmd.Flags().String("session", "", "existing session id (a new one is created when empty)")
	_ = analyzeCmd.MarkFlagRequired("file")
	_ = analyzeCmd.MarkFlagRequired("company")
	_ = analyzeCmd.MarkFlagRequired("type")

	eventsCmd.Flags().Int("limit", 100, "maximum number of events")

	rootCmd.AddCommand(chatCmd, analyzeCmd, catalogCmd, eventsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	subject, _ := cmd.Flags().GetString("subject")
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client := NewClient(serverURL, requestTimeout)
	sess, err := client.CreateSession(ctx, userID, subject)
	if err != nil {
		return err
	}

	stream, err := client.OpenStream(ctx, sess.SessionID)
	if err != nil {
		return err
	}
	defer stream.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s (subject: %s)\n", sess.SessionID, sess.Subject)
	fmt.Fprintln(out, "Commands: /subject <name>, /reset, /quit")

	go printFrames(stream, &printer{out: out, render: newMarkdownRenderer(plainOutput, wrapWidth)})

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nInterrupted")
			return client.EndSession(context.Background(), sess.SessionID)
		case line, ok := <-lines:
			if !ok {
				return client.EndSession(context.Background(), sess.SessionID)
			}
			quit, err := handleInput(stream, strings.TrimSpace(line))
			if err != nil {
				return err
			}
			if quit {
				fmt.Fprintln(out, "Bye!")
				return client.EndSession(context.Background(), sess.SessionID)
			}
		}
	}
}

// handleInput sends one line typed by the user. It reports whether the user
// asked to quit.
func handleInput(stream *Stream, input string) (bool, error) {
	switch {
	case input == "":
		return false, nil
	case input == "/quit":
		return true, nil
	case input == "/reset":
		return false, stream.Reset()
	case strings.HasPrefix(input, "/subject "):
		return false, stream.SetSubject(strings.TrimSpace(strings.TrimPrefix(input, "/subject ")))
	default:
		return false, stream.SendChat(input)
	}
}

// printFrames renders server frames until the stream closes.
func printFrames(stream *Stream, p *printer) {
	for {
		f, err := stream.Next()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				fmt.Fprintf(p.out, "stream closed: %v\n", err)
			}
			return
		}
		p.frame(f)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	company, _ := cmd.Flags().GetString("company")
	docType, _ := cmd.Flags().GetString("type")
	sessionID, _ := cmd.Flags().GetString("session")

	ctx := cmd.Context()
	client := NewClient(serverURL, requestTimeout)

	if sessionID == "" {
		sess, err := client.CreateSession(ctx, userID, "")
		if err != nil {
			return err
		}
		sessionID = sess.SessionID
		defer client.EndSession(context.Background(), sessionID)
	}

	result, err := client.Analyze(ctx, sessionID, file, company, docType)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if result.Fallback {
		fmt.Fprintln(out, "(analysis unavailable)")
	}
	fmt.Fprintln(out, newMarkdownRenderer(plainOutput, wrapWidth)(result.Markdown))
	return nil
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cat, err := NewClient(serverURL, requestTimeout).Catalog(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Subjects: %s\n", strings.Join(cat.Subjects, ", "))
	fmt.Fprintf(out, "Companies: %s\n", strings.Join(cat.Companies, ", "))
	fmt.Fprintf(out, "Document types: %s\n", strings.Join(cat.DocumentTypes, ", "))
	for _, s := range cat.Stats {
		fmt.Fprintf(out, "%s: %d\n", s.Label, s.Value)
	}
	return nil
}

func runEvents(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	events, err := NewClient(serverURL, requestTimeout).Events(cmd.Context(), args[0], limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, e := range events {
		fmt.Fprintf(out, "%s %-18s %s\n", time.UnixMilli(e.Ts).Format(time.RFC3339), e.Type, string(e.Payload))
	}
	return nil
}
