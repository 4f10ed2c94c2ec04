package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/soulsync/soulsync/internal/api"
	"github.com/soulsync/soulsync/internal/companion"
	"github.com/soulsync/soulsync/internal/config"
	"github.com/soulsync/soulsync/internal/matching"
	"github.com/soulsync/soulsync/internal/mood"
	"github.com/soulsync/soulsync/internal/moodlog"
	"github.com/soulsync/soulsync/internal/profile"
	"github.com/soulsync/soulsync/internal/wall"
)

// --- mood ---

var moodCmd = &cobra.Command{
	Use:   "mood",
	Short: "Show the current mood and latest companion tip",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		resp, err := client.get(ctx, "/profile")
		if err != nil {
			return err
		}
		var p profile.Profile
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		resp, err = client.get(ctx, "/tip")
		if err != nil {
			return err
		}
		var tip map[string]string
		if err := decodeJSON(resp, &tip); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s is feeling %s\n", p.Nickname, colorMood(p.CurrentMood.String()))
		fmt.Fprintf(w, "%s\n", colorize(colorDim, tip["tip"]))
		return nil
	},
}

var moodSetCmd = &cobra.Command{
	Use:   "set <mood>",
	Short: "Record how you feel right now (" + strings.Join(moodNames(), ", ") + ")",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := mood.Parse(args[0])
		if err != nil {
			return fmt.Errorf("%w (choose one of %s)", err, strings.Join(moodNames(), ", "))
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/mood", map[string]any{"mood": m})
		if err != nil {
			return err
		}
		var res struct {
			Tip string `json:"tip"`
		}
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}

		printSuccess("Mood set to %s", m)
		fmt.Fprintln(cmd.OutOrStdout(), res.Tip)
		return nil
	},
}

var moodHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List every recorded mood, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/mood/history")
		if err != nil {
			return err
		}
		var entries []moodlog.Entry
		if err := decodeJSON(resp, &entries); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(w, moodlog.EmptyMessage)
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%s  %s\n", e.Timestamp.Local().Format("2006-01-02 15:04"), colorMood(e.Mood.String()))
		}
		return nil
	},
}

var moodTrendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Chart the most recent moods",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("n")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), fmt.Sprintf("/mood/trend?n=%d", n))
		if err != nil {
			return err
		}
		var trend struct {
			Points  []moodlog.Point `json:"points"`
			Empty   bool            `json:"empty"`
			Message string          `json:"message"`
		}
		if err := decodeJSON(resp, &trend); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if trend.Empty {
			fmt.Fprintln(w, trend.Message)
			return nil
		}
		for _, pt := range trend.Points {
			fmt.Fprintf(w, "%-3s %-5s %s\n", pt.Day, strings.Repeat("█", pt.Value), colorMood(pt.Mood.String()))
		}
		return nil
	},
}

func init() {
	moodTrendCmd.Flags().Int("n", moodlog.DefaultTrendLen, "number of entries to chart")
	moodCmd.AddCommand(moodSetCmd, moodHistoryCmd, moodTrendCmd)
}

func moodNames() []string {
	all := mood.All()
	names := make([]string, len(all))
	for i, m := range all {
		names[i] = m.String()
	}
	return names
}

// --- interests ---

var interestsCmd = &cobra.Command{
	Use:   "interests",
	Short: "List your interests",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/profile")
		if err != nil {
			return err
		}
		var p profile.Profile
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(p.Interests) == 0 {
			fmt.Fprintln(w, "No interests yet.")
			return nil
		}
		for _, tag := range p.Interests {
			fmt.Fprintf(w, "#%s\n", tag)
		}
		return nil
	},
}

var interestsAddCmd = &cobra.Command{
	Use:   "add <interest>",
	Short: "Add an interest tag",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/interests", map[string]string{"interest": tag})
		if err != nil {
			return err
		}
		var res struct {
			Added bool `json:"added"`
		}
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		if !res.Added {
			printWarning("%q is already one of your interests", strings.TrimSpace(tag))
			return nil
		}
		printSuccess("Added #%s", strings.TrimSpace(tag))
		return nil
	},
}

var interestsRemoveCmd = &cobra.Command{
	Use:   "remove <interest>",
	Short: "Remove an interest tag",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/interests/"+url.PathEscape(tag))
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("Removed #%s", tag)
		return nil
	},
}

func init() {
	interestsCmd.AddCommand(interestsAddCmd, interestsRemoveCmd)
}

// --- wall ---

var postCmd = &cobra.Command{
	Use:   "post <text>",
	Short: "Share an anonymous post on the support wall",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := strings.Join(args, " ")
		if strings.TrimSpace(content) == "" {
			return fmt.Errorf("post text is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/posts", map[string]string{"content": content})
		if err != nil {
			return err
		}
		var p wall.Post
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}
		printSuccess("Posted as %s (%s)", p.AuthorNickname, p.ID)
		return nil
	},
}

var wallCmd = &cobra.Command{
	Use:   "wall",
	Short: "Show the support wall, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/posts")
		if err != nil {
			return err
		}
		var posts []wall.Post
		if err := decodeJSON(resp, &posts); err != nil {
			return err
		}
		printPosts(cmd.OutOrStdout(), posts)
		return nil
	},
}

func printPosts(w io.Writer, posts []wall.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(w, "The wall is empty. Be the first to share something.")
		return
	}
	for _, p := range posts {
		fmt.Fprintf(w, "%s %s  %s\n",
			colorize(colorBold, p.AuthorNickname),
			colorMood(p.Mood.String()),
			colorize(colorDim, p.Timestamp.Local().Format("Jan 2 15:04")),
		)
		fmt.Fprintf(w, "  %s\n", p.Content)
		fmt.Fprintf(w, "  ♥ %d  %s\n\n", p.Likes, colorize(colorDim, p.ID))
	}
}

var likeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Like a post on the wall",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/posts/"+url.PathEscape(args[0])+"/like", nil)
		if err != nil {
			return err
		}
		var p wall.Post
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}
		printSuccess("♥ %d", p.Likes)
		return nil
	},
}

// --- peers ---

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Find peers who feel like you do",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		path := "/matches"
		if limit > 0 {
			path = fmt.Sprintf("/matches?limit=%d", limit)
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}
		var res struct {
			Matches []matching.Match `json:"matches"`
			Empty   bool             `json:"empty"`
			Message string           `json:"message"`
		}
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if res.Empty {
			fmt.Fprintln(w, res.Message)
			return nil
		}
		for i, m := range res.Matches {
			fmt.Fprintf(w, "%d. %s  %s  score %d\n", i+1, colorize(colorBold, m.Peer.Nickname), colorMood(m.Peer.Mood.String()), m.Score)
			fmt.Fprintf(w, "   %s\n", m.Peer.Bio)
			if len(m.Shared) > 0 {
				fmt.Fprintf(w, "   shared: #%s\n", strings.Join(m.Shared, " #"))
			}
		}
		return nil
	},
}

func init() {
	peersCmd.Flags().Int("limit", 0, "maximum number of peers (default from matching.top_k)")
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk with the companion (type /quit to leave)",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
		conn, _, err := dialer.DialContext(ctx, client.wsURL("/chat/ws"), nil)
		if err != nil {
			return fmt.Errorf("server not reachable, is soulsync running? (%w)", err)
		}
		defer conn.Close()

		return runChat(ctx, conn, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runChat reads lines from in, sends each as one turn and prints the reply.
// It returns on EOF or "/quit".
func runChat(ctx context.Context, conn *websocket.Conn, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, colorize(colorDim, "SoulAI is listening. Type /quit to leave."))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, colorize(colorCyan, "you> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := conn.WriteJSON(api.ChatFrame{Type: api.FrameMessage, Text: line}); err != nil {
			return fmt.Errorf("sending message: %w", err)
		}
		var reply api.ChatFrame
		if err := conn.ReadJSON(&reply); err != nil {
			return fmt.Errorf("reading reply: %w", err)
		}
		switch {
		case reply.Type == api.FrameError:
			printError("%s", reply.Error)
		case reply.Message != nil && reply.Message.Role == companion.RoleCompanion:
			fmt.Fprintf(out, "%s %s\n", colorize(colorBold, "SoulAI>"), reply.Message.Text)
		}
	}
	fmt.Fprintln(out)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return scanner.Err()
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update your anonymous profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/profile")
		if err != nil {
			return err
		}
		var p any
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <nickname|avatar> <value>",
	Short: "Set a profile field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if key != "nickname" && key != "avatar" {
			return fmt.Errorf("unknown profile field %q (valid: nickname, avatar)", key)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.patch(cmd.Context(), "/profile", map[string]string{key: value})
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileShowCmd, profileSetCmd)
}

// --- data ---

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Export stored data",
}

var dataExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export profile, mood history and posts as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/export")
		if err != nil {
			return err
		}
		var exp api.Export
		if err := decodeJSON(resp, &exp); err != nil {
			return err
		}

		writer := cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			writer = f
		}

		enc := json.NewEncoder(writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(exp); err != nil {
			return err
		}
		if output != "" {
			printSuccess("Data exported to %s", output)
		}
		return nil
	},
}

func init() {
	dataExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	dataCmd.AddCommand(dataExportCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(w, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
