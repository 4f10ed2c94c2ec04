package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/soulsync/soulsync/internal/app"
	"github.com/soulsync/soulsync/internal/matching"
	"github.com/soulsync/soulsync/internal/mood"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	App *app.App
}

// NewMCPServer creates an MCP server with the soulsync tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"soulsync",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("soulsync: anonymous mood check-ins, peer matching, a support wall and a gentle companion."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("record_mood",
			mcp.WithDescription("Record how the user feels right now and get a short supportive note."),
			mcp.WithString("mood",
				mcp.Description("One of Happy, Sad, Stressed, Anxious, Neutral"),
				mcp.Enum(moodLabels()...),
				mcp.Required(),
			),
		),
		mcpRecordMood(deps),
	)

	s.AddTool(
		mcp.NewTool("find_peers",
			mcp.WithDescription("List peers ranked by shared mood and interests."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of peers (default 4)")),
		),
		mcpFindPeers(deps),
	)

	s.AddTool(
		mcp.NewTool("post_message",
			mcp.WithDescription("Post an anonymous message to the support wall."),
			mcp.WithString("content", mcp.Description("Message text"), mcp.Required()),
		),
		mcpPostMessage(deps),
	)

	s.AddTool(
		mcp.NewTool("add_interest",
			mcp.WithDescription("Add an interest tag to the user's profile."),
			mcp.WithString("interest", mcp.Description("Interest tag, e.g. Music"), mcp.Required()),
		),
		mcpAddInterest(deps),
	)

	s.AddTool(
		mcp.NewTool("chat_companion",
			mcp.WithDescription("Send one message to the supportive companion and return its reply."),
			mcp.WithString("message", mcp.Description("What the user wants to say"), mcp.Required()),
		),
		mcpChatCompanion(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"soulsync://profile",
			"Profile",
			mcp.WithResourceDescription("Current anonymous profile as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

func moodLabels() []string {
	all := mood.All()
	labels := make([]string, len(all))
	for i, m := range all {
		labels[i] = m.String()
	}
	return labels
}

func mcpRecordMood(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("mood")
		if err != nil {
			return mcpError("mood is required"), nil
		}
		m, err := mood.Parse(raw)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		res, err := deps.App.SelectMood(ctx, m)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to record mood: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Recorded %s. %s", m, res.Tip)), nil
	}
}

func mcpFindPeers(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 0)
		if limit < 0 {
			limit = 0
		}

		matches, err := deps.App.Matches(limit)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to rank peers: %v", err)), nil
		}
		if len(matches) == 0 {
			return mcpText(matching.EmptyMessage), nil
		}

		type peerResult struct {
			Nickname string   `json:"nickname"`
			Mood     string   `json:"mood"`
			Bio      string   `json:"bio"`
			Score    int      `json:"score"`
			Shared   []string `json:"shared"`
		}
		results := make([]peerResult, len(matches))
		for i, m := range matches {
			results[i] = peerResult{
				Nickname: m.Peer.Nickname,
				Mood:     m.Peer.Mood.String(),
				Bio:      m.Peer.Bio,
				Score:    m.Score,
				Shared:   m.Shared,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpPostMessage(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}
		p, err := deps.App.AddPost(content)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to post: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Posted %s as %s", p.ID, p.AuthorNickname)), nil
	}
}

func mcpAddInterest(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tag, err := req.RequireString("interest")
		if err != nil {
			return mcpError("interest is required"), nil
		}
		_, added, err := deps.App.AddInterest(tag)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to add interest: %v", err)), nil
		}
		if !added {
			return mcpText(fmt.Sprintf("%s is already an interest", tag)), nil
		}
		return mcpText(fmt.Sprintf("Added interest %s", tag)), nil
	}
}

func mcpChatCompanion(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}
		reply, err := deps.App.Chat(ctx, message, nil)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(reply.Text), nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, err := deps.App.Profile()
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}

		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
