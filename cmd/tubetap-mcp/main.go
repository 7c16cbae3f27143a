package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// scrapeRequest mirrors the tubetap API request model.
type scrapeRequest struct {
	ChannelURL      string   `json:"channel_url"`
	MaxItems        int      `json:"max_items,omitempty"`
	Tabs            []string `json:"tabs,omitempty"`
	FullDescription bool     `json:"full_description,omitempty"`
}

// channelResponse mirrors the tubetap API response model.
type channelResponse struct {
	Success  bool   `json:"success"`
	Channel  string `json:"channel"`
	Metadata *struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"metadata"`
	TotalVideos    int               `json:"total_videos"`
	TotalLives     int               `json:"total_lives"`
	TotalShorts    int               `json:"total_shorts"`
	Videos         []json.RawMessage `json:"videos"`
	Lives          []json.RawMessage `json:"lives"`
	Shorts         []json.RawMessage `json:"shorts"`
	IncompleteTabs []string          `json:"incomplete_tabs"`
	Error          *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("TUBETAP_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("TUBETAP_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "TUBETAP_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"tubetap",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapeChannelTool := mcp.NewTool("scrape_channel",
		mcp.WithDescription("List the videos, live streams, and shorts of a YouTube channel with titles, URLs, thumbnails, and view counts. Paginates through the channel automatically."),
		mcp.WithString("channel_url",
			mcp.Required(),
			mcp.Description("The channel's root URL, e.g. https://www.youtube.com/@example"),
		),
		mcp.WithNumber("max_items",
			mcp.Description("Maximum number of items per tab (default: unlimited)"),
		),
		mcp.WithArray("tabs",
			mcp.Description("Tabs to crawl: any of 'videos', 'lives', 'shorts' (default: all)"),
		),
		mcp.WithBoolean("full_description",
			mcp.Description("Fetch each item's full description (slow: one extra request per item)"),
		),
	)
	s.AddTool(scrapeChannelTool, handleScrapeChannel(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleScrapeChannel(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		channelURL, err := request.RequireString("channel_url")
		if err != nil {
			return mcp.NewToolResultError("channel_url is required"), nil
		}

		reqBody := scrapeRequest{ChannelURL: channelURL}
		args := request.GetArguments()
		if maxItems, ok := args["max_items"].(float64); ok {
			reqBody.MaxItems = int(maxItems)
		}
		if tabs, ok := args["tabs"].([]any); ok {
			for _, t := range tabs {
				if tab, ok := t.(string); ok {
					reqBody.Tabs = append(reqBody.Tabs, tab)
				}
			}
		}
		if full, ok := args["full_description"].(bool); ok {
			reqBody.FullDescription = full
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/scrape", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-API-Key", apiKey)

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var channelResp channelResponse
		if err := json.Unmarshal(respBody, &channelResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !channelResp.Success {
			errMsg := "scrape failed"
			if channelResp.Error != nil {
				errMsg = fmt.Sprintf("%s: %s", channelResp.Error.Code, channelResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		// Pass the full response through; the items are already compact.
		return mcp.NewToolResultText(string(respBody)), nil
	}
}
