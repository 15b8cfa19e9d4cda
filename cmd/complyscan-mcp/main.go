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
	"github.com/use-agent/complyscan/models"
)

func main() {
	apiURL := os.Getenv("COMPLYSCAN_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}

	s := server.NewMCPServer(
		"complyscan",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	checkTool := mcp.NewTool("check_compliance",
		mcp.WithDescription("Audit a web page for Russian personal data compliance (152-FZ, 149-FZ): cookie banner, privacy policy, consent forms, tracking cookies set before consent, foreign services. Renders JavaScript-heavy pages in a headless browser when needed."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute http(s) URL of the page to audit"),
		),
		mcp.WithNumber("max_age",
			mcp.Description("Accept a cached result younger than this many milliseconds (default: 0, always re-audit)"),
		),
	)
	s.AddTool(checkTool, handleCheckCompliance(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the complyscan API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleCheckCompliance(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := models.DetectRequest{
			URL:    url,
			MaxAge: int(request.GetFloat("max_age", 0)),
		}

		respBody, err := apiPost(ctx, client, apiURL, "/api/v1/detect", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("detect request failed: %v", err)), nil
		}

		var detectResp models.DetectResponse
		if err := json.Unmarshal(respBody, &detectResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !detectResp.Success || detectResp.Data == nil {
			errMsg := "detection failed"
			if detectResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", detectResp.Error.Code, detectResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(formatReport(&detectResp)), nil
	}
}
