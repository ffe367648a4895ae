// Package main implements the researchctl CLI for manual operations
// against the researchd HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the researchd HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "researchctl",
	Short: "CLI for researchd HTTP server operations",
	Long: `researchctl is a command-line interface for interacting with the
researchd HTTP server. It triggers ingestion sweeps, runs retrieval
queries, and drives the plan/report research flow.`,
	Version: version,
}

var (
	retrieveTopK     int
	retrieveMinScore float32
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "researchd server URL")
	retrieveCmd.Flags().IntVar(&retrieveTopK, "top-k", 0, "override the number of results")
	retrieveCmd.Flags().Float32Var(&retrieveMinScore, "min-score", -1, "override the similarity threshold")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(reportCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check researchd server health",
	Long: `Check the health status of the researchd HTTP server.

Examples:
  # Check health
  researchctl health

  # Check health on a different server
  researchctl health --server http://localhost:9090`,
	RunE: runHealth,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run an ingestion sweep over the corpus directory",
	Long: `Trigger one ingestion sweep on the server. New and changed files
are chunked, embedded, and indexed; unchanged files are skipped.

Examples:
  researchctl ingest`,
	RunE: runIngest,
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Retrieve the most similar indexed passages",
	Long: `Run a similarity query against the internal index.

Examples:
  researchctl retrieve "vacation policy"
  researchctl retrieve --top-k 5 --min-score 0.7 "expense reports"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

var planCmd = &cobra.Command{
	Use:   "plan <topic>",
	Short: "Generate a research plan for a topic",
	Long: `Generate a structured research plan and print it as JSON. Pipe the
output to a file to edit it before running the report.

Examples:
  researchctl plan "AI governance" > plan.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

var reportCmd = &cobra.Command{
	Use:   "report [planfile]",
	Short: "Execute a plan and print the synthesized report",
	Long: `Execute a research plan and print the cited report. The plan is
read from the given file, or from stdin when the argument is "-" or
omitted.

Examples:
  researchctl plan "AI governance" | researchctl report
  researchctl report plan.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

// Request/response types matching internal/server.

type RetrieveRequest struct {
	Query    string   `json:"query"`
	TopK     int      `json:"top_k,omitempty"`
	MinScore *float32 `json:"min_score,omitempty"`
}

type PlanRequest struct {
	Topic string `json:"topic"`
}

type PlanResponse struct {
	Plan json.RawMessage `json:"plan"`
}

type ExecuteRequest struct {
	Plan json.RawMessage `json:"plan"`
}

type ExecuteResponse struct {
	Report  string          `json:"report"`
	Sources json.RawMessage `json:"sources"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(serverURL + "/healthz")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to %s: %v\n", serverURL, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Server Status: %s\n", healthResp.Status)
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	body, err := postJSON("/api/v1/ingest", nil, 10*time.Minute)
	if err != nil {
		return err
	}

	var summary struct {
		Added   int `json:"added"`
		Updated int `json:"updated"`
		Skipped int `json:"skipped"`
	}
	if err := json.Unmarshal(body, &summary); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Added:   %d\nUpdated: %d\nSkipped: %d\n", summary.Added, summary.Updated, summary.Skipped)
	return nil
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	req := RetrieveRequest{
		Query: strings.Join(args, " "),
		TopK:  retrieveTopK,
	}
	if retrieveMinScore >= 0 {
		req.MinScore = &retrieveMinScore
	}

	body, err := postJSON("/api/v1/retrieve", req, 60*time.Second)
	if err != nil {
		return err
	}

	var resp struct {
		Results []struct {
			Content  string  `json:"content"`
			Score    float32 `json:"score"`
			FileName string  `json:"file_name"`
			Page     int     `json:"page"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(resp.Results) == 0 {
		fmt.Fprintln(os.Stderr, "No passages above the similarity threshold.")
		return nil
	}
	for i, r := range resp.Results {
		fmt.Printf("[%d] %.3f %s p.%d\n%s\n\n", i+1, r.Score, r.FileName, r.Page, r.Content)
	}
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	body, err := postJSON("/api/v1/plan", PlanRequest{Topic: strings.Join(args, " ")}, 2*time.Minute)
	if err != nil {
		return err
	}

	var resp PlanResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, resp.Plan, "", "  "); err != nil {
		return fmt.Errorf("failed to format plan: %w", err)
	}
	fmt.Println(pretty.String())
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	var planJSON []byte
	var err error

	if len(args) == 0 || args[0] == "-" {
		planJSON, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read plan from stdin: %w", err)
		}
	} else {
		planJSON, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read plan file %s: %w", args[0], err)
		}
	}
	if len(bytes.TrimSpace(planJSON)) == 0 {
		return fmt.Errorf("no plan provided")
	}

	body, err := postJSON("/api/v1/execute", ExecuteRequest{Plan: planJSON}, 10*time.Minute)
	if err != nil {
		return err
	}

	var resp ExecuteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Println(resp.Report)
	return nil
}

// postJSON sends a POST to the server and returns the response body on 200.
func postJSON(path string, payload interface{}, timeout time.Duration) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqJSON, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	url := serverURL + path
	httpReq, err := http.NewRequest(http.MethodPost, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	return io.ReadAll(resp.Body)
}

func statusError(resp *http.Response) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
