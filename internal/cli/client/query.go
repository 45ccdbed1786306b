package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// QueryAPIRequest represents the query API request.
type QueryAPIRequest struct {
	Question    string   `json:"question"`
	Collections []string `json:"collections"`
	Mode        string   `json:"mode,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
}

// QueryAPIResponse represents the query API response.
type QueryAPIResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
	Mode    string   `json:"mode"`
}

// QueryCmd creates the query command.
func QueryCmd() *cobra.Command {
	var (
		collections []string
		mode        string
		topK        int
	)

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a question over indexed documents",
		Long:  "Retrieves relevant chunks from the named collections and generates an answer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runQuery(api, args[0], collections, mode, topK, outputJSON)
		},
	}

	cmd.Flags().StringSliceVarP(&collections, "collection", "c", nil, "Collection to query (repeatable, required)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "strict", "Answer mode (strict or comprehensive)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (default: server default)")
	cmd.MarkFlagRequired("collection")

	return cmd
}

func runQuery(api *APIClient, question string, collections []string, mode string, topK int, outputJSON bool) error {
	req := QueryAPIRequest{
		Question:    question,
		Collections: collections,
		Mode:        mode,
		TopK:        topK,
	}

	resp, err := api.Post("/query", req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var queryResp QueryAPIResponse
	if err := json.Unmarshal(resp.Data, &queryResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(queryResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(queryResp.Answer)
	if len(queryResp.Sources) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(queryResp.Sources, ", "))
	}

	return nil
}
