package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var indexerCmd = &cobra.Command{
	Use:   "indexer",
	Short: "Manage the index service target.",
	Run:   indexerRun,
}

var indexerSetCmd = &cobra.Command{
	Use:   "set <target-url>",
	Short: "Set the index service target.",
	Args:  cobra.ExactArgs(1),
	Run:   indexerSetRun,
}

var indexerDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable index notifications.",
	Run:   indexerDisableRun,
}

func init() {
	rootCmd.AddCommand(indexerCmd)
	indexerCmd.AddCommand(indexerSetCmd)
	indexerCmd.AddCommand(indexerDisableCmd)
}

func indexerRun(cmd *cobra.Command, args []string) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/node/indexer", url))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var target struct {
		Target  string `json:"target"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&target); err != nil {
		log.Fatal(err)
	}

	if !target.Enabled {
		fmt.Println("Index notifications disabled.")
		return
	}
	fmt.Println("Index target:", target.Target)
}

func indexerSetRun(cmd *cobra.Command, args []string) {
	body, err := json.Marshal(struct {
		Target string `json:"target"`
	}{
		Target: args[0],
	})
	if err != nil {
		log.Fatal(err)
	}

	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/v1/node/indexer", url), bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		log.Fatalf("unexpected status %d", resp.StatusCode)
	}

	fmt.Println("Index target set:", args[0])
}

func indexerDisableRun(cmd *cobra.Command, args []string) {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/v1/node/indexer", url), nil)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		log.Fatalf("unexpected status %d", resp.StatusCode)
	}

	fmt.Println("Index notifications disabled.")
}
