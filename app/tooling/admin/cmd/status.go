package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

type nodeStatus struct {
	Height        uint64 `json:"height"`
	LatestHash    string `json:"latest_hash"`
	IndexTarget   string `json:"index_target"`
	NotifyPending bool   `json:"notify_pending"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the node's status.",
	Run:   statusRun,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusRun(cmd *cobra.Command, args []string) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/node/status", url))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	decoder := json.NewDecoder(resp.Body)
	var status nodeStatus
	if err := decoder.Decode(&status); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Height:        ", status.Height)
	fmt.Println("Latest hash:   ", status.LatestHash)
	fmt.Println("Index target:  ", status.IndexTarget)
	fmt.Println("Notify pending:", status.NotifyPending)
}
