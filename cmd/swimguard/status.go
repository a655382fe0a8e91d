package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ruvnet/swimguard/internal/dto"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running agent's admin API for cluster status",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8080", "admin API base URL")
}

func runStatus(cmd *cobra.Command, args []string) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(statusAddr + "/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to query status: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "admin API returned %s\n", resp.Status)
		os.Exit(1)
	}

	var status dto.ClusterStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "failed to decode response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("self:                     %s\n", status.Self)
	fmt.Printf("incarnation:              %d\n", status.Incarnation)
	fmt.Printf("protocol period:          %d\n", status.ProtocolPeriod)
	fmt.Printf("local health multiplier:  %d\n", status.LocalHealthMultiplier)
	fmt.Printf("probe list size:          %d\n", status.ProbeListSize)
	fmt.Printf("member count:             %d\n", status.MemberCount)
	fmt.Println("members:")
	for _, m := range status.Members {
		fmt.Printf("  %-24s %-12s inc=%-6d suspected_by=%d\n", m.Addr, m.Status, m.Incarnation, m.SuspectedByCount)
	}
}
