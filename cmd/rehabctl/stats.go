package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show platform statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	stats, err := client.Admin.Stats(context.Background())
	if err != nil {
		printError(err)
		return err
	}

	if jsonOut {
		return printJSON(stats)
	}

	w := newTable()
	fmt.Fprintf(w, "Users\t%d\n", stats.TotalUsers)
	for _, role := range sortedKeys(stats.UsersByRole) {
		fmt.Fprintf(w, "  %s\t%d\n", role, stats.UsersByRole[role])
	}
	fmt.Fprintf(w, "Consented\t%d\n", stats.ConsentedUsers)
	fmt.Fprintf(w, "Subscriptions\t\n")
	for _, status := range sortedKeys(stats.SubscriptionsByStatus) {
		fmt.Fprintf(w, "  %s\t%d\n", status, stats.SubscriptionsByStatus[status])
	}
	fmt.Fprintf(w, "Active associations\t%d\n", stats.ActiveAssociations)
	fmt.Fprintf(w, "Completions (30d)\t%d\n", stats.CompletionsLast30Days)
	return w.Flush()
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
