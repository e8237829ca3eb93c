/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var statusTarget string

func init() {
	statusCmd.Flags().StringVar(&statusTarget, "target", "127.0.0.1:9150", "host:port of a running gateway's monitoring endpoint")
	RootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Dump a running gateway's session counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		ConfigureVerbosity()
		return doStatus()
	},
}

func doStatus() error {
	resp, err := http.Get(fmt.Sprintf("http://%s/stats", statusTarget))
	if err != nil {
		return fmt.Errorf("fetching status from %s: %w", statusTarget, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching status from %s: got %s", statusTarget, resp.Status)
	}

	var counters map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&counters); err != nil {
		return fmt.Errorf("decoding status: %w", err)
	}

	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Counter", "Value")
	for _, k := range keys {
		v := counters[k]
		row := []string{k, strconv.FormatInt(v, 10)}
		if strings.Contains(k, "error") || strings.Contains(k, "excess_retries") {
			if v > 0 {
				row[1] = color.RedString(row[1])
			}
		}
		table.Append(row)
	}
	return table.Render()
}
