package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/codecoach/internal/lines"
)

var flagLinesJSON bool

var linesCmd = &cobra.Command{
	Use:   "lines <expr>",
	Short: "Decode a line-range expression such as 3,4,10-15",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nums := lines.Decode(args[0])
		out := cmd.OutOrStdout()
		if flagLinesJSON {
			if nums == nil {
				nums = []int{}
			}
			data, err := json.Marshal(map[string]any{
				"lines": nums,
				"label": lines.Label(args[0]),
				"runs":  lines.Runs(nums),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		strs := make([]string, len(nums))
		for i, n := range nums {
			strs[i] = strconv.Itoa(n)
		}
		fmt.Fprintln(out, lines.Label(args[0]))
		fmt.Fprintln(out, strings.Join(strs, " "))
		return nil
	},
}

func init() {
	linesCmd.Flags().BoolVar(&flagLinesJSON, "json", false, "Print JSON")
}
