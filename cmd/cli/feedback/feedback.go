package feedback

import (
	"fmt"
	"github.com/planificaia/aliada/internal/chat"
	"github.com/spf13/cobra"
	"os"
	"time"
)

var Group = &cobra.Group{
	ID:    "feedback",
	Title: "Class feedback",
}

func init() {
	Report.Flags().String("out", "", "path to the report file, defaults to stdout")
}

var Report = &cobra.Command{
	Use:     "report [file]",
	GroupID: "feedback",
	Short:   "Generate feedback report",
	Long:    "Generates the markdown feedback report offered after a class recording was analysed",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := chat.FileDescriptor{Name: args[0], MIMEType: "", Size: 0}.BaseName()
		report := chat.FeedbackReport(name, time.Now())

		out, err := cmd.Flags().GetString("out")
		if err != nil {
			return err
		}
		if out == "" {
			_, err = fmt.Fprint(cmd.OutOrStdout(), report)
			return err
		}
		return os.WriteFile(out, []byte(report), 0o600) //nolint:mnd // owner read/write
	},
}
