package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"formcraft/internal/domain"
)

var errInvalidForm = errors.New("form definition is invalid")

// formFile 与 POST /api/forms 的请求体同形
type formFile struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Fields      []domain.Field `json:"fields"`
	IsPublic    bool           `json:"isPublic"`
	Theme       *domain.Theme  `json:"theme"`
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <form.json>",
		Short: "Check a form definition without uploading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var in formFile
			if err := json.Unmarshal(b, &in); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			f := &domain.Form{Title: in.Title, Description: in.Description, Fields: in.Fields, IsPublic: in.IsPublic}
			errs := domain.ValidateForm(f)
			out := cmd.OutOrStdout()
			if len(errs) == 0 {
				fmt.Fprintf(out, "%s: ok (%d fields)\n", args[0], len(f.Fields))
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FIELD\tCODE\tMESSAGE")
			for _, e := range errs {
				field := e.Field
				if field == "" {
					field = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", field, e.Code, e.Message)
			}
			_ = w.Flush()
			return fmt.Errorf("%s: %w (%d problems)", args[0], errInvalidForm, len(errs))
		},
	}
}
