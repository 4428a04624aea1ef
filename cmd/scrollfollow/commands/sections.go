package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/livetemplate/scrollfollow"
	"github.com/livetemplate/scrollfollow/internal/session"
)

// maxColumnWidth is the maximum width for table columns before truncation
const maxColumnWidth = 50

func sectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sections <file.md>",
		Short: "List the sections of a markdown file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			sess, err := openSession(cmd, args[0])
			if err != nil {
				return err
			}
			defer sess.Close()

			rows := sectionRows(sess)
			switch format {
			case "table":
				return outputTable(cmd.OutOrStdout(), rows)
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			default:
				return fmt.Errorf("unknown format %q (want table or json)", format)
			}
		},
	}
	cmd.Flags().StringP("format", "f", "table", "Output format (table, json)")
	return cmd
}

// openSession loads the document, keeping it open on a section mismatch.
func openSession(cmd *cobra.Command, path string) (*session.Session, error) {
	cfg, err := loadConfig(cmd, path)
	if err != nil {
		return nil, err
	}
	return session.Open(path, cfg)
}

type sectionRow struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

func sectionRows(sess *session.Session) []sectionRow {
	lines := sess.Lines()
	var rows []sectionRow
	for i, sec := range sess.Sections() {
		rows = append(rows, sectionRow{
			Index: i,
			ID:    scrollfollow.SectionClass(i),
			Start: sec.Start,
			End:   sec.End,
			Text:  strings.TrimSpace(lines[sec.Start]),
		})
	}
	return rows
}

// outputTable prints rows with columns aligned by display width, so wide
// runes in headings do not skew the layout.
func outputTable(w io.Writer, rows []sectionRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No sections (document is blank)")
		return err
	}

	header := []string{"#", "ID", "LINES", "TEXT"}
	table := [][]string{header}
	for _, r := range rows {
		table = append(table, []string{
			fmt.Sprintf("%d", r.Index),
			r.ID,
			fmt.Sprintf("%d-%d", r.Start+1, r.End+1),
			runewidth.Truncate(r.Text, maxColumnWidth, "..."),
		})
	}

	widths := make([]int, len(header))
	for _, row := range table {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var errs []error
	for n, row := range table {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i == len(row)-1 {
				cells[i] = cell
				continue
			}
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
		_, err := fmt.Fprintln(w, strings.Join(cells, "  "))
		errs = append(errs, err)

		if n == 0 {
			seps := make([]string, len(widths))
			for i, width := range widths {
				seps[i] = strings.Repeat("-", width)
			}
			_, err := fmt.Fprintln(w, strings.Join(seps, "  "))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
