package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-lessons/internal/catalog"
)

func newShowCmd() *cobra.Command {
	var dir, grade, term, branch string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the lessons of a grade and term",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := catalog.NewLoader(catalog.NewDirSource(dir))
			c, err := loader.Load(cmd.Context(), grade, term)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s, term %s\n", catalog.GradeTitle(grade), term)

			branches := c.Branches()
			if branch != "" {
				branches = []string{branch}
			}
			for _, b := range branches {
				lessons := c.Lessons(b)
				fmt.Fprintf(out, "\n%s (%d)\n", b, len(lessons))
				for i, l := range lessons {
					fmt.Fprintf(out, "  %2d  %s  [%d questions]\n", i, l.Title, len(l.Quiz))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "./data", "Directory holding lesson documents")
	cmd.Flags().StringVar(&grade, "grade", "", "Grade")
	cmd.Flags().StringVar(&term, "term", "", "Term")
	cmd.Flags().StringVar(&branch, "branch", "", "Only show this branch")
	_ = cmd.MarkFlagRequired("grade")
	_ = cmd.MarkFlagRequired("term")

	return cmd
}
