package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/el-siradj/SCHOOL/internal/dto"
	"github.com/el-siradj/SCHOOL/internal/models"
	"github.com/el-siradj/SCHOOL/internal/service"
	"github.com/el-siradj/SCHOOL/pkg/storage"
)

const (
	operatorActor    = "timetablectl"
	defaultExportDir = "./exports"
)

func newRootCmd(out io.Writer) *cobra.Command {
	var a *app

	root := &cobra.Command{
		Use:           "timetablectl",
		Short:         "Operate the class timetable from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.SetOut(out)

	state := func() *app { return a }
	root.AddCommand(
		newAutofillCmd(state),
		newClearCmd(state),
		newSuggestCmd(state),
		newExportCmd(state),
		newTokenCmd(state),
		newPruneExportsCmd(),
	)
	return root
}

func newAutofillCmd(state func() *app) *cobra.Command {
	var allowSameDay bool
	var maxSame int

	cmd := &cobra.Command{
		Use:   "autofill [class-id]",
		Short: "Greedily place a class's remaining weekly quotas",
		Long: `Fill the empty cells of a class's study window with the subjects that still
have weekly periods left. All placements are committed in one transaction.

Examples:
  timetablectl autofill 12
  timetablectl autofill 12 --max-same 2
  timetablectl autofill 12 --allow-same-day`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classID, err := parseID(args[0], "class-id")
			if err != nil {
				return err
			}
			a := state()
			if err := a.connect(); err != nil {
				return err
			}

			avoid := !allowSameDay
			req := dto.AutofillRequest{AvoidSameSubjectPerDay: &avoid, CreatedBy: strPtr(operatorActor)}
			if cmd.Flags().Changed("max-same") {
				req.MaxSameSubjectPerDay = &maxSame
			}
			result, err := a.planner.Autofill(cmd.Context(), classID, req)
			if err != nil {
				return fmt.Errorf("autofill class %d: %w", classID, err)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVar(&allowSameDay, "allow-same-day", false, "allow a subject more than once per day")
	cmd.Flags().IntVar(&maxSame, "max-same", 0, "cap of sessions of one subject per day; only applies while same-day avoidance is on (defaults to configuration)")
	cmd.MarkFlagsMutuallyExclusive("allow-same-day", "max-same")
	return cmd
}

func newClearCmd(state func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [class-id]",
		Short: "Delete every slot of a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classID, err := parseID(args[0], "class-id")
			if err != nil {
				return err
			}
			a := state()
			if err := a.connect(); err != nil {
				return err
			}
			result, err := a.slots.ClearClass(cmd.Context(), classID)
			if err != nil {
				return fmt.Errorf("clear class %d: %w", classID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d slots from class %d\n", result.Deleted, classID)
			return nil
		},
	}
}

func newSuggestCmd(state func() *app) *cobra.Command {
	var query dto.SuggestionQuery

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "List legal empty cells for a class, subject and teacher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := state()
			if err := a.connect(); err != nil {
				return err
			}
			result, err := a.planner.Suggest(cmd.Context(), query)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(result.Slots) == 0 {
				fmt.Fprintln(w, "No legal cell left")
				return nil
			}
			for _, slot := range result.Slots {
				fmt.Fprintf(w, "day=%d period=%d\n", slot.DayID, slot.PeriodID)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&query.ClassID, "class", 0, "class id")
	cmd.Flags().Int64Var(&query.SubjectID, "subject", 0, "subject id")
	cmd.Flags().Int64Var(&query.TeacherID, "teacher", 0, "teacher id")
	_ = cmd.MarkFlagRequired("class")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("teacher")
	return cmd
}

func newExportCmd(state func() *app) *cobra.Command {
	var format, output, dir string

	cmd := &cobra.Command{
		Use:   "export [class|teacher] [id]",
		Short: "Render a weekly grid as PDF or CSV",
		Long: `Write a class or teacher timetable to a file.

Examples:
  timetablectl export class 12 --format pdf
  timetablectl export teacher 4 --format csv --out teacher4.csv`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"class", "teacher"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := strings.ToUpper(args[0])
			if kind != dto.ViewKindClass && kind != dto.ViewKindTeacher {
				return fmt.Errorf("unknown grid kind %q: use class or teacher", args[0])
			}
			id, err := parseID(args[1], "id")
			if err != nil {
				return err
			}
			a := state()
			if err := a.connect(); err != nil {
				return err
			}
			file, err := a.export.Export(cmd.Context(), kind, id, format)
			if err != nil {
				return err
			}
			if output != "" {
				if err := os.WriteFile(output, file.Content, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, len(file.Content))
				return nil
			}
			archive, err := storage.NewExportArchive(dir)
			if err != nil {
				return err
			}
			rel, err := archive.Save(file.Filename, file.Content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", archive.Path(rel), len(file.Content))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", dto.ExportFormatPDF, "pdf or csv")
	cmd.Flags().StringVarP(&output, "out", "o", "", "output path; when empty the file goes to the export archive")
	cmd.Flags().StringVar(&dir, "dir", defaultExportDir, "export archive directory")
	return cmd
}

func newPruneExportsCmd() *cobra.Command {
	var dir string
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune-exports",
		Short: "Delete archived exports older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			archive, err := storage.NewExportArchive(dir)
			if err != nil {
				return err
			}
			deleted, err := archive.PruneOlderThan(olderThan)
			if err != nil {
				return err
			}
			for _, rel := range deleted {
				fmt.Fprintln(cmd.OutOrStdout(), rel)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d files\n", len(deleted))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", defaultExportDir, "export archive directory")
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age cutoff")
	return cmd
}

func newTokenCmd(state func() *app) *cobra.Command {
	var userID, role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for scripted calls to the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userRole := models.UserRole(strings.ToUpper(role))
			if !userRole.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			a := state()
			tokens := service.NewTokenService(service.TokenConfig{
				Secret:     a.cfg.JWT.Secret,
				Issuer:     a.cfg.JWT.Issuer,
				Expiration: a.cfg.JWT.Expiration,
			})
			token, expiresAt, err := tokens.Issue(userID, userRole, ttl)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"token":     token,
				"expiresAt": expiresAt.UTC().Format(time.RFC3339),
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", operatorActor, "subject of the token")
	cmd.Flags().StringVar(&role, "role", string(models.RoleTimetableOfficer), "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func strPtr(s string) *string {
	return &s
}
