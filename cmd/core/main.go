// Package main provides the PlantCare developer CLI. It drives the same
// core the mobile library exposes.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/plantcare/backend/internal/backup"
	"github.com/kimhsiao/plantcare/backend/internal/config"
	"github.com/kimhsiao/plantcare/backend/internal/garden"
	"github.com/kimhsiao/plantcare/backend/internal/logging"
	"github.com/kimhsiao/plantcare/backend/internal/models"
	"github.com/kimhsiao/plantcare/backend/internal/store"
	"github.com/kimhsiao/plantcare/backend/internal/validation"
	"github.com/kimhsiao/plantcare/backend/internal/watering"
)

// Version is set at build time
var Version = "0.1.0"

// app holds what the plant commands share once the store is open.
type app struct {
	configPath string
	out        io.Writer
	errOut     io.Writer

	store  store.PlantStore
	garden *garden.Service
	backup *backup.Service
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logging.Init(a.errOut, cfg.LogLevel())
	log := logging.Get()

	ctx := cmd.Context()
	s, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	a.store = s
	a.garden = garden.NewService(s, garden.Options{Language: cfg.Language(), Logger: log})
	a.backup = backup.NewService(s, log)

	if cfg.SeedSamples {
		if _, err := a.garden.Seed(ctx); err != nil {
			log.Warn("Failed to seed sample plants", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func (a *app) printEntries(entries []watering.Entry) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tSPECIES\tSTATUS")
	for _, e := range entries {
		icon := "leaf"
		if e.NeedsWater {
			icon = "drop"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", icon, e.Plant.ID, e.Plant.Name, e.Plant.Species, e.Label)
	}
	return tw.Flush()
}

func (a *app) printPlant(verb string, p models.Plant) {
	e := watering.Evaluate(p, a.garden.Now(), a.garden.Language())
	fmt.Fprintf(a.out, "%s %s (%s): %s\n", verb, p.Name, p.ID, e.Label)
}

func parseID(arg string) (models.UUID, error) {
	id, err := models.ParseUUID(arg)
	if err != nil {
		return "", fmt.Errorf("invalid plant id %q: %w", arg, err)
	}
	return id, nil
}

func parseDate(arg string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, arg, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --last-watered %q, want YYYY-MM-DD", arg)
	}
	return t, nil
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "plantcare",
		Short:         "Track when your houseplants need water",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "plantcare.yaml", "config file")

	// withStore opens the plant store around the command's RunE.
	withStore := func(cmd *cobra.Command) *cobra.Command {
		run := cmd.RunE
		cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
			if err := a.open(cmd); err != nil {
				return err
			}
			defer func() {
				if closeErr := a.close(); err == nil {
					err = closeErr
				}
			}()
			return run(cmd, args)
		}
		return cmd
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(out, "PlantCare Core v%s\n", Version)
		},
	})

	root.AddCommand(withStore(&cobra.Command{
		Use:   "list",
		Short: "List plants in the order they were added",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.garden.Rows(cmd.Context())
			if entries == nil {
				return err
			}
			if err != nil {
				fmt.Fprintf(errOut, "warning: %v\n", err)
			}
			return a.printEntries(entries)
		},
	}))

	root.AddCommand(withStore(&cobra.Command{
		Use:   "schedule",
		Short: "List plants most urgent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.garden.Schedule(cmd.Context())
			if entries == nil {
				return err
			}
			if err != nil {
				fmt.Fprintf(errOut, "warning: %v\n", err)
			}
			return a.printEntries(entries)
		},
	}))

	var form validation.Form
	var lastWatered string
	add := withStore(&cobra.Command{
		Use:   "add",
		Short: "Add a plant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lastWatered != "" {
				t, err := parseDate(lastWatered)
				if err != nil {
					return err
				}
				form.LastWatered = &t
			}
			p, err := a.garden.Create(cmd.Context(), form)
			if err != nil {
				return err
			}
			a.printPlant("Added", p)
			return nil
		},
	})
	add.Flags().StringVar(&form.Name, "name", "", "plant name")
	add.Flags().StringVar(&form.Species, "species", "", "species")
	add.Flags().StringVar(&form.WateringFrequency, "every", "", "watering frequency in days")
	add.Flags().StringVar(&form.Notes, "notes", "", "care notes")
	add.Flags().StringVar(&lastWatered, "last-watered", "", "date last watered (YYYY-MM-DD), default today")
	root.AddCommand(add)

	var edits validation.Form
	var editWatered string
	edit := withStore(&cobra.Command{
		Use:   "edit <id>",
		Short: "Change a plant; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			current, err := a.garden.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			form := validation.FormFromPlant(current)
			flags := cmd.Flags()
			if flags.Changed("name") {
				form.Name = edits.Name
			}
			if flags.Changed("species") {
				form.Species = edits.Species
			}
			if flags.Changed("every") {
				form.WateringFrequency = edits.WateringFrequency
			}
			if flags.Changed("notes") {
				form.Notes = edits.Notes
			}
			if flags.Changed("last-watered") {
				t, err := parseDate(editWatered)
				if err != nil {
					return err
				}
				form.LastWatered = &t
			}
			form.RemovePhoto = edits.RemovePhoto

			p, err := a.garden.Edit(cmd.Context(), id, form)
			if err != nil {
				return err
			}
			a.printPlant("Updated", p)
			return nil
		},
	})
	edit.Flags().StringVar(&edits.Name, "name", "", "plant name")
	edit.Flags().StringVar(&edits.Species, "species", "", "species")
	edit.Flags().StringVar(&edits.WateringFrequency, "every", "", "watering frequency in days")
	edit.Flags().StringVar(&edits.Notes, "notes", "", "care notes")
	edit.Flags().StringVar(&editWatered, "last-watered", "", "date last watered (YYYY-MM-DD)")
	edit.Flags().BoolVar(&edits.RemovePhoto, "remove-photo", false, "drop the stored photo")
	root.AddCommand(edit)

	root.AddCommand(withStore(&cobra.Command{
		Use:   "water <id>",
		Short: "Mark a plant as watered today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.garden.MarkWatered(cmd.Context(), id)
			if err != nil {
				return err
			}
			a.printPlant("Watered", p)
			return nil
		},
	}))

	root.AddCommand(withStore(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a plant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.garden.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(out, "Deleted %s\n", id)
			return nil
		},
	}))

	var exportCfg backup.Config
	export := withStore(&cobra.Command{
		Use:   "export",
		Short: "Write a backup archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.backup.Export(cmd.Context(), exportCfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Exported %d plants to %s (%d bytes, encrypted: %t)\n",
				result.PlantCount, result.FilePath, result.SizeBytes, result.Encrypted)
			return nil
		},
	})
	export.Flags().StringVarP(&exportCfg.OutputPath, "out", "o", "", "archive path")
	export.Flags().StringVarP(&exportCfg.Password, "password", "p", "", "encrypt with this password")
	root.AddCommand(export)

	var importPassword string
	imp := withStore(&cobra.Command{
		Use:   "import <archive>",
		Short: "Merge plants from a backup archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.backup.Import(cmd.Context(), backup.ImportConfig{
				ArchivePath: args[0],
				Password:    importPassword,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Imported %d plants, skipped %d\n", result.ImportedCount, result.SkippedCount)
			return nil
		},
	})
	imp.Flags().StringVarP(&importPassword, "password", "p", "", "archive password")
	root.AddCommand(imp)

	return root
}

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
