// cmd/tools/catalog-tool/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"activity-signups/pkg/catalog"
)

const defaultCatalogPath = "configs/activities.yaml"

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, out io.Writer) error {
	switch command {
	case "add":
		cmd := flag.NewFlagSet("add", flag.ContinueOnError)
		path := cmd.String("path", defaultCatalogPath, "Path to catalog file (.json or .yaml)")
		name := cmd.String("name", "", "Activity name (e.g., Chess Club)")
		description := cmd.String("description", "", "Description")
		schedule := cmd.String("schedule", "", "Schedule (e.g., Fridays, 3:30 PM - 5:00 PM)")
		maxParticipants := cmd.Int("max", 0, "Maximum participants")
		if err := cmd.Parse(args); err != nil {
			return err
		}
		if *name == "" || *description == "" || *schedule == "" || *maxParticipants <= 0 {
			return errors.New("name, description, schedule and a positive max are required for add")
		}
		if err := addActivity(*path, catalog.Activity{
			Name:            *name,
			Description:     *description,
			Schedule:        *schedule,
			MaxParticipants: *maxParticipants,
			Participants:    []string{},
		}); err != nil {
			return err
		}
		fmt.Fprintf(out, "Added activity: %s\n", *name)

	case "update":
		cmd := flag.NewFlagSet("update", flag.ContinueOnError)
		path := cmd.String("path", defaultCatalogPath, "Path to catalog file")
		name := cmd.String("name", "", "Activity name to update")
		field := cmd.String("field", "", "Field to update (description, schedule, max_participants)")
		value := cmd.String("value", "", "New value for the field")
		if err := cmd.Parse(args); err != nil {
			return err
		}
		if *name == "" || *field == "" || *value == "" {
			return errors.New("name, field and value are required for update")
		}
		if err := updateActivity(*path, *name, *field, *value); err != nil {
			return err
		}
		fmt.Fprintf(out, "Updated activity %s, field %s to %s\n", *name, *field, *value)

	case "validate":
		cmd := flag.NewFlagSet("validate", flag.ContinueOnError)
		path := cmd.String("path", defaultCatalogPath, "Path to catalog file")
		if err := cmd.Parse(args); err != nil {
			return err
		}
		cat, err := catalog.Load(*path)
		if err != nil {
			return fmt.Errorf("catalog validation failed: %w", err)
		}
		fmt.Fprintf(out, "Catalog validation passed. Found %d activities.\n", len(cat.Activities))

	case "list":
		cmd := flag.NewFlagSet("list", flag.ContinueOnError)
		path := cmd.String("path", defaultCatalogPath, "Path to catalog file")
		if err := cmd.Parse(args); err != nil {
			return err
		}
		cat, err := catalog.Load(*path)
		if err != nil {
			return err
		}
		listActivities(cat, out)

	case "init":
		cmd := flag.NewFlagSet("init", flag.ContinueOnError)
		path := cmd.String("path", defaultCatalogPath, "Path to write the default catalog to")
		if err := cmd.Parse(args); err != nil {
			return err
		}
		if _, err := os.Stat(*path); err == nil {
			return fmt.Errorf("%s already exists", *path)
		}
		cat := catalog.Default()
		cat.LastUpdated = time.Now().Format(time.RFC3339)
		if err := catalog.Save(cat, *path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote default catalog to %s\n", *path)

	default:
		help()
	}
	return nil
}

func addActivity(path string, activity catalog.Activity) error {
	cat, err := catalog.Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		cat = &catalog.Catalog{Version: "1.0.0"}
	}

	for _, existing := range cat.Activities {
		if existing.Name == activity.Name {
			return fmt.Errorf("activity %s already exists", activity.Name)
		}
	}

	cat.Activities = append(cat.Activities, activity)
	cat.LastUpdated = time.Now().Format(time.RFC3339)
	return catalog.Save(cat, path)
}

func updateActivity(path, name, field, value string) error {
	cat, err := catalog.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	idx := -1
	for i := range cat.Activities {
		if cat.Activities[i].Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("activity %s not found", name)
	}

	switch field {
	case "description":
		cat.Activities[idx].Description = value
	case "schedule":
		cat.Activities[idx].Schedule = value
	case "max_participants":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid max_participants value: %s", value)
		}
		cat.Activities[idx].MaxParticipants = n
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	cat.LastUpdated = time.Now().Format(time.RFC3339)
	return catalog.Save(cat, path)
}

func listActivities(cat *catalog.Catalog, out io.Writer) {
	activities := append([]catalog.Activity(nil), cat.Activities...)
	sort.Slice(activities, func(i, j int) bool { return activities[i].Name < activities[j].Name })

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSCHEDULE\tENROLLED\tPARTICIPANTS")
	for _, a := range activities {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n",
			a.Name, a.Schedule, len(a.Participants), a.MaxParticipants, strings.Join(a.Participants, ", "))
	}
	tw.Flush()
}

func help() {
	fmt.Print(`
Usage: catalog-tool <command> [flags]

Commands:
  init      Write the built-in default catalog to a file
  add       Add a new activity to the catalog
  update    Update an existing activity's field
  validate  Validate the catalog file
  list      Print the activities in the catalog
  help      Show this help message

Examples:
  catalog-tool init -path configs/activities.yaml
  catalog-tool add -name "Robotics Club" -description "Build and program robots" -schedule "Mondays, 4:00 PM - 5:30 PM" -max 15
  catalog-tool update -name "Chess Club" -field max_participants -value 16
  catalog-tool validate -path configs/activities.yaml

Use 'catalog-tool <command> -h' for more information about a command.
` + "\n")
}
