package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/your-org/skycam/internal/astro"
	"github.com/your-org/skycam/internal/config"
	"github.com/your-org/skycam/internal/schedule"
)

var windowsDate string

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "Preview resolved schedule windows for a date",
	Long: `Resolves every configured schedule's capture window for the given date
using the configured location, including solar-anchored windows. Useful
for sanity-checking a new schedule before it goes live.`,
	RunE: runWindows,
}

func init() {
	rootCmd.AddCommand(windowsCmd)
	windowsCmd.Flags().StringVar(&windowsDate, "date", "", "Date to resolve (YYYY-MM-DD, default today)")
}

func runWindows(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	loc, err := astro.ResolveLocation(cfg.Location.Latitude, cfg.Location.Longitude, cfg.Location.Timezone)
	if err != nil {
		return fmt.Errorf("resolve location: %w", err)
	}

	day := time.Now().In(loc.TZ())
	if windowsDate != "" {
		day, err = time.ParseInLocation("2006-01-02", windowsDate, loc.TZ())
		if err != nil {
			return fmt.Errorf("parse date: %w", err)
		}
	}

	sun := astro.NewCalculator(loc)
	evaluator := schedule.NewEvaluator(sun, loc.TZ(), cfg.Schedules)

	if times, err := sun.SunTimes(day); err == nil {
		fmt.Printf("%s  sunrise %s  sunset %s\n\n",
			day.Format("2006-01-02"),
			times.Sunrise.Format("15:04:05"),
			times.Sunset.Format("15:04:05"))
	} else {
		fmt.Printf("%s  no solar anchors: %v\n\n", day.Format("2006-01-02"), err)
	}

	for _, d := range evaluator.Definitions() {
		if d.Disabled {
			fmt.Printf("%-20s disabled\n", d.Name)
			continue
		}
		w, err := evaluator.ResolveWindow(d, day)
		if err != nil {
			fmt.Printf("%-20s unresolvable: %v\n", d.Name, err)
			continue
		}
		fmt.Printf("%-20s %s - %s  every %s  profile=%s\n",
			d.Name,
			w.Start.Format("15:04:05"),
			w.End.Format("15:04:05"),
			d.Interval(),
			d.ProfileID)
	}
	return nil
}
