package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/engine"
	"github.com/sells-group/leadgen-cli/internal/export"
	"github.com/sells-group/leadgen-cli/internal/geo"
	"github.com/sells-group/leadgen-cli/internal/model"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover candidate businesses for a location and type",
	Long:  "Runs one discovery pass (Places batch search or generative stream), optionally researches every candidate, and exports the session.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("discover"); err != nil {
			return err
		}

		location, _ := cmd.Flags().GetString("location")
		areaSpec, _ := cmd.Flags().GetString("area")
		businessType, _ := cmd.Flags().GetString("type")
		countSpec, _ := cmd.Flags().GetString("count")
		source, _ := cmd.Flags().GetString("source")
		doResearch, _ := cmd.Flags().GetBool("research")
		outPath, _ := cmd.Flags().GetString("out")

		if location == "" {
			return eris.New("--location is required")
		}
		if businessType == "" {
			return eris.New("--type is required")
		}

		q := engine.Query{
			Location:     location,
			BusinessType: businessType,
			Source:       engine.Source(source),
		}
		if areaSpec != "" {
			area, err := geo.ParseArea(areaSpec)
			if err != nil {
				return err
			}
			q.Area = area
		}
		if countSpec != "" && !strings.EqualFold(countSpec, "all") {
			n, err := strconv.Atoi(countSpec)
			if err != nil {
				return eris.Errorf("--count must be a number or \"all\", got %q", countSpec)
			}
			q.Count = n
		}

		eng, cleanup := buildEngine()
		defer cleanup()

		result, err := eng.Discover(ctx, q)
		if err != nil {
			// Partial results are still worth exporting.
			zap.L().Error("discovery failed",
				zap.Int("admitted_before_failure", result.Admitted),
				zap.Error(err),
			)
			if result.Admitted == 0 {
				return err
			}
		}

		if doResearch {
			if err := eng.ResearchAll(ctx); err != nil {
				return eris.Wrap(err, "research all")
			}
		}

		candidates := eng.Store().List()
		summarize(candidates)

		if outPath != "" {
			if err := writeExport(outPath, candidates); err != nil {
				return err
			}
			fmt.Printf("wrote %d leads to %s\n", len(candidates), outPath)
		}

		return nil
	},
}

func summarize(candidates []model.Candidate) {
	done, failed := 0, 0
	for _, c := range candidates {
		switch c.EnrichmentState {
		case model.EnrichmentDone:
			done++
		case model.EnrichmentFailed:
			failed++
		}
	}
	fmt.Printf("%d candidates (%d researched, %d failed)\n", len(candidates), done, failed)
}

func writeExport(path string, candidates []model.Candidate) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create export file")
	}
	defer f.Close() //nolint:errcheck

	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return export.WriteXLSX(f, candidates)
	}
	return export.WriteCSV(f, candidates)
}

func init() {
	discoverCmd.Flags().String("location", "", "location to search, e.g. \"Austin, TX\" (required)")
	discoverCmd.Flags().String("area", "", "optional search rectangle as lat,lng,radius_km")
	discoverCmd.Flags().String("type", "", "business type, e.g. \"Coffee Shops\" (required)")
	discoverCmd.Flags().String("count", "", "result count, a number or \"all\"")
	discoverCmd.Flags().String("source", "places", "discovery source: places or research")
	discoverCmd.Flags().Bool("research", false, "research every candidate after discovery")
	discoverCmd.Flags().String("out", "", "export path (.csv or .xlsx)")
	rootCmd.AddCommand(discoverCmd)
}
