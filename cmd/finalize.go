package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/apexloop/circuitweather/internal/fetcher"
	"github.com/apexloop/circuitweather/internal/matcher"
	"github.com/apexloop/circuitweather/internal/model"
)

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Reduce match candidates to one mapping row per circuit",
	Long:  "Picks the rank-1 candidate per circuit, applies manual overrides, verifies coverage against the source circuit list, and writes the final mapping.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		candsPath, _ := cmd.Flags().GetString("candidates")
		sourcesPath, _ := cmd.Flags().GetString("sources")
		overridesPath, _ := cmd.Flags().GetString("overrides")
		outPath, _ := cmd.Flags().GetString("out")
		strict, _ := cmd.Flags().GetBool("fail-on-missing-latlon")
		if !cmd.Flags().Changed("fail-on-missing-latlon") {
			strict = cfg.Match.FailOnMissingCoord
		}

		if err := fetcher.RequireColumns(candsPath, model.MatchCandidateColumns...); err != nil {
			return eris.Wrap(err, "finalize: check candidates")
		}
		cands, err := fetcher.ReadTable[model.MatchCandidate](candsPath)
		if err != nil {
			return eris.Wrap(err, "finalize: read candidates")
		}

		var overrides []model.MappingOverride
		if overridesPath != "" {
			if err := fetcher.RequireColumns(overridesPath, model.MappingOverrideColumns...); err != nil {
				return eris.Wrap(err, "finalize: check overrides")
			}
			overrides, err = fetcher.ReadTable[model.MappingOverride](overridesPath)
			if err != nil {
				return eris.Wrap(err, "finalize: read overrides")
			}
		}

		mappings, err := matcher.Finalize(cands, overrides, strict)
		if err != nil {
			return err
		}

		if sourcesPath != "" {
			if err := fetcher.RequireColumns(sourcesPath, model.SourceCircuitColumns...); err != nil {
				return eris.Wrap(err, "finalize: check source circuits")
			}
			sources, err := fetcher.ReadTable[model.SourceCircuit](sourcesPath)
			if err != nil {
				return eris.Wrap(err, "finalize: read source circuits")
			}
			if err := matcher.CheckCoverage(mappings, sources); err != nil {
				return err
			}
		}

		if err := fetcher.WriteTable(outPath, mappings); err != nil {
			return eris.Wrap(err, "finalize: write mapping")
		}

		zap.L().Info("finalized circuit mapping",
			zap.Int("n_circuits", len(mappings)),
			zap.Int("n_overrides", len(overrides)),
		)
		fmt.Printf("wrote %d mapping rows to %s\n", len(mappings), outPath)
		return nil
	},
}

func init() {
	finalizeCmd.Flags().String("candidates", "data/matching/circuit_match_candidates.csv", "candidates CSV from match")
	finalizeCmd.Flags().String("sources", "data/openf1/circuits_used.csv", "source circuits CSV for coverage check (empty to skip)")
	finalizeCmd.Flags().String("overrides", "", "manual override CSV (optional)")
	finalizeCmd.Flags().String("out", "data/matching/circuit_mapping.csv", "output mapping CSV")
	finalizeCmd.Flags().Bool("fail-on-missing-latlon", false, "fail when a chosen mapping lacks coordinates")
	rootCmd.AddCommand(finalizeCmd)
}
