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

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Build ranked circuit match candidates",
	Long:  "Scores every timing-source circuit against the reference circuit list and writes the top-N candidates per circuit for review.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sourcesPath, _ := cmd.Flags().GetString("sources")
		refsPath, _ := cmd.Flags().GetString("refs")
		outPath, _ := cmd.Flags().GetString("out")
		topN, _ := cmd.Flags().GetInt("top-n")
		if topN <= 0 {
			topN = cfg.Match.TopN
		}

		if err := fetcher.RequireColumns(sourcesPath, model.SourceCircuitColumns...); err != nil {
			return eris.Wrap(err, "match: check source circuits")
		}
		if err := fetcher.RequireColumns(refsPath, model.ReferenceCircuitColumns...); err != nil {
			return eris.Wrap(err, "match: check reference circuits")
		}
		sources, err := fetcher.ReadTable[model.SourceCircuit](sourcesPath)
		if err != nil {
			return eris.Wrap(err, "match: read source circuits")
		}
		refs, err := fetcher.ReadTable[model.ReferenceCircuit](refsPath)
		if err != nil {
			return eris.Wrap(err, "match: read reference circuits")
		}
		if len(sources) == 0 {
			return eris.Errorf("match: no source circuits in %s", sourcesPath)
		}
		if len(refs) == 0 {
			return eris.Errorf("match: no reference circuits in %s", refsPath)
		}

		zap.L().Info("matching circuits",
			zap.Int("n_sources", len(sources)),
			zap.Int("n_refs", len(refs)),
			zap.Int("top_n", topN),
		)

		cands := matcher.New(refs, topN).All(sources)
		if err := fetcher.WriteTable(outPath, cands); err != nil {
			return eris.Wrap(err, "match: write candidates")
		}

		fmt.Printf("wrote %d candidates for %d circuits to %s\n", len(cands), len(sources), outPath)
		return nil
	},
}

func init() {
	matchCmd.Flags().String("sources", "data/openf1/circuits_used.csv", "timing-source circuits CSV")
	matchCmd.Flags().String("refs", "data/reference/circuits_filtered.csv", "reference circuits CSV")
	matchCmd.Flags().String("out", "data/matching/circuit_match_candidates.csv", "output candidates CSV")
	matchCmd.Flags().Int("top-n", 0, "candidates kept per circuit (0 = config default)")
	rootCmd.AddCommand(matchCmd)
}
