package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/model"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/ranking"
)

// rankInput is the document read by the rank command.
type rankInput struct {
	Listings []model.Listing `json:"listings"`
	Sellers  []model.Seller  `json:"sellers"`
}

type rankedOutput struct {
	model.RankedListing
	Breakdown *ranking.Breakdown `json:"breakdown,omitempty"`
}

type rankOptions struct {
	input   string
	query   string
	county  string
	at      string
	explain bool
}

func rankCmd() *cobra.Command {
	var opts rankOptions
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank listings from a JSON file offline",
		Long: `Rank listings read from a JSON document of the form
{"listings": [...], "sellers": [...]} and print them ordered by score.

Examples:
  pambo rank --input catalog.json --query maize --county Nyeri
  cat catalog.json | pambo rank --query sofa --explain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRank(cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "input file, - for stdin")
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "free text query")
	cmd.Flags().StringVarP(&opts.county, "county", "c", "", "county filter")
	cmd.Flags().StringVar(&opts.at, "at", "", "rank as of this RFC3339 time (default now)")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "include per-signal points")
	return cmd
}

func runRank(stdin io.Reader, out io.Writer, opts rankOptions) error {
	now := time.Now()
	if opts.at != "" {
		t, err := time.Parse(time.RFC3339, opts.at)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
		now = t
	}

	r := stdin
	if opts.input != "" && opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var in rankInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}

	mc := model.MatchContext{Query: opts.query, County: opts.county}
	ranked := ranking.RankAt(now, in.Listings, in.Sellers, mc)

	bySeller := make(map[string]*model.Seller, len(in.Sellers))
	for i := range in.Sellers {
		bySeller[in.Sellers[i].ID] = &in.Sellers[i]
	}

	results := make([]rankedOutput, len(ranked))
	for i, rl := range ranked {
		results[i] = rankedOutput{RankedListing: rl}
		if opts.explain {
			b := ranking.Explain(rl.Listing, bySeller[rl.SellerID], mc, now)
			results[i].Breakdown = &b
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
