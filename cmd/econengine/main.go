// Command econengine runs the commodity price analysis pipeline over a CSV
// panel: stationarity and causality screening, VAR/VECM forecasting, GARCH
// volatility, risk assessment, and procurement optimization.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/procurewise/econengine/config"
	"github.com/procurewise/econengine/pipeline"
)

var (
	flagConfig   string
	flagInput    string
	flagTarget   string
	flagHorizon  int
	flagDemand   float64
	flagExposure float64
	flagQuotes   string
	flagOutput   string
)

func main() {
	root := &cobra.Command{
		Use:           "econengine",
		Short:         "Commodity price forecasting and procurement decision engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	analyze := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full analysis pipeline on a CSV price panel",
		RunE:  runAnalyze,
	}
	analyze.Flags().StringVarP(&flagConfig, "config", "c", "", "config file (YAML)")
	analyze.Flags().StringVarP(&flagInput, "input", "i", "", "input CSV: timestamp column followed by one column per variable")
	analyze.Flags().StringVarP(&flagTarget, "target", "t", "", "variable to forecast and procure")
	analyze.Flags().IntVar(&flagHorizon, "horizon", 30, "forecast horizon in steps")
	analyze.Flags().Float64Var(&flagDemand, "demand", 0, "demand to cover; zero skips the optimizer")
	analyze.Flags().Float64Var(&flagExposure, "exposure", 0, "units currently held or committed")
	analyze.Flags().StringVar(&flagQuotes, "quotes", "", "optional supplier quotes CSV")
	analyze.Flags().StringVarP(&flagOutput, "output", "o", "", "write the result JSON here instead of stdout")
	_ = analyze.MarkFlagRequired("input")
	_ = analyze.MarkFlagRequired("target")
	root.AddCommand(analyze)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "econengine:", err)
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	panel, err := loadPanel(flagInput)
	if err != nil {
		return err
	}

	req := pipeline.Request{
		Panel:    panel,
		Target:   flagTarget,
		Horizon:  flagHorizon,
		Demand:   flagDemand,
		Exposure: flagExposure,
	}
	if flagQuotes != "" {
		quotes, err := loadQuotes(flagQuotes)
		if err != nil {
			return err
		}
		req.Quotes = quotes
	}

	runner, err := pipeline.NewRunner(cfg, log)
	if err != nil {
		return err
	}
	result, err := runner.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := os.Stdout
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
