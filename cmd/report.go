package main

import (
	"context"
	"encoding/json"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/property-report/internal/export"
	"github.com/sells-group/property-report/internal/pipeline"
	"github.com/sells-group/property-report/internal/store"
)

var (
	reportAddress string
	reportOffline bool
	reportXLSX    string
	reportNoCache bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build a property report for one address",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if reportOffline {
			cfg.Analysis.Offline = true
		}

		env, err := initEnv(ctx, cfg, "report", !reportNoCache)
		if err != nil {
			return err
		}
		defer env.Close()

		view, err := runReport(ctx, env.Store, env.Options, pipeline.Request{Address: reportAddress})
		if err != nil {
			return err
		}

		if err := writeView(cmd.OutOrStdout(), view); err != nil {
			return err
		}

		if reportXLSX != "" {
			if err := export.WriteWorkbook(reportXLSX, view); err != nil {
				return err
			}
			zap.L().Info("report workbook written", zap.String("path", reportXLSX))
		}
		return nil
	},
}

// runReport runs one session to completion and returns its settled view.
func runReport(ctx context.Context, st store.Store, opts pipeline.Options, req pipeline.Request) (pipeline.View, error) {
	if req.Cached == nil {
		req.Cached = cachedIdentity(ctx, st, req.Address)
	}

	s := pipeline.NewSession(req, opts)
	defer s.Close()

	s.Run(ctx)
	if err := s.Wait(ctx); err != nil {
		return pipeline.View{}, eris.Wrap(err, "report: wait for session")
	}

	v := s.View()
	zap.L().Info("report complete",
		zap.String("session_id", v.SessionID),
		zap.String("status", string(v.Status)),
		zap.String("summary_phase", string(v.Summary.Phase)),
		zap.String("valuation_phase", string(v.Valuation.Phase)),
	)
	return v, nil
}

func writeView(w io.Writer, v pipeline.View) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "report: encode view")
	}
	return nil
}

func init() {
	reportCmd.Flags().StringVar(&reportAddress, "address", "", "property address (required)")
	reportCmd.Flags().BoolVar(&reportOffline, "offline", false, "use canned analysis payloads instead of the narrative provider")
	reportCmd.Flags().StringVar(&reportXLSX, "xlsx", "", "also write the report to this XLSX file")
	reportCmd.Flags().BoolVar(&reportNoCache, "no-cache", false, "skip the identity cache")
	_ = reportCmd.MarkFlagRequired("address")
	rootCmd.AddCommand(reportCmd)
}
