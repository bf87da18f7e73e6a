package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/spektr-org/sme/api"
	"github.com/spektr-org/sme/oracle"
	"github.com/spektr-org/sme/schema"
)

// ============================================================================
// ASK
// ============================================================================

func newAskCmd(a *app) *cobra.Command {
	var (
		jsonBody string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "ask [column=value...]",
		Short: "Ask for the outcome probability of rows matching the constraints",
		Long: `Ask for the mean outcome over rows equal to every constraint.

Values parse as numbers when they can; quote them to force a string
(code="13"). An empty value (notes=) means "unknown" and is ignored, as are
columns the dataset does not have.

Example: sme --profile streamflix ask subscription_plan=basic monthly_price=9.99
         sme --profile streamflix ask --json '{"subscription_plan":"basic"}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := constraintsFrom(args, jsonBody)
			if err != nil {
				return err
			}
			o, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			answer, err := o.AskDetailed(c)
			if err != nil {
				return err
			}
			return writeAnswer(cmd.OutOrStdout(), api.AskResponse{Answer: answer, Remaining: o.Remaining()}, format)
		},
	}

	cmd.Flags().StringVar(&jsonBody, "json", "", "Constraints as a JSON object instead of column=value arguments")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, pretty")
	return cmd
}

func constraintsFrom(args []string, jsonBody string) (oracle.Constraints, error) {
	if jsonBody != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("use either --json or column=value arguments, not both")
		}
		return oracle.ParseJSON([]byte(jsonBody))
	}
	return oracle.ParseAssignments(args)
}

func writeAnswer(w io.Writer, r api.AskResponse, format string) error {
	if format == "text" {
		_, err := fmt.Fprintf(w, "%.4f (%d matching rows, %d questions left)\n", r.Probability, r.Matched, r.Remaining)
		return err
	}
	return writeJSON(w, r, format)
}

// ============================================================================
// SESSION — One oracle, many questions
// ============================================================================

func newSessionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Answer one JSON constraint object per stdin line with a shared budget",
		Long: `Read JSON objects from stdin, one per line, and write one JSON result per
line to stdout. Every line is charged to the same oracle, so the budget
runs out across the whole session. Failed questions produce
{"error": ..., "code": ...} lines and the session continues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			return runSession(cmd.Context(), o, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runSession answers r line by line until EOF or ctx is done. Blank lines
// are skipped and not charged.
func runSession(ctx context.Context, o *oracle.Oracle, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var out any
		c, err := oracle.ParseJSON([]byte(line))
		if err == nil {
			var answer oracle.Answer
			answer, err = o.AskDetailed(c)
			out = api.AskResponse{Answer: answer, Remaining: o.Remaining()}
		}
		if err != nil {
			_, code := api.Classify(err)
			out = api.ErrorResponse{Error: err.Error(), Code: code}
		}
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to write answer: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read session input: %w", err)
	}
	return nil
}

// ============================================================================
// ROW
// ============================================================================

func newRowCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "row <index>",
		Short: "Print the stored outcome of a zero-based row (free, not budgeted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("index must be an integer: %q", args[0])
			}
			o, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			v, err := o.AskByPosition(index)
			if err != nil {
				return err
			}
			if format == "text" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), v.String())
				return err
			}
			return writeJSON(cmd.OutOrStdout(), api.RowResponse{Index: index, Outcome: v}, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, pretty")
	return cmd
}

// ============================================================================
// DESCRIBE
// ============================================================================

func newDescribeCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "List the columns you can constrain on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			sch := o.Store().Schema()
			if format == "text" {
				return writeSchemaTable(cmd.OutOrStdout(), sch)
			}
			return writeJSON(cmd.OutOrStdout(), sch, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, pretty")
	return cmd
}

func writeSchemaTable(w io.Writer, sch *schema.Config) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%d rows, outcome %q\n\n", sch.Rows, sch.Outcome)
	fmt.Fprintln(tw, "COLUMN\tKIND\tNULLS\tUNIQUE\tSAMPLES")
	for _, col := range sch.Columns {
		name := col.Name
		if col.Outcome {
			name += " (outcome)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", name, col.Kind, col.Nulls, col.Unique, strings.Join(col.SampleValues, ", "))
	}
	return tw.Flush()
}

// ============================================================================
// SERVE
// ============================================================================

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the oracle over HTTP until interrupted",
		Long: `Serve one oracle over HTTP. All clients share its budget.

Routes:
  POST /ask            JSON constraint object → probability
  GET  /rows/:index    stored outcome of a row (free)
  GET  /status         calls, budget, remaining
  GET  /schema         column descriptions
  GET  /health`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if a.cfg.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			srv := &http.Server{
				Addr:              a.cfg.Addr,
				Handler:           api.NewServer(o, a.log).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serve(cmd.Context(), srv, a)
		},
	}

	cmd.Flags().String("addr", ":8080", "Listen address")
	mustBind(a.v.BindPFlag("addr", cmd.Flags().Lookup("addr")))
	return cmd
}

// serve runs srv until ctx is canceled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, a *app) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	a.log.Info("server stopped")
	return nil
}

// ============================================================================
// OUTPUT
// ============================================================================

func writeJSON(w io.Writer, v any, format string) error {
	var (
		out []byte
		err error
	)
	switch format {
	case "pretty":
		out, err = json.MarshalIndent(v, "", "  ")
	case "json":
		out, err = json.Marshal(v)
	default:
		return fmt.Errorf("unknown format %q (use text, json or pretty)", format)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
