package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/psantana5/boxbot/pkg/models"
	"github.com/psantana5/boxbot/pkg/store"
	"github.com/spf13/cobra"
)

var (
	runsOutput string
	runsState  string
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded runs",
	Long:  `Commands for reading back the runs and state transitions stored by --record.`,
}

// runsListCmd represents the runs list command
var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	RunE:  runRunsList,
}

// runsShowCmd represents the runs show command
var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run and its state transitions",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsCmd.PersistentFlags().StringVarP(&runsOutput, "output", "o", "table", "Output format: table, json")
	runsListCmd.Flags().StringVar(&runsState, "state", "", "only runs that ended in this state (SEARCHING, APPROACHING, SPINNING)")
}

type runResponse struct {
	ID         string     `json:"id"`
	Controller string     `json:"controller"`
	Target     string     `json:"target,omitempty"`
	FinalState string     `json:"final_state,omitempty"`
	Ticks      int        `json:"ticks"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

type transitionResponse struct {
	Tick     int       `json:"tick"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Distance *float64  `json:"distance,omitempty"`
	At       time.Time `json:"at"`
}

type runDetailResponse struct {
	runResponse
	Transitions []transitionResponse `json:"transitions"`
}

type runsListResponse struct {
	Runs  []runResponse `json:"runs"`
	Count int           `json:"count"`
}

func openRecorder() (*store.SQLiteStore, error) {
	if cfg.Record.Path == "" {
		return nil, errors.New("no run database configured: pass --record or set record.path")
	}
	return store.NewSQLiteStore(cfg.Record.Path)
}

func toRunResponse(run *store.Run) runResponse {
	resp := runResponse{
		ID:         run.ID,
		Controller: run.Controller,
		Target:     run.Target,
		FinalState: run.FinalState.String(),
		Ticks:      run.Ticks,
		StartedAt:  run.StartedAt,
	}
	if !run.EndedAt.IsZero() {
		ended := run.EndedAt
		resp.EndedAt = &ended
	}
	return resp
}

func runRunsList(cmd *cobra.Command, args []string) error {
	var filter models.RobotState
	if runsState != "" {
		state, err := models.ParseState(strings.ToUpper(runsState))
		if err != nil {
			return err
		}
		filter = state
	}

	db, err := openRecorder()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	result := runsListResponse{Runs: []runResponse{}}
	for _, run := range runs {
		if filter != "" && run.FinalState != filter {
			continue
		}
		result.Runs = append(result.Runs, toRunResponse(run))
	}
	result.Count = len(result.Runs)

	out := cmd.OutOrStdout()
	switch {
	case isJSON(runsOutput):
		return writeJSON(out, result)
	case runsOutput == "table":
	default:
		return fmt.Errorf("unknown output format: %s", runsOutput)
	}

	table := tablewriter.NewWriter(out)
	table.Header("Run", "Controller", "Target", "Final state", "Ticks", "Started", "Duration")
	for _, run := range result.Runs {
		table.Append(
			run.ID,
			run.Controller,
			orDash(run.Target),
			orDash(run.FinalState),
			strconv.Itoa(run.Ticks),
			run.StartedAt.Format(time.RFC3339),
			runDuration(run),
		)
	}
	table.Render()
	fmt.Fprintf(out, "\n%d run(s)\n", result.Count)
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	db, err := openRecorder()
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("failed to get run %s: %w", args[0], err)
	}
	transitions, err := db.GetTransitions(run.ID)
	if err != nil {
		return fmt.Errorf("failed to get transitions: %w", err)
	}

	detail := runDetailResponse{runResponse: toRunResponse(run), Transitions: []transitionResponse{}}
	for _, tr := range transitions {
		resp := transitionResponse{Tick: tr.Tick, From: tr.From.String(), To: tr.To.String(), At: tr.At}
		// An unseen target is stored as +Inf, which JSON cannot carry
		if d := tr.Distance; !math.IsInf(d, 0) {
			resp.Distance = &d
		}
		detail.Transitions = append(detail.Transitions, resp)
	}

	out := cmd.OutOrStdout()
	switch {
	case isJSON(runsOutput):
		return writeJSON(out, detail)
	case runsOutput == "table":
	default:
		return fmt.Errorf("unknown output format: %s", runsOutput)
	}

	table := tablewriter.NewWriter(out)
	table.Header("Field", "Value")
	table.Append("Run", detail.ID)
	table.Append("Controller", detail.Controller)
	table.Append("Target", orDash(detail.Target))
	table.Append("Final state", orDash(detail.FinalState))
	table.Append("Ticks", strconv.Itoa(detail.Ticks))
	table.Append("Started", detail.StartedAt.Format(time.RFC3339))
	table.Append("Duration", runDuration(detail.runResponse))
	table.Render()

	if len(detail.Transitions) == 0 {
		fmt.Fprintln(out, "\nNo state transitions recorded")
		return nil
	}

	fmt.Fprintln(out)
	trTable := tablewriter.NewWriter(out)
	trTable.Header("Tick", "From", "To", "Distance")
	for _, tr := range detail.Transitions {
		distance := "-"
		if tr.Distance != nil {
			distance = meters(*tr.Distance)
		}
		trTable.Append(strconv.Itoa(tr.Tick), tr.From, tr.To, distance)
	}
	trTable.Render()
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func runDuration(run runResponse) string {
	if run.EndedAt == nil {
		return "running"
	}
	return run.EndedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
