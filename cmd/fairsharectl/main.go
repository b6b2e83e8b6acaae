// fairsharectl drives a running fairshare server from the command line:
// trigger an assignment run, reset the cycle, or inspect what is
// currently owed.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/jwhitfield/fairshare/internal/engine"
	"github.com/jwhitfield/fairshare/internal/model"
)

type appContext struct {
	client  *http.Client
	baseURL string
}

func (a *appContext) get(path string, out any) error {
	resp, err := a.client.Get(a.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func (a *appContext) post(path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	resp, err := a.client.Post(a.baseURL+path, "application/json", &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, e.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type runCmd struct {
	Now string `help:"Run as of this RFC3339 timestamp instead of now."`
}

func (c *runCmd) Run(app *appContext) error {
	var body any
	if c.Now != "" {
		t, err := time.Parse(time.RFC3339, c.Now)
		if err != nil {
			return fmt.Errorf("parse --now: %w", err)
		}
		body = map[string]time.Time{"now": t}
	}

	var result engine.Result
	if err := app.post("/api/assignments/run", body, &result); err != nil {
		return err
	}

	fmt.Printf("Run %s: %d assignments\n", result.RunID, len(result.Assignments))
	for _, a := range result.Assignments {
		fmt.Printf("  %-24s -> roommate %d (%s, %d pts, due %s)\n",
			a.ChoreName, a.RoommateID, a.Policy, a.Points, a.DueDate.Format("2006-01-02"))
	}
	for _, warning := range result.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
	return nil
}

type resetCmd struct{}

func (c *resetCmd) Run(app *appContext) error {
	if err := app.post("/api/assignments/reset", nil, nil); err != nil {
		return err
	}
	fmt.Println("Cycle reset: balances zeroed, assignments cleared.")
	return nil
}

type listCmd struct{}

func (c *listCmd) Run(app *appContext) error {
	var resp struct {
		Assignments []model.Assignment `json:"assignments"`
		Token       int64              `json:"token"`
	}
	if err := app.get("/api/assignments", &resp); err != nil {
		return err
	}

	if len(resp.Assignments) == 0 {
		fmt.Println("No current assignments.")
		return nil
	}
	for _, a := range resp.Assignments {
		done, total := 0, len(a.SubTasks)
		for _, d := range a.SubTasks {
			if d {
				done++
			}
		}
		line := fmt.Sprintf("#%d %-24s roommate %d  due %s", a.ID, a.ChoreName, a.RoommateID, a.DueDate.Format("2006-01-02"))
		if total > 0 {
			line += fmt.Sprintf("  [%d/%d sub-tasks]", done, total)
		}
		fmt.Println(line)
	}
	fmt.Printf("state token: %d\n", resp.Token)
	return nil
}

type toggleCmd struct {
	Assignment int64 `arg:"" help:"Assignment id."`
	Subtask    int64 `arg:"" help:"Sub-task id."`
}

func (c *toggleCmd) Run(app *appContext) error {
	var resp struct {
		Done bool `json:"done"`
	}
	path := fmt.Sprintf("/api/assignments/%d/subtasks/%d/toggle", c.Assignment, c.Subtask)
	if err := app.post(path, nil, &resp); err != nil {
		return err
	}
	if resp.Done {
		fmt.Println("Sub-task marked done.")
	} else {
		fmt.Println("Sub-task marked not done.")
	}
	return nil
}

var cli struct {
	Server string `help:"fairshare server base URL." default:"http://localhost:8080"`

	Run    runCmd    `cmd:"" help:"Trigger an assignment run."`
	Reset  resetCmd  `cmd:"" help:"Reset the cycle: zero balances, clear assignments."`
	List   listCmd   `cmd:"" help:"List current assignments."`
	Toggle toggleCmd `cmd:"" help:"Toggle a sub-task on an assignment."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("fairsharectl"),
		kong.Description("Control a running fairshare server."),
		kong.UsageOnError(),
	)

	app := &appContext{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: cli.Server,
	}
	if err := ctx.Run(app); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
