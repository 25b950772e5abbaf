// Command sweepctl is the operator-facing CLI for sweepengine: it can
// run a one-axis demo sweep entirely in-process against a mock
// instrument, or query a running sweepd's admin status endpoints. It
// follows cmd/sweep/main.go's flag-per-run style rather than a
// subcommand framework, with the verb picked out of os.Args[1].
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/labstack-instruments/sweepengine/internal/config"
	"github.com/labstack-instruments/sweepengine/internal/httputil"
	"github.com/labstack-instruments/sweepengine/internal/instrument"
	"github.com/labstack-instruments/sweepengine/internal/instrument/serialparam"
	"github.com/labstack-instruments/sweepengine/internal/sweep"
	"github.com/labstack-instruments/sweepengine/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	verb, args := os.Args[1], os.Args[2:]

	var err error
	switch verb {
	case "demo":
		err = runDemo(args)
	case "status":
		err = runStatus(args)
	case "init-config":
		err = runInitConfig(args)
	case "version":
		fmt.Printf("sweepctl %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "sweepctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: sweepctl <demo|status|init-config|version> [flags]")
}

// runInitConfig writes a hand-editable defaults.yaml an operator can
// adjust before pointing sweepd at it with -config-dir.
func runInitConfig(args []string) error {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	dirFlag := fs.String("dir", "", "config directory (default: OS config dir)")
	fs.Parse(args)

	dir, err := config.Dir(*dirFlag)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	if err := config.WriteSample(dir); err != nil {
		return err
	}
	fmt.Printf("wrote sample defaults to %s\n", dir)
	return nil
}

// runDemo drives a one-axis sweep against an in-memory mock instrument
// and prints each emitted point to stdout as it arrives, with no
// sweepd process involved — useful for smoke-testing the sweep engine
// itself without a dataset file or a live instrument.
func runDemo(args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	start := fs.Float64("start", 0, "trajectory start value")
	stop := fs.Float64("stop", 5, "trajectory stop value")
	step := fs.Float64("step", 1, "trajectory step value")
	delay := fs.Duration("delay", 20*time.Millisecond, "inter-point delay")
	fs.Parse(args)

	port := serialparam.NewMockPort(*start)
	channel := serialparam.NewChannel(port, "VOLT?", "VOLT")
	param := instrument.NewParameter("demo", "voltage", "V",
		func() (float64, error) { return channel.Get() },
		instrument.WithSet(func(v float64) error {
			port.SetReply(v)
			return channel.Set(v)
		}))

	kind := sweep.NewOneAxis(param, sweep.Trajectory{Start: *start, Stop: *stop, Step: *step, Mode: sweep.OneShot})
	s, err := sweep.New(kind, sweep.WithInterDelay(*delay))
	if err != nil {
		return fmt.Errorf("construct sweep: %w", err)
	}
	if err := s.Start(context.Background()); err != nil {
		return fmt.Errorf("start sweep: %w", err)
	}

	for p := range s.DataChan() {
		if p.Break {
			fmt.Println("-- break --")
			continue
		}
		fmt.Printf("t=%s setpoints=%v values=%v\n", p.Timestamp.Format(time.RFC3339Nano), p.Setpoints, p.Values)
	}
	<-s.Done()

	progress := s.Progress()
	fmt.Printf("final state: %s (%d points)\n", progress.State, progress.PointsEmitted)
	if progress.State == sweep.StateError {
		return fmt.Errorf("sweep ended in error: %s", progress.ErrorMessage)
	}
	return nil
}

// runStatus queries a running sweepd's admin endpoints and prints the
// decoded JSON bodies, so an operator can script status checks without
// a browser.
func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8090", "sweepd admin base URL")
	fs.Parse(args)

	client := httputil.NewStandardClient(nil)
	if err := printJSON(client, *addr+"/debug/active-sweeps"); err != nil {
		return err
	}
	return printJSON(client, *addr+"/debug/queue-status")
}

func printJSON(client httputil.HTTPClient, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, body)
	}

	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s:\n%s\n", url, pretty)
	return nil
}
