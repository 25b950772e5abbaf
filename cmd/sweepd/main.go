// Command sweepd is the sweep execution daemon: it wires an instrument
// Station, the Persistence Façade, the Active-Sweep Registry, a Queue,
// Plot Sinks and an admin HTTP mux into one long-lived process, the
// same way the teacher's main.go/server.go compose their serial mux,
// database, and admin routes under one http.Server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack-instruments/sweepengine/internal/adminserver"
	"github.com/labstack-instruments/sweepengine/internal/config"
	"github.com/labstack-instruments/sweepengine/internal/healthservice"
	"github.com/labstack-instruments/sweepengine/internal/instrument"
	"github.com/labstack-instruments/sweepengine/internal/instrument/serialparam"
	"github.com/labstack-instruments/sweepengine/internal/persistence"
	"github.com/labstack-instruments/sweepengine/internal/plotsink"
	"github.com/labstack-instruments/sweepengine/internal/registry"
	"github.com/labstack-instruments/sweepengine/internal/sweep"
	"github.com/labstack-instruments/sweepengine/internal/sweepqueue"
	"github.com/labstack-instruments/sweepengine/internal/telemetry"
)

var (
	listen      = flag.String("listen", ":8090", "admin/API listen address")
	grpcListen  = flag.String("grpc-listen", ":8091", "gRPC health-check listen address")
	datasetPath = flag.String("dataset", "sweepengine.db", "sqlite dataset file")
	configDir   = flag.String("config-dir", "", "defaults config directory (default: OS config dir)")
	demoSweep   = flag.Bool("demo", false, "enqueue a demo one-axis sweep against a mock instrument at startup")
)

func main() {
	flag.Parse()

	logger := log.New(os.Stdout, "sweepd: ", log.LstdFlags)

	dir, err := config.Dir(*configDir)
	if err != nil {
		logger.Fatalf("resolve config dir: %v", err)
	}
	loader, err := config.NewLoader(dir)
	if err != nil {
		logger.Fatalf("load defaults: %v", err)
	}
	defer loader.Close()
	logger.Printf("loaded defaults from %s: %+v", dir, loader.Current())

	store, err := persistence.Open(*datasetPath)
	if err != nil {
		logger.Fatalf("open dataset %s: %v", *datasetPath, err)
	}
	defer store.Close()

	station := instrument.NewStation()
	reg := registry.New()
	queue := sweepqueue.New()

	tel, err := telemetry.New()
	if err != nil {
		logger.Fatalf("init telemetry: %v", err)
	}
	defer tel.Shutdown(context.Background())

	mux := http.NewServeMux()
	admin := &adminserver.Server{
		Registry:    reg,
		Queue:       queue,
		Metrics:     tel.Handler(),
		Dataset:     store.DB(),
		DatasetPath: *datasetPath,
	}
	if err := admin.AttachAdminRoutes(mux); err != nil {
		logger.Fatalf("attach admin routes: %v", err)
	}
	mux.HandleFunc("/parameters", func(w http.ResponseWriter, r *http.Request) {
		for _, id := range station.Parameters() {
			fmt.Fprintln(w, id)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *demoSweep {
		if err := attachDemoSweep(mux, station, store, reg, queue, logger); err != nil {
			logger.Fatalf("attach demo sweep: %v", err)
		}
	}

	healthSrv := healthservice.New()
	healthSrv.SyncFrom(queue)
	grpcLis, err := net.Listen("tcp", *grpcListen)
	if err != nil {
		logger.Fatalf("listen %s: %v", *grpcListen, err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := queue.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Printf("queue supervisor terminated: %v", err)
		}
		healthSrv.SyncFrom(queue)
	}()

	server := &http.Server{Addr: *listen, Handler: mux}
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Printf("admin server listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("admin server: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Printf("grpc health service listening on %s", *grpcListen)
		if err := healthSrv.Serve(grpcLis); err != nil {
			logger.Printf("grpc health service: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("admin server shutdown error: %v", err)
	}
	healthSrv.Stop()
	queue.Kill()

	wg.Wait()
}

// attachDemoSweep builds a one-axis sweep against an in-memory mock
// instrument, enqueues it on the queue, and mounts a live view and
// summary endpoint fed by a plot sink for it — a self-contained smoke test an
// operator can run with -demo before wiring a real instrument driver.
func attachDemoSweep(mux *http.ServeMux, station *instrument.Station, store *persistence.Context, reg *registry.Registry, queue *sweepqueue.Queue, logger *log.Logger) error {
	port := serialparam.NewMockPort(0)
	channel := serialparam.NewChannel(port, "VOLT?", "VOLT")
	param := instrument.NewParameter("demo", "voltage", "V",
		func() (float64, error) { return channel.Get() },
		instrument.WithLabel("Demo Voltage"),
		instrument.WithRange(0, 10),
		instrument.WithSet(func(v float64) error {
			port.SetReply(v)
			return channel.Set(v)
		}))
	station.Register(param)

	kind := sweep.NewOneAxis(param, sweep.Trajectory{Start: 0, Stop: 5, Step: 1, Mode: sweep.OneShot})
	s, err := sweep.New(kind,
		sweep.WithInterDelay(20*time.Millisecond),
		sweep.WithPersister(store),
		sweep.WithRegistry(reg),
		sweep.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("construct demo sweep: %w", err)
	}

	sink := plotsink.New(0, 0, false)
	sub := sink.Subscribe("demo-view")
	live := plotsink.NewLiveHandler(sink, "demo-view", "Demo Sweep Voltage", 200)
	go live.Consume(sub)
	go sink.Run(s.DataChan())
	mux.Handle("/view/demo", live)
	mux.HandleFunc("/view/demo/summary", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(live.Summary())
	})

	queue.Enqueue(sweepqueue.Entry{Kind: sweepqueue.EntrySweep, Sweep: s, Label: "demo-one-axis"})
	return nil
}
