package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"evplanner/config"
	"evplanner/internal/dataset"
	"evplanner/internal/energy"
	"evplanner/internal/graph"
	"evplanner/internal/infra/geocode"
	logs "evplanner/internal/infra/log"
	"evplanner/internal/planner/orchestrator"
	"evplanner/internal/planner/perr"
	"evplanner/internal/station"

	"go.uber.org/fx"
)

type runParams struct {
	fx.In
	fx.Lifecycle

	Shutdowner fx.Shutdowner
	Config     *config.Config
	Graph      *graph.RoadGraph
	Stations   *station.Index
	Energy     energy.Model
	Geocoder   orchestrator.Geocoder
	Logger     *slog.Logger
}

func main() {
	fx.New(
		injectInfra(),
		injectDomain(),
		fx.Invoke(runPlan),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		loadDataset,
	)
}

func injectDomain() fx.Option {
	return fx.Options(
		fx.Provide(
			provideGraph,
			provideStations,
			provideEnergyModel,
			provideGeocoder,
		),
	)
}

func loadDataset(ctx context.Context, cfg *config.Config) (*dataset.Dataset, error) {
	return dataset.Load(ctx, cfg.DataSource)
}

func provideGraph(ds *dataset.Dataset) *graph.RoadGraph {
	return ds.Graph
}

func provideStations(ds *dataset.Dataset) *station.Index {
	return ds.Stations
}

func provideEnergyModel(cfg *config.Config) energy.Model {
	return energy.Model{
		SafetyFactor:          cfg.Planner.SafetyFactor,
		ChargingRatePctPerMin: cfg.Planner.ChargingRatePctPerMin,
	}
}

func provideGeocoder() orchestrator.Geocoder {
	return geocode.NewStatic()
}

// runPlan reads one plan request from the command line (origin,
// destination, initial/threshold SOC, consumption), invokes the query
// orchestrator once, and prints the result as JSON. There is no server
// loop: planroute is a one-shot CLI, the transport-layer concern spec.md
// §6 leaves to callers.
func runPlan(p runParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() { _ = p.Shutdowner.Shutdown() }()

				code := execute(ctx, p)
				if code != 0 {
					os.Exit(code)
				}
			}()

			return nil
		},
	})
}

func execute(ctx context.Context, p runParams) int {
	req, err := parseRequest(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 2
	}

	resp, err := orchestrator.Plan(ctx, orchestrator.Params{
		Graph: p.Graph, Stations: p.Stations, Energy: p.Energy, Geocoder: p.Geocoder,
		DisconnectedComponentPolicy: orchestrator.Policy(p.Config.Planner.DisconnectedComponentPolicy),
		MaxPaths:                    p.Config.Planner.DefaultMaxPaths,
		DominanceCap:                p.Config.Planner.DominanceCap,
		Epsilon:                     p.Config.Planner.DominanceEpsilon,
		SimilarityThreshold:         p.Config.Planner.SimilarityThreshold,
		Logger:                      p.Logger,
	}, req)
	if err != nil {
		p.Logger.Error("plan request failed", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, describeError(err))

		return 1
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 1
	}

	fmt.Println(string(out))

	return 0
}

func parseRequest(args []string) (orchestrator.PlanRequest, error) {
	fs := flag.NewFlagSet("planroute", flag.ContinueOnError)
	origin := fs.String("origin", "", "origin address (lat,lon)")
	destination := fs.String("destination", "", "destination address (lat,lon)")
	initialSOC := fs.Float64("initial-soc", 100, "initial state of charge, percent")
	thresholdSOC := fs.Float64("threshold-soc", 20, "minimum acceptable state of charge, percent")
	consumption := fs.Float64("consumption", 20, "energy consumption, percent per km")

	if err := fs.Parse(args); err != nil {
		return orchestrator.PlanRequest{}, err
	}

	return orchestrator.PlanRequest{
		Origin:              *origin,
		Destination:         *destination,
		InitialSOC:          *initialSOC,
		ThresholdSOC:        *thresholdSOC,
		ConsumptionPctPerKm: *consumption,
	}, nil
}

// describeError renders a PlannerError's code alongside its message; any
// other error (infra faults) is printed as-is.
func describeError(err error) string {
	var pe *perr.PlannerError
	if errors.As(err, &pe) {
		return fmt.Sprintf("%s: %s", pe.Code(), pe.Message())
	}

	return err.Error()
}
