package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/couchcryptid/flood-risk-service/internal/adapter/netcdf"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/openweather"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/pipeline"
	"github.com/spf13/cobra"
)

// app holds the flags shared by every subcommand and the collaborators
// built from them.
type app struct {
	lat       float64
	lon       float64
	landUse   string
	humidity  float64
	slope     float64
	modelFile string
	view      string
	lenient   bool
	verbose   bool

	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "assess",
		Short:        "Compute the Inundation Risk Index for a point",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.Float64Var(&a.lat, "lat", domain.DefaultLocation.Lat, "latitude of the assessed point")
	flags.Float64Var(&a.lon, "lon", domain.DefaultLocation.Lon, "longitude of the assessed point")
	flags.StringVar(&a.landUse, "land-use", "", "land-use category, e.g. \"Urban dense\" or urban_dense")
	flags.Float64Var(&a.humidity, "humidity", 50, "soil humidity, percent")
	flags.Float64Var(&a.slope, "slope", 5, "terrain slope, percent")
	flags.StringVar(&a.modelFile, "model", "", "YAML model file (defaults to MODEL_FILE)")
	flags.StringVar(&a.view, "view", "full", "output view: full, marker or report")
	flags.BoolVar(&a.lenient, "lenient", false, "allow manual inputs outside the model bounds")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		a.manualCmd(),
		a.gridCmd(),
		a.gridVarsCmd(),
		a.forecastCmd(),
	)
	return root
}

func (a *app) setup(stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.modelFile != "" {
		m, err := config.LoadModel(a.modelFile)
		if err != nil {
			return err
		}
		cfg.Model = m
	}
	level := "warn"
	if a.verbose {
		level = "debug"
	}
	a.cfg = cfg
	a.logger = observability.NewLoggerTo(stderr, level, "text")
	a.metrics = observability.NewUnregisteredMetrics()
	return nil
}

func (a *app) assessor(opts ...pipeline.AssessorOption) (*pipeline.Assessor, error) {
	opts = append(opts, pipeline.WithStrictBounds(a.cfg.StrictBounds && !a.lenient))
	return pipeline.NewAssessor(a.cfg.Model, a.metrics, a.logger, opts...)
}

func (a *app) terrain() domain.TerrainRequest {
	return domain.TerrainRequest{LandUse: a.landUse, Humidity: a.humidity, Slope: a.slope}
}

func (a *app) request(source domain.SourceKind) domain.AssessmentRequest {
	return domain.AssessmentRequest{
		Source:  source,
		Lat:     &a.lat,
		Lon:     &a.lon,
		Terrain: a.terrain(),
	}
}

func (a *app) manualCmd() *cobra.Command {
	var src domain.ManualSource
	cmd := &cobra.Command{
		Use:   "manual",
		Short: "Assess user-entered precipitation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			assessor, err := a.assessor()
			if err != nil {
				return err
			}
			req := a.request(domain.SourceManual)
			req.Manual = &src
			result, err := assessor.Assess(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().Float64Var(&src.Intensity, "intensity", 0, "rainfall intensity, mm/h")
	cmd.Flags().Float64Var(&src.Duration, "duration", 0, "rainfall duration, hours")
	cmd.Flags().Float64Var(&src.Accumulation, "accumulation", 0, "rainfall accumulation, mm")
	return cmd
}

func (a *app) gridCmd() *cobra.Command {
	var variable string
	cmd := &cobra.Command{
		Use:   "grid FILE",
		Short: "Assess the mean of a gridded precipitation variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assessor, err := a.assessor(pipeline.WithGridOpener(netcdf.NewOpener(a.logger)))
			if err != nil {
				return err
			}
			req := a.request(domain.SourceGrid)
			req.Grid = &domain.GridReference{Path: args[0], Variable: variable}
			result, err := assessor.Assess(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&variable, "variable", "", "precipitation variable to average")
	_ = cmd.MarkFlagRequired("variable")
	return cmd
}

func (a *app) gridVarsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grid-vars FILE",
		Short: "List the variables declared by a gridded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := netcdf.NewOpener(a.logger).Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = ds.Close() }()

			vars := ds.Variables()
			slices.Sort(vars)
			for _, v := range vars {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
}

func (a *app) forecastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forecast",
		Short: "Assess the next 24 hours of forecast rainfall",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.OWMEnabled {
				return fmt.Errorf("%w: set OWM_API_KEY", pipeline.ErrForecastDisabled)
			}
			client := openweather.NewClient(a.cfg.OWMAPIKey, a.cfg.OWMBaseURL, a.cfg.OWMTimeout, a.cfg.OWMRateLimit, a.metrics, a.logger)
			assessor, err := a.assessor(pipeline.WithForecastProvider(client))
			if err != nil {
				return err
			}
			result, err := assessor.Assess(cmd.Context(), a.request(domain.SourceForecast))
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), result)
		},
	}
}

func (a *app) print(w io.Writer, result domain.RiskAssessment) error {
	var v any
	switch a.view {
	case "full", "":
		v = result
	case "marker":
		v = result.MapMarker()
	case "report":
		v = result.Report()
	default:
		return fmt.Errorf("unknown view %q", a.view)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
