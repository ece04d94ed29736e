// Package dataset loads the three documents the planning core consumes at
// process start (§6): the serialized RoadGraph, the precomputed
// StationIndex, and the charging-station catalog. Loading goes through one
// gocloud.dev/blob.Bucket abstraction so a local file:// path and a bucket
// URL (gs://, s3://) share the same read path, grounded on the teacher's
// pmtiles service's parseSourcePath + gocloud.dev/blob registration
// pattern.
package dataset

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"evplanner/config"
	"evplanner/internal/geo"
	"evplanner/internal/graph"
	"evplanner/internal/planner/perr"
	"evplanner/internal/station"
	"evplanner/internal/util"

	"github.com/pkg/errors"
	"gocloud.dev/blob"

	// Register blob drivers for file://, gs://, and s3:// sources.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// ChargingStation is one entry of the offline charging-station catalog
// (§6): name, location, and optional metadata. The planning core does not
// read this document directly — StationIndex is already the precomputed
// per-node distance — but the catalog is loaded alongside it so callers
// that want the raw station list (for re-deriving an index, or for
// diagnostics) don't need a second loader.
type ChargingStation struct {
	Name     string            `json:"name"`
	Location geo.Point         `json:"-"`
	Tags     map[string]string `json:"tags,omitempty"`
	Region   string            `json:"region,omitempty"`
}

type wireLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type wireChargingStation struct {
	Name     string            `json:"name"`
	Location wireLocation      `json:"location"`
	Tags     map[string]string `json:"tags,omitempty"`
	Region   string            `json:"region,omitempty"`
}

// Dataset bundles the three loaded documents.
type Dataset struct {
	Graph    *graph.RoadGraph
	Stations *station.Index
	Catalog  []ChargingStation
}

// Load opens cfg.Source as a blob.Bucket and reads the three configured
// document keys from it, decoding each into its in-memory form.
func Load(ctx context.Context, cfg config.DataSourceConfig) (*Dataset, error) {
	start := time.Now()

	if cfg.Source == "" {
		return nil, perr.DataUnavailable(errors.New("dataSource.source is not configured"))
	}

	bucketURL, prefix := parseBucketURL(cfg.Source)

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, perr.DataUnavailable(errors.Wrapf(err, "open bucket %q", bucketURL))
	}
	defer bucket.Close()

	if prefix != "" {
		bucket = blob.PrefixedBucket(bucket, prefix+"/")
	}

	g, err := loadRoadGraph(ctx, bucket, cfg.RoadGraphFile)
	if err != nil {
		return nil, err
	}

	idx, err := loadStationIndex(ctx, bucket, cfg.StationsFile)
	if err != nil {
		return nil, err
	}

	catalog, err := loadCatalog(ctx, bucket, cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	logLoadDiagnostics(cfg, g, start)

	return &Dataset{Graph: g, Stations: idx, Catalog: catalog}, nil
}

// logLoadDiagnostics reports load duration and, for a source given as a
// plain directory path (no URL scheme, so not file:// either), the road graph
// file's size and checksum, so operators can confirm which dataset snapshot
// a running process picked up.
func logLoadDiagnostics(cfg config.DataSourceConfig, g *graph.RoadGraph, start time.Time) {
	logger := slog.Default()
	logger.Info("dataset loaded",
		slog.String("duration", util.FormatDuration(time.Since(start))),
		slog.Int("node_count", g.NodeCount()),
	)

	if strings.Contains(cfg.Source, "://") {
		return
	}

	path := filepath.Join(cfg.Source, cfg.RoadGraphFile)

	if info, err := os.Stat(path); err == nil {
		logger.Info("road graph file", slog.String("size", util.FormatBytes(info.Size())))
	}

	if sum, err := util.CalculateFileChecksum(path); err == nil {
		logger.Info("road graph file", slog.String("sha256", sum))
	}
}

func loadRoadGraph(ctx context.Context, bucket *blob.Bucket, key string) (*graph.RoadGraph, error) {
	if key == "" {
		return nil, perr.DataUnavailable(errors.New("dataSource.roadGraphFile is not configured"))
	}

	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, perr.DataUnavailable(errors.Wrapf(err, "open road graph %q", key))
	}
	defer r.Close()

	g, err := graph.Ingest(r)
	if err != nil {
		return nil, perr.DataUnavailable(errors.Wrap(err, "ingest road graph"))
	}

	return g, nil
}

func loadStationIndex(ctx context.Context, bucket *blob.Bucket, key string) (*station.Index, error) {
	if key == "" {
		return nil, perr.DataUnavailable(errors.New("dataSource.stationsFile is not configured"))
	}

	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, perr.DataUnavailable(errors.Wrapf(err, "open station index %q", key))
	}
	defer r.Close()

	idx, err := station.Load(r)
	if err != nil {
		return nil, perr.DataUnavailable(errors.Wrap(err, "load station index"))
	}

	return idx, nil
}

func loadCatalog(ctx context.Context, bucket *blob.Bucket, key string) ([]ChargingStation, error) {
	if key == "" {
		return nil, nil
	}

	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, perr.DataUnavailable(errors.Wrapf(err, "open charging-station catalog %q", key))
	}
	defer r.Close()

	return decodeCatalog(r)
}

func decodeCatalog(r io.Reader) ([]ChargingStation, error) {
	var wire []wireChargingStation
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return nil, perr.DataUnavailable(errors.Wrap(err, "decode charging-station catalog"))
	}

	catalog := make([]ChargingStation, len(wire))
	for i, w := range wire {
		catalog[i] = ChargingStation{
			Name:   w.Name,
			Tags:   w.Tags,
			Region: w.Region,
			Location: geo.Point{
				Lat: w.Location.Latitude,
				Lon: w.Location.Longitude,
			},
		}
	}

	return catalog, nil
}

// parseBucketURL splits a configured source into a bucket URL
// blob.OpenBucket understands and an optional subdirectory prefix, the way
// the teacher's pmtiles parseSourcePath separates a bucket from a
// subdirectory for cloud storage (gocloud.dev only treats the URL host as
// the bucket name and ignores the path).
func parseBucketURL(source string) (bucketURL, prefix string) {
	if !strings.Contains(source, "://") {
		abs, err := filepath.Abs(source)
		if err != nil {
			abs = source
		}

		return "file://" + filepath.ToSlash(abs), ""
	}

	u, err := url.Parse(source)
	if err != nil {
		return source, ""
	}

	switch u.Scheme {
	case "gs", "s3", "azblob":
		bucketURL = u.Scheme + "://" + u.Host
		prefix = strings.Trim(u.Path, "/")

		return bucketURL, prefix
	default:
		return source, ""
	}
}
