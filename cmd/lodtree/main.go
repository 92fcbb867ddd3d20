// Command lodtree builds and queries a level-of-detail point-cloud
// octree: "build" ingests a delimited point source into chunks pushed
// through a configured durable endpoint, "query" walks a bounded
// region of an existing tree and prints the points it finds.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	lodtree "github.com/lodtree/lodtree"
	"github.com/lodtree/lodtree/internal/codec"
	"github.com/lodtree/lodtree/internal/config"
	"github.com/lodtree/lodtree/internal/endpoint"
	"github.com/lodtree/lodtree/internal/geom"
	"github.com/lodtree/lodtree/internal/pointsource"
	"github.com/lodtree/lodtree/internal/schema"

	"github.com/lodtree/lodtree/internal/build"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "build":
		err = runBuild(os.Args[2:])
	case "query":
		err = runQuery(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("lodtree: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: lodtree <build|query> [flags]")
}

// commonFlags are shared between build and query: the config file, the
// native point schema, and the root bounding box a build run and every
// query against its output must agree on.
type commonFlags struct {
	configPath string
	schemaSpec string
	rootMin    string
	rootMax    string
}

func bindCommonFlags(fs *flag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.configPath, "config", "", "path to a TOML config file (optional, defaults otherwise)")
	fs.StringVar(&c.schemaSpec, "schema", "X:8,Y:8,Z:8", "comma-separated name:size native point fields")
	fs.StringVar(&c.rootMin, "root-min", "0,0,0", "root bounding box minimum corner, comma-separated")
	fs.StringVar(&c.rootMax, "root-max", "1024,1024,1024", "root bounding box maximum corner, comma-separated")
	return c
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	common := bindCommonFlags(fs)
	input := fs.String("input", "-", "point source file, or - for stdin")
	maxDepth := fs.Int("max-depth", 32, "deepest a point may descend before it is dropped")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(common.configPath)
	if err != nil {
		return err
	}
	s, err := parseSchema(common.schemaSpec)
	if err != nil {
		return err
	}
	structure, err := newStructure(cfg.Structure)
	if err != nil {
		return err
	}
	rootBBox, err := parseBBox(common.rootMin, common.rootMax)
	if err != nil {
		return err
	}

	log := newLogger()
	ep, err := newEndpoint(context.Background(), cfg.Endpoint, log)
	if err != nil {
		return err
	}
	cdc := newCodec(cfg.Codec)

	r, closeFn, err := openInput(*input)
	if err != nil {
		return err
	}
	defer closeFn()
	source, err := pointsource.NewDelimitedPointSource(r, s)
	if err != nil {
		return err
	}

	summary, err := build.Build(context.Background(), structure, s, rootBBox, source, ep, cdc, build.Options{
		Workers:   cfg.Workers,
		CacheSize: cfg.CacheSize,
		MaxDepth:  *maxDepth,
		Log:       log,
	})
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	fmt.Printf("run %s: inserted %d, dropped %d\n", summary.RunID, summary.Inserted, summary.Dropped)
	return nil
}

func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	common := bindCommonFlags(fs)
	regionMin := fs.String("min", "", "query region minimum corner, comma-separated (required)")
	regionMax := fs.String("max", "", "query region maximum corner, comma-separated (required)")
	depthBegin := fs.Int("depth-begin", 1, "shallowest depth the query descends to")
	depthEnd := fs.Int("depth-end", 32, "depth the query stops before reaching")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *regionMin == "" || *regionMax == "" {
		return fmt.Errorf("query: -min and -max are required")
	}

	cfg, err := loadConfig(common.configPath)
	if err != nil {
		return err
	}
	s, err := parseSchema(common.schemaSpec)
	if err != nil {
		return err
	}
	structure, err := newStructure(cfg.Structure)
	if err != nil {
		return err
	}
	rootBBox, err := parseBBox(common.rootMin, common.rootMax)
	if err != nil {
		return err
	}
	region, err := parseBBox(*regionMin, *regionMax)
	if err != nil {
		return err
	}

	log := newLogger()
	ep, err := newEndpoint(context.Background(), cfg.Endpoint, log)
	if err != nil {
		return err
	}
	cdc := newCodec(cfg.Codec)

	tree := lodtree.NewTree(structure, s, rootBBox, ep, cdc)

	count := 0
	err = tree.Query(context.Background(), region, *depthBegin, *depthEnd, lodtree.QueryOptions{CacheSize: cfg.CacheSize}, func(p lodtree.Point) error {
		count++
		fmt.Printf("%.3f,%.3f,%.3f\n", p.X, p.Y, p.Z)
		return nil
	})
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	fmt.Fprintf(os.Stderr, "%d points\n", count)
	return nil
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func newStructure(c config.Structure) (*geom.Structure, error) {
	return geom.NewStructure(c.Dimensions, c.NominalChunkDepth, c.ColdDepthBegin, c.SparseDepthBegin, c.BaseChunkPoints)
}

func newCodec(c config.Codec) codec.Codec {
	switch c.Kind {
	case "gzip":
		return codec.NewGzipCodec(c.Level)
	default:
		return codec.NewSnappyCodec()
	}
}

// newEndpoint builds the configured backend and wraps it in the
// retry driver, so a transient failure during a long build or query
// never aborts the whole run on its own.
func newEndpoint(ctx context.Context, c config.Endpoint, log zerolog.Logger) (endpoint.Endpoint, error) {
	var inner endpoint.Endpoint
	var err error
	switch c.Kind {
	case "local":
		inner, err = endpoint.NewLocalEndpoint(c.Dir)
	case "s3":
		inner, err = endpoint.NewS3Endpoint(ctx, c.Bucket)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: c.Addr})
		inner = endpoint.NewRedisEndpoint(client, c.Prefix)
	default:
		return nil, fmt.Errorf("config: unknown endpoint kind %q", c.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("endpoint: construct %s: %w", c.Kind, err)
	}
	return endpoint.NewRetrying(inner, log), nil
}

func openInput(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

// parseSchema parses "name:size,name:size,..." into a Schema in
// declared order.
func parseSchema(spec string) (schema.Schema, error) {
	fields := strings.Split(spec, ",")
	dims := make([]schema.Dimension, 0, len(fields))
	for _, f := range fields {
		parts := strings.SplitN(strings.TrimSpace(f), ":", 2)
		if len(parts) != 2 {
			return schema.Schema{}, fmt.Errorf("schema: malformed field %q, want name:size", f)
		}
		size, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return schema.Schema{}, fmt.Errorf("schema: field %q: %w", f, err)
		}
		dims = append(dims, schema.Dimension{Name: parts[0], Size: uint32(size)})
	}
	return schema.New(dims), nil
}

// parseBBox parses two "x,y,z" corners into a BBox.
func parseBBox(minSpec, maxSpec string) (geom.BBox, error) {
	min, err := parsePoint(minSpec)
	if err != nil {
		return geom.BBox{}, fmt.Errorf("bbox min: %w", err)
	}
	max, err := parsePoint(maxSpec)
	if err != nil {
		return geom.BBox{}, fmt.Errorf("bbox max: %w", err)
	}
	return geom.NewBBox(min, max), nil
}

func parsePoint(spec string) (geom.Point, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 3 {
		return geom.Point{}, fmt.Errorf("%q: want 3 comma-separated components", spec)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Point{}, fmt.Errorf("%q: %w", spec, err)
		}
		vals[i] = v
	}
	return geom.Point{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}
