// Package export serializes run results to JSON or YAML documents.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	service "github.com/okian/joshirank/internal/app"
	"github.com/okian/joshirank/internal/domain/classify"
	"github.com/okian/joshirank/internal/domain/model"
	"github.com/okian/joshirank/internal/domain/network"
	"github.com/okian/joshirank/internal/domain/rating"
	"github.com/okian/joshirank/internal/domain/types"
	"github.com/okian/joshirank/pkg/logger"
)

// Format is an output encoding.
type Format string

// Supported formats.
const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" and "yml", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string { return string(f) }

// Meta identifies the run a document came from.
type Meta struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Year        int       `json:"year" yaml:"year"`
	Period      string    `json:"period" yaml:"period"`
}

// Ratings is the ratings table document.
type Ratings struct {
	Meta        `yaml:",inline"`
	Periods     []string          `json:"periods" yaml:"periods"`
	Leaderboard []types.Entry     `json:"leaderboard" yaml:"leaderboard"`
	Final       []rating.Standing `json:"final" yaml:"final"`
	Snapshots   []rating.Snapshot `json:"snapshots" yaml:"snapshots"`
	Upsets      []rating.Upset    `json:"upsets" yaml:"upsets"`
}

// Network is the graph document.
type Network struct {
	Meta             `yaml:",inline"`
	network.Document `yaml:",inline"`
}

// Attribution is the promotion attribution summary with classification and
// every warning of the run.
type Attribution struct {
	Meta           `yaml:",inline"`
	Wrestlers      []service.AttributionRow `json:"wrestlers" yaml:"wrestlers"`
	Classification []classify.Result        `json:"classification" yaml:"classification"`
	Members        int                      `json:"members" yaml:"members"`
	Warnings       []model.Warning          `json:"warnings" yaml:"warnings"`
}

func metaOf(res *service.Result) Meta {
	return Meta{RunID: res.RunID, GeneratedAt: res.GeneratedAt, Year: res.Year, Period: res.Period}
}

// RatingsOf extracts the ratings document from a result.
func RatingsOf(res *service.Result) Ratings {
	return Ratings{
		Meta:        metaOf(res),
		Periods:     res.Periods,
		Leaderboard: res.Leaderboard,
		Final:       res.Final,
		Snapshots:   res.Snapshots,
		Upsets:      res.Upsets,
	}
}

// NetworkOf extracts the graph document from a result.
func NetworkOf(res *service.Result) Network {
	return Network{Meta: metaOf(res), Document: res.Network}
}

// AttributionOf extracts the attribution summary from a result.
func AttributionOf(res *service.Result) Attribution {
	members := 0
	for _, c := range res.Classified {
		if c.Member {
			members++
		}
	}
	return Attribution{
		Meta:           metaOf(res),
		Wrestlers:      res.Attribution,
		Classification: res.Classified,
		Members:        members,
		Warnings:       res.Warnings,
	}
}

// Encode writes v to out in the given format.
func Encode(out io.Writer, f Format, v any) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case YAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// Writer writes result documents into a directory.
type Writer struct {
	dir    string
	format Format
	logger logger.Logger
}

// NewWriter creates a writer for dir. The default format is JSON.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{dir: dir, format: JSON}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("export")
	}
	return w
}

// Path returns the file a document named name is written to.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name+"."+w.format.Ext())
}

// WriteRatings writes ratings.<ext>.
func (w *Writer) WriteRatings(ctx context.Context, res *service.Result) (string, error) {
	return w.write(ctx, "ratings", RatingsOf(res))
}

// WriteNetwork writes network.<ext>.
func (w *Writer) WriteNetwork(ctx context.Context, res *service.Result) (string, error) {
	return w.write(ctx, "network", NetworkOf(res))
}

// WriteAttribution writes attribution.<ext>.
func (w *Writer) WriteAttribution(ctx context.Context, res *service.Result) (string, error) {
	return w.write(ctx, "attribution", AttributionOf(res))
}

// WriteAll writes all three documents and returns their paths.
func (w *Writer) WriteAll(ctx context.Context, res *service.Result) ([]string, error) {
	writers := []func(context.Context, *service.Result) (string, error){
		w.WriteRatings, w.WriteNetwork, w.WriteAttribution,
	}
	paths := make([]string, 0, len(writers))
	for _, write := range writers {
		p, err := write(ctx, res)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// write encodes into a temporary file and renames it into place, so a
// reader never sees a partial document.
func (w *Writer) write(ctx context.Context, name string, v any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", w.dir, err)
	}
	path := w.Path(name)
	tmp, err := os.CreateTemp(w.dir, "."+name+"-*")
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Encode(tmp, w.format, v); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	w.logger.Info(ctx, "document written",
		logger.String("document", name),
		logger.String("path", path),
		logger.String("format", string(w.format)),
	)
	return path, nil
}
