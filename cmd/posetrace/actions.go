package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/banshee-data/posetrace/internal/capture"
	"github.com/banshee-data/posetrace/internal/config"
	"github.com/banshee-data/posetrace/internal/monitoring"
	"github.com/banshee-data/posetrace/internal/playback"
	"github.com/banshee-data/posetrace/internal/pose"
	"github.com/banshee-data/posetrace/internal/pose/reconstruct"
	"github.com/banshee-data/posetrace/internal/pose/scale"
	"github.com/banshee-data/posetrace/internal/pose/smoothing"
	"github.com/banshee-data/posetrace/internal/posedb"
	"github.com/banshee-data/posetrace/internal/report"
	"github.com/banshee-data/posetrace/internal/timeutil"
)

func tuningFrom(c *cli.Context) *config.TuningConfig {
	if t, ok := c.App.Metadata[metadataTuning].(*config.TuningConfig); ok {
		return t
	}
	return config.DefaultTuningConfig()
}

func smoothingConfig(t *config.TuningConfig) smoothing.Config {
	return smoothing.Config{
		WindowLength:    t.GetSmoothingWindow(),
		PolynomialOrder: t.GetSmoothingOrder(),
		Enabled:         t.GetApplySmoothing(),
		Workers:         t.GetSmoothingWorkers(),
	}
}

// input is a capture plus where it came from.
type input struct {
	capture pose.Capture
	source  string
	session *posedb.Session
}

func openStore(c *cli.Context) (*posedb.Store, error) {
	return posedb.Open(c.String(flagDB))
}

func loadInput(c *cli.Context) (input, error) {
	if id := c.String(flagSession); id != "" {
		store, err := openStore(c)
		if err != nil {
			return input{}, err
		}
		defer store.Close()

		sess, err := store.GetSession(c.Context, id)
		if err != nil {
			return input{}, err
		}
		capt, err := store.LoadCapture(c.Context, id)
		if err != nil {
			return input{}, err
		}
		return input{capture: capt, source: sess.Source, session: sess}, nil
	}

	if c.Args().Len() != 1 {
		return input{}, errors.New("expected exactly one pose file (or --session)")
	}
	path := c.Args().First()
	capt, err := capture.LoadWithFPS(path, tuningFrom(c).GetSampleFPS())
	if err != nil {
		return input{}, err
	}
	return input{capture: capt, source: path}, nil
}

func newReconstructor(c *cli.Context, in input) (*reconstruct.Reconstructor, error) {
	t := tuningFrom(c)
	policy := t.GetScalePolicy()
	if c.IsSet(flagPolicy) {
		policy = c.String(flagPolicy)
	}

	opts := []reconstruct.Option{
		reconstruct.WithSmoothing(smoothingConfig(t)),
		reconstruct.WithDefaultScale(t.GetMovementScale()),
		reconstruct.WithScalePolicy(reconstruct.ScalePolicy(policy)),
	}
	switch {
	case c.IsSet(flagScale):
		opts = append(opts, reconstruct.WithScaleOverride(c.Float64(flagScale)))
	case in.session != nil && in.session.ScaleOverride != nil:
		opts = append(opts, reconstruct.WithScaleOverride(*in.session.ScaleOverride))
	}
	return reconstruct.New(in.capture, opts...)
}

// processOutput is the document written by the process command.
type processOutput struct {
	Source string             `json:"source"`
	FPS    float64            `json:"fps"`
	Scale  float64            `json:"scale"`
	Frames []reconstruct.Pose `json:"frames"`
}

// ProcessAction reconstructs every frame and writes the result as JSON.
func ProcessAction(c *cli.Context) error {
	in, err := loadInput(c)
	if err != nil {
		return err
	}
	r, err := newReconstructor(c, in)
	if err != nil {
		return err
	}

	poses := r.RenderAll()
	write := func(w io.Writer) error {
		enc := json.NewEncoder(w)
		if c.Bool(flagLines) {
			for _, p := range poses {
				if err := enc.Encode(p); err != nil {
					return fmt.Errorf("write frame %d: %w", p.Frame, err)
				}
			}
			return nil
		}
		enc.SetIndent("", "  ")
		if err := enc.Encode(processOutput{Source: in.source, FPS: in.capture.FPS, Scale: r.Scale(), Frames: poses}); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}

	if out := c.String(flagOut); out != "" {
		f, err := os.Create(filepath.Clean(out))
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		if err := writeAndClose(f, write); err != nil {
			return err
		}
	} else if err := write(c.App.Writer); err != nil {
		return err
	}

	if c.Bool(flagSave) && in.session == nil {
		id, err := saveSession(c, in, r)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.ErrWriter, "saved session %s\n", id)
	}
	return nil
}

// writeAndClose runs write against wc and closes it, reporting the first
// failure. A failed close means the output may be incomplete.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) error {
	if err := write(wc); err != nil {
		wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func saveSession(c *cli.Context, in input, r *reconstruct.Reconstructor) (string, error) {
	store, err := openStore(c)
	if err != nil {
		return "", err
	}
	defer store.Close()

	var est *scale.Summary
	if s, ok := r.Estimate(); ok {
		est = &s
	}
	id, err := store.SaveCapture(c.Context, in.source, in.capture, est)
	if err != nil {
		return "", err
	}
	if v, ok := r.ScaleOverride(); ok {
		if err := store.SetScaleOverride(c.Context, id, &v); err != nil {
			return "", err
		}
	}
	return id, nil
}

// ReportAction writes a PNG plot of one joint channel and the HTML hip
// trajectory chart.
func ReportAction(c *cli.Context) error {
	joint, ok := pose.JointIndex(c.String(flagJoint))
	if !ok {
		return fmt.Errorf("unknown joint %q", c.String(flagJoint))
	}
	axis, err := report.ParseAxis(c.String(flagAxis))
	if err != nil {
		return err
	}

	in, err := loadInput(c)
	if err != nil {
		return err
	}
	r, err := newReconstructor(c, in)
	if err != nil {
		return err
	}

	dir := c.String(flagDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	smoothed := make(pose.Sequence, r.FrameCount())
	for f := range smoothed {
		smoothed[f], _ = r.RenderLandmarks(f)
	}
	pngPath := filepath.Join(dir, fmt.Sprintf("%s_%s.png", pose.JointName(joint), axis))
	switch err := report.PlotChannel(pngPath, in.capture.Landmarks3D, smoothed, joint, axis); {
	case errors.Is(err, report.ErrNoData):
		monitoring.Logf("skipping channel plot: %v", err)
	case err != nil:
		return err
	default:
		fmt.Fprintf(c.App.Writer, "wrote %s\n", pngPath)
	}

	htmlPath := filepath.Join(dir, "hip.html")
	f, err := os.Create(htmlPath)
	if err != nil {
		return fmt.Errorf("create hip chart: %w", err)
	}
	if err := writeAndClose(f, func(w io.Writer) error { return report.HipChart(w, r) }); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", htmlPath)
	return nil
}

// PlayAction loops over the reconstructed trajectory, printing the frame
// and hip offset each time the displayed frame changes.
func PlayAction(c *cli.Context) error {
	in, err := loadInput(c)
	if err != nil {
		return err
	}
	r, err := newReconstructor(c, in)
	if err != nil {
		return err
	}

	speed := tuningFrom(c).GetAnimationSpeed()
	if c.IsSet(flagSpeed) {
		speed = c.Float64(flagSpeed)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	if d := c.Duration(flagDuration); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	player := playback.New(r.FrameCount(), speed, timeutil.RealClock{})
	player.Seek(c.Int(flagStart))
	err = player.Run(ctx, playback.DefaultInterval, func(f int) {
		p, _ := r.Render(f)
		fmt.Fprintf(c.App.Writer, "frame %d offset %.4f %.4f\n", f, p.Offset.X, p.Offset.Y)
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// ListSessionsAction prints one line per stored session.
func ListSessionsAction(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.ListSessions(c.Context)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Fprintf(c.App.Writer, "%s  %s  frames=%d fps=%.1f scale=%s override=%s  %s\n",
			s.ID, s.CreatedAt.Format(time.RFC3339), s.FrameCount, s.FPS,
			formatScale(s.ScaleEstimate), formatScale(s.ScaleOverride), s.Source)
	}
	return nil
}

func formatScale(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}

func sessionArg(c *cli.Context, want int) (string, error) {
	if c.Args().Len() != want {
		return "", fmt.Errorf("expected %d argument(s), got %d", want, c.Args().Len())
	}
	return c.Args().First(), nil
}

// ShowSessionAction prints one session as JSON.
func ShowSessionAction(c *cli.Context) error {
	id, err := sessionArg(c, 1)
	if err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := store.GetSession(c.Context, id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(sess)
}

// DeleteSessionAction removes a stored session.
func DeleteSessionAction(c *cli.Context) error {
	id, err := sessionArg(c, 1)
	if err != nil {
		return err
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteSession(c.Context, id); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "deleted %s\n", id)
	return nil
}

// ScaleSessionAction sets or clears a session's scale override.
func ScaleSessionAction(c *cli.Context) error {
	id, err := sessionArg(c, 2)
	if err != nil {
		return err
	}

	var override *float64
	if arg := c.Args().Get(1); arg != "clear" {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("parse scale: %w", err)
		}
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("scale %v: %w", v, reconstruct.ErrInvalidScale)
		}
		override = &v
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetScaleOverride(c.Context, id, override); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "session %s scale override %s\n", id, formatScale(override))
	return nil
}

func withUnmigratedStore(c *cli.Context, fn func(*posedb.Store) error) error {
	store, err := posedb.OpenUnmigrated(c.String(flagDB))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// MigrateUpAction applies pending schema migrations.
func MigrateUpAction(c *cli.Context) error {
	return withUnmigratedStore(c, func(s *posedb.Store) error {
		if err := s.MigrateUp(); err != nil {
			return err
		}
		return printVersion(c, s)
	})
}

// MigrateDownAction rolls back the latest schema migration.
func MigrateDownAction(c *cli.Context) error {
	return withUnmigratedStore(c, func(s *posedb.Store) error {
		if err := s.MigrateDown(); err != nil {
			return err
		}
		return printVersion(c, s)
	})
}

// MigrateVersionAction prints the schema version.
func MigrateVersionAction(c *cli.Context) error {
	return withUnmigratedStore(c, func(s *posedb.Store) error {
		return printVersion(c, s)
	})
}

func printVersion(c *cli.Context, s *posedb.Store) error {
	v, dirty, err := s.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "schema version %d dirty=%v\n", v, dirty)
	return nil
}
