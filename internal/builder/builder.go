package builder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmelnik/buildgate/internal/catalog"
)

// DefaultTimeout is the per-build execution timeout.
const DefaultTimeout = 15 * time.Minute

// ExecFunc is the signature for running a command and capturing combined
// output. It receives the context, binary path, and args.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Options control how a build stage runs.
type Options struct {
	// Binary is the build tool executable (default "docker").
	Binary string
	// Parallel launches all builds together and joins before returning.
	// Serial runs in catalog order and aborts the rest on first failure.
	Parallel bool
	// Cache disabled adds --no-cache to every invocation.
	Cache bool
	// Timeout bounds each individual build.
	Timeout time.Duration
	// Context is the build context directory (default ".").
	Context string
}

// Result is the outcome of one build invocation.
type Result struct {
	Target   string        `json:"target"`
	ImageRef string        `json:"image_ref"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Skipped  bool          `json:"skipped,omitempty"`
	Error    string        `json:"error,omitempty"`
	Output   string        `json:"output,omitempty"`
}

// Builder executes the external image-build command per target.
type Builder struct {
	execFn ExecFunc
	opts   Options
}

// New creates a Builder with the given exec function and options.
func New(execFn ExecFunc, opts Options) *Builder {
	if opts.Binary == "" {
		opts.Binary = "docker"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Context == "" {
		opts.Context = "."
	}
	return &Builder{execFn: execFn, opts: opts}
}

// Build runs one build per target. In serial mode targets run in the given
// order and the remaining sequence is skipped after the first failure. In
// parallel mode all builds launch as independent units and the join barrier
// waits for every one to finish before any failure is reported — siblings
// are never cancelled, so there is no partially-written shared state.
// The returned error is non-nil if any build failed.
func (b *Builder) Build(ctx context.Context, targets []catalog.BuildTarget) ([]Result, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets to build")
	}

	var results []Result
	if b.opts.Parallel {
		results = b.buildParallel(ctx, targets)
	} else {
		results = b.buildSerial(ctx, targets)
	}

	failed := 0
	for _, res := range results {
		if !res.Success && !res.Skipped {
			failed++
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("%d of %d build(s) failed", failed, len(targets))
	}
	return results, nil
}

func (b *Builder) buildSerial(ctx context.Context, targets []catalog.BuildTarget) []Result {
	results := make([]Result, 0, len(targets))

	aborted := false
	for _, target := range targets {
		if aborted {
			results = append(results, Result{
				Target:   target.Name,
				ImageRef: target.ImageRef(),
				Skipped:  true,
				Error:    "skipped: earlier build failed",
			})
			continue
		}

		res := b.buildOne(ctx, target)
		results = append(results, res)
		if !res.Success {
			aborted = true
		}
	}
	return results
}

func (b *Builder) buildParallel(ctx context.Context, targets []catalog.BuildTarget) []Result {
	results := make([]Result, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target catalog.BuildTarget) {
			defer wg.Done()
			results[i] = b.buildOne(ctx, target)
		}(i, target)
	}
	wg.Wait()

	return results
}

// buildOne constructs and executes a single build invocation. The target
// name and tag are passed as build arguments literally.
func (b *Builder) buildOne(ctx context.Context, target catalog.BuildTarget) Result {
	buildCtx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	args := []string{
		"build",
		"-f", target.BuildFile,
		"--build-arg", "ROLE=" + target.Name,
		"--build-arg", "VERSION=" + target.Tag,
		"-t", target.ImageRef(),
	}
	if !b.opts.Cache {
		args = append(args, "--no-cache")
	}
	args = append(args, b.opts.Context)

	start := time.Now()
	output, err := b.execFn(buildCtx, b.opts.Binary, args...)
	duration := time.Since(start)

	res := Result{
		Target:   target.Name,
		ImageRef: target.ImageRef(),
		Duration: duration,
		Output:   string(output),
	}

	if err != nil {
		// A deadline here means the build exceeded its timeout; report it
		// as a build failure, not a hang.
		if buildCtx.Err() == context.DeadlineExceeded {
			res.Error = fmt.Sprintf("build timed out after %s", b.opts.Timeout)
		} else {
			res.Error = err.Error()
		}
		return res
	}

	res.Success = true
	return res
}

// Failed returns the names of targets whose builds failed (not skipped).
func Failed(results []Result) []string {
	var names []string
	for _, res := range results {
		if !res.Success && !res.Skipped {
			names = append(names, res.Target)
		}
	}
	return names
}

// Succeeded returns only the successful build results.
func Succeeded(results []Result) []Result {
	var ok []Result
	for _, res := range results {
		if res.Success {
			ok = append(ok, res)
		}
	}
	return ok
}
