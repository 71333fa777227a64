package registry

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout is the maximum time allowed for a single push.
const DefaultTimeout = 10 * time.Minute

// pushRetries is the number of additional attempts after a failed push.
const pushRetries = 2

// ExecFunc runs a command and returns its combined output. Injectable for
// testing.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// GetenvFunc looks up an environment variable. Injectable for testing.
type GetenvFunc func(key string) string

// Credentials carry the registry endpoint and login identity.
type Credentials struct {
	Registry string
	Username string
	Password string
}

// CredentialsFromEnv reads registry credentials from the environment.
// Returns an error when any of the three variables is unset.
func CredentialsFromEnv(getenv GetenvFunc) (Credentials, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	creds := Credentials{
		Registry: getenv("BUILDGATE_REGISTRY"),
		Username: getenv("BUILDGATE_REGISTRY_USER"),
		Password: getenv("BUILDGATE_REGISTRY_PASSWORD"),
	}

	var missing []string
	if creds.Registry == "" {
		missing = append(missing, "BUILDGATE_REGISTRY")
	}
	if creds.Username == "" {
		missing = append(missing, "BUILDGATE_REGISTRY_USER")
	}
	if creds.Password == "" {
		missing = append(missing, "BUILDGATE_REGISTRY_PASSWORD")
	}
	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf("registry credentials missing: %s", strings.Join(missing, ", "))
	}

	return creds, nil
}

// Options configures the publisher.
type Options struct {
	// Binary is the container CLI to invoke. Defaults to "docker".
	Binary string

	// Timeout bounds each individual push. Defaults to DefaultTimeout.
	Timeout time.Duration

	// LogFunc receives progress messages. Nil disables logging.
	LogFunc func(format string, args ...interface{})
}

// Result records the push attempt for one image.
type Result struct {
	ImageRef string        `json:"image_ref"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
}

// Publisher logs in once, pushes a set of images sequentially, and always
// logs out afterwards.
type Publisher struct {
	opts  Options
	creds Credentials
	exec  ExecFunc
}

// New creates a publisher with the given credentials.
func New(creds Credentials, opts Options, execFn ExecFunc) *Publisher {
	if opts.Binary == "" {
		opts.Binary = "docker"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if execFn == nil {
		execFn = defaultExec
	}
	return &Publisher{
		opts:  opts,
		creds: creds,
		exec:  execFn,
	}
}

// Publish pushes every image reference to the registry. Login happens once
// up front; a login failure aborts the whole publish. Pushes run
// sequentially and a failed push does not stop the remaining ones. Logout
// always runs and its failure is never fatal.
func (p *Publisher) Publish(ctx context.Context, imageRefs []string) ([]Result, error) {
	if len(imageRefs) == 0 {
		return nil, fmt.Errorf("no images to publish")
	}

	if err := p.login(ctx); err != nil {
		return nil, fmt.Errorf("registry login failed: %w", err)
	}
	defer p.logout(ctx)

	results := make([]Result, 0, len(imageRefs))
	failed := 0
	for _, ref := range imageRefs {
		result := p.pushOne(ctx, ref)
		if !result.Success {
			failed++
		}
		results = append(results, result)
	}

	if failed > 0 {
		return results, fmt.Errorf("%d of %d push(es) failed", failed, len(imageRefs))
	}
	return results, nil
}

// pushOne pushes a single image, retrying on failure.
func (p *Publisher) pushOne(ctx context.Context, imageRef string) Result {
	remote := p.creds.Registry + "/" + imageRef
	start := time.Now()

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= pushRetries; attempt++ {
		attempts++
		if attempt > 0 {
			p.logf("retrying push of %s (attempt %d of %d)", remote, attempt+1, pushRetries+1)
		}

		pushCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
		_, tagErr := p.exec(pushCtx, p.opts.Binary, "tag", imageRef, remote)
		if tagErr != nil {
			cancel()
			lastErr = fmt.Errorf("tag %s: %w", remote, tagErr)
			continue
		}
		_, pushErr := p.exec(pushCtx, p.opts.Binary, "push", remote)
		cancel()
		if pushErr == nil {
			return Result{
				ImageRef: imageRef,
				Attempts: attempts,
				Duration: time.Since(start),
				Success:  true,
			}
		}
		lastErr = pushErr
	}

	return Result{
		ImageRef: imageRef,
		Attempts: attempts,
		Duration: time.Since(start),
		Error:    lastErr.Error(),
	}
}

// login authenticates against the registry.
func (p *Publisher) login(ctx context.Context) error {
	loginCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	_, err := p.exec(loginCtx, p.opts.Binary,
		"login", p.creds.Registry,
		"--username", p.creds.Username,
		"--password", p.creds.Password)
	return err
}

// logout ends the registry session. Failures are logged and swallowed.
func (p *Publisher) logout(ctx context.Context) {
	logoutCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if _, err := p.exec(logoutCtx, p.opts.Binary, "logout", p.creds.Registry); err != nil {
		p.logf("registry logout failed (ignored): %v", err)
	}
}

func (p *Publisher) logf(format string, args ...interface{}) {
	if p.opts.LogFunc != nil {
		p.opts.LogFunc(format, args...)
	}
}

func defaultExec(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}
