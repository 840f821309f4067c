package builds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const downloadTimeout = 10 * time.Minute

// UsageFunc reports whether any online world still runs the named build.
// The world registry satisfies this through a small adapter so this
// package stays independent of the worlds package.
type UsageFunc func(ctx context.Context, build string) bool

// HTTPBuild is a server build whose artifact is fetched over HTTP. The
// download goes through a temp file and an atomic rename so a failed
// update never corrupts the installed artifact.
type HTTPBuild struct {
	name    string
	url     string
	install string
	options map[string]string
	inUse   UsageFunc
	client  *http.Client
	log     *zap.Logger
}

// NewHTTPBuild creates an HTTP-backed server build.
func NewHTTPBuild(name, url, install string, options map[string]string, inUse UsageFunc, log *zap.Logger) *HTTPBuild {
	opts := make(map[string]string, len(options))
	for k, v := range options {
		opts[k] = v
	}

	return &HTTPBuild{
		name:    name,
		url:     url,
		install: install,
		options: opts,
		inUse:   inUse,
		client:  &http.Client{Timeout: downloadTimeout},
		log:     log.Named("build").With(zap.String("build", name)),
	}
}

// Name returns the build name.
func (b *HTTPBuild) Name() string { return b.name }

// URL returns the download location of the build artifact.
func (b *HTTPBuild) URL() string { return b.url }

// InstallPath returns the path the artifact is installed at.
func (b *HTTPBuild) InstallPath() string { return b.install }

// Options returns a copy of the build's configuration options.
func (b *HTTPBuild) Options() map[string]string {
	opts := make(map[string]string, len(b.options))
	for k, v := range b.options {
		opts[k] = v
	}
	return opts
}

// Update downloads the artifact from the build URL into the install path.
func (b *HTTPBuild) Update(ctx context.Context, reporter ProgressReporter) error {
	err := b.download(ctx, reporter)
	if err != nil {
		return &UpdateError{Build: b.name, Err: err}
	}

	b.log.Info("build updated", zap.String("url", b.url))
	return nil
}

func (b *HTTPBuild) download(ctx context.Context, reporter ProgressReporter) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", b.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %s", b.url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(b.install), 0o755); err != nil {
		return fmt.Errorf("create install directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.install), "."+filepath.Base(b.install)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	reporter.Begin(b.name, resp.ContentLength)
	_, err = io.Copy(tmp, &progressReader{r: resp.Body, reporter: reporter})
	reporter.Done(err)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", b.url, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("flush temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), b.install); err != nil {
		return fmt.Errorf("install artifact: %w", err)
	}
	return nil
}

// Uninstall removes the installed artifact. Callers rebind the build's
// worlds to the replacement before calling this.
func (b *HTTPBuild) Uninstall(ctx context.Context, replacement Build) error {
	if replacement == nil || replacement.Name() == b.name {
		return fmt.Errorf("server build %q needs a distinct replacement", b.name)
	}
	if b.inUse != nil && b.inUse(ctx, b.name) {
		return ErrBuildInUse
	}

	if err := os.Remove(b.install); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact of build %q: %w", b.name, err)
	}

	b.log.Info("build uninstalled", zap.String("replacement", replacement.Name()))
	return nil
}

// progressReader forwards read counts to a ProgressReporter.
type progressReader struct {
	r        io.Reader
	reporter ProgressReporter
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.reporter.Advance(int64(n))
	}
	return n, err
}
