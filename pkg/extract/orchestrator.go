package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ramosmx/clubpilot/pkg/browser"
	"github.com/ramosmx/clubpilot/pkg/logging"
	"github.com/ramosmx/clubpilot/pkg/login"
	"github.com/ramosmx/clubpilot/pkg/retry"
)

// Authenticator logs a browser handle into the site and selects the
// requested club. Satisfied by *login.Flow.
type Authenticator interface {
	Execute(ctx context.Context, handle browser.Handle, creds login.Credentials, target login.Target) (*login.Result, error)
}

// Request is one extraction job.
type Request struct {
	Credentials login.Credentials `json:"credentials"`
	Target      login.Target      `json:"target"`

	// Include lists the extractors to run. Entries with glob
	// metacharacters expand against the registry. An empty list runs
	// nothing and yields an unsuccessful response.
	Include []string `json:"include"`
}

// OrchestratorConfig carries the request-independent knobs.
type OrchestratorConfig struct {
	// BaseURL is the site root handed to extractors and the login flow.
	BaseURL string

	// ScreenshotsDir receives diagnostic captures. Empty disables them.
	ScreenshotsDir string

	// ScreenshotOnSuccess also captures the final page of successful
	// requests.
	ScreenshotOnSuccess bool

	// SessionMaxAge bounds how old a saved login may be before it is
	// ignored. Zero accepts any saved state.
	SessionMaxAge time.Duration
}

// Orchestrator drives one extraction request end to end: acquire a pooled
// session, authenticate, run the requested extractors and aggregate their
// outcomes. The session is released on every exit path; an individual
// extractor failure never aborts its siblings.
type Orchestrator struct {
	pool     *browser.Pool
	registry *Registry
	auth     Authenticator
	store    *browser.SessionStore
	policy   retry.Policy
	cfg      OrchestratorConfig
	logger   *logging.Logger
}

// NewOrchestrator wires an orchestrator. store may be nil to disable
// saved-login reuse; extractor retries are filtered to transient browser
// errors regardless of the policy passed in.
func NewOrchestrator(pool *browser.Pool, registry *Registry, auth Authenticator, store *browser.SessionStore, policy retry.Policy, cfg OrchestratorConfig, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		pool:     pool,
		registry: registry,
		auth:     auth,
		store:    store,
		policy:   policy.WithRetryIf(browser.IsTransient),
		cfg:      cfg,
		logger:   logger,
	}
}

// Extract runs one request. Fatal failures (no session, authentication,
// target selection) return a *RequestError; everything past that point is
// recorded per extractor in the response, so partial results still come
// back as a normal response with Success=false when nothing succeeded.
func (o *Orchestrator) Extract(ctx context.Context, req Request) (*Response, error) {
	started := time.Now()

	session, err := o.acquireSession(ctx, req.Credentials.Username)
	if err != nil {
		return nil, &RequestError{Stage: StageAcquire, Err: err}
	}
	defer o.pool.Release(session)

	o.logger.Infof("session %s acquired for user %s", session.ID, req.Credentials.Username)

	loginResult, err := o.auth.Execute(ctx, session.Handle, req.Credentials, req.Target)
	if err != nil {
		return nil, o.loginFailure(session, req.Credentials.Username, err)
	}
	session.Touch()

	if o.store != nil && !loginResult.Restored {
		if _, err := o.store.Save(session, req.Credentials.Username); err != nil {
			o.logger.Warnf("failed to save session state for %s: %v", req.Credentials.Username, err)
		}
	}

	names := o.registry.ExpandNames(req.Include)
	outcomes := make([]Outcome, 0, len(names))
	var errs []string
	successes := 0

	for _, name := range names {
		if ctx.Err() != nil {
			return nil, &RequestError{Stage: StageExtract, Err: ctx.Err()}
		}

		extractor, ok := o.registry.Resolve(name)
		if !ok {
			msg := fmt.Sprintf("%v: %q", ErrUnknownExtractor, name)
			o.logger.Warnf("%s", msg)
			outcomes = append(outcomes, Outcome{Extractor: name, Status: StatusSkippedUnknown, Error: msg})
			errs = append(errs, msg)
			continue
		}

		payload, err := o.runExtractor(ctx, extractor, session)
		if err != nil {
			o.logger.Warnf("extractor %s failed: %v", name, err)
			outcomes = append(outcomes, Outcome{Extractor: name, Status: StatusFailed, Error: err.Error()})
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		o.logger.Debugf("extractor %s succeeded", name)
		outcomes = append(outcomes, Outcome{Extractor: name, Status: StatusSuccess, Payload: payload})
		successes++
	}

	resp := &Response{
		Success:      successes > 0,
		Message:      fmt.Sprintf("%d/%d extractors succeeded", successes, len(names)),
		SessionID:    session.ID,
		Clubs:        loginResult.Clubs,
		SelectedClub: loginResult.Selected,
		Outcomes:     outcomes,
		Errors:       errs,
		Elapsed:      time.Since(started),
		ExtractedAt:  time.Now().UTC(),
	}
	resp.ElapsedMS = resp.Elapsed.Milliseconds()

	if resp.Success && o.cfg.ScreenshotOnSuccess {
		resp.ScreenshotPath = o.capture(session, "extraction")
	}
	return resp, nil
}

// acquireSession restores a saved login for the username when one is
// fresh enough, otherwise acquires a clean session.
func (o *Orchestrator) acquireSession(ctx context.Context, username string) (*browser.Session, error) {
	if o.store != nil && username != "" {
		if path, ok := o.store.Lookup(username, o.cfg.SessionMaxAge); ok {
			o.logger.Debugf("restoring saved state for %s", username)
			return o.pool.AcquireWithState(ctx, path)
		}
	}
	return o.pool.Acquire(ctx)
}

func (o *Orchestrator) runExtractor(ctx context.Context, extractor Extractor, session *browser.Session) (map[string]any, error) {
	var payload map[string]any
	err := o.policy.Do(ctx, func(ctx context.Context) error {
		session.Touch()
		p, err := extractor.Extract(ctx, session.Handle, o.cfg.BaseURL)
		if err != nil {
			return err
		}
		payload = p
		return nil
	})
	return payload, err
}

func (o *Orchestrator) loginFailure(session *browser.Session, username string, err error) *RequestError {
	stage := StageAuthenticate
	var targetErr *login.TargetError
	if errors.As(err, &targetErr) {
		stage = StageSelectTarget
	}

	// A saved login that no longer authenticates is stale.
	var authErr *login.AuthError
	if o.store != nil && errors.As(err, &authErr) {
		if ferr := o.store.Forget(username); ferr != nil {
			o.logger.Warnf("failed to drop saved state for %s: %v", username, ferr)
		}
	}

	o.logger.Errorf("login failed for %s during %s: %v", username, stage, err)
	return &RequestError{
		Stage:          stage,
		ScreenshotPath: o.capture(session, "login_failure"),
		Err:            err,
	}
}

// capture writes a best-effort diagnostic screenshot and returns its
// path, or empty when disabled or failed.
func (o *Orchestrator) capture(session *browser.Session, prefix string) string {
	if o.cfg.ScreenshotsDir == "" {
		return ""
	}
	if err := os.MkdirAll(o.cfg.ScreenshotsDir, 0750); err != nil {
		o.logger.Warnf("failed to create screenshots directory: %v", err)
		return ""
	}

	name := fmt.Sprintf("%s_%s_%s.png", prefix, session.ID, time.Now().Format("20060102_150405"))
	path := filepath.Join(o.cfg.ScreenshotsDir, name)
	if err := session.Handle.Screenshot(path); err != nil {
		o.logger.Warnf("screenshot capture failed: %v", err)
		return ""
	}
	return path
}
