// Package login drives the credential and club-selection sequence against
// the target site: navigate to the login form, submit credentials, detect
// rejection, and resolve which club context to enter when the account
// belongs to several.
package login

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ramosmx/clubpilot/pkg/browser"
	"github.com/ramosmx/clubpilot/pkg/logging"
	"github.com/ramosmx/clubpilot/pkg/retry"
)

// Credentials authenticate one user against the site.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Target selects which club context to enter after authentication.
// An explicit ClubID wins; otherwise ClubType+ClubName are fuzzy-matched;
// otherwise the first listed club is entered.
type Target struct {
	ClubID   int    `json:"club_id,omitempty"`
	ClubType string `json:"club_type,omitempty"`
	ClubName string `json:"club_name,omitempty"`
}

// Result reports a completed login.
type Result struct {
	// Clubs lists every membership offered on the selection page.
	Clubs []Club

	// Selected is the club context that was entered, nil when the site
	// never offered a selection.
	Selected *Club

	// Restored is true when a saved storage state skipped the credential
	// form entirely.
	Restored bool
}

// Config points the flow at the target site.
type Config struct {
	BaseURL        string
	LoginPath      string
	SelectClubPath string
}

// Form selectors, kept permissive because the site markup drifts.
const (
	usernameSelector  = `input[placeholder*="nombre de usuario"], input[name="username"]`
	passwordSelector  = `input[placeholder*="contraseña"], input[name="password"], input[type="password"]`
	submitSelector    = `button:has-text("Iniciar sesión"), button[type="submit"]`
	alertSelector     = `.alert-danger, .error-message, .alert`
	enterClubSelector = `a:has-text("Entrar"), button:has-text("Entrar")`

	loginErrorMarker = "login_error"
)

// Flow executes the login sequence on a borrowed capability handle.
type Flow struct {
	cfg    Config
	policy retry.Policy
	log    *logging.Logger
}

// NewFlow creates a login flow. The retry policy is applied to transient
// navigation errors only; credential rejection is never retried.
func NewFlow(cfg Config, policy retry.Policy, log *logging.Logger) *Flow {
	return &Flow{
		cfg:    cfg,
		policy: policy.WithRetryIf(browser.IsTransient),
		log:    log,
	}
}

// Execute runs the login sequence. It returns an *AuthError for rejected
// credentials, a *TargetError when the requested club cannot be resolved,
// and transient navigation errors after retries are exhausted.
func (f *Flow) Execute(ctx context.Context, handle browser.Handle, creds Credentials, target Target) (*Result, error) {
	loginURL := f.cfg.BaseURL + f.cfg.LoginPath

	err := f.policy.Do(ctx, func(context.Context) error {
		return handle.Navigate(loginURL, browser.NavigateOptions{WaitUntil: "networkidle"})
	})
	if err != nil {
		return nil, fmt.Errorf("navigate to login page: %w", err)
	}

	// A restored storage state gets redirected straight past the form.
	if !strings.Contains(handle.URL(), f.cfg.LoginPath) &&
		!strings.Contains(handle.URL(), f.cfg.SelectClubPath) {
		f.log.Infof("session restored from saved state, skipping credentials for %s", creds.Username)
		return &Result{Restored: true}, nil
	}

	if strings.Contains(handle.URL(), f.cfg.LoginPath) {
		if err := f.submitCredentials(handle, creds); err != nil {
			return nil, err
		}
	}

	result := &Result{}
	if strings.Contains(handle.URL(), f.cfg.SelectClubPath) {
		if err := f.selectClub(handle, target, result); err != nil {
			return nil, err
		}
	}

	if err := handle.WaitForLoad("networkidle"); err != nil {
		return nil, fmt.Errorf("wait for dashboard: %w", err)
	}

	selected := "none"
	if result.Selected != nil {
		selected = result.Selected.Name
	}
	f.log.Infof("login successful for %s, club=%s", creds.Username, selected)
	return result, nil
}

func (f *Flow) submitCredentials(handle browser.Handle, creds Credentials) error {
	if err := handle.Fill(usernameSelector, creds.Username); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}
	if err := handle.Fill(passwordSelector, creds.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := handle.Click(submitSelector); err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}
	if err := handle.WaitForLoad("networkidle"); err != nil {
		return fmt.Errorf("wait after submit: %w", err)
	}

	if strings.Contains(handle.URL(), loginErrorMarker) {
		reason := "Invalid credentials"
		if text, err := handle.ReadText(alertSelector); err == nil {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				reason = trimmed
			}
		}
		return &AuthError{Username: creds.Username, Reason: reason}
	}
	return nil
}

func (f *Flow) selectClub(handle browser.Handle, target Target, result *Result) error {
	content, err := handle.Content()
	if err != nil {
		return fmt.Errorf("read club selection page: %w", err)
	}

	clubs, err := ParseClubOptions(content)
	if err != nil {
		return fmt.Errorf("parse club options: %w", err)
	}
	result.Clubs = clubs
	if len(clubs) == 0 {
		f.log.Warnf("club selection page had no options")
		return nil
	}

	var selected *Club
	switch {
	case target.ClubID != 0:
		for i := range clubs {
			if clubs[i].ID == target.ClubID {
				selected = &clubs[i]
				break
			}
		}
		if selected == nil {
			return &TargetError{
				RequestedName: strconv.Itoa(target.ClubID),
				RequestedType: "id",
				Available:     describeClubs(clubs),
			}
		}

	case target.ClubType != "" && target.ClubName != "":
		selected = findClub(clubs, target.ClubType, target.ClubName)
		if selected == nil {
			return &TargetError{
				RequestedType: target.ClubType,
				RequestedName: target.ClubName,
				Available:     describeClubs(clubs),
			}
		}

	default:
		selected = &clubs[0]
	}

	if err := f.enterClub(handle, selected.ID); err != nil {
		return err
	}
	result.Selected = selected
	return nil
}

func (f *Flow) enterClub(handle browser.Handle, clubID int) error {
	if err := handle.Click(fmt.Sprintf("input[value='%d']", clubID)); err != nil {
		return fmt.Errorf("pick club %d: %w", clubID, err)
	}
	if err := handle.Click(enterClubSelector); err != nil {
		return fmt.Errorf("enter club %d: %w", clubID, err)
	}
	if err := handle.WaitForLoad("networkidle"); err != nil {
		return fmt.Errorf("wait after club selection: %w", err)
	}
	return nil
}

// ParseClubOptions extracts the club memberships from the selection page
// markup. Each option is a radio input whose label (or enclosing element)
// carries the club description.
func ParseClubOptions(content string) ([]Club, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}

	var clubs []Club
	doc.Find("input[type='radio']").Each(func(_ int, input *goquery.Selection) {
		value, ok := input.Attr("value")
		if !ok {
			return
		}
		id, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return
		}

		var labelText string
		if inputID, ok := input.Attr("id"); ok && inputID != "" {
			labelText = doc.Find(`label[for="` + inputID + `"]`).First().Text()
		}
		if strings.TrimSpace(labelText) == "" {
			labelText = input.Parent().Text()
		}

		fullText := strings.Join(strings.Fields(labelText), " ")
		if fullText == "" {
			return
		}

		name, clubType, role := parseClubLabel(fullText)
		clubs = append(clubs, Club{
			ID:       id,
			Name:     name,
			Type:     clubType,
			Role:     role,
			FullText: fullText,
		})
	})

	return clubs, nil
}

func describeClubs(clubs []Club) []string {
	out := make([]string, 0, len(clubs))
	for _, c := range clubs {
		out = append(out, fmt.Sprintf("%s (%s)", c.Name, c.Type))
	}
	return out
}
