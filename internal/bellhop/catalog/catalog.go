// Package catalog holds the customer list and reply texts the dialogue
// engine works from.
//
// The built-in defaults match the production deployment; an optional YAML
// file can override both the customers and any reply text:
//
//	customers:
//	  - id: goognu
//	    title: Goognu
//	  - id: hiringgo
//	    title: HiringGo
//	texts:
//	  welcome: "Welcome to BigBell! Select Customer:"
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CustomSentinel is the reserved customer id meaning "no customer scope":
// the sender picks from the full job list instead of a prefix-filtered one.
const CustomSentinel = "custom"

// maxCustomers is bound by the customer prompt: it is a quick-reply button
// message holding at most 3 buttons, one of which is always the custom
// sentinel.
const maxCustomers = 2

// Customer is one prefix-based job grouping offered on the first step.
type Customer struct {
	// ID is the button id and the case-insensitive job-name prefix.
	ID string `yaml:"id"`
	// Title is the button label shown to the sender.
	Title string `yaml:"title"`
}

// Texts are the reply strings the engine sends. Fields ending in F are
// fmt.Sprintf templates.
type Texts struct {
	Welcome         string `yaml:"welcome"`
	CustomTitle     string `yaml:"custom_title"`
	SelectJob       string `yaml:"select_job"`
	ListHeader      string `yaml:"list_header"`
	ListBody        string `yaml:"list_body"`
	ListButton      string `yaml:"list_button"`
	ListSection     string `yaml:"list_section"`
	NoJobsForF      string `yaml:"no_jobs_for"`
	NoJobs          string `yaml:"no_jobs"`
	InvalidCustomer string `yaml:"invalid_customer"`
	InvalidJob      string `yaml:"invalid_job"`
	InvalidAction   string `yaml:"invalid_action"`
	JobActionF      string `yaml:"job_action"`
	TriggerTitle    string `yaml:"trigger_title"`
	StatusTitle     string `yaml:"status_title"`
	TerminateTitle  string `yaml:"terminate_title"`
	TriggeredF      string `yaml:"triggered"`
	TriggerFailedF  string `yaml:"trigger_failed"`
	JobStatusF      string `yaml:"job_status"`
	Terminated      string `yaml:"terminated"`
	InternalError   string `yaml:"internal_error"`
}

// Catalog is the resolved customer list plus reply texts.
type Catalog struct {
	Customers []Customer `yaml:"customers"`
	Texts     Texts      `yaml:"texts"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Customers: []Customer{
			{ID: "goognu", Title: "Goognu"},
			{ID: "hiringgo", Title: "HiringGo"},
		},
		Texts: Texts{
			Welcome:         "Welcome to BigBell! Select Customer:",
			CustomTitle:     "Customize Selection",
			SelectJob:       "Select Job to Trigger",
			ListHeader:      "Select Jenkins Job",
			ListBody:        "Choose a job to trigger or check status.",
			ListButton:      "Show Jobs",
			ListSection:     "All Jenkins Jobs",
			NoJobsForF:      "No jobs found for %s. Type 'hi' to restart.",
			NoJobs:          "No jobs found. Type 'hi' to restart.",
			InvalidCustomer: "Invalid selection. Type 'hi' to restart.",
			InvalidJob:      "Invalid job. Type 'hi' to restart.",
			InvalidAction:   "Invalid action. Type 'hi' to restart.",
			JobActionF:      "Job: %s\nChoose action:",
			TriggerTitle:    "Trigger Build",
			StatusTitle:     "Check Status",
			TerminateTitle:  "Terminate Session",
			TriggeredF:      "Job '%s' triggered.\nBuild: %s\nStatus: %s\nType 'hi' to restart.",
			TriggerFailedF:  "Failed to trigger job '%s'. Type 'hi' to restart.",
			JobStatusF:      "Job '%s' status: %s\nType 'hi' to restart.",
			Terminated:      "Session terminated. Type 'hi' to start again.",
			InternalError:   "Something went wrong. Type 'hi' to restart.",
		},
	}
}

// Load returns the default catalog overlaid with the YAML file at path.
// An empty path returns the defaults unchanged.
func Load(path string) (*Catalog, error) {
	cat := Default()
	if path == "" {
		return cat, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var overlay Catalog
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("catalog parse: %w", err)
	}

	if len(overlay.Customers) > 0 {
		cat.Customers = overlay.Customers
	}
	overlayTexts(&cat.Texts, overlay.Texts)

	if err := Validate(cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// Validate checks a catalog for structural correctness.
// It returns the first validation error encountered, or nil when valid.
func Validate(cat *Catalog) error {
	if cat == nil {
		return fmt.Errorf("catalog must not be nil")
	}
	if len(cat.Customers) == 0 {
		return fmt.Errorf("customers must not be empty")
	}
	if len(cat.Customers) > maxCustomers {
		return fmt.Errorf("at most %d customers are supported (the prompt holds 3 buttons, one is reserved)", maxCustomers)
	}

	seen := make(map[string]struct{}, len(cat.Customers))
	for i, c := range cat.Customers {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return fmt.Errorf("customers[%d]: id must not be empty", i)
		}
		if id != strings.ToLower(id) {
			return fmt.Errorf("customers[%d]: id %q must be lower-case (inputs are normalized before matching)", i, c.ID)
		}
		if id == CustomSentinel {
			return fmt.Errorf("customers[%d]: id %q is reserved", i, CustomSentinel)
		}
		if strings.TrimSpace(c.Title) == "" {
			return fmt.Errorf("customers[%d] (%q): title must not be empty", i, c.ID)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("customers[%d]: duplicate id %q", i, id)
		}
		seen[id] = struct{}{}
	}

	return nil
}

// IsCustomer reports whether the normalized input names a known customer.
func (c *Catalog) IsCustomer(id string) bool {
	for _, cust := range c.Customers {
		if cust.ID == id {
			return true
		}
	}
	return false
}

// overlayTexts copies every non-empty field of src onto dst.
func overlayTexts(dst *Texts, src Texts) {
	apply := func(d *string, s string) {
		if s != "" {
			*d = s
		}
	}
	apply(&dst.Welcome, src.Welcome)
	apply(&dst.CustomTitle, src.CustomTitle)
	apply(&dst.SelectJob, src.SelectJob)
	apply(&dst.ListHeader, src.ListHeader)
	apply(&dst.ListBody, src.ListBody)
	apply(&dst.ListButton, src.ListButton)
	apply(&dst.ListSection, src.ListSection)
	apply(&dst.NoJobsForF, src.NoJobsForF)
	apply(&dst.NoJobs, src.NoJobs)
	apply(&dst.InvalidCustomer, src.InvalidCustomer)
	apply(&dst.InvalidJob, src.InvalidJob)
	apply(&dst.InvalidAction, src.InvalidAction)
	apply(&dst.JobActionF, src.JobActionF)
	apply(&dst.TriggerTitle, src.TriggerTitle)
	apply(&dst.StatusTitle, src.StatusTitle)
	apply(&dst.TerminateTitle, src.TerminateTitle)
	apply(&dst.TriggeredF, src.TriggeredF)
	apply(&dst.TriggerFailedF, src.TriggerFailedF)
	apply(&dst.JobStatusF, src.JobStatusF)
	apply(&dst.Terminated, src.Terminated)
	apply(&dst.InternalError, src.InternalError)
}
