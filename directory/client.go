// Package directory is the client of the resource-oriented persistence
// collaborator (doctors, patients, diagnostics). It keeps an in-memory roster
// cache refreshed on a schedule so matching never waits on the collaborator's
// read path.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"mediguide-backend/matching"
	"mediguide-backend/routing"
)

// FlexID tolerates the collaborator's mixed id types (numeric for doctors and
// patients, string for diagnostics).
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// Doctor mirrors the collaborator's doctor resource; only the fields the core
// reads or writes back are mapped. Unmapped fields are never sent, so the
// collaborator's PATCH merge leaves them as they are.
type Doctor struct {
	ID                FlexID                   `json:"id"`
	Noms              string                   `json:"noms"`
	Specialite        string                   `json:"specialite"`
	DiagnosticPatient []routing.DiagnosticCase `json:"diagnosticPatient"`
}

// Patient is the slice of the patient resource used for name resolution.
type Patient struct {
	ID   FlexID `json:"id"`
	Noms string `json:"noms"`
}

// Client talks to the collaborator following its REST contract:
// GET /doctors, PATCH /doctors/{id}, POST /diagnostics, PATCH /diagnostics/{id},
// GET /patients.
type Client struct {
	base string
	http *http.Client

	mu     sync.RWMutex
	roster []Doctor

	sched *gocron.Scheduler
}

// NewClient reads DIRECTORY_BASE_URL (default the json-server dev address).
func NewClient() *Client {
	base := strings.TrimRight(os.Getenv("DIRECTORY_BASE_URL"), "/")
	if base == "" {
		base = "http://localhost:3000"
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// StartRosterRefresh loads the roster now and schedules periodic refreshes
// (ROSTER_REFRESH_MINUTES, default 10).
func (c *Client) StartRosterRefresh() error {
	if err := c.refreshRoster(context.Background()); err != nil {
		return fmt.Errorf("directory: initial roster load: %w", err)
	}
	minutes := 10
	if v := os.Getenv("ROSTER_REFRESH_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			minutes = n
		}
	}
	c.sched = gocron.NewScheduler(time.Local)
	_, err := c.sched.Every(minutes).Minutes().Do(func() {
		if err := c.refreshRoster(context.Background()); err != nil {
			log.Printf("[Directory][Refresh] roster refresh failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	c.sched.StartAsync()
	return nil
}

// Stop halts the refresh scheduler.
func (c *Client) Stop() {
	if c.sched != nil {
		c.sched.Stop()
	}
}

func (c *Client) refreshRoster(ctx context.Context) error {
	var docs []Doctor
	if err := c.get(ctx, "/doctors", &docs); err != nil {
		return err
	}
	c.mu.Lock()
	c.roster = docs
	c.mu.Unlock()
	log.Printf("[Directory][Refresh] roster loaded: %d doctors", len(docs))
	return nil
}

// Roster serves the cached roster as matcher candidates, fetching on first use
// when the scheduler has not run yet.
func (c *Client) Roster(ctx context.Context) ([]matching.Candidate, error) {
	c.mu.RLock()
	docs := c.roster
	c.mu.RUnlock()
	if docs == nil {
		if err := c.refreshRoster(ctx); err != nil {
			return nil, err
		}
		c.mu.RLock()
		docs = c.roster
		c.mu.RUnlock()
	}
	out := make([]matching.Candidate, 0, len(docs))
	for _, d := range docs {
		out = append(out, matching.Candidate{ID: string(d.ID), Name: d.Noms, Specialty: d.Specialite})
	}
	return out, nil
}

// Assign appends the case to the doctor's record and creates the diagnostic
// resource. The collaborator has no transaction: the doctor PATCH commits
// first, then the diagnostics POST, and a failure at either point is reported
// as uncommitted. Two patients matched concurrently against the same doctor can
// race on the read-modify-write; that eventual consistency is a known
// limitation of the REST backend (the MySQL store appends transactionally).
func (c *Client) Assign(ctx context.Context, doctorID string, cs routing.DiagnosticCase) error {
	var doc Doctor
	if err := c.get(ctx, "/doctors/"+doctorID, &doc); err != nil {
		return fmt.Errorf("directory: doctor %s: %w", doctorID, err)
	}
	doc.DiagnosticPatient = append(doc.DiagnosticPatient, cs)
	if err := c.send(ctx, http.MethodPatch, "/doctors/"+doctorID, doc, nil); err != nil {
		return fmt.Errorf("directory: doctor update: %w", err)
	}
	if err := c.send(ctx, http.MethodPost, "/diagnostics", cs, nil); err != nil {
		return fmt.Errorf("directory: diagnostic create: %w", err)
	}
	c.mu.Lock()
	for i := range c.roster {
		if c.roster[i].ID == doc.ID {
			c.roster[i] = doc
		}
	}
	c.mu.Unlock()
	return nil
}

// Get fetches one diagnostic case.
func (c *Client) Get(ctx context.Context, id string) (routing.DiagnosticCase, error) {
	var cs routing.DiagnosticCase
	err := c.get(ctx, "/diagnostics/"+id, &cs)
	if err != nil {
		if errNotFound(err) {
			return cs, routing.ErrNotFound
		}
		return cs, err
	}
	return cs, nil
}

// UpdateStatus patches only the status field of a diagnostic case.
func (c *Client) UpdateStatus(ctx context.Context, id, status string) error {
	err := c.send(ctx, http.MethodPatch, "/diagnostics/"+id, map[string]string{"status": status}, nil)
	if errNotFound(err) {
		return routing.ErrNotFound
	}
	return err
}

// List returns diagnostics, optionally filtered by status.
func (c *Client) List(ctx context.Context, status string) ([]routing.DiagnosticCase, error) {
	path := "/diagnostics"
	if status != "" {
		path += "?status=" + status
	}
	var out []routing.DiagnosticCase
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NameByID resolves a patient display name.
func (c *Client) NameByID(ctx context.Context, id string) (string, error) {
	var p Patient
	if err := c.get(ctx, "/patients/"+id, &p); err != nil {
		return "", err
	}
	return p.Noms, nil
}

// --- HTTP plumbing --- //

type statusError struct{ code int }

func (e *statusError) Error() string { return "directory: status " + strconv.Itoa(e.code) }

func errNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusNotFound
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.send(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{code: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
