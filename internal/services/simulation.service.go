package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"memviz/internal/models"
)

const (
	startPath   = "/api/start_simulation"
	advancePath = "/api/next_step"
	resetPath   = "/api/reset_simulation"
	resultsPath = "/api/get_results"

	statusSuccess = "success"
	statusError   = "error"

	maxResponseBytes = 8 << 20
)

// Simulator is the remote simulation service as seen by the dashboard
type Simulator interface {
	Start(ctx context.Context, req StartRequest) (*models.Snapshot, error)
	Advance(ctx context.Context, req StepRequest) (*models.Snapshot, error)
	Reset(ctx context.Context) error
	Results(ctx context.Context) (*models.Results, error)
}

// ServiceError is a failure the simulation service reported itself
// (status: error). The message is meant for the user.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// ValidationError is a request rejected before it reaches the service
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StartRequest configures a new simulation. Sizes are pointers so that an
// absent key gets the default while an explicit 0 is rejected.
type StartRequest struct {
	Technique  string `json:"technique"`
	MemorySize *int   `json:"memory_size,omitempty"`
	PageSize   *int   `json:"page_size,omitempty"`
	Algorithm  string `json:"algorithm"`
}

// WithDefaults fills absent fields with the service's defaults
func (r StartRequest) WithDefaults() StartRequest {
	if r.Technique == "" {
		r.Technique = "paging"
	}
	if r.MemorySize == nil {
		size := 1024
		r.MemorySize = &size
	}
	if r.PageSize == nil {
		size := 64
		r.PageSize = &size
	}
	if r.Algorithm == "" {
		r.Algorithm = "FIFO"
	}
	return r
}

// Validate enforces that memory divides evenly into pages
func (r StartRequest) Validate() error {
	if r.MemorySize == nil || r.PageSize == nil || *r.MemorySize <= 0 || *r.PageSize <= 0 {
		return &ValidationError{Message: "Memory size and page size must be positive"}
	}
	if *r.MemorySize%*r.PageSize != 0 {
		return &ValidationError{Message: "Memory size must be a multiple of page size"}
	}
	return nil
}

// StepRequest advances the simulation by one operation. Size is used by
// allocate, Address by deallocate and access.
type StepRequest struct {
	Operation models.OperationType `json:"operation"`
	Size      *int                 `json:"size,omitempty"`
	Address   *int                 `json:"address,omitempty"`
}

// Validate checks that the operation carries the field it needs
func (r StepRequest) Validate() error {
	switch r.Operation {
	case models.OperationAllocate:
		if r.Size == nil || *r.Size <= 0 {
			return &ValidationError{Message: "Allocation size must be a positive number"}
		}
	case models.OperationDeallocate, models.OperationAccess:
		if r.Address == nil || *r.Address < 0 {
			return &ValidationError{Message: "Address must be a non-negative number"}
		}
	default:
		return &ValidationError{Message: fmt.Sprintf("Unknown operation: %s", r.Operation)}
	}
	return nil
}

// payload sends only the field relevant to the operation
func (r StepRequest) payload() StepRequest {
	p := StepRequest{Operation: r.Operation}
	if r.Operation == models.OperationAllocate {
		p.Size = r.Size
	} else {
		p.Address = r.Address
	}
	return p
}

type envelope struct {
	Status       string           `json:"status"`
	Message      string           `json:"message"`
	InitialState *models.Snapshot `json:"initial_state"`
	State        *models.Snapshot `json:"state"`
	Results      *models.Results  `json:"results"`
}

// SimulationClient talks JSON over HTTP to the simulation service
type SimulationClient struct {
	baseURL string
	http    *http.Client
	log     *logrus.Entry
}

// NewSimulationClient creates a client for the service at baseURL
func NewSimulationClient(baseURL string, timeout time.Duration) *SimulationClient {
	return &SimulationClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logrus.StandardLogger().WithField("type", "services/simulation"),
	}
}

// Start begins a new simulation and returns its initial snapshot
func (c *SimulationClient) Start(ctx context.Context, req StartRequest) (*models.Snapshot, error) {
	env, err := c.do(ctx, http.MethodPost, startPath, req)
	if err != nil {
		return nil, err
	}
	return c.snapshot(env.InitialState, startPath), nil
}

// Advance performs one operation and returns the updated snapshot
func (c *SimulationClient) Advance(ctx context.Context, req StepRequest) (*models.Snapshot, error) {
	env, err := c.do(ctx, http.MethodPost, advancePath, req.payload())
	if err != nil {
		return nil, err
	}
	return c.snapshot(env.State, advancePath), nil
}

// Reset discards the service's simulation
func (c *SimulationClient) Reset(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, resetPath, nil)
	return err
}

// Results fetches the service's own analytics for the running simulation
func (c *SimulationClient) Results(ctx context.Context) (*models.Results, error) {
	env, err := c.do(ctx, http.MethodGet, resultsPath, nil)
	if err != nil {
		return nil, err
	}
	if env.Results == nil {
		return &models.Results{}, nil
	}
	return env.Results, nil
}

// snapshot substitutes an empty snapshot for a missing one
func (c *SimulationClient) snapshot(snap *models.Snapshot, path string) *models.Snapshot {
	if snap == nil {
		c.log.WithField("path", path).Warn("response carried no state, using an empty snapshot")
		return &models.Snapshot{}
	}
	return snap
}

func (c *SimulationClient) do(ctx context.Context, method, path string, body interface{}) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s request", path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "request to %s failed", path)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s response (http %d)", path, resp.StatusCode)
	}

	switch env.Status {
	case statusSuccess:
		return &env, nil
	case statusError:
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("simulation service failed (http %d)", resp.StatusCode)
		}
		c.log.WithFields(logrus.Fields{
			"path":   path,
			"status": resp.StatusCode,
		}).Debug(msg)
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: msg}
	default:
		return nil, errors.Errorf("unexpected response status %q from %s (http %d)", env.Status, path, resp.StatusCode)
	}
}
