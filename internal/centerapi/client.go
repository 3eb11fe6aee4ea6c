// Package centerapi is the client for the maintenance backend. The backend
// owns every machine's status; the console only reads it and asks for changes.
package centerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"maintenance_center/internal/lifecycle"
	"maintenance_center/internal/models"
)

const (
	machinesPath       = "/maintenance/machines"
	returnPackagesPath = "/maintenance/return-packages"
	techniciansPath    = "/maintenance/technicians"

	maxResponseBytes = 4 << 20
)

// Client talks JSON over HTTP to the maintenance backend. Every response body
// is checked against its versioned schema before it is decoded.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	validator  *validator
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", opts.BaseURL, err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	v, err := newValidator()
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    base,
		token:      opts.Token,
		httpClient: &http.Client{Timeout: opts.Timeout},
		validator:  v,
	}, nil
}

// ListFilter narrows the machine list. Empty fields are not sent.
type ListFilter struct {
	Status   lifecycle.Status
	BranchID string
	Search   string
}

// Validate rejects a status outside the lifecycle.
func (f ListFilter) Validate() error {
	if f.Status != "" && !f.Status.Valid() {
		return &lifecycle.ValidationError{Field: "status", Message: lifecycle.ErrUnknownStatus.Error()}
	}
	return nil
}

// Values encodes the filter as backend query parameters.
func (f ListFilter) Values() url.Values {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.BranchID != "" {
		v.Set("branchId", f.BranchID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		v.Set("q", s)
	}
	return v
}

type machineList struct {
	Items []models.MaintenanceMachine `json:"items"`
}

type technicianList struct {
	Items []models.Ref `json:"items"`
}

type returnOrders struct {
	Orders []models.ReturnOrder `json:"orders"`
}

// FetchMachine reads one machine.
func (c *Client) FetchMachine(ctx context.Context, id string) (models.MaintenanceMachine, error) {
	var m models.MaintenanceMachine
	err := c.do(ctx, http.MethodGet, machinePath(id, ""), nil, nil, schemaMachine, &m)
	return m, err
}

// ListMachines reads the machines currently at the center.
func (c *Client) ListMachines(ctx context.Context, filter ListFilter) ([]models.MaintenanceMachine, error) {
	var out machineList
	if err := c.do(ctx, http.MethodGet, machinesPath, filter.Values(), nil, schemaMachineList, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []models.MaintenanceMachine{}
	}
	return out.Items, nil
}

// ListTechnicians reads the technicians a machine can be assigned to.
func (c *Client) ListTechnicians(ctx context.Context) ([]models.Ref, error) {
	var out technicianList
	if err := c.do(ctx, http.MethodGet, techniciansPath, nil, nil, schemaTechnicians, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []models.Ref{}
	}
	return out.Items, nil
}

func (c *Client) AssignTechnician(ctx context.Context, id string, in lifecycle.AssignInput) (models.MaintenanceMachine, error) {
	return c.mutate(ctx, id, "assign", in)
}

func (c *Client) Inspect(ctx context.Context, id string, in lifecycle.InspectInput) (models.MaintenanceMachine, error) {
	return c.mutate(ctx, id, "inspect", in)
}

func (c *Client) StartRepair(ctx context.Context, id string, in lifecycle.StartRepairInput) (models.MaintenanceMachine, error) {
	return c.mutate(ctx, id, "start-repair", in)
}

func (c *Client) RequestApproval(ctx context.Context, id string, in lifecycle.RequestApprovalInput) (models.MaintenanceMachine, error) {
	return c.mutate(ctx, id, "request-approval", in)
}

func (c *Client) MarkTotalLoss(ctx context.Context, id string, in lifecycle.TotalLossInput) (models.MaintenanceMachine, error) {
	return c.mutate(ctx, id, "total-loss", in)
}

func (c *Client) MarkRepaired(ctx context.Context, id string, in lifecycle.CompleteRepairInput) (models.MaintenanceMachine, error) {
	return c.mutate(ctx, id, "repaired", in)
}

func (c *Client) ReturnToBranch(ctx context.Context, id string, in lifecycle.ReturnInput) (models.MaintenanceMachine, error) {
	return c.mutate(ctx, id, "return", in)
}

// CreateReturnPackage submits a batch return. The backend answers with one
// order per origin branch.
func (c *Client) CreateReturnPackage(ctx context.Context, in lifecycle.ReturnPackageInput) ([]models.ReturnOrder, error) {
	var out returnOrders
	if err := c.do(ctx, http.MethodPost, returnPackagesPath, nil, in, schemaReturnOrders, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

func (c *Client) mutate(ctx context.Context, id, action string, payload interface{}) (models.MaintenanceMachine, error) {
	var m models.MaintenanceMachine
	err := c.do(ctx, http.MethodPost, machinePath(id, action), nil, payload, schemaMachine, &m)
	return m, err
}

func machinePath(id, action string) string {
	p := machinesPath + "/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload interface{}, schema string, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %v", ErrUnavailable, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}

	if err := c.validator.validate(schema, data); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
