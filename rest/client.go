package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/evergreen-ci/gimlet"
	"github.com/evergreen-ci/perffarm/dashboard"
	"github.com/evergreen-ci/perffarm/rest/model"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

const (
	defaultClientPort int = 3000
	maxClientPort         = 65535
)

// Client provides an interface for interacting with a remote perffarm
// Service.
type Client struct {
	host   string
	prefix string
	port   int
	client *http.Client
	pooled bool
}

// NewClient takes host, port, and URI prefix information and constructs a
// new Client backed by a pooled http.Client. Call Close to return the
// http.Client to the pool.
func NewClient(host string, port int, prefix string) (*Client, error) {
	c := &Client{client: utility.GetHTTPClient(), pooled: true}

	return c.initClient(host, port, prefix)
}

// NewClientFromExisting takes an existing http.Client object and produces a
// new Client object.
func NewClientFromExisting(client *http.Client, host string, port int, prefix string) (*Client, error) {
	if client == nil {
		return nil, errors.New("must use a non-nil existing client")
	}

	c := &Client{client: client}

	return c.initClient(host, port, prefix)
}

func (c *Client) initClient(host string, port int, prefix string) (*Client, error) {
	if err := c.SetHost(host); err != nil {
		c.Close()
		return nil, err
	}

	if err := c.SetPort(port); err != nil {
		c.Close()
		return nil, err
	}

	c.SetPrefix(prefix)

	return c, nil
}

// Close returns a pooled http.Client to the pool. The Client must not be
// used afterwards.
func (c *Client) Close() {
	if c.pooled && c.client != nil {
		utility.PutHTTPClient(c.client)
		c.client = nil
	}
}

////////////////////////////////////////////////////////////////////////
//
// Configuration Interface
//
////////////////////////////////////////////////////////////////////////

// SetHost allows callers to change the hostname (including leading
// "http(s)") for the Client. Returns an error if the specified host
// does not start with "http".
func (c *Client) SetHost(h string) error {
	if !strings.HasPrefix(h, "http") {
		return errors.Errorf("host '%s' is malformed. must start with 'http'", h)
	}

	c.host = strings.TrimSuffix(h, "/")

	return nil
}

// Host returns the current host.
func (c *Client) Host() string { return c.host }

// SetPort allows callers to change the port used for the client. If
// the port is invalid, returns an error and sets the port to the
// default value. (3000)
func (c *Client) SetPort(p int) error {
	if p <= 0 || p >= maxClientPort {
		c.port = defaultClientPort
		return errors.Errorf("cannot set the port to %d, using %d instead", p, defaultClientPort)
	}

	c.port = p
	return nil
}

// Port returns the current port value for the Client.
func (c *Client) Port() int { return c.port }

// SetPrefix sets the part of the URI between the hostname and the API
// version.
func (c *Client) SetPrefix(p string) { c.prefix = strings.Trim(p, "/") }

// Prefix returns the current prefix.
func (c *Client) Prefix() string { return c.prefix }

func (c *Client) getURL(endpoint string, query url.Values) string {
	var parts []string

	if c.port == 80 || c.port == 0 {
		parts = append(parts, c.host)
	} else {
		parts = append(parts, fmt.Sprintf("%s:%d", c.host, c.port))
	}

	if c.prefix != "" {
		parts = append(parts, c.prefix)
	}

	parts = append(parts, "v1")
	if endpoint = strings.Trim(endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	out := strings.Join(parts, "/")
	if len(query) > 0 {
		out += "?" + query.Encode()
	}

	return out
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body interface{}) (*http.Response, error) {
	if c.client == nil {
		return nil, errors.New("client is closed")
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "problem encoding request body")
		}
		payload = bytes.NewReader(data)
	}

	target := c.getURL(endpoint, query)
	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return nil, errors.Wrap(err, "problem building request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	grip.Debugln(method, target)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "problem making request to '%s'", target)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errResp := gimlet.ErrorResponse{}
		if err = gimlet.GetJSON(resp.Body, &errResp); err != nil || errResp.Message == "" {
			errResp.Message = http.StatusText(resp.StatusCode)
		}
		errResp.StatusCode = resp.StatusCode
		return nil, errResp
	}

	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, query url.Values, body, out interface{}) error {
	resp, err := c.do(ctx, method, endpoint, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return errors.Wrapf(gimlet.GetJSON(resp.Body, out), "problem reading response from '%s'", endpoint)
}

func (c *Client) doBytes(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(resp.Body)
	return data, errors.Wrapf(err, "problem reading response from '%s'", endpoint)
}

////////////////////////////////////////////////////////////////////////
//
// Public Operations that Interact with the Service
//
////////////////////////////////////////////////////////////////////////

func (c *Client) GetStatus(ctx context.Context) (*StatusResponse, error) {
	out := &StatusResponse{}
	if err := c.doJSON(ctx, http.MethodGet, "/status", nil, nil, out); err != nil {
		return nil, errors.Wrap(err, "problem getting status")
	}

	return out, nil
}

func (c *Client) GetBranches(ctx context.Context) ([]string, error) {
	out := []string{}
	if err := c.doJSON(ctx, http.MethodGet, "/branches", nil, nil, &out); err != nil {
		return nil, errors.Wrap(err, "problem getting branches")
	}

	return out, nil
}

func (c *Client) GetPlants(ctx context.Context) ([]model.APIPlant, error) {
	out := []model.APIPlant{}
	if err := c.doJSON(ctx, http.MethodGet, "/plants", nil, nil, &out); err != nil {
		return nil, errors.Wrap(err, "problem getting plants")
	}

	return out, nil
}

func (c *Client) GetPerformanceTests(ctx context.Context) ([]model.APIPerformanceTest, error) {
	out := []model.APIPerformanceTest{}
	if err := c.doJSON(ctx, http.MethodGet, "/tests", nil, nil, &out); err != nil {
		return nil, errors.Wrap(err, "problem getting performance tests")
	}

	return out, nil
}

// ResultsOptions filter and order the results of a test.
type ResultsOptions struct {
	TestID   string
	Plant    string
	Branches []string
	Sort     *dashboard.SortConfig
}

func (c *Client) GetResults(ctx context.Context, opts ResultsOptions) ([]model.APITestResult, error) {
	query := url.Values{}
	if opts.Plant != "" {
		query.Set(resultsPlant, opts.Plant)
	}
	for _, b := range opts.Branches {
		query.Add(resultsBranch, b)
	}
	if opts.Sort != nil {
		query.Set(resultsSortBy, string(opts.Sort.Key))
		if opts.Sort.Direction == dashboard.SortDescending {
			query.Set(resultsSortDSC, trueString)
		}
	}

	out := []model.APITestResult{}
	endpoint := fmt.Sprintf("/tests/%s/results", url.PathEscape(opts.TestID))
	if err := c.doJSON(ctx, http.MethodGet, endpoint, query, nil, &out); err != nil {
		return nil, errors.Wrapf(err, "problem getting results for test '%s'", opts.TestID)
	}

	return out, nil
}

// View returns the view data derived for the selection.
func (c *Client) View(ctx context.Context, sel dashboard.Selection) (*dashboard.ViewData, error) {
	out := &dashboard.ViewData{}
	if err := c.doJSON(ctx, http.MethodPost, "/view", nil, sel, out); err != nil {
		return nil, errors.Wrapf(err, "problem getting view for test '%s'", sel.Test)
	}

	return out, nil
}

// GetLineChart renders the line chart of the test's results for the
// branches, or the default branches when none are given.
func (c *Client) GetLineChart(ctx context.Context, opts ResultsOptions, format dashboard.ImageFormat) ([]byte, error) {
	query := url.Values{chartFormat: []string{string(format)}}
	if opts.Plant != "" {
		query.Set(resultsPlant, opts.Plant)
	}
	for _, b := range opts.Branches {
		query.Add(resultsBranch, b)
	}

	data, err := c.doBytes(ctx, fmt.Sprintf("/tests/%s/chart", url.PathEscape(opts.TestID)), query)
	return data, errors.Wrapf(err, "problem getting chart for test '%s'", opts.TestID)
}

// GetComparisonChart renders the plant comparison chart of the test, with
// the given plant to branch overrides.
func (c *Client) GetComparisonChart(ctx context.Context, testID string, comparison map[string]string, format dashboard.ImageFormat) ([]byte, error) {
	query := url.Values{chartFormat: []string{string(format)}}
	plants := make([]string, 0, len(comparison))
	for plant := range comparison {
		plants = append(plants, plant)
	}
	sort.Strings(plants)
	for _, plant := range plants {
		query.Set(comparisonPlantPrefix+plant, comparison[plant])
	}

	data, err := c.doBytes(ctx, fmt.Sprintf("/tests/%s/comparison/chart", url.PathEscape(testID)), query)
	return data, errors.Wrapf(err, "problem getting comparison chart for test '%s'", testID)
}

// LoadFixtures schedules a fixture load on the service and returns the job
// id.
func (c *Client) LoadFixtures(ctx context.Context, path string) (string, error) {
	out := &JobResponse{}
	if err := c.doJSON(ctx, http.MethodPost, "/admin/fixtures", nil, &FixturesRequest{Path: path}, out); err != nil {
		return "", errors.Wrap(err, "problem scheduling fixture load")
	}

	return out.JobID, nil
}

// ExportSnapshot schedules a snapshot export of the test and returns the job
// id.
func (c *Client) ExportSnapshot(ctx context.Context, testID string) (string, error) {
	out := &JobResponse{}
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/admin/export/%s", url.PathEscape(testID)), nil, nil, out); err != nil {
		return "", errors.Wrapf(err, "problem scheduling snapshot export for test '%s'", testID)
	}

	return out.JobID, nil
}
