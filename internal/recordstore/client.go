// Package recordstore talks to the external record store: the system that
// durably holds logements, parcours and their room records.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/parcoursmaker/parcoursmaker/pkg/models"
)

// Environment selects between the store's two endpoint sets. They are
// identical in shape; only the base URL differs.
type Environment string

const (
	EnvTest       Environment = "test"
	EnvProduction Environment = "production"
)

// ParentRefs are the two identifiers phase 1 must yield. Phase 2 is
// pointless without both.
type ParentRefs struct {
	LogementID string
	ParcourID  string
}

// Complete reports whether both references are present.
func (r ParentRefs) Complete() bool { return r.LogementID != "" && r.ParcourID != "" }

// ChildRecord is one room instance submitted to the store. Quantity
// expansion happens before this point: every ChildRecord carries quantite=1.
type ChildRecord struct {
	LogementID string
	ParcourID  string
	Name       string
	Tasks      []string
	Photos     []models.MaterializedImage
}

// Template is a reusable parcours model, managed through single-call CRUD
// rather than the two-phase commit.
type Template struct {
	ID           string         `json:"id,omitempty"`
	Name         string         `json:"nom"`
	ParcoursType string         `json:"typeParcours,omitempty"`
	Rooms        []TemplateRoom `json:"rooms,omitempty"`
	Questions    []string       `json:"questions,omitempty"`
}

type TemplateRoom struct {
	Name  string   `json:"nom"`
	Tasks []string `json:"tasks"`
}

// Client is the interface for the record store.
type Client interface {
	CreateParent(ctx context.Context, env Environment, parent models.ParentFields) (ParentRefs, error)
	CreateChild(ctx context.Context, env Environment, child ChildRecord) error
	CreateTemplate(ctx context.Context, env Environment, tpl Template) (string, error)
	UpdateTemplate(ctx context.Context, env Environment, id string, tpl Template) error
	DeleteTemplate(ctx context.Context, env Environment, id string) error
}

// HTTPClient implements Client against the store's workflow HTTP endpoints.
type HTTPClient struct {
	testBaseURL string
	prodBaseURL string
	apiKey      string
	client      *http.Client
}

// NewHTTPClient creates a record store client. prodBaseURL may be empty, in
// which case production calls fail with ErrEnvironmentNotConfigured.
func NewHTTPClient(testBaseURL, prodBaseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		testBaseURL: testBaseURL,
		prodBaseURL: prodBaseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) baseFor(env Environment) (string, error) {
	switch env {
	case EnvProduction:
		if c.prodBaseURL == "" {
			return "", fmt.Errorf("%w: production", ErrEnvironmentNotConfigured)
		}
		return c.prodBaseURL, nil
	default:
		if c.testBaseURL == "" {
			return "", fmt.Errorf("%w: test", ErrEnvironmentNotConfigured)
		}
		return c.testBaseURL, nil
	}
}

type parentRequest struct {
	Name            string   `json:"nom"`
	Address         string   `json:"adresse,omitempty"`
	SourceLink      string   `json:"lien,omitempty"`
	ParcoursType    string   `json:"typeParcours"`
	ModelReference  string   `json:"modele,omitempty"`
	InventoryTiming string   `json:"momentInventaire,omitempty"`
	Questions       []string `json:"questions,omitempty"`
}

// parentResponse handles both the flat shape and the response-envelope shape
// the store is known to return.
type parentResponse struct {
	LogementID string `json:"logementID"`
	ParcourID  string `json:"parcourID"`
	Response   *struct {
		LogementID string `json:"logementID"`
		ParcourID  string `json:"parcourID"`
	} `json:"response,omitempty"`
}

func (r parentResponse) refs() ParentRefs {
	if r.Response != nil {
		return ParentRefs{LogementID: r.Response.LogementID, ParcourID: r.Response.ParcourID}
	}
	return ParentRefs{LogementID: r.LogementID, ParcourID: r.ParcourID}
}

type childRequest struct {
	LogementID string       `json:"logementID"`
	ParcourID  string       `json:"parcourID"`
	Name       string       `json:"nom"`
	Quantity   int          `json:"quantite"`
	Tasks      []string     `json:"tasks"`
	Photos     []photoEntry `json:"photos"`
}

// photoEntry tags each photo as inline-encoded or URL-referenced so the
// store can branch its own ingestion logic.
type photoEntry struct {
	Type string `json:"type"`
	MIME string `json:"mime,omitempty"`
	Data []byte `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
}

func toPhotoEntries(photos []models.MaterializedImage) []photoEntry {
	out := make([]photoEntry, 0, len(photos))
	for _, p := range photos {
		if p.Encoded() {
			out = append(out, photoEntry{Type: "base64", MIME: p.MIME, Data: p.Data})
		} else {
			out = append(out, photoEntry{Type: "url", URL: p.URL})
		}
	}
	return out
}

// CreateParent is phase 1 of the commit: one logement+parcours parent record,
// no room payload.
func (c *HTTPClient) CreateParent(ctx context.Context, env Environment, parent models.ParentFields) (ParentRefs, error) {
	base, err := c.baseFor(env)
	if err != nil {
		return ParentRefs{}, err
	}

	var out parentResponse
	if err := c.post(ctx, base+"/workflow/logement-parcours", parentRequest{
		Name:            parent.Name,
		Address:         parent.Address,
		SourceLink:      parent.SourceLink,
		ParcoursType:    parent.ParcoursType,
		ModelReference:  parent.ModelReference,
		InventoryTiming: parent.InventoryTiming,
		Questions:       parent.ChecklistQuestions,
	}, &out); err != nil {
		return ParentRefs{}, err
	}
	return out.refs(), nil
}

// CreateChild submits one room instance to the store.
func (c *HTTPClient) CreateChild(ctx context.Context, env Environment, child ChildRecord) error {
	base, err := c.baseFor(env)
	if err != nil {
		return err
	}

	tasks := child.Tasks
	if tasks == nil {
		tasks = []string{}
	}
	return c.post(ctx, base+"/workflow/parcours-room", childRequest{
		LogementID: child.LogementID,
		ParcourID:  child.ParcourID,
		Name:       child.Name,
		Quantity:   1,
		Tasks:      tasks,
		Photos:     toPhotoEntries(child.Photos),
	}, nil)
}

// CreateTemplate creates a reusable parcours model and returns its id.
func (c *HTTPClient) CreateTemplate(ctx context.Context, env Environment, tpl Template) (string, error) {
	base, err := c.baseFor(env)
	if err != nil {
		return "", err
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, base+"/workflow/modele", tpl, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateCallFailed, err)
	}
	return out.ID, nil
}

// UpdateTemplate replaces an existing model.
func (c *HTTPClient) UpdateTemplate(ctx context.Context, env Environment, id string, tpl Template) error {
	base, err := c.baseFor(env)
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodPut, base+"/workflow/modele/"+url.PathEscape(id), tpl, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateCallFailed, err)
	}
	return nil
}

// DeleteTemplate removes a model.
func (c *HTTPClient) DeleteTemplate(ctx context.Context, env Environment, id string) error {
	base, err := c.baseFor(env)
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodDelete, base+"/workflow/modele/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateCallFailed, err)
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, u string, body, out any) error {
	return c.do(ctx, http.MethodPost, u, body, out)
}

func (c *HTTPClient) do(ctx context.Context, method, u string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
