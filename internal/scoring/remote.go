package scoring

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-assessment/internal/models"
)

// RemoteClient scores feature vectors against an HTTP model server that
// speaks a small XML envelope:
//
//	<ScoreRequest><Feature name="no_of_dependents">0</Feature>...</ScoreRequest>
//	<ScoreResponse><Probability>0.87</Probability></ScoreResponse>
type RemoteClient struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewRemoteClient initializes a new remote scoring client
func NewRemoteClient(url string, timeout time.Duration, log *logrus.Logger) *RemoteClient {
	return &RemoteClient{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// buildRequest encodes the features in vector order
func (c *RemoteClient) buildRequest(features models.FeatureVector) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement("ScoreRequest")
	for i, name := range models.FeatureNames {
		f := root.CreateElement("Feature")
		f.CreateAttr("name", name)
		f.SetText(strconv.FormatFloat(features[i], 'f', -1, 64))
	}
	return doc.WriteToBytes()
}

// sendRequest posts the envelope to the model server
func (c *RemoteClient) sendRequest(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("Scoring XML response: %s", string(raw))

	return raw, nil
}

// parseResponse extracts the probability from the response envelope
func (c *RemoteClient) parseResponse(raw []byte) (float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return 0, fmt.Errorf("failed to parse XML: %w", err)
	}

	el := doc.FindElement("//ScoreResponse/Probability")
	if el == nil {
		return 0, fmt.Errorf("probability element not found in XML")
	}

	p, err := strconv.ParseFloat(strings.TrimSpace(el.Text()), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse probability: %w", err)
	}
	return p, nil
}

// Score asks the model server for the approval probability
func (c *RemoteClient) Score(ctx context.Context, features models.FeatureVector) (float64, error) {
	body, err := c.buildRequest(features)
	if err != nil {
		return 0, fmt.Errorf("failed to encode request: %w", err)
	}

	raw, err := c.sendRequest(ctx, body)
	if err != nil {
		return 0, err
	}

	return c.parseResponse(raw)
}
