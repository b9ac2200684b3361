// Package strategies implements answer generation: intent
// classification and knowledge answers come from the retrieval service,
// creative text from an LLM.
package strategies

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lewisedginton/opd_consultant_bot/internal/intent"
	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
)

const defaultRAGTimeout = 30 * time.Second

// RAGClient talks to the retrieval service over HTTP. The service owns
// the vector index, the schedule table and the intent classifier.
type RAGClient struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

// NewRAGClient creates a client for the retrieval service at baseURL.
func NewRAGClient(baseURL string, timeout time.Duration, log logger.Logger) *RAGClient {
	if timeout <= 0 {
		timeout = defaultRAGTimeout
	}
	return &RAGClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Intent string `json:"intent"`
}

// Classify maps free text to an intent tag.
func (c *RAGClient) Classify(ctx context.Context, text string) (string, error) {
	var resp classifyResponse
	if err := c.post(ctx, "/v1/classify", classifyRequest{Text: text}, &resp); err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	return resp.Intent, nil
}

type answerRequest struct {
	Question string `json:"question"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

// Answer asks the knowledge base for an answer to the question.
func (c *RAGClient) Answer(ctx context.Context, question string) (string, error) {
	var resp answerResponse
	if err := c.post(ctx, "/v1/answer", answerRequest{Question: question}, &resp); err != nil {
		return "", fmt.Errorf("answer: %w", err)
	}
	return resp.Answer, nil
}

type lookupRequest struct {
	FullName string `json:"full_name"`
}

type lookupResponse struct {
	Entries []scheduleEntry `json:"entries"`
}

type scheduleEntry struct {
	FullName  string `json:"full_name"`
	GroupName string `json:"group_name"`
	Intensive string `json:"intensive"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Location  string `json:"location"`
}

// LookupSchedule resolves a full name to schedule entries. An empty
// result means the name is not in the lists.
func (c *RAGClient) LookupSchedule(ctx context.Context, fullName string) ([]intent.ScheduleEntry, error) {
	var resp lookupResponse
	if err := c.post(ctx, "/v1/schedule/lookup", lookupRequest{FullName: fullName}, &resp); err != nil {
		return nil, fmt.Errorf("schedule lookup: %w", err)
	}

	entries := make([]intent.ScheduleEntry, 0, len(resp.Entries))
	for _, e := range resp.Entries {
		entries = append(entries, intent.ScheduleEntry{
			FullName:  e.FullName,
			GroupName: e.GroupName,
			Intensive: e.Intensive,
			Date:      e.Date,
			Time:      e.Time,
			Location:  e.Location,
		})
	}
	return entries, nil
}

// HealthURL returns the endpoint readiness probes should hit.
func (c *RAGClient) HealthURL() string {
	return c.baseURL + "/health"
}

func (c *RAGClient) post(ctx context.Context, path string, reqBody, respBody any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
