package appsync

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
)

// Client posts GraphQL operations to an AppSync endpoint using Cognito user
// pool tokens (the "userPool" auth mode).
type Client struct {
	Endpoint string
	Client   *http.Client
}

type graphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []ErrorEntry    `json:"errors"`
}

// ErrorEntry is one element of a GraphQL "errors" array.
type ErrorEntry struct {
	Message   string        `json:"message"`
	ErrorType string        `json:"errorType,omitempty"`
	Path      []interface{} `json:"path,omitempty"`
}

// GraphQLError is returned when the response carries an "errors" array.
type GraphQLError struct {
	StatusCode int
	Errors     []ErrorEntry
	Data       json.RawMessage
}

func (e *GraphQLError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, entry := range e.Errors {
		if entry.ErrorType != "" {
			msgs = append(msgs, entry.ErrorType+": "+entry.Message)
		} else {
			msgs = append(msgs, entry.Message)
		}
	}
	if len(msgs) == 0 {
		return fmt.Sprintf("GraphQL operation failed with status %d", e.StatusCode)
	}
	return strings.Join(msgs, "; ")
}

// Do executes one operation and decodes "data" into out.
func (c *Client) Do(ctx context.Context, token, operationName, query string, variables map[string]interface{}, out interface{}) error {
	if c.Endpoint == "" {
		return errors.New("appsync: GraphQL endpoint is not set")
	}

	body, err := json.Marshal(graphQLRequest{Query: query, OperationName: operationName, Variables: variables})
	if err != nil {
		return errors.Wrap(err, "appsync: encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "appsync: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return errors.Wrap(err, "appsync request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "appsync: read response")
	}

	var decoded graphQLResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return errors.Errorf("appsync error: status %d body: %s", resp.StatusCode, string(raw))
		}
		return errors.Wrap(err, "appsync: decode response")
	}
	if len(decoded.Errors) > 0 || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &GraphQLError{StatusCode: resp.StatusCode, Errors: decoded.Errors, Data: decoded.Data}
	}
	if out == nil || len(decoded.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return errors.Wrap(err, "appsync: decode data")
	}
	return nil
}

// defaultClient is shared by every Client without its own; Do never writes
// to the receiver.
var defaultClient = &http.Client{Timeout: 15 * time.Second}

func (c *Client) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return defaultClient
}
