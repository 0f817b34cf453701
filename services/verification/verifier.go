package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"shareperk-engage/pkg/config"
	"shareperk-engage/services/campaign"

	"go.uber.org/fx"
)

// Engagement is the measured interaction counts for a post.
type Engagement struct {
	Likes    int64 `json:"likes"`
	Shares   int64 `json:"shares"`
	Comments int64 `json:"comments"`
}

// Result is the outcome of one engagement verifier call. Raw keeps the
// untouched response body for forensic replay.
type Result struct {
	Exists          bool       `json:"exists"`
	Deleted         bool       `json:"deleted"`
	Engagement      Engagement `json:"engagement"`
	MeetsThresholds bool       `json:"meets_thresholds"`
	Error           string     `json:"error,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Verifier queries the external social-engagement source for a post. The
// remote side is untrusted and possibly slow; call failures are transient
// from the pipeline's point of view and handled by the queue's retry policy.
type Verifier interface {
	VerifyPost(ctx context.Context, postID string, th campaign.Thresholds) (*Result, error)
}

type httpVerifier struct {
	baseURL string
	token   string
	client  *http.Client
}

type VerifierParams struct {
	fx.In
	Config *config.Config
}

// NewHTTPVerifier builds the HTTP-backed verifier. The client timeout must
// stay below the job timeout so a hanging remote surfaces as a retryable
// error instead of burning the whole attempt budget.
func NewHTTPVerifier(p VerifierParams) Verifier {
	return &httpVerifier{
		baseURL: p.Config.Verifier.BaseURL,
		token:   p.Config.Verifier.Token,
		client: &http.Client{
			Timeout: p.Config.Verifier.Timeout,
		},
	}
}

func (v *httpVerifier) VerifyPost(ctx context.Context, postID string, th campaign.Thresholds) (*Result, error) {
	u, err := url.JoinPath(v.baseURL, "/v1/engagement/verify")
	if err != nil {
		return nil, fmt.Errorf("failed to build verifier URL: %w", err)
	}

	q := url.Values{}
	q.Set("post_id", postID)
	q.Set("min_likes", fmt.Sprint(th.MinLikes))
	q.Set("min_shares", fmt.Sprint(th.MinShares))
	q.Set("min_comments", fmt.Sprint(th.MinComments))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create verifier request: %w", err)
	}
	if v.token != "" {
		req.Header.Set("Authorization", "Bearer "+v.token)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verifier call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read verifier response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("verifier rate limited (retry-after %s)", resp.Header.Get("Retry-After"))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verifier returned status %d: %s", resp.StatusCode, string(body))
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode verifier response: %w", err)
	}
	result.Raw = body

	return &result, nil
}
