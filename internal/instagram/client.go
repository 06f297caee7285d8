// Package instagram talks to the Meta Graph API on behalf of connected
// Instagram professional accounts.
package instagram

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

const (
	DefaultGraphBaseURL = "https://graph.facebook.com/v21.0"
	DefaultDialogURL    = "https://www.facebook.com/v21.0/dialog/oauth"
	DefaultTimeout      = 30 * time.Second

	mediaPageLimit = 100
	maxMediaPages  = 50
)

const (
	profileFields  = "id,username,account_type,biography,profile_picture_url,followers_count,follows_count,media_count"
	mediaFields    = "id,caption,media_type,media_url,thumbnail_url,permalink,timestamp,like_count,comments_count"
	businessFields = "instagram_business_account{id,name,username,biography,profile_picture_url,followers_count,follows_count}"
)

// AccountInsightMetrics are requested by the daily insights sync.
var AccountInsightMetrics = []string{
	"impressions",
	"reach",
	"saved",
	"engagement",
	"audience_gender_age",
	"audience_country",
	"audience_city",
}

// Config describes the Meta app and endpoints used by Client.
type Config struct {
	AppID        string
	AppSecret    string
	RedirectURI  string
	GraphBaseURL string
	DialogURL    string
	Scopes       []string
	Timeout      time.Duration
}

// Client is a Graph API client. It is safe for concurrent use.
type Client struct {
	cfg   Config
	oauth *oauth2.Config
	http  *resty.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" || cfg.RedirectURI == "" {
		return nil, ErrMisconfigured
	}
	if cfg.GraphBaseURL == "" {
		cfg.GraphBaseURL = DefaultGraphBaseURL
	}
	if cfg.DialogURL == "" {
		cfg.DialogURL = DefaultDialogURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.GraphBaseURL = strings.TrimRight(cfg.GraphBaseURL, "/")

	httpClient := resty.New().
		SetBaseURL(cfg.GraphBaseURL).
		SetTimeout(cfg.Timeout).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		SetHeader("Accept", "application/json")

	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.DialogURL,
				TokenURL:  cfg.GraphBaseURL + "/oauth/access_token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		http: httpClient,
	}, nil
}

// AuthCodeURL returns the Facebook login dialog URL carrying state.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for a short-lived user token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	return c.tokenRequest(ctx, "exchange code", map[string]string{
		"client_id":     c.cfg.AppID,
		"client_secret": c.cfg.AppSecret,
		"redirect_uri":  c.cfg.RedirectURI,
		"code":          code,
	})
}

// ExchangeLongLived trades a short-lived token for a long-lived one.
func (c *Client) ExchangeLongLived(ctx context.Context, shortLivedToken string) (*TokenResponse, error) {
	return c.tokenRequest(ctx, "exchange long-lived token", map[string]string{
		"grant_type":        "fb_exchange_token",
		"client_id":         c.cfg.AppID,
		"client_secret":     c.cfg.AppSecret,
		"fb_exchange_token": shortLivedToken,
	})
}

// RefreshLongLived renews a long-lived token.
func (c *Client) RefreshLongLived(ctx context.Context, longLivedToken string) (*TokenResponse, error) {
	return c.tokenRequest(ctx, "refresh long-lived token", map[string]string{
		"grant_type":    "ig_refresh_token",
		"client_id":     c.cfg.AppID,
		"client_secret": c.cfg.AppSecret,
		"access_token":  longLivedToken,
	})
}

func (c *Client) tokenRequest(ctx context.Context, op string, params map[string]string) (*TokenResponse, error) {
	var tok TokenResponse
	if err := c.get(ctx, op, "/oauth/access_token", params, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w: access_token missing", op, ErrMalformedResponse)
	}
	return &tok, nil
}

// FetchBusinessAccount returns the first Instagram professional account linked
// to one of the user's Facebook Pages.
func (c *Client) FetchBusinessAccount(ctx context.Context, token string) (*BusinessAccount, error) {
	var pages pagesResponse
	err := c.get(ctx, "fetch business account", "/me/accounts", c.withToken(token, map[string]string{
		"fields": businessFields,
	}), &pages)
	if err != nil {
		return nil, err
	}
	for _, page := range pages.Data {
		if acc := page.InstagramBusinessAccount; acc != nil && acc.Username != "" {
			return acc, nil
		}
	}
	return nil, ErrBusinessAccountRequired
}

func (c *Client) FetchProfile(ctx context.Context, igUserID, token string) (*Profile, error) {
	var p Profile
	err := c.get(ctx, "fetch profile", "/"+url.PathEscape(igUserID), c.withToken(token, map[string]string{
		"fields": profileFields,
	}), &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FetchMedia returns every media item of the account, following paging.next.
func (c *Client) FetchMedia(ctx context.Context, igUserID, token string) ([]Media, error) {
	var page mediaPage
	err := c.get(ctx, "fetch media", "/"+url.PathEscape(igUserID)+"/media", c.withToken(token, map[string]string{
		"fields": mediaFields,
		"limit":  fmt.Sprint(mediaPageLimit),
	}), &page)
	if err != nil {
		return nil, err
	}

	items := page.Data
	seen := map[string]bool{}
	for pages := 1; page.Paging != nil && page.Paging.Next != "" && pages < maxMediaPages; pages++ {
		next := page.Paging.Next
		if seen[next] {
			break
		}
		seen[next] = true

		page = mediaPage{}
		if err := c.get(ctx, "fetch media page", next, nil, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Data...)
	}
	return items, nil
}

// FetchMediaInsights reads reach, impressions, saves and shares of one item.
func (c *Client) FetchMediaInsights(ctx context.Context, mediaID, token string) (*MediaInsights, error) {
	var page insightsPage
	err := c.get(ctx, "fetch media insights", "/"+url.PathEscape(mediaID)+"/insights", c.withToken(token, map[string]string{
		"metric": "reach,impressions,saved,shares",
	}), &page)
	if err != nil {
		return nil, err
	}

	out := &MediaInsights{}
	for _, series := range page.Data {
		if len(series.Values) == 0 {
			continue
		}
		v, _, err := series.Values[0].Decode()
		if err != nil {
			continue
		}
		n := int64(v)
		switch series.Name {
		case "reach":
			out.Reach = &n
		case "impressions":
			out.Impressions = &n
		case "saved":
			out.Saved = &n
		case "shares":
			out.Shares = &n
		}
	}
	return out, nil
}

// FetchInsights reads account-level metric series for the given period.
func (c *Client) FetchInsights(ctx context.Context, igUserID, token string, metrics []string, period string) ([]InsightSeries, error) {
	var page insightsPage
	err := c.get(ctx, "fetch insights", "/"+url.PathEscape(igUserID)+"/insights", c.withToken(token, map[string]string{
		"metric": strings.Join(metrics, ","),
		"period": period,
	}), &page)
	if err != nil {
		return nil, err
	}
	return page.Data, nil
}

// withToken adds the access token and its appsecret_proof to params.
func (c *Client) withToken(token string, params map[string]string) map[string]string {
	mac := hmac.New(sha256.New, []byte(c.cfg.AppSecret))
	mac.Write([]byte(token))
	params["access_token"] = token
	params["appsecret_proof"] = hex.EncodeToString(mac.Sum(nil))
	return params
}

// get issues a GET and decodes a 2xx JSON body into out. Absolute URLs (paging
// cursors) bypass the base URL.
func (c *Client) get(ctx context.Context, op, path string, params map[string]string, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if params != nil {
		req.SetQueryParams(params)
	}

	resp, err := req.Get(path)
	if err != nil {
		return classify(op, err)
	}

	if resp.IsError() {
		gerr := &GraphError{Status: resp.StatusCode(), Body: resp.String()}
		var body graphErrorBody
		if json.Unmarshal(resp.Body(), &body) == nil {
			gerr.Message = body.Error.Message
			gerr.Type = body.Error.Type
			gerr.Code = body.Error.Code
		}
		return fmt.Errorf("%s: %w", op, gerr)
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	return nil
}
