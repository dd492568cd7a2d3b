package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/linode/linodego"
	"golang.org/x/oauth2"
)

// Client is the narrow slice of the provider API the live account checks
// need. Evaluation works without one; every live check then resolves to
// not_applicable.
type Client interface {
	ListUsers(ctx context.Context) ([]User, error)
	ListLogins(ctx context.Context) ([]Login, error)
	GetControlPlaneACL(ctx context.Context, clusterID int) (*ControlPlaneACL, error)
}

type User struct {
	Username   string
	Email      string
	TFAEnabled bool
}

type Login struct {
	ID       int
	Username string
	IP       string
	Status   string
	When     *time.Time
}

type ControlPlaneACL struct {
	Enabled bool
}

type linodeClient struct {
	api linodego.Client
}

// NewClient builds a provider client from a personal access token.
func NewClient(token string) Client {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	oauthClient := &http.Client{
		Transport: &oauth2.Transport{Source: tokenSource},
	}
	return &linodeClient{api: linodego.NewClient(oauthClient)}
}

func (c *linodeClient) ListUsers(ctx context.Context) ([]User, error) {
	users, err := c.api.ListUsers(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, User{
			Username:   u.Username,
			Email:      u.Email,
			TFAEnabled: u.TFAEnabled,
		})
	}
	return out, nil
}

func (c *linodeClient) ListLogins(ctx context.Context) ([]Login, error) {
	logins, err := c.api.ListLogins(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]Login, 0, len(logins))
	for _, l := range logins {
		out = append(out, Login{
			ID:       l.ID,
			Username: l.Username,
			IP:       l.IP,
			Status:   l.Status,
			When:     l.Datetime,
		})
	}
	return out, nil
}

func (c *linodeClient) GetControlPlaneACL(ctx context.Context, clusterID int) (*ControlPlaneACL, error) {
	resp, err := c.api.GetLKEClusterControlPlaneACL(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	return &ControlPlaneACL{Enabled: resp.ACL.Enabled}, nil
}
