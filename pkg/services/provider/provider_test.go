package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linode/linodego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	api := linodego.NewClient(nil)
	api.SetBaseURL(ts.URL)
	return &linodeClient{api: api}
}

func TestGetControlPlaneACL_Enabled(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/lke/clusters/7/control_plane_acl"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"acl":{"enabled":true,"addresses":{"ipv4":["10.0.0.0/8"],"ipv6":[]}}}`)
	})

	acl, err := c.GetControlPlaneACL(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, acl.Enabled)
}

func TestGetControlPlaneACL_Disabled(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"acl":{"enabled":false}}`)
	})

	acl, err := c.GetControlPlaneACL(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, acl.Enabled)
}

func TestGetControlPlaneACL_APIError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errors":[{"reason":"Not found"}]}`)
	})

	acl, err := c.GetControlPlaneACL(context.Background(), 7)
	require.Error(t, err)
	assert.Nil(t, acl)
}

func TestListUsers(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/account/users"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"data": [
				{"username": "alice", "email": "alice@example.com", "tfa_enabled": true},
				{"username": "bob", "email": "bob@example.com", "tfa_enabled": false}
			],
			"page": 1, "pages": 1, "results": 2
		}`)
	})

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.True(t, users[0].TFAEnabled)
	assert.Equal(t, "bob", users[1].Username)
	assert.False(t, users[1].TFAEnabled)
}
