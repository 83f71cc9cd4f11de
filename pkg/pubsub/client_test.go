package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aguasol/aguasol-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "aguasol-prod"}

	require.Equal(t, "projects/aguasol-prod/topics/aguasol-domain-events", c.resourceName("topics", "aguasol-domain-events"))
	require.Equal(t, "projects/other/topics/events", c.resourceName("topics", "projects/other/topics/events"))
	require.Equal(t, "projects/aguasol-prod/subscriptions/aguasol-notifications", c.resourceName("subscriptions", " aguasol-notifications "))
	// A topic resource name is not a subscription resource name.
	require.Equal(t,
		"projects/aguasol-prod/subscriptions/projects/other/topics/events",
		c.resourceName("subscriptions", "projects/other/topics/events"),
	)
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "  "}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	require.Nil(t, c.Publisher("events"))
	require.Nil(t, c.NotificationSubscription())
	require.NoError(t, c.Close())
	require.Error(t, c.Ping(context.Background()))
}

func TestClientOptionsPickCredentialSource(t *testing.T) {
	require.Empty(t, clientOptions(config.GCPConfig{ProjectID: "aguasol-dev"}))
	require.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/secrets/sa.json"}), 1)
	require.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/secrets/sa.json"}), 1)
}
