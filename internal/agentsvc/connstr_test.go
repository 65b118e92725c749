package agentsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectionString(t *testing.T) {
	cs, err := ParseConnectionString("eastus.api.azureml.ms;1234-abcd;rg-stocks;stock-project")
	require.NoError(t, err)

	assert.Equal(t, ConnectionString{
		Host:          "eastus.api.azureml.ms",
		Subscription:  "1234-abcd",
		ResourceGroup: "rg-stocks",
		Project:       "stock-project",
	}, cs)
	assert.Equal(t,
		"https://eastus.api.azureml.ms/agents/v1.0/subscriptions/1234-abcd/resourceGroups/rg-stocks/providers/Microsoft.MachineLearningServices/workspaces/stock-project",
		cs.BaseURL(),
	)
}

func TestParseConnectionStringStripsScheme(t *testing.T) {
	cs, err := ParseConnectionString(" https://eastus.api.azureml.ms/ ; sub ; rg ; proj ")
	require.NoError(t, err)
	assert.Equal(t, "eastus.api.azureml.ms", cs.Host)
	assert.Equal(t, "proj", cs.Project)
}

func TestParseConnectionStringInvalid(t *testing.T) {
	for _, s := range []string{"", "host;sub;rg", "host;sub;rg;proj;extra", "host;;rg;proj"} {
		_, err := ParseConnectionString(s)
		assert.Error(t, err, s)
	}
}
