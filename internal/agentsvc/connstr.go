package agentsvc

import (
	"fmt"
	"net/url"
	"strings"
)

// ConnectionString identifies an AI project:
// "<host>;<subscription id>;<resource group>;<project name>".
type ConnectionString struct {
	Host          string
	Subscription  string
	ResourceGroup string
	Project       string
}

func ParseConnectionString(s string) (ConnectionString, error) {
	parts := strings.Split(strings.TrimSpace(s), ";")
	if len(parts) != 4 {
		return ConnectionString{}, fmt.Errorf("connection string: want 4 ';'-separated parts, got %d", len(parts))
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
		if parts[i] == "" {
			return ConnectionString{}, fmt.Errorf("connection string: part %d is empty", i+1)
		}
	}
	host := strings.TrimSuffix(strings.TrimPrefix(parts[0], "https://"), "/")
	return ConnectionString{
		Host:          host,
		Subscription:  parts[1],
		ResourceGroup: parts[2],
		Project:       parts[3],
	}, nil
}

// BaseURL is the project-scoped agents endpoint.
func (c ConnectionString) BaseURL() string {
	return fmt.Sprintf("https://%s/agents/v1.0/subscriptions/%s/resourceGroups/%s/providers/Microsoft.MachineLearningServices/workspaces/%s",
		c.Host,
		url.PathEscape(c.Subscription),
		url.PathEscape(c.ResourceGroup),
		url.PathEscape(c.Project),
	)
}
