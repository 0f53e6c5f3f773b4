package elastic

import (
	"fmt"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
)

// Config holds Elasticsearch connection settings.
type Config struct {
	URL        string
	Username   string
	Password   string
	Index      string
	MaxRetries int
	Timeout    time.Duration
}

// DefaultIndex is used when Config.Index is empty.
const DefaultIndex = "quarry-documents"

// newClient builds and pings an Elasticsearch client.
func newClient(cfg Config) (*es.Client, error) {
	address := cfg.URL
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}

	clientConfig := es.Config{
		Addresses:  []string{address},
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.Username != "" && cfg.Password != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	client, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	res, err := client.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("error pinging elasticsearch: %s", res.String())
	}

	return client, nil
}
