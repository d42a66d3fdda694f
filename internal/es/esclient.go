package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
)

const defaultIndexTimeout = 5 * time.Second

type Config struct {
	URL      string
	Username string
	Password string
}

// NewClient connects and checks the cluster answers before returning.
func NewClient(ctx context.Context, cfg Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: new client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch: info: %s: %s", res.Status(), body)
	}

	return client, nil
}

// AuditIndexer stores every published event as a document in one index. Each write is
// bounded by Timeout, or 5s when unset.
type AuditIndexer struct {
	Client  *elasticsearch.Client
	Index   string
	Timeout time.Duration
}

func (a *AuditIndexer) PublishEvent(ctx context.Context, topic, key string, event any) error {
	doc := struct {
		Topic string `json:"topic"`
		Key   string `json:"key"`
		Event any    `json:"event"`
	}{topic, key, event}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch: json.Marshal failed: %w", err)
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = defaultIndexTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := a.Client.Index(a.Index, bytes.NewReader(body), a.Client.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("elasticsearch: index %s: %s: %s", a.Index, res.Status(), msg)
	}
	return nil
}
