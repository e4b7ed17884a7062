// Package manual implements the connector contract for hand-maintained
// record files. It reads a JSON array of payload objects from the path given
// in the connector properties, which makes it the reference connector for
// tests and for one-off imports.
package manual

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cisoworks/asset-intelligence/pkg/entity"
	"github.com/cisoworks/asset-intelligence/pkg/ingest"
)

func init() {
	ingest.Register(entity.SourceManual, New)
}

// Connector reads records from a local JSON file.
type Connector struct {
	cfg        ingest.ConnectorConfig
	path       string
	recordType string
}

// New builds a manual connector. Properties: "path" (required), and
// "record_type" (defaults to "generic").
func New(cfg ingest.ConnectorConfig) (ingest.Connector, error) {
	path, _ := cfg.Properties["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("manual connector requires a path property")
	}
	recordType, _ := cfg.Properties["record_type"].(string)
	if recordType == "" {
		recordType = "generic"
	}
	return &Connector{cfg: cfg, path: path, recordType: recordType}, nil
}

// Config implements ingest.Connector.
func (c *Connector) Config() ingest.ConnectorConfig { return c.cfg }

// RecordType implements ingest.Connector.
func (c *Connector) RecordType() string { return c.recordType }

// ExternalIDFromPayload implements ingest.Connector. Manual records may carry
// an "id" or "sys_id" field; both are honored.
func (c *Connector) ExternalIDFromPayload(payload map[string]any) string {
	if id, ok := payload["id"].(string); ok && id != "" {
		return id
	}
	if id, ok := payload["sys_id"].(string); ok && id != "" {
		return id
	}
	return ""
}

// FetchRecords implements ingest.Connector.
func (c *Connector) FetchRecords(ctx context.Context) (ingest.RecordIterator, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read manual records: %w", err)
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse manual records: %w", err)
	}
	return ingest.NewSliceIterator(records), nil
}
