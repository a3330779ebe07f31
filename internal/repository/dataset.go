package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"binance-futures-export/internal/logger"
	"binance-futures-export/internal/model"
)

// CheckpointFormatError means a checkpoint file is not a usable export.
// Callers continue without a checkpoint.
type CheckpointFormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CheckpointFormatError) Error() string {
	msg := "invalid checkpoint"
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CheckpointFormatError) Unwrap() error { return e.Err }

// DatasetRepository reads checkpoints and writes exports.
type DatasetRepository struct {
	storage *Storage
	dir     string
	now     func() time.Time
}

func NewDatasetRepository(storage *Storage, exportDir string) *DatasetRepository {
	return &DatasetRepository{
		storage: storage,
		dir:     exportDir,
		now:     time.Now,
	}
}

// LoadCheckpoint reads a previous export. A file that cannot be read is a
// plain error; one that is not a valid export is a *CheckpointFormatError.
func (r *DatasetRepository) LoadCheckpoint(path string) (*model.Dataset, error) {
	data, err := r.storage.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ds, err := ParseCheckpoint(data)
	if err != nil {
		var formatErr *CheckpointFormatError
		if errors.As(err, &formatErr) {
			formatErr.Path = path
		}
		return nil, err
	}

	logger.Info("📂 Checkpoint loaded", "path", path, "alias", ds.Alias, "trades", len(ds.Trades), "orders", len(ds.Orders))
	return ds, nil
}

// ParseCheckpoint validates and decodes an export document. It must have a
// string alias, trades and orders arrays, and every record must carry the
// fields paging resumes from.
func ParseCheckpoint(data []byte) (*model.Dataset, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CheckpointFormatError{Reason: "not a json object", Err: err}
	}

	rawAlias, ok := doc["alias"]
	if !ok {
		return nil, &CheckpointFormatError{Reason: "missing alias"}
	}
	ds := &model.Dataset{}
	if err := json.Unmarshal(rawAlias, &ds.Alias); err != nil {
		return nil, &CheckpointFormatError{Reason: "alias is not a string", Err: err}
	}

	var err error
	if ds.Trades, err = decodeSection(doc, "trades", model.TradeFields); err != nil {
		return nil, err
	}
	if ds.Orders, err = decodeSection(doc, "orders", model.OrderFields); err != nil {
		return nil, err
	}
	return ds, nil
}

func decodeSection(doc map[string]json.RawMessage, name string, required []string) ([]model.Record, error) {
	raw, ok := doc[name]
	if !ok {
		return nil, &CheckpointFormatError{Reason: "missing " + name}
	}
	records, err := model.DecodeRecords(raw)
	if err != nil {
		return nil, &CheckpointFormatError{Reason: name + " is not a list of records", Err: err}
	}
	for i, r := range records {
		if missing := r.Missing(required...); len(missing) > 0 {
			return nil, &CheckpointFormatError{Reason: fmt.Sprintf("%s[%d] has no %v", name, i, missing)}
		}
	}
	return records, nil
}

// Export writes the dataset to <exportDir>/<unix nanos>.json and returns the path.
// An existing file of that name is never overwritten.
func (r *DatasetRepository) Export(ds *model.Dataset) (string, error) {
	path := filepath.Join(r.dir, fmt.Sprintf("%d.json", r.now().UnixNano()))
	if r.storage.Exists(path) {
		return "", fmt.Errorf("export %s already exists", path)
	}
	if err := r.storage.Write(path, ds); err != nil {
		return "", err
	}
	logger.Info("💾 Export written", "path", path, "trades", len(ds.Trades), "orders", len(ds.Orders))
	return path, nil
}
