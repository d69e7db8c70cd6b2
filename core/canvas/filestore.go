package canvas

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/kaptinlin/jsonrepair"
)

// FileStore is a Graph backed by a JSON Canvas file.
type FileStore struct {
	*Graph
	path   string
	logger *slog.Logger

	// saving orders concurrent saves so an older snapshot never lands last
	saving sync.Mutex
}

// Open loads the canvas at path. Hand-edited files with trailing commas,
// comments or similar damage are repaired before decoding. A missing file
// yields an empty graph that Save will create.
func Open(path string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &FileStore{Graph: NewGraph(Data{}), path: path, logger: logger}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("canvas: reading %s: %w", path, err)
	}

	data, err := decode(raw, path, logger)
	if err != nil {
		return nil, err
	}
	normalizeRoles(data.Nodes)

	return &FileStore{Graph: NewGraph(data), path: path, logger: logger}, nil
}

func decode(raw []byte, path string, logger *slog.Logger) (Data, error) {
	var data Data
	if len(raw) == 0 {
		return data, nil
	}

	if !json.Valid(raw) {
		repaired, err := jsonrepair.JSONRepair(string(raw))
		if err != nil {
			return data, fmt.Errorf("canvas: %s is not valid JSON and could not be repaired: %w", path, err)
		}
		logger.Warn("repaired malformed canvas file", "path", path)
		raw = []byte(repaired)
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("canvas: decoding %s: %w", path, err)
	}
	return data, nil
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the graph back to disk through a temporary file so a crash
// never leaves a truncated canvas.
func (s *FileStore) Save() error {
	s.saving.Lock()
	defer s.saving.Unlock()

	data := s.Graph.Data()
	if data.Nodes == nil {
		data.Nodes = []Node{}
	}
	if data.Edges == nil {
		data.Edges = []Edge{}
	}

	encoded, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return fmt.Errorf("canvas: encoding: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".canvas-*")
	if err != nil {
		return fmt.Errorf("canvas: saving %s: %w", s.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return fmt.Errorf("canvas: saving %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("canvas: saving %s: %w", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("canvas: saving %s: %w", s.path, err)
	}

	_ = s.Graph.Save()
	s.logger.Debug("canvas saved", "path", s.path, "nodes", len(data.Nodes), "edges", len(data.Edges))
	return nil
}
