package runs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/insightloom/internal/utils"
)

const manifestExt = ".json"

// Manifest records one completed analysis run.
type Manifest struct {
	ID                string            `json:"id"`
	Source            string            `json:"source"`
	Title             string            `json:"title"`
	CreatedAt         time.Time         `json:"created_at"`
	DurationMs        int64             `json:"duration_ms"`
	TotalRows         int               `json:"total_rows"`
	AnomalyCount      int               `json:"anomaly_count"`
	AnomalyPercentage float64           `json:"anomaly_percentage"`
	NarrativeSource   string            `json:"narrative_source"`
	Outputs           map[string]string `json:"outputs"`
}

// NewID returns a fresh run identifier.
func NewID() string { return uuid.NewString() }

// Save writes m to dir/<id>.json using atomic write.
func Save(dir string, m *Manifest) error {
	if m == nil || m.ID == "" {
		return errors.New("manifest id not set")
	}
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(dir, m.ID+manifestExt), data)
}

// Load reads the manifest of run id from dir.
func Load(dir, id string) (*Manifest, error) {
	path := filepath.Join(dir, id+manifestExt)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse run %s: %w", id, err)
	}
	return &m, nil
}

// List returns every manifest in dir, newest first. A missing dir is an empty history.
// Unreadable manifests are skipped.
func List(dir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	var out []*Manifest
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != manifestExt {
			continue
		}
		m, err := Load(dir, strings.TrimSuffix(name, manifestExt))
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
