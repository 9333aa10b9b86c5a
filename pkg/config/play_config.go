// Package config loads play definitions from YAML files. Deployments keep
// their plays in a directory and seed persistence from it at startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dealgrid/playrun/pkg/graph"
	"github.com/dealgrid/playrun/pkg/models"
)

// PlayFile is the YAML shape of one play definition.
type PlayFile struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Metadata map[string]any `yaml:"metadata"`
	Nodes    []NodeFile     `yaml:"nodes"`
	Edges    []EdgeFile     `yaml:"edges"`
}

type NodeFile struct {
	ID       string         `yaml:"id"`
	StepType string         `yaml:"step_type"`
	Name     string         `yaml:"name"`
	Config   map[string]any `yaml:"config"`
}

type EdgeFile struct {
	ID        string         `yaml:"id"`
	From      string         `yaml:"from"`
	To        string         `yaml:"to"`
	Condition *ConditionFile `yaml:"condition"`
}

type ConditionFile struct {
	Metric   string `yaml:"metric"`
	Operator string `yaml:"operator"`
	Value    any    `yaml:"value"`
	Value2   any    `yaml:"value2"`
}

// LoadPlay reads and structurally validates a single play definition. The
// graph must parse: a definition with a cycle, a dangling edge, or more than
// one entry node is rejected at load time rather than at first dispatch.
func LoadPlay(path string) (*models.Play, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading play file %s: %w", path, err)
	}

	var playFile PlayFile
	if err := yaml.Unmarshal(data, &playFile); err != nil {
		return nil, fmt.Errorf("parsing play file %s: %w", path, err)
	}

	play, err := playFile.toModel()
	if err != nil {
		return nil, fmt.Errorf("play file %s: %w", path, err)
	}

	if _, err := graph.New(play); err != nil {
		return nil, fmt.Errorf("play file %s: %w", path, err)
	}

	return play, nil
}

// LoadPlaysDir loads every .yaml and .yml file in dir. The first invalid
// file fails the whole load.
func LoadPlaysDir(dir string) ([]*models.Play, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading plays directory %s: %w", dir, err)
	}

	var plays []*models.Play

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		play, err := LoadPlay(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		plays = append(plays, play)
	}

	return plays, nil
}

func (f *PlayFile) toModel() (*models.Play, error) {
	if f.ID == "" {
		return nil, fmt.Errorf("play id is required")
	}

	if f.Name == "" {
		return nil, fmt.Errorf("play name is required")
	}

	now := time.Now().UTC()
	play := &models.Play{
		ID:        f.ID,
		Name:      f.Name,
		Metadata:  f.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for i, node := range f.Nodes {
		if node.ID == "" {
			return nil, fmt.Errorf("nodes[%d]: id is required", i)
		}

		if node.StepType == "" {
			return nil, fmt.Errorf("node %s: step_type is required", node.ID)
		}

		name := node.Name
		if name == "" {
			name = node.ID
		}

		play.Nodes = append(play.Nodes, &models.WorkflowNode{
			ID:       node.ID,
			PlayID:   f.ID,
			StepType: node.StepType,
			Name:     name,
			Config:   node.Config,
		})
	}

	for i, edge := range f.Edges {
		if edge.From == "" || edge.To == "" {
			return nil, fmt.Errorf("edges[%d]: from and to are required", i)
		}

		id := edge.ID
		if id == "" {
			id = fmt.Sprintf("%s-%s", edge.From, edge.To)
		}

		modelEdge := &models.WorkflowEdge{
			ID:         id,
			PlayID:     f.ID,
			FromNodeID: edge.From,
			ToNodeID:   edge.To,
		}

		if edge.Condition != nil {
			modelEdge.Condition = &models.EdgeCondition{
				Metric:   edge.Condition.Metric,
				Operator: models.ConditionOperator(edge.Condition.Operator),
				Value:    edge.Condition.Value,
				Value2:   edge.Condition.Value2,
			}
		}

		play.Edges = append(play.Edges, modelEdge)
	}

	return play, nil
}
