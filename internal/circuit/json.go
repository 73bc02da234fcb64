package circuit

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// MarshalJSON encodes a connection as [id1, terminal1, id2, terminal2],
// the layout used by saved circuit files.
func (c Connection) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]string{c.A.ComponentID, c.A.Terminal, c.B.ComponentID, c.B.Terminal})
}

func (c *Connection) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 4 {
		return fmt.Errorf("connection must have 4 fields, got %d", len(raw))
	}
	c.A = Endpoint{ComponentID: raw[0], Terminal: raw[1]}
	c.B = Endpoint{ComponentID: raw[2], Terminal: raw[3]}
	return nil
}

type circuitJSON struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Components  map[string]json.RawMessage `json:"components"`
	Connections []Connection               `json:"connections"`
}

func (c *Circuit) MarshalJSON() ([]byte, error) {
	out := struct {
		ID          string                `json:"id"`
		Name        string                `json:"name"`
		Components  map[string]*Component `json:"components"`
		Connections []Connection          `json:"connections"`
	}{c.ID, c.Name, c.Components, c.Connections}
	if out.Connections == nil {
		out.Connections = []Connection{}
	}
	return json.Marshal(out)
}

func (c *Circuit) UnmarshalJSON(data []byte) error {
	var raw circuitJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.ID = raw.ID
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Name = raw.Name
	if c.Name == "" {
		c.Name = "Untitled Circuit"
	}
	c.Components = make(map[string]*Component, len(raw.Components))
	for id, msg := range raw.Components {
		comp, err := decodeComponent(msg)
		if err != nil {
			return fmt.Errorf("component %s: %w", id, err)
		}
		comp.ID = id
		c.Components[id] = comp
	}
	c.Connections = raw.Connections
	return nil
}

// decodeComponent rebuilds a component from its saved form. Known types get
// their fixed terminals and default parameters, overridden by saved values.
// Unknown types are kept verbatim.
func decodeComponent(data []byte) (*Component, error) {
	var saved Component
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, err
	}

	t, known := ParseType(string(saved.Type))
	if !known {
		if saved.Parameters == nil {
			saved.Parameters = map[string]float64{}
		}
		return &saved, nil
	}

	comp, err := NewComponent(t, saved.Name)
	if err != nil {
		return nil, err
	}
	for k, v := range saved.Parameters {
		comp.Parameters[k] = v
	}
	comp.Position = saved.Position
	comp.Rotation = saved.Rotation
	return comp, nil
}

// Load reads a circuit saved with Save.
func Load(path string) (*Circuit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := &Circuit{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Circuit) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
