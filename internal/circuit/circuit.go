package circuit

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

var (
	ErrUnknownComponent = errors.New("circuit: unknown component")
	ErrUnknownTerminal  = errors.New("circuit: unknown terminal")
	ErrSelfConnection   = errors.New("circuit: component connected to itself")
	ErrDuplicateID      = errors.New("circuit: duplicate component id")
)

// Endpoint names one terminal of one component.
type Endpoint struct {
	ComponentID string
	Terminal    string
}

// Connection is an unordered pair of endpoints.
type Connection struct {
	A, B Endpoint
}

// Same reports whether c and o join the same two endpoints in either order.
func (c Connection) Same(o Connection) bool {
	return (c.A == o.A && c.B == o.B) || (c.A == o.B && c.B == o.A)
}

func (c Connection) Touches(componentID string) bool {
	return c.A.ComponentID == componentID || c.B.ComponentID == componentID
}

type Circuit struct {
	ID          string
	Name        string
	Components  map[string]*Component
	Connections []Connection
}

func New(name string) *Circuit {
	if name == "" {
		name = "Untitled Circuit"
	}
	return &Circuit{
		ID:         uuid.NewString(),
		Name:       name,
		Components: make(map[string]*Component),
	}
}

func (c *Circuit) Add(comp *Component) (string, error) {
	if _, exists := c.Components[comp.ID]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, comp.ID)
	}
	c.Components[comp.ID] = comp
	return comp.ID, nil
}

// Remove deletes a component and every connection attached to it.
func (c *Circuit) Remove(id string) bool {
	if _, ok := c.Components[id]; !ok {
		return false
	}
	kept := c.Connections[:0]
	for _, conn := range c.Connections {
		if !conn.Touches(id) {
			kept = append(kept, conn)
		}
	}
	c.Connections = kept
	delete(c.Components, id)
	return true
}

// Connect joins two terminals. Connecting an already joined pair is a no-op.
func (c *Circuit) Connect(id1, t1, id2, t2 string) error {
	conn := Connection{A: Endpoint{id1, t1}, B: Endpoint{id2, t2}}
	if err := c.checkConnection(conn); err != nil {
		return err
	}
	for _, existing := range c.Connections {
		if existing.Same(conn) {
			return nil
		}
	}
	c.Connections = append(c.Connections, conn)
	return nil
}

func (c *Circuit) Disconnect(id1, t1, id2, t2 string) bool {
	conn := Connection{A: Endpoint{id1, t1}, B: Endpoint{id2, t2}}
	for i, existing := range c.Connections {
		if existing.Same(conn) {
			c.Connections = append(c.Connections[:i], c.Connections[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Circuit) checkConnection(conn Connection) error {
	if conn.A.ComponentID == conn.B.ComponentID {
		return fmt.Errorf("%w: %s", ErrSelfConnection, conn.A.ComponentID)
	}
	for _, ep := range []Endpoint{conn.A, conn.B} {
		comp, ok := c.Components[ep.ComponentID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownComponent, ep.ComponentID)
		}
		if !comp.HasTerminal(ep.Terminal) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownTerminal, ep.ComponentID, ep.Terminal)
		}
	}
	return nil
}

// Validate checks that every connection references existing terminals and
// that no component is wired to itself.
func (c *Circuit) Validate() error {
	var errs []error
	for i, conn := range c.Connections {
		if err := c.checkConnection(conn); err != nil {
			errs = append(errs, fmt.Errorf("connection %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// SortedIDs returns component ids in ascending order. Model construction
// iterates in this order so that role selection is deterministic.
func (c *Circuit) SortedIDs() []string {
	ids := make([]string, 0, len(c.Components))
	for id := range c.Components {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CountByType tallies components per type tag.
func (c *Circuit) CountByType() map[ComponentType]int {
	counts := make(map[ComponentType]int)
	for _, comp := range c.Components {
		counts[comp.Type]++
	}
	return counts
}

// Snapshot returns a deep copy that can be simulated while the original
// keeps being edited.
func (c *Circuit) Snapshot() *Circuit {
	cp := &Circuit{
		ID:          c.ID,
		Name:        c.Name,
		Components:  make(map[string]*Component, len(c.Components)),
		Connections: append([]Connection(nil), c.Connections...),
	}
	for id, comp := range c.Components {
		cp.Components[id] = comp.Clone()
	}
	return cp
}
