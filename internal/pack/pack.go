package pack

import "bytes"

// Pack is a complete story: an ordered stage node graph plus
// pack-level metadata. The first stage node is the entry point and its
// UUID doubles as the pack UUID in device-native layouts.
type Pack struct {
	UUID      string
	Version   int16
	NightMode bool

	// SectorSize is derived from the on-disk size of the raw
	// representation (512-byte sectors), never authored directly.
	SectorSize int

	Nodes []*StageNode

	Enriched *EnrichedPackMetadata
}

// EnrichedPackMetadata carries optional display metadata embedded in
// archive packs and stripped from output when a writer is told not to
// emit enriched data.
type EnrichedPackMetadata struct {
	Title       string
	Description string
	Thumbnail   []byte
	Official    bool
}

// EnrichedNodeMetadata carries optional editor metadata for one node.
type EnrichedNodeMetadata struct {
	Name  string
	Type  string
	Group string
}

// ControlSettings describes which physical inputs are active while a
// stage node is displayed.
type ControlSettings struct {
	Wheel    bool
	OK       bool
	Home     bool
	Pause    bool
	Autoplay bool
}

// Transition is a directed edge to another stage node via a specific
// navigation option. It never owns its target; back references may
// form cycles.
type Transition struct {
	Target      *StageNode
	OptionIndex int
}

// StageNode is one narrative unit: optional image and audio plus up to
// two outgoing transitions.
type StageNode struct {
	UUID     string
	Image    *ImageAsset
	Audio    *AudioAsset
	OK       *Transition
	Home     *Transition
	Controls ControlSettings
	Enriched *EnrichedNodeMetadata
}

// Same reports structural equality of two nodes, excluding
// transitions. Excluding them keeps comparison cycle-tolerant: the
// node graph is directed and possibly cyclic.
func (n *StageNode) Same(other *StageNode) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.UUID != other.UUID || n.Controls != other.Controls {
		return false
	}
	if (n.Image == nil) != (other.Image == nil) {
		return false
	}
	if n.Image != nil {
		if n.Image.Type != other.Image.Type || !bytes.Equal(n.Image.Data, other.Image.Data) {
			return false
		}
	}
	if (n.Audio == nil) != (other.Audio == nil) {
		return false
	}
	if n.Audio != nil {
		if n.Audio.Type != other.Audio.Type || !bytes.Equal(n.Audio.Data, other.Audio.Data) {
			return false
		}
	}
	return true
}

// Node returns the stage node with the given UUID, or nil.
func (p *Pack) Node(uuid string) *StageNode {
	for _, n := range p.Nodes {
		if n.UUID == uuid {
			return n
		}
	}
	return nil
}

// Title returns the enriched title when present.
func (p *Pack) Title() string {
	if p.Enriched == nil {
		return ""
	}
	return p.Enriched.Title
}
