package format

import (
	"archive/zip"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"

	"fabula/internal/pack"
)

const (
	storyEntry     = "story.json"
	thumbnailEntry = "thumbnail.png"
	assetDir       = "assets/"
)

// storyDocument is the story.json payload inside an archive pack.
type storyDocument struct {
	Format      string      `json:"format"`
	UUID        string      `json:"uuid"`
	Version     int16       `json:"version"`
	NightMode   bool        `json:"nightModeAvailable"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Official    bool        `json:"official,omitempty"`
	Nodes       []storyNode `json:"stageNodes"`
}

type storyNode struct {
	UUID     string           `json:"uuid"`
	Image    string           `json:"image,omitempty"`
	Audio    string           `json:"audio,omitempty"`
	OK       *storyTransition `json:"okTransition,omitempty"`
	Home     *storyTransition `json:"homeTransition,omitempty"`
	Controls storyControls    `json:"controlSettings"`
	Name     string           `json:"name,omitempty"`
	Type     string           `json:"type,omitempty"`
	Group    string           `json:"groupId,omitempty"`
}

type storyTransition struct {
	Node   int `json:"stageNode"`
	Option int `json:"optionIndex"`
}

type storyControls struct {
	Wheel    bool `json:"wheel"`
	OK       bool `json:"ok"`
	Home     bool `json:"home"`
	Pause    bool `json:"pause"`
	Autoplay bool `json:"autoplay"`
}

const storyFormatTag = "fabula-v1"

type archiveCodec struct{}

func (archiveCodec) Read(path string) (*pack.Pack, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, decodeErr(Archive, path, err)
	}
	defer zr.Close()

	doc, err := readStoryDocument(&zr.Reader)
	if err != nil {
		return nil, decodeErr(Archive, path, err)
	}

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	p := &pack.Pack{
		UUID:      doc.UUID,
		Version:   doc.Version,
		NightMode: doc.NightMode,
	}
	if doc.Title != "" || doc.Description != "" {
		p.Enriched = &pack.EnrichedPackMetadata{
			Title:       doc.Title,
			Description: doc.Description,
			Official:    doc.Official,
		}
		if thumb, ok := entries[thumbnailEntry]; ok {
			data, err := readZipEntry(thumb)
			if err != nil {
				return nil, decodeErr(Archive, path, err)
			}
			p.Enriched.Thumbnail = data
		}
	}

	assetCache := make(map[string][]byte)
	loadAsset := func(name string) ([]byte, error) {
		if data, ok := assetCache[name]; ok {
			return data, nil
		}
		entry, ok := entries[name]
		if !ok {
			return nil, fmt.Errorf("missing asset entry %s", name)
		}
		data, err := readZipEntry(entry)
		if err != nil {
			return nil, err
		}
		assetCache[name] = data
		return data, nil
	}

	nodes := make([]*pack.StageNode, len(doc.Nodes))
	for i, sn := range doc.Nodes {
		node := &pack.StageNode{
			UUID: sn.UUID,
			Controls: pack.ControlSettings{
				Wheel:    sn.Controls.Wheel,
				OK:       sn.Controls.OK,
				Home:     sn.Controls.Home,
				Pause:    sn.Controls.Pause,
				Autoplay: sn.Controls.Autoplay,
			},
		}
		if sn.Name != "" || sn.Type != "" || sn.Group != "" {
			node.Enriched = &pack.EnrichedNodeMetadata{Name: sn.Name, Type: sn.Type, Group: sn.Group}
		}
		if sn.Image != "" {
			data, err := loadAsset(sn.Image)
			if err != nil {
				return nil, decodeErr(Archive, path, err)
			}
			imgType := pack.ImageTypeFromExtension(extOf(sn.Image))
			if imgType == "" {
				return nil, decodeErrf(Archive, path, "unsupported image asset %s", sn.Image)
			}
			node.Image = &pack.ImageAsset{Type: imgType, Data: data}
		}
		if sn.Audio != "" {
			data, err := loadAsset(sn.Audio)
			if err != nil {
				return nil, decodeErr(Archive, path, err)
			}
			audType := pack.AudioTypeFromExtension(extOf(sn.Audio))
			if audType == "" {
				return nil, decodeErrf(Archive, path, "unsupported audio asset %s", sn.Audio)
			}
			node.Audio = &pack.AudioAsset{Type: audType, Data: data}
		}
		nodes[i] = node
	}

	// Second pass: transitions reference nodes by list index.
	for i, sn := range doc.Nodes {
		var err error
		if nodes[i].OK, err = resolveTransition(sn.OK, nodes); err != nil {
			return nil, decodeErr(Archive, path, err)
		}
		if nodes[i].Home, err = resolveTransition(sn.Home, nodes); err != nil {
			return nil, decodeErr(Archive, path, err)
		}
	}

	p.Nodes = nodes
	if p.UUID == "" && len(nodes) > 0 {
		p.UUID = nodes[0].UUID
	}
	if p.SectorSize == 0 {
		if info, err := os.Stat(path); err == nil {
			p.SectorSize = sectorCount(info.Size())
		}
	}
	return p, nil
}

func (archiveCodec) ReadMetadata(path string) (*pack.Metadata, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, decodeErr(Archive, path, err)
	}
	defer zr.Close()

	doc, err := readStoryDocument(&zr.Reader)
	if err != nil {
		return nil, decodeErr(Archive, path, err)
	}

	meta := &pack.Metadata{
		UUID:        doc.UUID,
		Version:     doc.Version,
		Title:       doc.Title,
		Description: doc.Description,
		NightMode:   doc.NightMode,
	}
	if meta.UUID == "" && len(doc.Nodes) > 0 {
		meta.UUID = doc.Nodes[0].UUID
	}
	for _, f := range zr.File {
		if f.Name == thumbnailEntry {
			if data, err := readZipEntry(f); err == nil {
				meta.Thumbnail = data
			}
			break
		}
	}
	if info, err := os.Stat(path); err == nil {
		meta.SectorSize = sectorCount(info.Size())
	}
	return meta, nil
}

func (archiveCodec) Write(p *pack.Pack, dest string, allowEnriched bool) (string, error) {
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create archive pack: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	doc := storyDocument{
		Format:    storyFormatTag,
		UUID:      p.UUID,
		Version:   p.Version,
		NightMode: p.NightMode,
		Nodes:     make([]storyNode, len(p.Nodes)),
	}
	if allowEnriched && p.Enriched != nil {
		doc.Title = p.Enriched.Title
		doc.Description = p.Enriched.Description
		doc.Official = p.Enriched.Official
	}

	index := make(map[*pack.StageNode]int, len(p.Nodes))
	for i, node := range p.Nodes {
		index[node] = i
	}

	written := make(map[string]bool)
	addAsset := func(data []byte, ext string) (string, error) {
		name := assetDir + assetKey(data) + ext
		if written[name] {
			return name, nil
		}
		w, err := zw.Create(name)
		if err != nil {
			return "", err
		}
		if _, err := w.Write(data); err != nil {
			return "", err
		}
		written[name] = true
		return name, nil
	}

	for i, node := range p.Nodes {
		sn := storyNode{
			UUID: node.UUID,
			Controls: storyControls{
				Wheel:    node.Controls.Wheel,
				OK:       node.Controls.OK,
				Home:     node.Controls.Home,
				Pause:    node.Controls.Pause,
				Autoplay: node.Controls.Autoplay,
			},
		}
		if allowEnriched && node.Enriched != nil {
			sn.Name = node.Enriched.Name
			sn.Type = node.Enriched.Type
			sn.Group = node.Enriched.Group
		}
		if node.Image != nil {
			name, err := addAsset(node.Image.Data, node.Image.Type.Extension())
			if err != nil {
				return "", fmt.Errorf("write image asset: %w", err)
			}
			sn.Image = name
		}
		if node.Audio != nil {
			name, err := addAsset(node.Audio.Data, node.Audio.Type.Extension())
			if err != nil {
				return "", fmt.Errorf("write audio asset: %w", err)
			}
			sn.Audio = name
		}
		if node.OK != nil {
			target, ok := index[node.OK.Target]
			if !ok {
				return "", fmt.Errorf("node %s: ok transition targets a node outside the pack", node.UUID)
			}
			sn.OK = &storyTransition{Node: target, Option: node.OK.OptionIndex}
		}
		if node.Home != nil {
			target, ok := index[node.Home.Target]
			if !ok {
				return "", fmt.Errorf("node %s: home transition targets a node outside the pack", node.UUID)
			}
			sn.Home = &storyTransition{Node: target, Option: node.Home.OptionIndex}
		}
		doc.Nodes[i] = sn
	}

	storyWriter, err := zw.Create(storyEntry)
	if err != nil {
		return "", fmt.Errorf("write story entry: %w", err)
	}
	enc := json.NewEncoder(storyWriter)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encode story: %w", err)
	}

	if allowEnriched && p.Enriched != nil && len(p.Enriched.Thumbnail) > 0 {
		w, err := zw.Create(thumbnailEntry)
		if err != nil {
			return "", fmt.Errorf("write thumbnail: %w", err)
		}
		if _, err := w.Write(p.Enriched.Thumbnail); err != nil {
			return "", fmt.Errorf("write thumbnail: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}
	return dest, nil
}

func readStoryDocument(zr *zip.Reader) (*storyDocument, error) {
	for _, f := range zr.File {
		if f.Name != storyEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		var doc storyDocument
		if err := json.NewDecoder(rc).Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", storyEntry, err)
		}
		return &doc, nil
	}
	return nil, fmt.Errorf("missing %s entry", storyEntry)
}

func resolveTransition(st *storyTransition, nodes []*pack.StageNode) (*pack.Transition, error) {
	if st == nil {
		return nil, nil
	}
	if st.Node < 0 || st.Node >= len(nodes) {
		return nil, fmt.Errorf("transition targets node %d of %d", st.Node, len(nodes))
	}
	return &pack.Transition{Target: nodes[st.Node], OptionIndex: st.Option}, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// assetKey names an asset entry by a digest of its content, so nodes
// sharing a payload share one entry.
func assetKey(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func extOf(name string) string {
	for i := len(name) - 1; i >= 0 && name[i] != '/'; i-- {
		if name[i] == '.' {
			return name[i:]
		}
	}
	return ""
}

func sectorCount(size int64) int {
	return int((size + 511) / 512)
}
