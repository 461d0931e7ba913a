package format

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"fabula/internal/fileutil"
	"fabula/internal/pack"
)

// Device-native folder layout. The node index file begins with a
// 512-byte header block whose version field sits at byte offset 2,
// little-endian; the device driver reads that same field when listing
// installed packs. Node records do not name asset files or target
// nodes directly: images and audio are numbers into the ri/si index
// files (12-byte file names under rf/ and sf/), and transitions go
// through the li list file (4-byte little-endian node indexes).
const (
	nodeIndexFile  = "ni"
	listIndexFile  = "li"
	imageIndexFile = "ri"
	audioIndexFile = "si"
	imageDir       = "rf"
	audioDir       = "sf"
	nightFlagFile  = "bt"
	fsMetaFile     = "md"
	fsThumbFile    = "tn"

	fsHeaderSize   = 512
	fsNodeRecLen   = 64
	fsAssetRefLen  = 12
	fsListEntryLen = 4

	fsOffFormat    = 0
	fsOffVersion   = 2
	fsOffNodeCount = 4
	fsOffUUID      = 8
	fsOffNightMode = 24
)

type fsMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Official    bool   `json:"official"`
}

type fsCodec struct{}

func (fsCodec) Read(path string) (*pack.Pack, error) {
	ni, err := os.ReadFile(filepath.Join(path, nodeIndexFile))
	if err != nil {
		return nil, decodeErr(FS, path, err)
	}
	if len(ni) < fsHeaderSize {
		return nil, decodeErrf(FS, path, "node index shorter than header block (%d bytes)", len(ni))
	}

	packUUID, err := uuid.FromBytes(ni[fsOffUUID : fsOffUUID+16])
	if err != nil {
		return nil, decodeErr(FS, path, err)
	}
	nodeCount := int(binary.LittleEndian.Uint32(ni[fsOffNodeCount:]))
	if len(ni) < fsHeaderSize+nodeCount*fsNodeRecLen {
		return nil, decodeErrf(FS, path, "node index truncated: %d nodes, %d bytes", nodeCount, len(ni))
	}

	p := &pack.Pack{
		UUID:      packUUID.String(),
		Version:   int16(binary.LittleEndian.Uint16(ni[fsOffVersion:])),
		NightMode: ni[fsOffNightMode] == 1,
	}

	imageNames, err := readAssetIndex(path, imageIndexFile)
	if err != nil {
		return nil, decodeErr(FS, path, err)
	}
	audioNames, err := readAssetIndex(path, audioIndexFile)
	if err != nil {
		return nil, decodeErr(FS, path, err)
	}
	lists, err := readListIndex(path)
	if err != nil {
		return nil, decodeErr(FS, path, err)
	}

	imageCache := make(map[uint32]*pack.ImageAsset)
	audioCache := make(map[uint32]*pack.AudioAsset)

	nodes := make([]*pack.StageNode, nodeCount)
	type pendingTransition struct {
		node   int
		home   bool
		list   uint32
		option uint16
	}
	var pending []pendingTransition

	for i := 0; i < nodeCount; i++ {
		rec := ni[fsHeaderSize+i*fsNodeRecLen:]
		node := &pack.StageNode{}

		nodeUUID, err := uuid.FromBytes(rec[0:16])
		if err != nil {
			return nil, decodeErr(FS, path, err)
		}
		node.UUID = nodeUUID.String()

		if idx := binary.LittleEndian.Uint32(rec[16:]); idx != rawNoRef {
			if int(idx) >= len(imageNames) {
				return nil, decodeErrf(FS, path, "node %d image %d outside ri (%d entries)", i, idx, len(imageNames))
			}
			asset, ok := imageCache[idx]
			if !ok {
				data, err := os.ReadFile(filepath.Join(path, imageDir, imageNames[idx]))
				if err != nil {
					return nil, decodeErr(FS, path, err)
				}
				imgType := sniffImageType(data)
				if imgType == "" {
					return nil, decodeErrf(FS, path, "image asset %d: unrecognized encoding", idx)
				}
				asset = &pack.ImageAsset{Type: imgType, Data: data}
				imageCache[idx] = asset
			}
			node.Image = &pack.ImageAsset{Type: asset.Type, Data: asset.Data}
		}
		if idx := binary.LittleEndian.Uint32(rec[20:]); idx != rawNoRef {
			if int(idx) >= len(audioNames) {
				return nil, decodeErrf(FS, path, "node %d audio %d outside si (%d entries)", i, idx, len(audioNames))
			}
			asset, ok := audioCache[idx]
			if !ok {
				data, err := os.ReadFile(filepath.Join(path, audioDir, audioNames[idx]))
				if err != nil {
					return nil, decodeErr(FS, path, err)
				}
				audType := sniffAudioType(data)
				if audType == "" {
					return nil, decodeErrf(FS, path, "audio asset %d: unrecognized encoding", idx)
				}
				asset = &pack.AudioAsset{Type: audType, Data: data}
				audioCache[idx] = asset
			}
			node.Audio = &pack.AudioAsset{Type: asset.Type, Data: asset.Data}
		}

		if entry := binary.LittleEndian.Uint32(rec[24:]); entry != rawNoRef {
			pending = append(pending, pendingTransition{node: i, list: entry, option: binary.LittleEndian.Uint16(rec[28:])})
		}
		if entry := binary.LittleEndian.Uint32(rec[30:]); entry != rawNoRef {
			pending = append(pending, pendingTransition{node: i, home: true, list: entry, option: binary.LittleEndian.Uint16(rec[34:])})
		}

		controls := rec[36]
		node.Controls = pack.ControlSettings{
			Wheel:    controls&1 != 0,
			OK:       controls&2 != 0,
			Home:     controls&4 != 0,
			Pause:    controls&8 != 0,
			Autoplay: controls&16 != 0,
		}
		nodes[i] = node
	}

	for _, pt := range pending {
		if int(pt.list) >= len(lists) {
			return nil, decodeErrf(FS, path, "node %d transition references li entry %d of %d", pt.node, pt.list, len(lists))
		}
		target := lists[pt.list]
		if int(target) >= nodeCount {
			return nil, decodeErrf(FS, path, "node %d transition targets node %d of %d", pt.node, target, nodeCount)
		}
		tr := &pack.Transition{Target: nodes[target], OptionIndex: int(pt.option)}
		if pt.home {
			nodes[pt.node].Home = tr
		} else {
			nodes[pt.node].OK = tr
		}
	}
	p.Nodes = nodes

	if enriched, err := readFSMetadata(path); err == nil && enriched != nil {
		p.Enriched = enriched
	}

	if size, err := fileutil.TreeSize(path); err == nil {
		p.SectorSize = sectorCount(size)
	}
	return p, nil
}

func (fsCodec) ReadMetadata(path string) (*pack.Metadata, error) {
	f, err := os.Open(filepath.Join(path, nodeIndexFile))
	if err != nil {
		return nil, decodeErr(FS, path, err)
	}
	defer f.Close()

	header := make([]byte, fsHeaderSize)
	if n, err := f.Read(header); err != nil || n < fsHeaderSize {
		return nil, decodeErrf(FS, path, "node index header read: %d bytes (%v)", n, err)
	}
	packUUID, err := uuid.FromBytes(header[fsOffUUID : fsOffUUID+16])
	if err != nil {
		return nil, decodeErr(FS, path, err)
	}

	meta := &pack.Metadata{
		UUID:      packUUID.String(),
		Version:   int16(binary.LittleEndian.Uint16(header[fsOffVersion:])),
		NightMode: header[fsOffNightMode] == 1,
	}
	if enriched, err := readFSMetadata(path); err == nil && enriched != nil {
		meta.Title = enriched.Title
		meta.Description = enriched.Description
		meta.Thumbnail = enriched.Thumbnail
	}
	if size, err := fileutil.TreeSize(path); err == nil {
		meta.SectorSize = sectorCount(size)
	}
	return meta, nil
}

func (fsCodec) Write(p *pack.Pack, dest string, allowEnriched bool) (string, error) {
	packUUID, err := uuid.Parse(p.UUID)
	if err != nil {
		return "", fmt.Errorf("pack uuid: %w", err)
	}
	for _, dir := range []string{dest, filepath.Join(dest, imageDir), filepath.Join(dest, audioDir)} {
		if err := fileutil.EnsureDir(dir); err != nil {
			return "", err
		}
	}

	index := make(map[*pack.StageNode]int, len(p.Nodes))
	for i, node := range p.Nodes {
		index[node] = i
	}

	ni := make([]byte, fsHeaderSize+len(p.Nodes)*fsNodeRecLen)
	binary.LittleEndian.PutUint16(ni[fsOffFormat:], 1)
	binary.LittleEndian.PutUint16(ni[fsOffVersion:], uint16(p.Version))
	binary.LittleEndian.PutUint32(ni[fsOffNodeCount:], uint32(len(p.Nodes)))
	copy(ni[fsOffUUID:], packUUID[:])
	if p.NightMode {
		ni[fsOffNightMode] = 1
	}

	imageIndex := newAssetIndexer(filepath.Join(dest, imageDir))
	audioIndex := newAssetIndexer(filepath.Join(dest, audioDir))

	var li []byte
	addListEntry := func(target int) uint32 {
		entry := uint32(len(li) / fsListEntryLen)
		li = binary.LittleEndian.AppendUint32(li, uint32(target))
		return entry
	}

	for i, node := range p.Nodes {
		rec := ni[fsHeaderSize+i*fsNodeRecLen:]

		nodeUUID, err := uuid.Parse(node.UUID)
		if err != nil {
			return "", fmt.Errorf("node %d uuid: %w", i, err)
		}
		copy(rec[0:], nodeUUID[:])

		binary.LittleEndian.PutUint32(rec[16:], rawNoRef)
		if node.Image != nil {
			idx, err := imageIndex.add(node.Image.Data)
			if err != nil {
				return "", fmt.Errorf("node %d image: %w", i, err)
			}
			binary.LittleEndian.PutUint32(rec[16:], idx)
		}
		binary.LittleEndian.PutUint32(rec[20:], rawNoRef)
		if node.Audio != nil {
			idx, err := audioIndex.add(node.Audio.Data)
			if err != nil {
				return "", fmt.Errorf("node %d audio: %w", i, err)
			}
			binary.LittleEndian.PutUint32(rec[20:], idx)
		}

		binary.LittleEndian.PutUint32(rec[24:], rawNoRef)
		if node.OK != nil {
			target, ok := index[node.OK.Target]
			if !ok {
				return "", fmt.Errorf("node %d: ok transition targets a node outside the pack", i)
			}
			binary.LittleEndian.PutUint32(rec[24:], addListEntry(target))
			binary.LittleEndian.PutUint16(rec[28:], uint16(node.OK.OptionIndex))
		}
		binary.LittleEndian.PutUint32(rec[30:], rawNoRef)
		if node.Home != nil {
			target, ok := index[node.Home.Target]
			if !ok {
				return "", fmt.Errorf("node %d: home transition targets a node outside the pack", i)
			}
			binary.LittleEndian.PutUint32(rec[30:], addListEntry(target))
			binary.LittleEndian.PutUint16(rec[34:], uint16(node.Home.OptionIndex))
		}

		var controls byte
		if node.Controls.Wheel {
			controls |= 1
		}
		if node.Controls.OK {
			controls |= 2
		}
		if node.Controls.Home {
			controls |= 4
		}
		if node.Controls.Pause {
			controls |= 8
		}
		if node.Controls.Autoplay {
			controls |= 16
		}
		rec[36] = controls
	}

	if err := os.WriteFile(filepath.Join(dest, nodeIndexFile), ni, 0o644); err != nil {
		return "", fmt.Errorf("write node index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dest, listIndexFile), li, 0o644); err != nil {
		return "", fmt.Errorf("write list index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dest, imageIndexFile), imageIndex.encode(), 0o644); err != nil {
		return "", fmt.Errorf("write image index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dest, audioIndexFile), audioIndex.encode(), 0o644); err != nil {
		return "", fmt.Errorf("write audio index: %w", err)
	}

	if p.NightMode {
		if err := os.WriteFile(filepath.Join(dest, nightFlagFile), []byte{1}, 0o644); err != nil {
			return "", fmt.Errorf("write night mode flag: %w", err)
		}
	}
	if allowEnriched && p.Enriched != nil {
		doc, err := json.Marshal(fsMetadata{
			Title:       p.Enriched.Title,
			Description: p.Enriched.Description,
			Official:    p.Enriched.Official,
		})
		if err != nil {
			return "", fmt.Errorf("encode pack metadata: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dest, fsMetaFile), doc, 0o644); err != nil {
			return "", fmt.Errorf("write pack metadata: %w", err)
		}
		if len(p.Enriched.Thumbnail) > 0 {
			if err := os.WriteFile(filepath.Join(dest, fsThumbFile), p.Enriched.Thumbnail, 0o644); err != nil {
				return "", fmt.Errorf("write thumbnail: %w", err)
			}
		}
	}
	return dest, nil
}

// assetIndexer assigns sequential file numbers to unique payloads
// inside one asset directory and records their names for the index
// file.
type assetIndexer struct {
	dir     string
	names   []string
	indexes map[string]uint32
}

func newAssetIndexer(dir string) *assetIndexer {
	return &assetIndexer{dir: dir, indexes: make(map[string]uint32)}
}

func (a *assetIndexer) add(data []byte) (uint32, error) {
	key := assetKey(data)
	if idx, ok := a.indexes[key]; ok {
		return idx, nil
	}
	idx := uint32(len(a.names))
	name := fmt.Sprintf("%08d", idx)
	if err := os.WriteFile(filepath.Join(a.dir, name), data, 0o644); err != nil {
		return 0, err
	}
	a.indexes[key] = idx
	a.names = append(a.names, name)
	return idx, nil
}

// encode renders the index file contents, one fixed-width record per
// asset in number order.
func (a *assetIndexer) encode() []byte {
	out := make([]byte, len(a.names)*fsAssetRefLen)
	for i, name := range a.names {
		copy(out[i*fsAssetRefLen:], name)
	}
	return out
}

func readAssetIndex(path, name string) ([]string, error) {
	raw, err := os.ReadFile(filepath.Join(path, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(raw)%fsAssetRefLen != 0 {
		return nil, fmt.Errorf("%s length %d is not a multiple of %d", name, len(raw), fsAssetRefLen)
	}
	entries := make([]string, 0, len(raw)/fsAssetRefLen)
	for off := 0; off < len(raw); off += fsAssetRefLen {
		entries = append(entries, string(bytes.TrimRight(raw[off:off+fsAssetRefLen], "\x00")))
	}
	return entries, nil
}

func readListIndex(path string) ([]uint32, error) {
	raw, err := os.ReadFile(filepath.Join(path, listIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(raw)%fsListEntryLen != 0 {
		return nil, fmt.Errorf("%s length %d is not a multiple of %d", listIndexFile, len(raw), fsListEntryLen)
	}
	entries := make([]uint32, 0, len(raw)/fsListEntryLen)
	for off := 0; off < len(raw); off += fsListEntryLen {
		entries = append(entries, binary.LittleEndian.Uint32(raw[off:]))
	}
	return entries, nil
}

func readFSMetadata(path string) (*pack.EnrichedPackMetadata, error) {
	raw, err := os.ReadFile(filepath.Join(path, fsMetaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var doc fsMetadata
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	enriched := &pack.EnrichedPackMetadata{
		Title:       doc.Title,
		Description: doc.Description,
		Official:    doc.Official,
	}
	if thumb, err := os.ReadFile(filepath.Join(path, fsThumbFile)); err == nil {
		enriched.Thumbnail = thumb
	}
	return enriched, nil
}

func sniffImageType(data []byte) pack.ImageType {
	switch {
	case len(data) >= 2 && data[0] == 'B' && data[1] == 'M':
		return pack.ImageBMP
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		return pack.ImagePNG
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8:
		return pack.ImageJPEG
	default:
		return ""
	}
}

func sniffAudioType(data []byte) pack.AudioType {
	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		return pack.AudioWAV
	case bytes.HasPrefix(data, []byte("OggS")):
		return pack.AudioOGG
	case bytes.HasPrefix(data, []byte("ID3")):
		return pack.AudioMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return pack.AudioMP3
	default:
		return ""
	}
}
