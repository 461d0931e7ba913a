package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"fabula/internal/pack"
)

// Raw packs are laid out in 512-byte sectors, little-endian
// throughout: a header sector, one sector per stage node, then a blob
// area holding the deduplicated asset payloads.
const (
	sectorSize    = 512
	rawMagic      = "FBP1"
	rawNoRef    = 0xFFFFFFFF
	rawTitleLen = 64
	rawDescLen  = 128
)

// Header sector field offsets.
const (
	rawOffMagic     = 0
	rawOffVersion   = 4
	rawOffNightMode = 6
	rawOffEnriched  = 7
	rawOffNodeCount = 8
	rawOffUUID      = 12
	rawOffTitle     = 28
	rawOffDesc      = rawOffTitle + rawTitleLen
)

type rawCodec struct{}

func (rawCodec) Read(path string) (*pack.Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, decodeErr(Raw, path, err)
	}
	if len(data) < sectorSize {
		return nil, decodeErrf(Raw, path, "file shorter than one sector (%d bytes)", len(data))
	}

	header, err := parseRawHeader(data[:sectorSize])
	if err != nil {
		return nil, decodeErr(Raw, path, err)
	}

	nodeCount := int(header.nodeCount)
	if len(data) < sectorSize*(1+nodeCount) {
		return nil, decodeErrf(Raw, path, "node table truncated: %d nodes, %d bytes", nodeCount, len(data))
	}

	p := &pack.Pack{
		UUID:       header.uuid,
		Version:    header.version,
		NightMode:  header.nightMode,
		SectorSize: sectorCount(int64(len(data))),
	}
	if header.enriched {
		p.Enriched = &pack.EnrichedPackMetadata{Title: header.title, Description: header.description}
	}

	nodes := make([]*pack.StageNode, nodeCount)
	type pendingTransition struct {
		node   int
		home   bool
		target uint32
		option uint16
	}
	var pending []pendingTransition

	for i := 0; i < nodeCount; i++ {
		rec := data[sectorSize*(1+i):]
		node := &pack.StageNode{}

		nodeUUID, err := uuid.FromBytes(rec[0:16])
		if err != nil {
			return nil, decodeErr(Raw, path, err)
		}
		node.UUID = nodeUUID.String()

		if node.Image, err = readRawImage(data, rec[16:]); err != nil {
			return nil, decodeErrf(Raw, path, "node %d image: %v", i, err)
		}
		if node.Audio, err = readRawAudio(data, rec[25:]); err != nil {
			return nil, decodeErrf(Raw, path, "node %d audio: %v", i, err)
		}

		if target := binary.LittleEndian.Uint32(rec[34:]); target != rawNoRef {
			pending = append(pending, pendingTransition{node: i, target: target, option: binary.LittleEndian.Uint16(rec[38:])})
		}
		if target := binary.LittleEndian.Uint32(rec[40:]); target != rawNoRef {
			pending = append(pending, pendingTransition{node: i, home: true, target: target, option: binary.LittleEndian.Uint16(rec[44:])})
		}

		controls := rec[46]
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
		if int(pt.target) >= nodeCount {
			return nil, decodeErrf(Raw, path, "node %d transition targets node %d of %d", pt.node, pt.target, nodeCount)
		}
		tr := &pack.Transition{Target: nodes[pt.target], OptionIndex: int(pt.option)}
		if pt.home {
			nodes[pt.node].Home = tr
		} else {
			nodes[pt.node].OK = tr
		}
	}

	p.Nodes = nodes
	return p, nil
}

func (rawCodec) ReadMetadata(path string) (*pack.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, decodeErr(Raw, path, err)
	}
	defer f.Close()

	header := make([]byte, sectorSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, decodeErr(Raw, path, err)
	}
	parsed, err := parseRawHeader(header)
	if err != nil {
		return nil, decodeErr(Raw, path, err)
	}

	meta := &pack.Metadata{
		UUID:        parsed.uuid,
		Version:     parsed.version,
		Title:       parsed.title,
		Description: parsed.description,
		NightMode:   parsed.nightMode,
	}
	if info, err := f.Stat(); err == nil {
		meta.SectorSize = sectorCount(info.Size())
	}
	return meta, nil
}

func (rawCodec) Write(p *pack.Pack, dest string, allowEnriched bool) (string, error) {
	packUUID, err := uuid.Parse(p.UUID)
	if err != nil {
		return "", fmt.Errorf("pack uuid: %w", err)
	}

	header := make([]byte, sectorSize)
	copy(header[rawOffMagic:], rawMagic)
	binary.LittleEndian.PutUint16(header[rawOffVersion:], uint16(p.Version))
	if p.NightMode {
		header[rawOffNightMode] = 1
	}
	binary.LittleEndian.PutUint32(header[rawOffNodeCount:], uint32(len(p.Nodes)))
	copy(header[rawOffUUID:], packUUID[:])
	if allowEnriched && p.Enriched != nil {
		header[rawOffEnriched] = 1
		copy(header[rawOffTitle:rawOffTitle+rawTitleLen], p.Enriched.Title)
		copy(header[rawOffDesc:rawOffDesc+rawDescLen], p.Enriched.Description)
	}

	index := make(map[*pack.StageNode]int, len(p.Nodes))
	for i, node := range p.Nodes {
		index[node] = i
	}

	// Blob area starts after header and node sectors; identical
	// payloads are stored once.
	blobBase := uint32(sectorSize * (1 + len(p.Nodes)))
	var blobs bytes.Buffer
	offsets := make(map[string]uint32)
	addBlob := func(data []byte) uint32 {
		key := string(data)
		if off, ok := offsets[key]; ok {
			return off
		}
		off := blobBase + uint32(blobs.Len())
		offsets[key] = off
		blobs.Write(data)
		return off
	}

	nodeTable := make([]byte, sectorSize*len(p.Nodes))
	for i, node := range p.Nodes {
		rec := nodeTable[sectorSize*i:]

		nodeUUID, err := uuid.Parse(node.UUID)
		if err != nil {
			return "", fmt.Errorf("node %d uuid: %w", i, err)
		}
		copy(rec[0:], nodeUUID[:])

		binary.LittleEndian.PutUint32(rec[16:], rawNoRef)
		if node.Image != nil {
			binary.LittleEndian.PutUint32(rec[16:], addBlob(node.Image.Data))
			binary.LittleEndian.PutUint32(rec[20:], uint32(len(node.Image.Data)))
			code, err := imageTypeCode(node.Image.Type)
			if err != nil {
				return "", fmt.Errorf("node %d: %w", i, err)
			}
			rec[24] = code
		}
		binary.LittleEndian.PutUint32(rec[25:], rawNoRef)
		if node.Audio != nil {
			binary.LittleEndian.PutUint32(rec[25:], addBlob(node.Audio.Data))
			binary.LittleEndian.PutUint32(rec[29:], uint32(len(node.Audio.Data)))
			code, err := audioTypeCode(node.Audio.Type)
			if err != nil {
				return "", fmt.Errorf("node %d: %w", i, err)
			}
			rec[33] = code
		}

		binary.LittleEndian.PutUint32(rec[34:], rawNoRef)
		if node.OK != nil {
			target, ok := index[node.OK.Target]
			if !ok {
				return "", fmt.Errorf("node %d: ok transition targets a node outside the pack", i)
			}
			binary.LittleEndian.PutUint32(rec[34:], uint32(target))
			binary.LittleEndian.PutUint16(rec[38:], uint16(node.OK.OptionIndex))
		}
		binary.LittleEndian.PutUint32(rec[40:], rawNoRef)
		if node.Home != nil {
			target, ok := index[node.Home.Target]
			if !ok {
				return "", fmt.Errorf("node %d: home transition targets a node outside the pack", i)
			}
			binary.LittleEndian.PutUint32(rec[40:], uint32(target))
			binary.LittleEndian.PutUint16(rec[44:], uint16(node.Home.OptionIndex))
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
		rec[46] = controls
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create raw pack: %w", err)
	}
	defer out.Close()

	for _, chunk := range [][]byte{header, nodeTable, blobs.Bytes()} {
		if _, err := out.Write(chunk); err != nil {
			return "", fmt.Errorf("write raw pack: %w", err)
		}
	}
	// Pad the blob area to a sector boundary.
	if rem := blobs.Len() % sectorSize; rem != 0 {
		if _, err := out.Write(make([]byte, sectorSize-rem)); err != nil {
			return "", fmt.Errorf("write raw pack: %w", err)
		}
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close raw pack: %w", err)
	}
	return dest, nil
}

type rawHeader struct {
	version     int16
	nightMode   bool
	enriched    bool
	nodeCount   uint32
	uuid        string
	title       string
	description string
}

func parseRawHeader(sector []byte) (*rawHeader, error) {
	if string(sector[rawOffMagic:rawOffMagic+4]) != rawMagic {
		return nil, fmt.Errorf("bad magic %q", sector[:4])
	}
	packUUID, err := uuid.FromBytes(sector[rawOffUUID : rawOffUUID+16])
	if err != nil {
		return nil, err
	}
	h := &rawHeader{
		version:   int16(binary.LittleEndian.Uint16(sector[rawOffVersion:])),
		nightMode: sector[rawOffNightMode] == 1,
		enriched:  sector[rawOffEnriched] == 1,
		nodeCount: binary.LittleEndian.Uint32(sector[rawOffNodeCount:]),
		uuid:      packUUID.String(),
	}
	if h.enriched {
		h.title = trimPadded(sector[rawOffTitle : rawOffTitle+rawTitleLen])
		h.description = trimPadded(sector[rawOffDesc : rawOffDesc+rawDescLen])
	}
	return h, nil
}

func readRawImage(data, rec []byte) (*pack.ImageAsset, error) {
	offset := binary.LittleEndian.Uint32(rec[0:])
	if offset == rawNoRef {
		return nil, nil
	}
	size := binary.LittleEndian.Uint32(rec[4:])
	payload, err := sliceBlob(data, offset, size)
	if err != nil {
		return nil, err
	}
	imgType, err := imageTypeFromCode(rec[8])
	if err != nil {
		return nil, err
	}
	return &pack.ImageAsset{Type: imgType, Data: payload}, nil
}

func readRawAudio(data, rec []byte) (*pack.AudioAsset, error) {
	offset := binary.LittleEndian.Uint32(rec[0:])
	if offset == rawNoRef {
		return nil, nil
	}
	size := binary.LittleEndian.Uint32(rec[4:])
	payload, err := sliceBlob(data, offset, size)
	if err != nil {
		return nil, err
	}
	audType, err := audioTypeFromCode(rec[8])
	if err != nil {
		return nil, err
	}
	return &pack.AudioAsset{Type: audType, Data: payload}, nil
}

func sliceBlob(data []byte, offset, size uint32) ([]byte, error) {
	end := int64(offset) + int64(size)
	if end > int64(len(data)) {
		return nil, fmt.Errorf("blob [%d:%d] beyond file end %d", offset, end, len(data))
	}
	out := make([]byte, size)
	copy(out, data[offset:end])
	return out, nil
}

func imageTypeCode(t pack.ImageType) (byte, error) {
	switch t {
	case pack.ImageBMP:
		return 0, nil
	case pack.ImagePNG:
		return 1, nil
	case pack.ImageJPEG:
		return 2, nil
	default:
		return 0, fmt.Errorf("unsupported image type %q", t)
	}
}

func imageTypeFromCode(code byte) (pack.ImageType, error) {
	switch code {
	case 0:
		return pack.ImageBMP, nil
	case 1:
		return pack.ImagePNG, nil
	case 2:
		return pack.ImageJPEG, nil
	default:
		return "", fmt.Errorf("unknown image type code %d", code)
	}
}

func audioTypeCode(t pack.AudioType) (byte, error) {
	switch t {
	case pack.AudioWAV:
		return 0, nil
	case pack.AudioMP3:
		return 1, nil
	case pack.AudioOGG:
		return 2, nil
	default:
		return 0, fmt.Errorf("unsupported audio type %q", t)
	}
}

func audioTypeFromCode(code byte) (pack.AudioType, error) {
	switch code {
	case 0:
		return pack.AudioWAV, nil
	case 1:
		return pack.AudioMP3, nil
	case 2:
		return pack.AudioOGG, nil
	default:
		return "", fmt.Errorf("unknown audio type code %d", code)
	}
}

func trimPadded(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}
